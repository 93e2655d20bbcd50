package model

import "time"

// UsageEntry is appended once per admitted request.
type UsageEntry struct {
	ID            string    `json:"id"`
	RequestID     string    `json:"request_id"`
	UserID        string    `json:"user_id"`
	Timestamp     time.Time `json:"timestamp"`
	ProvidersUsed []string  `json:"providers_used"`
	Success       bool      `json:"success"`
	TokensTotal   int       `json:"tokens_total"`
}

// UsageSummary aggregates a user's ledger entries for one UTC day.
type UsageSummary struct {
	UserID      string `json:"user_id"`
	Date        string `json:"date"`
	Requests    int    `json:"requests"`
	Succeeded   int    `json:"succeeded"`
	TokensTotal int    `json:"tokens_total"`
}

func (s *UsageSummary) Add(e *UsageEntry) {
	s.Requests++
	if e.Success {
		s.Succeeded++
	}
	s.TokensTotal += e.TokensTotal
}
