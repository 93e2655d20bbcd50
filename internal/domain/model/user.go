package model

import (
	"strings"
	"time"
)

type Tier string

const (
	TierFree       Tier = "FREE"
	TierPremium    Tier = "PREMIUM"
	TierUnlimited  Tier = "UNLIMITED"
	TierAdmin      Tier = "ADMIN"
	TierSuperAdmin Tier = "SUPER_ADMIN"
)

// Unlimited is the DailyLimit value of tiers without a daily cap.
const Unlimited = -1

// ParseTier accepts any casing; unknown values fall back to FREE.
func ParseTier(s string) Tier {
	switch t := Tier(strings.ToUpper(strings.TrimSpace(s))); t {
	case TierPremium, TierUnlimited, TierAdmin, TierSuperAdmin:
		return t
	default:
		return TierFree
	}
}

// TierLimits maps a tier to its daily request limit. Missing tiers use
// DefaultTierLimits.
type TierLimits map[Tier]int

func DefaultTierLimits() TierLimits {
	return TierLimits{
		TierFree:       10,
		TierPremium:    500,
		TierUnlimited:  Unlimited,
		TierAdmin:      Unlimited,
		TierSuperAdmin: Unlimited,
	}
}

func (l TierLimits) DailyLimit(t Tier) int {
	if v, ok := l[t]; ok {
		return v
	}
	if v, ok := DefaultTierLimits()[t]; ok {
		return v
	}
	return DefaultTierLimits()[TierFree]
}

// User is owned by the account service; the orchestrator only reads the
// tier and maintains the daily counter.
type User struct {
	ID        string    `json:"id"`
	Tier      Tier      `json:"tier"`
	DailyUsed int       `json:"daily_used"`
	LastReset string    `json:"last_reset"` // YYYY-MM-DD, UTC
	CreatedAt time.Time `json:"created_at"`
}

// UTCDay formats t as the calendar day used for the daily counter.
func UTCDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ResetIfNewDay zeroes the counter when the stored day differs from today.
// It reports whether a reset happened; calling it twice on the same day is a no-op.
func (u *User) ResetIfNewDay(now time.Time) bool {
	today := UTCDay(now)
	if u.LastReset == today {
		return false
	}
	u.DailyUsed = 0
	u.LastReset = today
	return true
}
