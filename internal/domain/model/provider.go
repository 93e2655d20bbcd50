package model

// ProviderDescription is the public view of a registered LLM provider.
// It never carries the credential.
type ProviderDescription struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Model       string   `json:"model"`
	Strengths   []string `json:"strengths"`
	BestFor     []string `json:"best_for"`
	Available   bool     `json:"available"`
}
