package provider

import "github.com/velohr/settlement/pkg/domain/payout"

// Settings is an employer's provider configuration: one global default
// plus optional per-category overrides.
type Settings struct {
	Default   string
	Overrides map[payout.Category]string
}

// Effective resolves the provider for a category. Precedence is explicit:
// the category override beats the global default; an unconfigured
// employer falls back to the manual provider, which makes no network
// calls.
func (s Settings) Effective(category payout.Category) string {
	if p, ok := s.Overrides[category]; ok && p != "" {
		return p
	}
	if s.Default != "" {
		return s.Default
	}
	return Manual
}
