package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Error is the single normalized shape for every provider or network
// failure. Upstream code branches only on this type, never on raw
// transport errors.
type Error struct {
	// StatusCode is the HTTP-like status of the failed call.
	StatusCode int
	// Code is the provider's machine error code, when one was returned.
	Code string
	// Message is the provider's human-readable error text.
	Message string
	// Payload is the raw response body with secrets redacted.
	Payload []byte
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("provider error %d: %s", e.StatusCode, e.Message)
}

// insufficientFundsCodes is the structured allowlist checked before any
// text matching. Providers that implement the error-code contract are
// matched here.
var insufficientFundsCodes = map[string]bool{
	"INSUFFICIENT_FUNDS":       true,
	"BALANCE_TOO_LOW":          true,
	"ACCOUNT_BALANCE_EXCEEDED": true,
}

// insufficientFundsKeywords is the legacy fallback for providers that
// only return free-text messages.
var insufficientFundsKeywords = []string{"insufficient", "not enough", "balance"}

// InsufficientFunds reports whether the error signals an exhausted
// employer balance. This is the signal the batch coordinator uses to halt
// a run instead of draining the remaining balance across many payouts.
func (e *Error) InsufficientFunds() bool {
	if insufficientFundsCodes[e.Code] {
		return true
	}
	msg := strings.ToLower(e.Message)
	for _, kw := range insufficientFundsKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// AsError unwraps err into the normalized provider error, if it is one.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
