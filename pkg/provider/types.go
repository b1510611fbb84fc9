package provider

import (
	"github.com/google/uuid"
	"github.com/velohr/settlement/pkg/domain/payout"
)

// Credentials are the decrypted API credentials of one employer
// connection. ConnectionID keys the adapter's token cache.
type Credentials struct {
	ConnectionID uuid.UUID
	APIKey       string
	APISecret    string
	Scope        string
}

// DestinationKind mirrors the payout method kinds on the wire.
type DestinationKind string

const (
	DestinationBank   DestinationKind = "bank"
	DestinationMobile DestinationKind = "mobile"
)

// Destination describes where a transfer lands. The json tags matter:
// snapshots of these payloads are persisted after redaction, and the
// redactor matches on the wire field names.
type Destination struct {
	Kind         DestinationKind `json:"kind"`
	AccountRef   string          `json:"account_number"`
	HolderName   string          `json:"holder_name,omitempty"`
	BankCode     string          `json:"bank_code,omitempty"`
	OperatorCode string          `json:"operator_code,omitempty"`
	Country      string          `json:"country"`
}

// DestinationFromMethod maps a verified payout method to its wire shape.
func DestinationFromMethod(m *payout.Method) Destination {
	kind := DestinationBank
	if m.Kind == payout.MethodMobile {
		kind = DestinationMobile
	}
	return Destination{
		Kind:         kind,
		AccountRef:   m.AccountRef,
		HolderName:   m.HolderName,
		BankCode:     m.BankCode,
		OperatorCode: m.OperatorCode,
		Country:      m.Country,
	}
}

// InitiateRequest is the quote phase of the two-phase transfer protocol.
type InitiateRequest struct {
	Reference   string      `json:"reference"` // idempotency key, echoed by the provider
	Amount      int64       `json:"amount"`
	Currency    string      `json:"currency"`
	Destination Destination `json:"destination"`
	Narration   string      `json:"narration,omitempty"`
}

// InitiateResponse carries the quote the execute phase confirms.
type InitiateResponse struct {
	QuoteID        string
	ProviderStatus string
}

// ExecuteResponse is the provider's answer to confirming a quote.
type ExecuteResponse struct {
	TransactionRef string `json:"transaction_ref"`
	ProviderStatus string `json:"provider_status"`
}

// StatusResponse is the provider's answer to a status poll.
type StatusResponse struct {
	TransactionRef string
	ProviderStatus string
	FailureReason  string
}

// LookupRequest asks the provider to resolve a destination account.
type LookupRequest struct {
	Destination Destination
}

// LookupResponse reports the registered account holder.
type LookupResponse struct {
	HolderName string
	Valid      bool
}

// CatalogEntry is one row of a provider reference catalog.
type CatalogEntry struct {
	Code string
	Name string
}
