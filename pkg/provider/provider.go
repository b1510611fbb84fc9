// Package provider defines the settlement-provider contract the payout
// engine drives: a two-phase initiate/execute transfer protocol, status
// polling, destination lookup, and the normalized error shape every
// adapter must produce.
package provider

import (
	"context"
	"fmt"

	"github.com/velohr/settlement/pkg/domain/payout"
)

// Provider names known to the engine.
const (
	GBPay  = "GBPAY"
	Manual = "MANUAL"
)

// SettlementProvider is the contract every payment provider adapter
// implements. Calls are stateless per invocation; credentials are passed
// in because each employer settles through its own connection.
type SettlementProvider interface {
	// Name returns the unique provider identifier, e.g. "GBPAY".
	Name() string

	// IsManual reports whether this adapter performs no network calls;
	// manual payouts are settled by an out-of-band operator action.
	IsManual() bool

	// InitiateTransfer runs the quote phase of the two-phase protocol.
	InitiateTransfer(ctx context.Context, creds *Credentials, req *InitiateRequest) (*InitiateResponse, error)

	// ExecuteTransfer confirms a previously initiated quote.
	ExecuteTransfer(ctx context.Context, creds *Credentials, quoteID string) (*ExecuteResponse, error)

	// GetTransactionStatus re-queries a transfer by its provider reference.
	GetTransactionStatus(ctx context.Context, creds *Credentials, ref string) (*StatusResponse, error)

	// LookupAccount verifies a payout destination against the provider.
	LookupAccount(ctx context.Context, creds *Credentials, req *LookupRequest) (*LookupResponse, error)
}

// CatalogProvider exposes the provider's reference catalogs. Only the
// destination verifier and UI consume these; the settlement path never
// touches them.
type CatalogProvider interface {
	Countries(ctx context.Context, creds *Credentials) ([]CatalogEntry, error)
	Banks(ctx context.Context, creds *Credentials, country string) ([]CatalogEntry, error)
	Operators(ctx context.Context, creds *Credentials, country string) ([]CatalogEntry, error)
	Currencies(ctx context.Context, creds *Credentials) ([]CatalogEntry, error)
}

// Decryptor is the credential-decryption collaborator: given a stored
// connection, it yields plaintext API credentials. Secret storage itself
// is out of scope.
type Decryptor interface {
	Decrypt(ctx context.Context, conn *payout.Connection) (*Credentials, error)
}

// Registry maps provider names to adapters.
type Registry struct {
	providers map[string]SettlementProvider
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(providers ...SettlementProvider) *Registry {
	r := &Registry{providers: make(map[string]SettlementProvider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (SettlementProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return p, nil
}
