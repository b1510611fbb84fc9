// Package manual implements the manual settlement provider: no network
// calls are made; payouts stamped with this provider are settled by an
// operator through the manual status-update entry point.
package manual

import (
	"context"
	"fmt"

	"github.com/velohr/settlement/pkg/provider"
)

// Provider is the manual no-op settlement provider.
type Provider struct{}

// New creates the manual provider.
func New() *Provider { return &Provider{} }

// Name implements provider.SettlementProvider.
func (*Provider) Name() string { return provider.Manual }

// IsManual implements provider.SettlementProvider.
func (*Provider) IsManual() bool { return true }

// The orchestrator short-circuits before calling the network steps on a
// manual provider; reaching one of these is a wiring bug.

func (*Provider) InitiateTransfer(context.Context, *provider.Credentials, *provider.InitiateRequest) (*provider.InitiateResponse, error) {
	return nil, fmt.Errorf("manual provider does not initiate transfers")
}

func (*Provider) ExecuteTransfer(context.Context, *provider.Credentials, string) (*provider.ExecuteResponse, error) {
	return nil, fmt.Errorf("manual provider does not execute transfers")
}

func (*Provider) GetTransactionStatus(context.Context, *provider.Credentials, string) (*provider.StatusResponse, error) {
	return nil, fmt.Errorf("manual provider has no transaction status")
}

func (*Provider) LookupAccount(context.Context, *provider.Credentials, *provider.LookupRequest) (*provider.LookupResponse, error) {
	// Manual destinations are taken at face value; the operator carries
	// the verification responsibility.
	return &provider.LookupResponse{Valid: true}, nil
}

// Ensure Provider implements the SettlementProvider interface.
var _ provider.SettlementProvider = (*Provider)(nil)
