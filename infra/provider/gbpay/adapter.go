// Package gbpay implements the settlement-provider contract against the
// GBPAY bearer-token JSON API: a two-phase quote/execute transfer
// protocol, status polling, destination lookup, and reference catalogs.
package gbpay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/velohr/settlement/pkg/config"
	"github.com/velohr/settlement/pkg/provider"
)

// Adapter talks to the GBPAY API. It is stateless per call apart from a
// short-lived bearer token cache keyed by connection id.
type Adapter struct {
	cfg    config.GBPay
	client *retryablehttp.Client
	logger *slog.Logger

	mu     sync.Mutex
	tokens map[uuid.UUID]cachedToken
}

// New creates a GBPAY adapter.
func New(cfg config.GBPay, logger *slog.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg,
		client: newClient(cfg),
		logger: logger.With("provider", provider.GBPay),
		tokens: newTokenCache(),
	}
}

// Name implements provider.SettlementProvider.
func (*Adapter) Name() string { return provider.GBPay }

// IsManual implements provider.SettlementProvider.
func (*Adapter) IsManual() bool { return false }

// InitiateTransfer runs the quote phase.
func (a *Adapter) InitiateTransfer(
	ctx context.Context,
	creds *provider.Credentials,
	req *provider.InitiateRequest,
) (*provider.InitiateResponse, error) {
	var resp quoteResponse
	err := a.call(ctx, creds, http.MethodPost, "/v1/transfers/quote", quoteRequest{
		Reference:    req.Reference,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Kind:         string(req.Destination.Kind),
		AccountRef:   req.Destination.AccountRef,
		HolderName:   req.Destination.HolderName,
		BankCode:     req.Destination.BankCode,
		OperatorCode: req.Destination.OperatorCode,
		Country:      req.Destination.Country,
		Narration:    req.Narration,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &provider.InitiateResponse{
		QuoteID:        resp.QuoteID,
		ProviderStatus: resp.Status,
	}, nil
}

// ExecuteTransfer confirms a quote.
func (a *Adapter) ExecuteTransfer(
	ctx context.Context,
	creds *provider.Credentials,
	quoteID string,
) (*provider.ExecuteResponse, error) {
	var resp executeResponse
	path := fmt.Sprintf("/v1/transfers/%s/execute", quoteID)
	if err := a.call(ctx, creds, http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	return &provider.ExecuteResponse{
		TransactionRef: resp.TransactionReference,
		ProviderStatus: resp.Status,
	}, nil
}

// GetTransactionStatus re-queries a transfer by provider reference.
func (a *Adapter) GetTransactionStatus(
	ctx context.Context,
	creds *provider.Credentials,
	ref string,
) (*provider.StatusResponse, error) {
	var resp statusResponse
	path := fmt.Sprintf("/v1/transactions/%s", ref)
	if err := a.call(ctx, creds, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &provider.StatusResponse{
		TransactionRef: resp.TransactionReference,
		ProviderStatus: resp.Status,
		FailureReason:  resp.FailureReason,
	}, nil
}

// LookupAccount resolves a destination account holder.
func (a *Adapter) LookupAccount(
	ctx context.Context,
	creds *provider.Credentials,
	req *provider.LookupRequest,
) (*provider.LookupResponse, error) {
	var resp lookupResponse
	err := a.call(ctx, creds, http.MethodPost, "/v1/accounts/lookup", lookupRequest{
		Kind:         string(req.Destination.Kind),
		AccountRef:   req.Destination.AccountRef,
		BankCode:     req.Destination.BankCode,
		OperatorCode: req.Destination.OperatorCode,
		Country:      req.Destination.Country,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &provider.LookupResponse{
		HolderName: resp.HolderName,
		Valid:      resp.Valid,
	}, nil
}

// Catalog lookups. Consumed by the destination verifier and UI only; the
// settlement path never calls these.

func (a *Adapter) Countries(ctx context.Context, creds *provider.Credentials) ([]provider.CatalogEntry, error) {
	return a.catalog(ctx, creds, "/v1/catalogs/countries")
}

func (a *Adapter) Banks(ctx context.Context, creds *provider.Credentials, country string) ([]provider.CatalogEntry, error) {
	return a.catalog(ctx, creds, "/v1/catalogs/banks?country="+country)
}

func (a *Adapter) Operators(ctx context.Context, creds *provider.Credentials, country string) ([]provider.CatalogEntry, error) {
	return a.catalog(ctx, creds, "/v1/catalogs/operators?country="+country)
}

func (a *Adapter) Currencies(ctx context.Context, creds *provider.Credentials) ([]provider.CatalogEntry, error) {
	return a.catalog(ctx, creds, "/v1/catalogs/currencies")
}

func (a *Adapter) catalog(ctx context.Context, creds *provider.Credentials, path string) ([]provider.CatalogEntry, error) {
	var rows []catalogEntry
	if err := a.call(ctx, creds, http.MethodGet, path, nil, &rows); err != nil {
		return nil, err
	}
	out := make([]provider.CatalogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, provider.CatalogEntry{Code: r.Code, Name: r.Name})
	}
	return out, nil
}

// Ensure Adapter implements the provider contracts.
var (
	_ provider.SettlementProvider = (*Adapter)(nil)
	_ provider.CatalogProvider    = (*Adapter)(nil)
)
