package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/provider"
)

// FakeProvider is a scripted settlement provider. Unset functions answer
// with a generic success.
type FakeProvider struct {
	ProviderName string
	Manual       bool

	InitiateFn func(req *provider.InitiateRequest) (*provider.InitiateResponse, error)
	ExecuteFn  func(quoteID string) (*provider.ExecuteResponse, error)
	StatusFn   func(ref string) (*provider.StatusResponse, error)
	LookupFn   func(req *provider.LookupRequest) (*provider.LookupResponse, error)

	mu            sync.Mutex
	InitiateCalls int
	ExecuteCalls  int
	StatusCalls   int
}

// NewFakeProvider creates a fake answering as the given provider name.
func NewFakeProvider(name string) *FakeProvider {
	return &FakeProvider{ProviderName: name}
}

func (f *FakeProvider) Name() string   { return f.ProviderName }
func (f *FakeProvider) IsManual() bool { return f.Manual }

func (f *FakeProvider) InitiateTransfer(_ context.Context, _ *provider.Credentials, req *provider.InitiateRequest) (*provider.InitiateResponse, error) {
	f.mu.Lock()
	f.InitiateCalls++
	f.mu.Unlock()
	if f.InitiateFn != nil {
		return f.InitiateFn(req)
	}
	return &provider.InitiateResponse{QuoteID: "q-" + req.Reference[:8], ProviderStatus: "pending"}, nil
}

func (f *FakeProvider) ExecuteTransfer(_ context.Context, _ *provider.Credentials, quoteID string) (*provider.ExecuteResponse, error) {
	f.mu.Lock()
	f.ExecuteCalls++
	f.mu.Unlock()
	if f.ExecuteFn != nil {
		return f.ExecuteFn(quoteID)
	}
	return &provider.ExecuteResponse{TransactionRef: "tr-" + quoteID, ProviderStatus: "successful"}, nil
}

func (f *FakeProvider) GetTransactionStatus(_ context.Context, _ *provider.Credentials, ref string) (*provider.StatusResponse, error) {
	f.mu.Lock()
	f.StatusCalls++
	f.mu.Unlock()
	if f.StatusFn != nil {
		return f.StatusFn(ref)
	}
	return &provider.StatusResponse{TransactionRef: ref, ProviderStatus: "successful"}, nil
}

func (f *FakeProvider) LookupAccount(_ context.Context, _ *provider.Credentials, req *provider.LookupRequest) (*provider.LookupResponse, error) {
	if f.LookupFn != nil {
		return f.LookupFn(req)
	}
	return &provider.LookupResponse{HolderName: "Test Holder", Valid: true}, nil
}

var _ provider.SettlementProvider = (*FakeProvider)(nil)

// FakeDecryptor returns static credentials for any connection.
type FakeDecryptor struct{}

func (FakeDecryptor) Decrypt(_ context.Context, conn *payout.Connection) (*provider.Credentials, error) {
	return &provider.Credentials{
		ConnectionID: conn.ID,
		APIKey:       "test-key",
		APISecret:    "test-secret",
	}, nil
}

var _ provider.Decryptor = FakeDecryptor{}

// RecordingNotifier captures notifications for assertions.
type RecordingNotifier struct {
	mu    sync.Mutex
	Sent  []string
	ByOrg map[uuid.UUID]int
}

// NewRecordingNotifier creates an empty recorder.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{ByOrg: make(map[uuid.UUID]int)}
}

func (n *RecordingNotifier) Notify(_ context.Context, employerID uuid.UUID, subject, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, fmt.Sprintf("%s: %s", subject, body))
	n.ByOrg[employerID]++
}

// Count returns how many notifications went out.
func (n *RecordingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Sent)
}
