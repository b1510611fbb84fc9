package gbpay_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/velohr/settlement/infra/provider/gbpay"
	"github.com/velohr/settlement/pkg/config"
	"github.com/velohr/settlement/pkg/provider"
)

type server struct {
	*httptest.Server
	authCalls atomic.Int32
	expiresIn int64
}

// handleMethod registers a handler scoped to one HTTP method, matching the
// behavior of Go 1.22+ "METHOD /path" ServeMux patterns on older toolchains.
func handleMethod(mux *http.ServeMux, method, path string, fn http.HandlerFunc) {
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		fn(w, r)
	})
}

func newServer(t *testing.T) *server {
	t.Helper()
	s := &server{expiresIn: 3600}

	mux := http.NewServeMux()
	handleMethod(mux, http.MethodPost, "/v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		s.authCalls.Add(1)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req["api_key"] != "k" || req["api_secret"] != "s" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"code": "BAD_CREDENTIALS", "message": "invalid key"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": s.expiresIn})
	})
	handleMethod(mux, http.MethodPost, "/v1/transfers/quote", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req["amount"].(float64) > 1_000_000 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"code":    "INSUFFICIENT_FUNDS",
				"message": "balance too low",
				"api_key": "leaked-secret",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"quote_id": "q-1", "status": "pending"})
	})
	handleMethod(mux, http.MethodPost, "/v1/transfers/q-1/execute", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"transaction_reference": "tr-1", "status": "processing"})
	})
	handleMethod(mux, http.MethodGet, "/v1/transactions/tr-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"transaction_reference": "tr-1",
			"status":                "successful",
		})
	})
	handleMethod(mux, http.MethodPost, "/v1/accounts/lookup", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"account_name": "Ama Mensah", "valid": true})
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newAdapter(s *server) *gbpay.Adapter {
	return gbpay.New(config.GBPay{
		BaseURL:     s.URL,
		HTTPTimeout: 5 * time.Second,
		MaxRetries:  0,
		TokenMargin: time.Minute,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func creds() *provider.Credentials {
	return &provider.Credentials{ConnectionID: uuid.New(), APIKey: "k", APISecret: "s"}
}

func TestTwoPhaseTransfer(t *testing.T) {
	s := newServer(t)
	a := newAdapter(s)
	c := creds()

	init, err := a.InitiateTransfer(context.Background(), c, &provider.InitiateRequest{
		Reference: "ref-1",
		Amount:    10_000,
		Currency:  "XAF",
		Destination: provider.Destination{
			Kind:       provider.DestinationMobile,
			AccountRef: "237670000001",
			Country:    "CM",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "q-1", init.QuoteID)
	assert.Equal(t, "pending", init.ProviderStatus)

	exec, err := a.ExecuteTransfer(context.Background(), c, init.QuoteID)
	require.NoError(t, err)
	assert.Equal(t, "tr-1", exec.TransactionRef)
	assert.Equal(t, "processing", exec.ProviderStatus)

	status, err := a.GetTransactionStatus(context.Background(), c, exec.TransactionRef)
	require.NoError(t, err)
	assert.Equal(t, "successful", status.ProviderStatus)
}

func TestTokenCachedPerConnection(t *testing.T) {
	s := newServer(t)
	a := newAdapter(s)
	c := creds()

	for i := 0; i < 3; i++ {
		_, err := a.LookupAccount(context.Background(), c, &provider.LookupRequest{})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), s.authCalls.Load(), "token must be reused across calls")

	// A different connection authenticates on its own.
	_, err := a.LookupAccount(context.Background(), creds(), &provider.LookupRequest{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), s.authCalls.Load())
}

func TestTokenRefreshedWithinMargin(t *testing.T) {
	s := newServer(t)
	// Tokens that expire inside the safety margin are refreshed up front.
	s.expiresIn = 10
	a := newAdapter(s)
	c := creds()

	_, err := a.LookupAccount(context.Background(), c, &provider.LookupRequest{})
	require.NoError(t, err)
	_, err = a.LookupAccount(context.Background(), c, &provider.LookupRequest{})
	require.NoError(t, err)

	assert.Equal(t, int32(2), s.authCalls.Load())
}

func TestErrorNormalization(t *testing.T) {
	s := newServer(t)
	a := newAdapter(s)

	_, err := a.InitiateTransfer(context.Background(), creds(), &provider.InitiateRequest{
		Reference: "ref-big",
		Amount:    2_000_000,
		Currency:  "XAF",
	})
	require.Error(t, err)

	pe, ok := provider.AsError(err)
	require.True(t, ok, "adapter must normalize HTTP failures into *provider.Error")
	assert.Equal(t, http.StatusUnprocessableEntity, pe.StatusCode)
	assert.Equal(t, "INSUFFICIENT_FUNDS", pe.Code)
	assert.Equal(t, "balance too low", pe.Message)
	assert.True(t, pe.InsufficientFunds())

	// The persisted payload never carries secrets.
	assert.NotContains(t, string(pe.Payload), "leaked-secret")
	assert.Contains(t, string(pe.Payload), "[REDACTED]")
}

func TestAuthFailureSurfaces(t *testing.T) {
	s := newServer(t)
	a := newAdapter(s)

	bad := &provider.Credentials{ConnectionID: uuid.New(), APIKey: "wrong", APISecret: "nope"}
	_, err := a.LookupAccount(context.Background(), bad, &provider.LookupRequest{})
	require.Error(t, err)

	pe, ok := provider.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
	assert.Equal(t, "BAD_CREDENTIALS", pe.Code)
}

func TestName(t *testing.T) {
	a := newAdapter(newServer(t))
	assert.Equal(t, provider.GBPay, a.Name())
	assert.False(t, a.IsManual())
}
