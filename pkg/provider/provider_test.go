package provider_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/provider"
)

func TestMapStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want provider.TriState
	}{
		{"successful", provider.StateSuccess},
		{"success", provider.StateSuccess},
		{"completed", provider.StateSuccess},
		{"paid", provider.StateSuccess},
		{"SUCCESSFUL", provider.StateSuccess},
		{"  Paid  ", provider.StateSuccess},
		{"failed", provider.StateFailed},
		{"rejected", provider.StateFailed},
		{"declined", provider.StateFailed},
		{"cancelled", provider.StateFailed},
		{"canceled", provider.StateFailed},
		{"error", provider.StateFailed},
		{"pending", provider.StatePending},
		{"processing", provider.StatePending},
		{"in_review", provider.StatePending},
		{"", provider.StatePending},
		{"SOME_NEW_STATE", provider.StatePending},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.raw), func(t *testing.T) {
			assert.Equal(t, tt.want, provider.MapStatus(tt.raw),
				"unknown statuses must map to pending, never success or failure")
		})
	}
}

func TestErrorInsufficientFunds(t *testing.T) {
	// Structured codes match regardless of message text.
	for _, code := range []string{"INSUFFICIENT_FUNDS", "BALANCE_TOO_LOW", "ACCOUNT_BALANCE_EXCEEDED"} {
		e := &provider.Error{StatusCode: 422, Code: code, Message: "whatever"}
		assert.True(t, e.InsufficientFunds(), code)
	}

	// Keyword fallback for providers without structured codes.
	for _, msg := range []string{
		"Insufficient funds on account",
		"not enough money",
		"wallet balance exceeded",
	} {
		e := &provider.Error{StatusCode: 400, Message: msg}
		assert.True(t, e.InsufficientFunds(), msg)
	}

	e := &provider.Error{StatusCode: 422, Code: "INVALID_ACCOUNT", Message: "account closed"}
	assert.False(t, e.InsufficientFunds())
}

func TestErrorString(t *testing.T) {
	e := &provider.Error{StatusCode: 422, Code: "X", Message: "nope"}
	assert.Equal(t, "provider error 422 (X): nope", e.Error())

	e = &provider.Error{StatusCode: 500, Message: "boom"}
	assert.Equal(t, "provider error 500: boom", e.Error())
}

func TestAsError(t *testing.T) {
	inner := &provider.Error{StatusCode: 400, Message: "bad"}
	wrapped := fmt.Errorf("call failed: %w", inner)

	got, ok := provider.AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, inner, got)

	_, ok = provider.AsError(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestSettingsEffective(t *testing.T) {
	s := provider.Settings{
		Default: provider.GBPay,
		Overrides: map[payout.Category]string{
			payout.CategoryExpense: provider.Manual,
		},
	}
	assert.Equal(t, provider.GBPay, s.Effective(payout.CategoryPayroll))
	assert.Equal(t, provider.Manual, s.Effective(payout.CategoryExpense))

	// Unconfigured employers settle manually, never through a guessed
	// external provider.
	assert.Equal(t, provider.Manual, provider.Settings{}.Effective(payout.CategoryPayroll))

	// An empty override falls through to the default.
	s.Overrides[payout.CategoryExpense] = ""
	assert.Equal(t, provider.GBPay, s.Effective(payout.CategoryExpense))
}

func TestRedact(t *testing.T) {
	in := []byte(`{
		"api_key": "k-123",
		"api_secret": "s-456",
		"account_number": "237670000001",
		"amount": 10000,
		"nested": {"access_token": "t-789", "status": "ok"},
		"list": [{"authorization": "Bearer abc"}]
	}`)

	out := provider.Redact(in)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "[REDACTED]", doc["api_key"])
	assert.Equal(t, "[REDACTED]", doc["api_secret"])
	assert.Equal(t, "[REDACTED]", doc["account_number"])
	assert.Equal(t, float64(10000), doc["amount"])
	assert.Equal(t, "[REDACTED]", doc["nested"].(map[string]any)["access_token"])
	assert.Equal(t, "ok", doc["nested"].(map[string]any)["status"])
	assert.Equal(t, "[REDACTED]", doc["list"].([]any)[0].(map[string]any)["authorization"])
	assert.NotContains(t, string(out), "k-123")
	assert.NotContains(t, string(out), "237670000001")
}

func TestRedactDropsUnparseablePayloads(t *testing.T) {
	out := provider.Redact([]byte("api_key=k-123&secret=x"))
	assert.JSONEq(t, `{"redacted":"unparseable payload"}`, string(out))
	assert.NotContains(t, string(out), "k-123")
}

type stubProvider struct {
	provider.SettlementProvider
	name string
}

func (s stubProvider) Name() string { return s.name }

func TestRegistry(t *testing.T) {
	r := provider.NewRegistry(stubProvider{name: provider.GBPay}, stubProvider{name: provider.Manual})

	p, err := r.Get(provider.GBPay)
	require.NoError(t, err)
	assert.Equal(t, provider.GBPay, p.Name())

	_, err = r.Get("NOPE")
	assert.Error(t, err)
}

func TestDestinationFromMethod(t *testing.T) {
	m := &payout.Method{
		Kind:         payout.MethodMobile,
		AccountRef:   "237670000001",
		HolderName:   "Ama Mensah",
		OperatorCode: "MTN",
		Country:      "CM",
	}
	d := provider.DestinationFromMethod(m)
	assert.Equal(t, provider.DestinationMobile, d.Kind)
	assert.Equal(t, "237670000001", d.AccountRef)
	assert.Equal(t, "MTN", d.OperatorCode)

	m.Kind = payout.MethodBank
	assert.Equal(t, provider.DestinationBank, provider.DestinationFromMethod(m).Kind)
}
