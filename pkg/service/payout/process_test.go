package payout_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	infraeventbus "github.com/velohr/settlement/infra/eventbus"
	"github.com/velohr/settlement/internal/testutil"
	domain "github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/domain/events"
	"github.com/velohr/settlement/pkg/metrics"
	"github.com/velohr/settlement/pkg/provider"
	payoutsvc "github.com/velohr/settlement/pkg/service/payout"
)

type fixture struct {
	uow      *testutil.MemUoW
	prov     *testutil.FakeProvider
	bus      *infraeventbus.Memory
	notifier *testutil.RecordingNotifier
	svc      *payoutsvc.Service

	employer uuid.UUID
	employee uuid.UUID
	method   *domain.Method
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{
		uow:      testutil.NewMemUoW(),
		prov:     testutil.NewFakeProvider(provider.GBPay),
		bus:      infraeventbus.NewMemory(logger),
		notifier: testutil.NewRecordingNotifier(),
		employer: uuid.New(),
		employee: uuid.New(),
	}
	f.uow.ProviderSettings = provider.Settings{Default: provider.GBPay}

	manual := &testutil.FakeProvider{ProviderName: provider.Manual, Manual: true}
	registry := provider.NewRegistry(f.prov, manual)

	f.svc = payoutsvc.New(f.uow, registry, testutil.FakeDecryptor{}, f.bus, metrics.Nop{}, f.notifier, logger)

	conn := &domain.Connection{
		ID:         uuid.New(),
		EmployerID: f.employer,
		Provider:   provider.GBPay,
		Status:     domain.ConnectionActive,
	}
	f.uow.ConnsByID[conn.ID] = conn

	f.method = &domain.Method{
		ID:         uuid.New(),
		EmployeeID: f.employee,
		Kind:       domain.MethodMobile,
		AccountRef: "237670000001",
		Country:    "CM",
		Verified:   true,
		Active:     true,
		Default:    true,
	}
	f.uow.MethodsByID[f.method.ID] = f.method

	return f
}

func (f *fixture) createPayout(t *testing.T, amount int64) *domain.Payout {
	t.Helper()
	p, err := f.svc.CreatePayout(context.Background(), payoutsvc.CreateInput{
		EmployerID: f.employer,
		EmployeeID: f.employee,
		Category:   domain.CategoryPayroll,
		Amount:     amount,
		Currency:   "XAF",
		SourceType: "payslip",
		SourceID:   uuid.New(),
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) ledger(t *testing.T, payoutID uuid.UUID) []*domain.Transaction {
	t.Helper()
	txs, err := f.uow.Transactions().ListByPayout(context.Background(), payoutID)
	require.NoError(t, err)
	return txs
}

func eventTypes(bus *infraeventbus.Memory) []string {
	var out []string
	for _, e := range bus.Published() {
		out = append(out, e.Type())
	}
	return out
}

func TestProcessPayout_Success(t *testing.T) {
	f := newFixture(t)
	p := f.createPayout(t, 10_000)

	res, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPaid, res.Status)
	assert.Equal(t, payoutsvc.ReasonPaid, res.Reason)
	assert.False(t, res.StopBatch)
	assert.Equal(t, domain.StatusPaid, p.Status)
	assert.NotEmpty(t, p.ProviderRef)

	assert.Equal(t, 1, f.prov.InitiateCalls)
	assert.Equal(t, 1, f.prov.ExecuteCalls)

	for _, tx := range f.ledger(t, p.ID) {
		assert.Equal(t, domain.TxSuccess, tx.Status)
	}
	assert.Contains(t, eventTypes(f.bus), "payout.paid")
	assert.Contains(t, eventTypes(f.bus), "payout.receipt_requested")
}

func TestProcessPayout_DuplicateSubmissionIsNoOp(t *testing.T) {
	f := newFixture(t)
	p := f.createPayout(t, 10_000)

	_, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)

	res, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPaid, res.Status)
	assert.Equal(t, payoutsvc.ReasonAlreadyPaid, res.Reason)
	assert.Equal(t, 1, f.prov.InitiateCalls, "second pass must not reach the provider")
	assert.Equal(t, 1, f.prov.ExecuteCalls)
}

func TestProcessPayout_SettlesFromSucceededAttempt(t *testing.T) {
	f := newFixture(t)
	p := f.createPayout(t, 10_000)

	// Simulate a crash after the provider succeeded but before local state
	// caught up: the attempt is SUCCESS, the payout still PENDING.
	key := domain.AttemptKey(p.EmployerID, p.ID, p.Category, p.Amount, p.Currency, p.SourceType, p.SourceID)
	att := &domain.Attempt{
		ID:             uuid.New(),
		PayoutID:       p.ID,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Provider:       provider.GBPay,
		IdempotencyKey: key,
		Status:         domain.AttemptSuccess,
		ProviderRef:    "tr-recovered",
	}
	f.uow.AttemptsByID[att.ID] = att

	res, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPaid, res.Status)
	assert.Equal(t, payoutsvc.ReasonAlreadySettled, res.Reason)
	assert.Equal(t, "tr-recovered", p.ProviderRef)
	assert.Zero(t, f.prov.InitiateCalls, "settling from a succeeded attempt must not reach the provider")
	for _, tx := range f.ledger(t, p.ID) {
		assert.Equal(t, domain.TxSuccess, tx.Status)
	}
}

func TestProcessPayout_PendingSchedulesPoll(t *testing.T) {
	f := newFixture(t)
	f.prov.ExecuteFn = func(quoteID string) (*provider.ExecuteResponse, error) {
		return &provider.ExecuteResponse{TransactionRef: "tr-1", ProviderStatus: "processing"}, nil
	}
	p := f.createPayout(t, 10_000)

	res, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusProcessing, res.Status)
	assert.Equal(t, payoutsvc.ReasonAwaitingProvider, res.Reason)

	require.Len(t, f.uow.TransfersByID, 1)
	for _, tr := range f.uow.TransfersByID {
		assert.Equal(t, domain.TransferProcessing, tr.Status)
		require.NotNil(t, tr.NextPollAt)
		assert.WithinDuration(t, time.Now().Add(2*time.Minute), *tr.NextPollAt, 5*time.Second)
	}
	// Ledger rows stay pending until the poller settles the transfer.
	for _, tx := range f.ledger(t, p.ID) {
		assert.Equal(t, domain.TxPending, tx.Status)
	}
}

func TestProcessPayout_UnknownStatusIsNeverTerminal(t *testing.T) {
	f := newFixture(t)
	f.prov.ExecuteFn = func(quoteID string) (*provider.ExecuteResponse, error) {
		return &provider.ExecuteResponse{TransactionRef: "tr-1", ProviderStatus: "SOMETHING_NEW"}, nil
	}
	p := f.createPayout(t, 10_000)

	res, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusProcessing, res.Status)
	assert.Equal(t, domain.StatusProcessing, p.Status)
}

func TestProcessPayout_ProviderRejection(t *testing.T) {
	f := newFixture(t)
	f.prov.ExecuteFn = func(quoteID string) (*provider.ExecuteResponse, error) {
		return nil, &provider.Error{StatusCode: 422, Code: "INVALID_ACCOUNT", Message: "account closed"}
	}
	p := f.createPayout(t, 10_000)

	res, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.False(t, res.StopBatch)
	assert.Equal(t, domain.StatusFailed, p.Status)
	for _, tx := range f.ledger(t, p.ID) {
		assert.Equal(t, domain.TxFailed, tx.Status)
	}
	assert.Contains(t, eventTypes(f.bus), "payout.failed")
}

func TestProcessPayout_InsufficientFundsStopsBatch(t *testing.T) {
	f := newFixture(t)
	f.prov.InitiateFn = func(req *provider.InitiateRequest) (*provider.InitiateResponse, error) {
		return nil, &provider.Error{StatusCode: 422, Code: "INSUFFICIENT_FUNDS", Message: "balance too low"}
	}
	p := f.createPayout(t, 10_000)

	res, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, payoutsvc.ReasonInsufficientFunds, res.Reason)
	assert.True(t, res.StopBatch)
}

func TestProcessPayout_InsufficientFundsKeywordFallback(t *testing.T) {
	f := newFixture(t)
	f.prov.InitiateFn = func(req *provider.InitiateRequest) (*provider.InitiateResponse, error) {
		return nil, &provider.Error{StatusCode: 400, Message: "Not enough funds on wallet"}
	}
	p := f.createPayout(t, 10_000)

	res, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)
	assert.True(t, res.StopBatch)
}

func TestProcessPayout_FailedAttemptNeedsRetryFlag(t *testing.T) {
	f := newFixture(t)
	f.prov.ExecuteFn = func(quoteID string) (*provider.ExecuteResponse, error) {
		return nil, &provider.Error{StatusCode: 500, Message: "downstream exploded"}
	}
	p := f.createPayout(t, 10_000)

	_, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFailed, p.Status)
	initiatesAfterFailure := f.prov.InitiateCalls

	// Without the retry flag the failure is sticky.
	res, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, payoutsvc.ReasonPreviousFailure, res.Reason)
	assert.Equal(t, initiatesAfterFailure, f.prov.InitiateCalls)

	// With it, the same attempt is re-run under the same idempotency key.
	var reference string
	f.prov.InitiateFn = func(req *provider.InitiateRequest) (*provider.InitiateResponse, error) {
		reference = req.Reference
		return &provider.InitiateResponse{QuoteID: "q-retry", ProviderStatus: "pending"}, nil
	}
	f.prov.ExecuteFn = nil

	res, err = f.svc.ProcessPayout(context.Background(), p.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, res.Status)
	for _, tx := range f.ledger(t, p.ID) {
		assert.Equal(t, domain.TxSuccess, tx.Status, "retry must settle the reopened ledger rows")
	}

	key := domain.AttemptKey(p.EmployerID, p.ID, p.Category, p.Amount, p.Currency, p.SourceType, p.SourceID)
	assert.Equal(t, key, reference, "retry must reuse the original idempotency key")

	att, err := f.uow.Attempts().FindByKey(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, att)
	assert.Equal(t, 1, att.RetryCount)
	require.Len(t, f.uow.AttemptsByID, 1, "a retry must not create a second attempt")
}

func TestProcessPayout_PriorFailureReportedWithoutSideEffects(t *testing.T) {
	f := newFixture(t)
	p := f.createPayout(t, 10_000)

	// A crash after the attempt failed but before the payout flipped:
	// the attempt is FAILED while the payout still reads PENDING, so the
	// payout-status guard does not short-circuit.
	key := domain.AttemptKey(p.EmployerID, p.ID, p.Category, p.Amount, p.Currency, p.SourceType, p.SourceID)
	att := &domain.Attempt{
		ID:             uuid.New(),
		PayoutID:       p.ID,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Provider:       provider.GBPay,
		IdempotencyKey: key,
		Status:         domain.AttemptFailed,
		FailureMessage: "downstream exploded",
	}
	f.uow.AttemptsByID[att.ID] = att

	eventsBefore := len(f.bus.Published())
	res, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, payoutsvc.ReasonPreviousFailure, res.Reason)
	assert.Zero(t, f.prov.InitiateCalls)
	assert.Len(t, f.bus.Published(), eventsBefore, "reporting a prior failure must not re-emit payout.failed")

	// Replays keep answering the same way.
	res, err = f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, payoutsvc.ReasonPreviousFailure, res.Reason)
	assert.Len(t, f.bus.Published(), eventsBefore)
}

func TestProcessPayout_NoDestinationFailsTerminally(t *testing.T) {
	f := newFixture(t)
	f.method.Default = false

	p := f.createPayout(t, 10_000)
	res, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, payoutsvc.ReasonNoDestination, res.Reason)
	assert.Zero(t, f.prov.InitiateCalls)
	for _, tx := range f.ledger(t, p.ID) {
		assert.Equal(t, domain.TxFailed, tx.Status)
	}
}

func TestProcessPayout_UnverifiedDestinationFails(t *testing.T) {
	f := newFixture(t)
	f.method.Verified = false

	p := f.createPayout(t, 10_000)
	res, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)

	assert.Equal(t, payoutsvc.ReasonBadDestination, res.Reason)
	assert.Zero(t, f.prov.InitiateCalls)
}

func TestProcessPayout_NoConnectionFails(t *testing.T) {
	f := newFixture(t)
	for id := range f.uow.ConnsByID {
		delete(f.uow.ConnsByID, id)
	}

	p := f.createPayout(t, 10_000)
	res, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, payoutsvc.ReasonNoConnection, res.Reason)
	assert.Zero(t, f.prov.InitiateCalls)
}

func TestProcessPayout_ManualProviderParks(t *testing.T) {
	f := newFixture(t)
	f.uow.ProviderSettings = provider.Settings{Default: provider.Manual}

	p := f.createPayout(t, 10_000)
	res, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusProcessing, res.Status)
	assert.Equal(t, payoutsvc.ReasonManual, res.Reason)
	assert.Equal(t, provider.Manual, p.Provider)
	assert.Empty(t, f.uow.AttemptsByID, "manual payouts never open a payment attempt")
}

func TestProcessPayout_CategoryOverrideWins(t *testing.T) {
	f := newFixture(t)
	f.uow.ProviderSettings = provider.Settings{
		Default:   provider.GBPay,
		Overrides: map[domain.Category]string{domain.CategoryPayroll: provider.Manual},
	}

	p := f.createPayout(t, 10_000)
	res, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)

	assert.Equal(t, payoutsvc.ReasonManual, res.Reason)
	assert.Equal(t, provider.Manual, p.Provider)
}

func TestCreatePayout_DeduplicatesBySource(t *testing.T) {
	f := newFixture(t)
	sourceID := uuid.New()

	in := payoutsvc.CreateInput{
		EmployerID: f.employer,
		EmployeeID: f.employee,
		Category:   domain.CategoryExpense,
		Amount:     2_500,
		Currency:   "XAF",
		SourceType: "expense_claim",
		SourceID:   sourceID,
	}
	first, err := f.svc.CreatePayout(context.Background(), in)
	require.NoError(t, err)
	second, err := f.svc.CreatePayout(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.uow.PayoutsByID, 1)
	assert.Len(t, f.ledger(t, first.ID), 2, "one DEBIT and one CREDIT")
}

func TestCreatePayout_RejectsBadInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreatePayout(context.Background(), payoutsvc.CreateInput{
		EmployerID: f.employer, EmployeeID: f.employee,
		Category: domain.CategoryPayroll, Amount: 0, Currency: "XAF",
		SourceType: "payslip", SourceID: uuid.New(),
	})
	assert.Error(t, err)

	_, err = f.svc.CreatePayout(context.Background(), payoutsvc.CreateInput{
		EmployerID: f.employer, EmployeeID: f.employee,
		Category: domain.CategoryPayroll, Amount: 100, Currency: "xa",
		SourceType: "payslip", SourceID: uuid.New(),
	})
	assert.Error(t, err)
}

func TestUpdateStatus_ManualIdempotency(t *testing.T) {
	f := newFixture(t)
	f.uow.ProviderSettings = provider.Settings{Default: provider.Manual}
	p := f.createPayout(t, 10_000)
	_, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)

	// First application settles the payout and the ledger.
	updated, err := f.svc.UpdateStatus(context.Background(), p.ID, domain.StatusPaid, "", "op-key-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, updated.Status)
	for _, tx := range f.ledger(t, p.ID) {
		assert.Equal(t, domain.TxSuccess, tx.Status)
	}

	// Replaying the same operator action is a no-op.
	_, err = f.svc.UpdateStatus(context.Background(), p.ID, domain.StatusPaid, "", "op-key-1")
	require.NoError(t, err)

	// A different operator action re-applying the same status conflicts.
	_, err = f.svc.UpdateStatus(context.Background(), p.ID, domain.StatusPaid, "", "op-key-2")
	assert.ErrorIs(t, err, domain.ErrManualUpdateConflict)
}

func TestUpdateStatus_RejectsNonManualTargets(t *testing.T) {
	f := newFixture(t)
	p := f.createPayout(t, 10_000)

	_, err := f.svc.UpdateStatus(context.Background(), p.ID, domain.StatusProcessing, "", "k")
	assert.Error(t, err)
}

func TestReverse(t *testing.T) {
	f := newFixture(t)
	p := f.createPayout(t, 10_000)
	_, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPaid, p.Status)

	reversed, err := f.svc.Reverse(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReversed, reversed.Status)

	txs := f.ledger(t, p.ID)
	require.Len(t, txs, 4, "two originals plus two refund rows")

	var originals, refunds int
	for _, tx := range txs {
		if tx.ReversalOfID == nil {
			originals++
			assert.Equal(t, domain.TxReversed, tx.Status)
		} else {
			refunds++
			assert.Equal(t, domain.TxSuccess, tx.Status)
			orig := f.uow.TxByID[*tx.ReversalOfID]
			require.NotNil(t, orig)
			assert.Equal(t, orig.Direction.Opposite(), tx.Direction)
			assert.Equal(t, orig.Amount, tx.Amount)
		}
	}
	assert.Equal(t, 2, originals)
	assert.Equal(t, 2, refunds)
	assert.Contains(t, eventTypes(f.bus), "payout.reversed")

	// A second reversal is rejected and adds no rows.
	_, err = f.svc.Reverse(context.Background(), p.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyReversed)
	assert.Len(t, f.ledger(t, p.ID), 4)
}

func TestReverse_OnlyPaidPayouts(t *testing.T) {
	f := newFixture(t)
	p := f.createPayout(t, 10_000)

	_, err := f.svc.Reverse(context.Background(), p.ID)
	assert.ErrorIs(t, err, domain.ErrNotReversible)
}

func TestVerifyMethod(t *testing.T) {
	f := newFixture(t)
	f.method.Verified = false
	f.prov.LookupFn = func(req *provider.LookupRequest) (*provider.LookupResponse, error) {
		return &provider.LookupResponse{HolderName: "Ama Mensah", Valid: true}, nil
	}

	m, err := f.svc.VerifyMethod(context.Background(), f.employer, f.method.ID)
	require.NoError(t, err)
	assert.True(t, m.Verified)
	assert.Equal(t, "Ama Mensah", m.HolderName)
}

// Reconciliation event check shared by several paths: paid payouts always
// request a receipt, and the request is best-effort only.
func TestReceiptRequestFollowsPaid(t *testing.T) {
	f := newFixture(t)
	p := f.createPayout(t, 10_000)

	_, err := f.svc.ProcessPayout(context.Background(), p.ID, false)
	require.NoError(t, err)

	var receipt *events.ReceiptRequested
	for _, e := range f.bus.Published() {
		if r, ok := e.(events.ReceiptRequested); ok {
			receipt = &r
		}
	}
	require.NotNil(t, receipt)
	assert.Equal(t, p.ID, receipt.PayoutID)
	assert.Equal(t, p.ProviderRef, receipt.ProviderRef)
}
