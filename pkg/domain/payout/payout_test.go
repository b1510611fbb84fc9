package payout_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/velohr/settlement/pkg/domain/payout"
)

func TestAttemptKeyDeterministic(t *testing.T) {
	employer := uuid.New()
	id := uuid.New()
	source := uuid.New()

	a := payout.AttemptKey(employer, id, payout.CategoryPayroll, 10_000, "XAF", "payslip", source)
	b := payout.AttemptKey(employer, id, payout.CategoryPayroll, 10_000, "XAF", "payslip", source)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	// Any identity component changing produces a different key.
	assert.NotEqual(t, a, payout.AttemptKey(employer, id, payout.CategoryPayroll, 10_001, "XAF", "payslip", source))
	assert.NotEqual(t, a, payout.AttemptKey(employer, id, payout.CategoryExpense, 10_000, "XAF", "payslip", source))
	assert.NotEqual(t, a, payout.AttemptKey(employer, id, payout.CategoryPayroll, 10_000, "XOF", "payslip", source))
	assert.NotEqual(t, a, payout.AttemptKey(employer, uuid.New(), payout.CategoryPayroll, 10_000, "XAF", "payslip", source))
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, payout.StatusPending.IsTerminal())
	assert.False(t, payout.StatusProcessing.IsTerminal())
	assert.True(t, payout.StatusPaid.IsTerminal())
	assert.True(t, payout.StatusFailed.IsTerminal())
	assert.True(t, payout.StatusCanceled.IsTerminal())
	assert.True(t, payout.StatusReversed.IsTerminal())
}

func TestDeriveBatchStatus(t *testing.T) {
	tests := []struct {
		name    string
		members []payout.Status
		want    payout.BatchStatus
	}{
		{"any open member keeps processing", []payout.Status{payout.StatusPaid, payout.StatusPending}, payout.BatchProcessing},
		{"processing member keeps processing", []payout.Status{payout.StatusPaid, payout.StatusProcessing}, payout.BatchProcessing},
		{"all paid completes", []payout.Status{payout.StatusPaid, payout.StatusPaid}, payout.BatchCompleted},
		{"mixed outcome is partial", []payout.Status{payout.StatusPaid, payout.StatusFailed}, payout.BatchPartial},
		{"canceled counts as failed", []payout.Status{payout.StatusPaid, payout.StatusCanceled}, payout.BatchPartial},
		{"all failed", []payout.Status{payout.StatusFailed, payout.StatusFailed}, payout.BatchFailed},
		{"empty batch", nil, payout.BatchFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, payout.DeriveBatchStatus(tt.members))
		})
	}
}

func TestBatchApproved(t *testing.T) {
	b := &payout.Batch{RequiresApproval: false}
	assert.True(t, b.Approved())

	b = &payout.Batch{RequiresApproval: true}
	assert.False(t, b.Approved())

	approver := uuid.New()
	b.ApprovedBy = &approver
	assert.True(t, b.Approved())
}

func TestTransferEventLog(t *testing.T) {
	tr := &payout.Transfer{}
	assert.False(t, tr.HasEvent(payout.TransferEventTimeoutNotified))

	tr.AppendEvent(payout.TransferEventInitiated, "pending", time.Now())
	tr.AppendEvent(payout.TransferEventTimeoutNotified, "", time.Now())

	assert.True(t, tr.HasEvent(payout.TransferEventInitiated))
	assert.True(t, tr.HasEvent(payout.TransferEventTimeoutNotified))
	assert.False(t, tr.HasEvent(payout.TransferEventExecuted))
	assert.Len(t, tr.Events, 2)
}

func TestTransferStatusIsOpen(t *testing.T) {
	assert.True(t, payout.TransferPending.IsOpen())
	assert.True(t, payout.TransferProcessing.IsOpen())
	assert.False(t, payout.TransferSuccess.IsOpen())
	assert.False(t, payout.TransferFailed.IsOpen())
	assert.False(t, payout.TransferTimeout.IsOpen())
}

func TestTxDirectionOpposite(t *testing.T) {
	assert.Equal(t, payout.TxCredit, payout.TxDebit.Opposite())
	assert.Equal(t, payout.TxDebit, payout.TxCredit.Opposite())
}

func TestMethodUsable(t *testing.T) {
	var m *payout.Method
	assert.False(t, m.Usable())

	m = &payout.Method{Active: true, Verified: false}
	assert.False(t, m.Usable())
	m = &payout.Method{Active: false, Verified: true}
	assert.False(t, m.Usable())
	m = &payout.Method{Active: true, Verified: true}
	assert.True(t, m.Usable())
}
