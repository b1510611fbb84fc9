package payout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domain "github.com/velohr/settlement/pkg/domain/payout"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDb.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       mockDb,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func samplePayout() *domain.Payout {
	return &domain.Payout{
		ID:         uuid.New(),
		EmployerID: uuid.New(),
		EmployeeID: uuid.New(),
		Category:   domain.CategoryPayroll,
		Amount:     10_000,
		Currency:   "XAF",
		Status:     domain.StatusPending,
		SourceType: "payslip",
		SourceID:   uuid.New(),
	}
}

func TestRepo_Create(t *testing.T) {
	assert := assert.New(t)
	db, mock := newTestDB(t)
	r := &repo{db: db}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "payouts" (.+) VALUES (.+)`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	assert.NoError(r.Create(context.Background(), samplePayout()))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "payouts" (.+) VALUES (.+)`).
		WillReturnError(errors.New("create error"))
	mock.ExpectRollback()

	assert.Error(r.Create(context.Background(), samplePayout()))
	assert.NoError(mock.ExpectationsWereMet())
}

func TestRepo_Get(t *testing.T) {
	assert := assert.New(t)
	db, mock := newTestDB(t)
	r := &repo{db: db}

	id := uuid.New()
	employer := uuid.New()
	mock.ExpectQuery(`SELECT (.+) FROM "payouts" WHERE id = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "employer_id", "employee_id", "category",
			"amount", "currency", "status", "source_type", "source_id", "created_at",
		}).AddRow(id, employer, uuid.New(), "PAYROLL",
			int64(10_000), "XAF", "PAID", "payslip", uuid.New(), time.Now()))

	p, err := r.Get(context.Background(), id)
	assert.NoError(err)
	assert.Equal(id, p.ID)
	assert.Equal(employer, p.EmployerID)
	assert.Equal(domain.CategoryPayroll, p.Category)
	assert.Equal(domain.StatusPaid, p.Status)
	assert.Equal(int64(10_000), p.Amount)
}

func TestRepo_GetNotFound(t *testing.T) {
	assert := assert.New(t)
	db, mock := newTestDB(t)
	r := &repo{db: db}

	mock.ExpectQuery(`SELECT (.+) FROM "payouts" WHERE id = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := r.Get(context.Background(), uuid.New())
	assert.ErrorIs(err, domain.ErrNotFound)
}

func TestRepo_Update(t *testing.T) {
	assert := assert.New(t)
	db, mock := newTestDB(t)
	r := &repo{db: db}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "payouts" SET (.+) WHERE (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(r.Update(context.Background(), samplePayout()))
	assert.NoError(mock.ExpectationsWereMet())
}

func TestRepo_FindBySourceMissesAreNotErrors(t *testing.T) {
	assert := assert.New(t)
	db, mock := newTestDB(t)
	r := &repo{db: db}

	mock.ExpectQuery(`SELECT (.+) FROM "payouts" WHERE employer_id = (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	p, err := r.FindBySource(context.Background(), uuid.New(), uuid.New(), "payslip", uuid.New())
	assert.NoError(err)
	assert.Nil(p)
}

func TestRepo_ListByBatch(t *testing.T) {
	assert := assert.New(t)
	db, mock := newTestDB(t)
	r := &repo{db: db}

	batchID := uuid.New()
	mock.ExpectQuery(`SELECT (.+) FROM "payouts" WHERE batch_id = (.+) ORDER BY created_at asc`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "batch_id", "status", "amount"}).
			AddRow(uuid.New(), batchID, "PAID", int64(100)).
			AddRow(uuid.New(), batchID, "PENDING", int64(200)))

	members, err := r.ListByBatch(context.Background(), batchID)
	assert.NoError(err)
	assert.Len(members, 2)
	assert.Equal(domain.StatusPaid, members[0].Status)
	assert.Equal(domain.StatusPending, members[1].Status)
}
