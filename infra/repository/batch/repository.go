// Package batch persists payout batches with gorm.
package batch

import (
	"context"
	"errors"

	"github.com/google/uuid"
	domain "github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

// New creates a batch repository bound to the given session.
func New(db *gorm.DB) repository.BatchRepository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, b *domain.Batch) error {
	return r.db.WithContext(ctx).Create(toModel(b)).Error
}

func (r *repo) Update(ctx context.Context, b *domain.Batch) error {
	return r.db.WithContext(ctx).Save(toModel(b)).Error
}

func (r *repo) Get(ctx context.Context, id uuid.UUID) (*domain.Batch, error) {
	var m Batch
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toDomain(&m), nil
}

// MemberTotal sums member amounts from current state. The total is never
// incremented in place, so it cannot drift under concurrent mutation.
func (r *repo) MemberTotal(ctx context.Context, batchID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Table("payouts").
		Where("batch_id = ?", batchID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}
