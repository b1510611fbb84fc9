// Package transfer persists provider transfers with gorm.
package transfer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	domain "github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

// New creates a transfer repository bound to the given session.
func New(db *gorm.DB) repository.TransferRepository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, t *domain.Transfer) error {
	m, err := toModel(t)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *repo) Update(ctx context.Context, t *domain.Transfer) error {
	m, err := toModel(t)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *repo) Get(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	var m Transfer
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toDomain(&m)
}

func (r *repo) ListDue(
	ctx context.Context,
	employerID *uuid.UUID,
	now time.Time,
	limit int,
) ([]*domain.Transfer, error) {
	q := r.db.WithContext(ctx).
		Where("status IN ?", []string{
			string(domain.TransferPending),
			string(domain.TransferProcessing),
		}).
		Where("next_poll_at IS NOT NULL AND next_poll_at <= ?", now)
	if employerID != nil {
		q = q.Where(
			"payout_id IN (?)",
			r.db.Table("payouts").Select("id").Where("employer_id = ?", *employerID),
		)
	}
	var models []Transfer
	if err := q.Order("next_poll_at asc").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Transfer, 0, len(models))
	for i := range models {
		t, err := toDomain(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
