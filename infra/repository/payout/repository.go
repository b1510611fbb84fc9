// Package payout persists payouts with gorm.
package payout

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

// New creates a payout repository bound to the given session.
func New(db *gorm.DB) repository.PayoutRepository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, p *domain.Payout) error {
	return r.db.WithContext(ctx).Create(toModel(p)).Error
}

func (r *repo) Get(ctx context.Context, id uuid.UUID) (*domain.Payout, error) {
	var m Payout
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toDomain(&m), nil
}

func (r *repo) Update(ctx context.Context, p *domain.Payout) error {
	return r.db.WithContext(ctx).Save(toModel(p)).Error
}

func (r *repo) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*domain.Payout, error) {
	var models []Payout
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at asc").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Payout, 0, len(models))
	for i := range models {
		out = append(out, toDomain(&models[i]))
	}
	return out, nil
}

func (r *repo) FindBySource(
	ctx context.Context,
	employerID, employeeID uuid.UUID,
	sourceType string,
	sourceID uuid.UUID,
) (*domain.Payout, error) {
	var m Payout
	err := r.db.WithContext(ctx).
		Where("employer_id = ? AND employee_id = ? AND source_type = ? AND source_id = ?",
			employerID, employeeID, sourceType, sourceID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toDomain(&m), nil
}
