// Package attempt persists payment attempts with gorm.
package attempt

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

// New creates an attempt repository bound to the given session.
func New(db *gorm.DB) repository.AttemptRepository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, a *domain.Attempt) error {
	return r.db.WithContext(ctx).Create(toModel(a)).Error
}

func (r *repo) Update(ctx context.Context, a *domain.Attempt) error {
	return r.db.WithContext(ctx).Save(toModel(a)).Error
}

func (r *repo) Get(ctx context.Context, id uuid.UUID) (*domain.Attempt, error) {
	var m Attempt
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toDomain(&m), nil
}

func (r *repo) FindByKey(ctx context.Context, key string) (*domain.Attempt, error) {
	var m Attempt
	err := r.db.WithContext(ctx).First(&m, "idempotency_key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toDomain(&m), nil
}
