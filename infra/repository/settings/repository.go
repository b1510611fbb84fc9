// Package settings persists the per-employer provider configuration: one
// optional global default row plus per-category override rows.
package settings

import (
	"context"
	"time"

	"github.com/google/uuid"
	domain "github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/provider"
	"github.com/velohr/settlement/pkg/repository"
	"gorm.io/gorm"
)

// ProviderSetting is one row of the employer's provider configuration.
// A NULL category marks the global default.
type ProviderSetting struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	EmployerID uuid.UUID `gorm:"type:uuid;index;not null"`
	Category   *string   `gorm:"type:varchar(16)"`
	Provider   string    `gorm:"type:varchar(32);not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for the ProviderSetting model.
func (ProviderSetting) TableName() string { return "provider_settings" }

type repo struct {
	db *gorm.DB
}

// New creates a settings repository bound to the given session.
func New(db *gorm.DB) repository.SettingsRepository {
	return &repo{db: db}
}

func (r *repo) ForEmployer(ctx context.Context, employerID uuid.UUID) (provider.Settings, error) {
	var rows []ProviderSetting
	err := r.db.WithContext(ctx).
		Where("employer_id = ?", employerID).
		Find(&rows).Error
	if err != nil {
		return provider.Settings{}, err
	}
	s := provider.Settings{Overrides: make(map[domain.Category]string)}
	for _, row := range rows {
		if row.Category == nil {
			s.Default = row.Provider
			continue
		}
		s.Overrides[domain.Category(*row.Category)] = row.Provider
	}
	return s, nil
}
