// Package connection persists provider connections with gorm.
package connection

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	domain "github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/repository"
	"gorm.io/gorm"
)

// Connection is the persisted form of a provider connection.
// CredentialRef points at the encrypted credential blob managed by the
// secret-storage collaborator.
type Connection struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	EmployerID uuid.UUID `gorm:"type:uuid;index;not null"`
	Provider   string    `gorm:"type:varchar(32);not null"`

	CredentialRef string `gorm:"type:text;not null"`
	Status        string `gorm:"type:varchar(16);not null;default:'PENDING'"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for the Connection model.
func (Connection) TableName() string { return "provider_connections" }

type repo struct {
	db *gorm.DB
}

// New creates a connection repository bound to the given session.
func New(db *gorm.DB) repository.ConnectionRepository {
	return &repo{db: db}
}

func (r *repo) Get(ctx context.Context, id uuid.UUID) (*domain.Connection, error) {
	var m Connection
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toDomain(&m), nil
}

func (r *repo) ActiveForEmployer(ctx context.Context, employerID uuid.UUID) (*domain.Connection, error) {
	var m Connection
	err := r.db.WithContext(ctx).
		Where("employer_id = ? AND status = ?", employerID, string(domain.ConnectionActive)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toDomain(&m), nil
}

func toDomain(m *Connection) *domain.Connection {
	return &domain.Connection{
		ID:            m.ID,
		EmployerID:    m.EmployerID,
		Provider:      m.Provider,
		CredentialRef: m.CredentialRef,
		Status:        domain.ConnectionStatus(m.Status),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
