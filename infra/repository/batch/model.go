package batch

import (
	"time"

	"github.com/google/uuid"
	domain "github.com/velohr/settlement/pkg/domain/payout"
)

// Batch is the persisted form of a payout batch.
type Batch struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	EmployerID uuid.UUID `gorm:"type:uuid;index;not null"`
	Type       string    `gorm:"type:varchar(16);not null"`
	Status     string    `gorm:"type:varchar(24);not null;default:'DRAFT'"`

	RequiresApproval bool       `gorm:"not null;default:false"`
	ApprovedBy       *uuid.UUID `gorm:"type:uuid"`
	ApprovedAt       *time.Time

	Currency    string `gorm:"type:varchar(3);not null"`
	TotalAmount int64  `gorm:"not null;default:0"`

	Provider string `gorm:"type:varchar(32)"`

	PlannedAt   *time.Time
	ProcessedAt *time.Time

	AlertSent bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for the Batch model.
func (Batch) TableName() string { return "payout_batches" }

func toModel(b *domain.Batch) *Batch {
	return &Batch{
		ID:               b.ID,
		EmployerID:       b.EmployerID,
		Type:             string(b.Type),
		Status:           string(b.Status),
		RequiresApproval: b.RequiresApproval,
		ApprovedBy:       b.ApprovedBy,
		ApprovedAt:       b.ApprovedAt,
		Currency:         b.Currency,
		TotalAmount:      b.TotalAmount,
		Provider:         b.Provider,
		PlannedAt:        b.PlannedAt,
		ProcessedAt:      b.ProcessedAt,
		AlertSent:        b.AlertSent,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

func toDomain(m *Batch) *domain.Batch {
	return &domain.Batch{
		ID:               m.ID,
		EmployerID:       m.EmployerID,
		Type:             domain.Category(m.Type),
		Status:           domain.BatchStatus(m.Status),
		RequiresApproval: m.RequiresApproval,
		ApprovedBy:       m.ApprovedBy,
		ApprovedAt:       m.ApprovedAt,
		Currency:         m.Currency,
		TotalAmount:      m.TotalAmount,
		Provider:         m.Provider,
		PlannedAt:        m.PlannedAt,
		ProcessedAt:      m.ProcessedAt,
		AlertSent:        m.AlertSent,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
