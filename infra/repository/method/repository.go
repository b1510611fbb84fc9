// Package method persists payout destinations with gorm.
package method

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	domain "github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/repository"
	"gorm.io/gorm"
)

// Method is the persisted form of a payout destination. AccountRef holds
// the encrypted identifier; plaintext never reaches this table.
type Method struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	EmployeeID uuid.UUID `gorm:"type:uuid;index;not null"`
	Kind       string    `gorm:"type:varchar(8);not null"`

	AccountRef   string `gorm:"type:text;not null"`
	HolderName   string `gorm:"type:varchar(128)"`
	BankCode     string `gorm:"type:varchar(32)"`
	OperatorCode string `gorm:"type:varchar(32)"`
	Country      string `gorm:"type:varchar(2)"`

	Verified  bool `gorm:"not null;default:false"`
	Active    bool `gorm:"not null;default:true"`
	IsDefault bool `gorm:"not null;default:false;column:is_default"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for the Method model.
func (Method) TableName() string { return "payout_methods" }

type repo struct {
	db *gorm.DB
}

// New creates a method repository bound to the given session.
func New(db *gorm.DB) repository.MethodRepository {
	return &repo{db: db}
}

func (r *repo) Get(ctx context.Context, id uuid.UUID) (*domain.Method, error) {
	var m Method
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toDomain(&m), nil
}

func (r *repo) Update(ctx context.Context, m *domain.Method) error {
	return r.db.WithContext(ctx).Save(toModel(m)).Error
}

func (r *repo) DefaultForEmployee(ctx context.Context, employeeID uuid.UUID) (*domain.Method, error) {
	var m Method
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND is_default = ? AND active = ?", employeeID, true, true).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toDomain(&m), nil
}

func toModel(m *domain.Method) *Method {
	return &Method{
		ID:           m.ID,
		EmployeeID:   m.EmployeeID,
		Kind:         string(m.Kind),
		AccountRef:   m.AccountRef,
		HolderName:   m.HolderName,
		BankCode:     m.BankCode,
		OperatorCode: m.OperatorCode,
		Country:      m.Country,
		Verified:     m.Verified,
		Active:       m.Active,
		IsDefault:    m.Default,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toDomain(m *Method) *domain.Method {
	return &domain.Method{
		ID:           m.ID,
		EmployeeID:   m.EmployeeID,
		Kind:         domain.MethodKind(m.Kind),
		AccountRef:   m.AccountRef,
		HolderName:   m.HolderName,
		BankCode:     m.BankCode,
		OperatorCode: m.OperatorCode,
		Country:      m.Country,
		Verified:     m.Verified,
		Active:       m.Active,
		Default:      m.IsDefault,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
