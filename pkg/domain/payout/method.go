package payout

import (
	"time"

	"github.com/google/uuid"
)

// MethodKind distinguishes payout destinations.
type MethodKind string

const (
	MethodBank   MethodKind = "BANK"
	MethodMobile MethodKind = "MOBILE"
)

// Method is a verified payout destination owned by an employee: a bank
// account or a mobile wallet.
//
// Invariant: at most one active default method per employee.
type Method struct {
	ID         uuid.UUID
	EmployeeID uuid.UUID
	Kind       MethodKind

	// AccountRef is the encrypted account number or wallet identifier.
	// Decryption happens in the provider adapter boundary.
	AccountRef   string
	HolderName   string
	BankCode     string
	OperatorCode string
	Country      string

	Verified bool
	Active   bool
	Default  bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Usable reports whether the method can receive a payout. A missing,
// inactive or unverified destination is a configuration error, not a
// transient failure.
func (m *Method) Usable() bool {
	return m != nil && m.Active && m.Verified
}

// ConnectionStatus is the state of a provider connection.
type ConnectionStatus string

const (
	ConnectionActive   ConnectionStatus = "ACTIVE"
	ConnectionInactive ConnectionStatus = "INACTIVE"
	ConnectionInvalid  ConnectionStatus = "INVALID"
	ConnectionPending  ConnectionStatus = "PENDING"
)

// Connection holds encrypted provider credentials for one employer.
//
// Invariant: a single ACTIVE connection per employer.
type Connection struct {
	ID         uuid.UUID
	EmployerID uuid.UUID
	Provider   string

	// CredentialRef points at the encrypted credential blob; the
	// credential decryptor collaborator resolves it to plaintext.
	CredentialRef string

	Status ConnectionStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}
