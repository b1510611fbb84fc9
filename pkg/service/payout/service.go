// Package payout orchestrates the settlement of a single payout: provider
// resolution, destination checks, the idempotent payment attempt, the
// two-phase provider transfer and the ledger transition that follows.
package payout

import (
	"log/slog"

	domain "github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/eventbus"
	"github.com/velohr/settlement/pkg/metrics"
	"github.com/velohr/settlement/pkg/notification"
	"github.com/velohr/settlement/pkg/provider"
	"github.com/velohr/settlement/pkg/repository"
)

// Service executes payouts through the configured settlement providers.
type Service struct {
	uow       repository.UnitOfWork
	providers *provider.Registry
	decryptor provider.Decryptor
	bus       eventbus.Bus
	metrics   metrics.Sink
	notifier  notification.Sink
	logger    *slog.Logger
}

// New creates the payout service.
func New(
	uow repository.UnitOfWork,
	providers *provider.Registry,
	decryptor provider.Decryptor,
	bus eventbus.Bus,
	sink metrics.Sink,
	notifier notification.Sink,
	logger *slog.Logger,
) *Service {
	return &Service{
		uow:       uow,
		providers: providers,
		decryptor: decryptor,
		bus:       bus,
		metrics:   sink,
		notifier:  notifier,
		logger:    logger.With("service", "payout"),
	}
}

// Processing outcome reasons. The batch coordinator and the HTTP layer
// branch on these, so they are part of the service contract.
const (
	ReasonAlreadyPaid       = "already_paid"
	ReasonAlreadySettled    = "already_settled"
	ReasonInFlight          = "already_processing"
	ReasonPreviousFailure   = "previous_failure"
	ReasonTerminal          = "terminal"
	ReasonManual            = "manual"
	ReasonNoDestination     = "no_destination"
	ReasonBadDestination    = "destination_not_usable"
	ReasonNoConnection      = "no_active_connection"
	ReasonProviderRejected  = "provider_rejected"
	ReasonAwaitingProvider  = "awaiting_confirmation"
	ReasonEmptyQuote        = "empty_quote"
	ReasonPaid              = "paid"
	ReasonInsufficientFunds = "insufficient_funds"
)

// Result is the outcome of one processing pass over a payout.
type Result struct {
	// Status is the payout status after the pass.
	Status domain.Status
	// Reason explains the outcome in machine-readable form.
	Reason string
	// StopBatch tells the batch coordinator to halt the run: the failure
	// (an exhausted employer balance) would repeat for every remaining
	// member.
	StopBatch bool
}
