// Package notification defines the fire-and-forget message sink used for
// operator-facing notices (timeout alerts, failure-rate alerts). Delivery
// failures are logged and swallowed; they never affect settlement state.
package notification

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Sink delivers a message to an employer's owner.
type Sink interface {
	Notify(ctx context.Context, employerID uuid.UUID, subject, body string)
}

// Slog logs notifications instead of delivering them. The default sink
// for environments without a delivery channel configured.
type Slog struct {
	Logger *slog.Logger
}

// Notify implements Sink.
func (s Slog) Notify(_ context.Context, employerID uuid.UUID, subject, body string) {
	s.Logger.Info("notification",
		"employer_id", employerID,
		"subject", subject,
		"body", body,
	)
}
