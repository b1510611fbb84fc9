// Package payout exposes single-payout operations over HTTP.
package payout

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	domain "github.com/velohr/settlement/pkg/domain/payout"
	payoutsvc "github.com/velohr/settlement/pkg/service/payout"
	"github.com/velohr/settlement/webapi/common"
)

// Routes registers the payout endpoints.
//
// Routes:
//   - POST  /payouts              : Record a payout with its ledger rows.
//   - POST  /payouts/:id/process  : Run a settlement pass on one payout.
//   - PATCH /payouts/:id/status   : Manual (operator) status update.
//   - POST  /payouts/:id/reverse  : Reverse a paid payout.
//   - POST  /methods/:id/verify   : Verify a payout destination.
func Routes(app *fiber.App, svc *payoutsvc.Service, logger *slog.Logger) {
	app.Post("/payouts", Create(svc, logger))
	app.Post("/payouts/:id/process", Process(svc, logger))
	app.Patch("/payouts/:id/status", UpdateStatus(svc))
	app.Post("/payouts/:id/reverse", Reverse(svc))
	app.Post("/methods/:id/verify", VerifyMethod(svc))
}

// Create returns the handler for recording a standalone payout.
func Create(svc *payoutsvc.Service, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := common.BindAndValidate[CreateRequest](c)
		if req == nil {
			return err
		}
		p, err := svc.CreatePayout(c.Context(), payoutsvc.CreateInput{
			EmployerID: req.EmployerID,
			EmployeeID: req.EmployeeID,
			MethodID:   req.MethodID,
			Category:   domain.Category(req.Category),
			Amount:     req.Amount,
			Currency:   req.Currency,
			SourceType: req.SourceType,
			SourceID:   req.SourceID,
		})
		if err != nil {
			logger.Error("payout create failed", "error", err)
			return common.ErrorResponseJSON(c, common.ErrorToStatusCode(err), "Payout creation failed", err.Error())
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Payout created", newPayoutResponse(p))
	}
}

// Process returns the handler that runs a settlement pass on one payout.
func Process(svc *payoutsvc.Service, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := common.ParseUUIDParam(c, "id")
		if !ok {
			return nil
		}
		allowRetry := c.QueryBool("retry", false)
		res, err := svc.ProcessPayout(c.Context(), id, allowRetry)
		if err != nil {
			logger.Error("payout process failed", "payout_id", id, "error", err)
			return common.ErrorResponseJSON(c, common.ErrorToStatusCode(err), "Payout processing failed", err.Error())
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Payout processed", ProcessResponse{
			Status: string(res.Status),
			Reason: res.Reason,
		})
	}
}

// UpdateStatus returns the handler for the manual status-update path.
func UpdateStatus(svc *payoutsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := common.ParseUUIDParam(c, "id")
		if !ok {
			return nil
		}
		req, err := common.BindAndValidate[UpdateStatusRequest](c)
		if req == nil {
			return err
		}
		p, err := svc.UpdateStatus(c.Context(), id, domain.Status(req.Status), req.Reason, req.IdempotencyKey)
		if err != nil {
			return common.ErrorResponseJSON(c, common.ErrorToStatusCode(err), "Status update failed", err.Error())
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Payout updated", newPayoutResponse(p))
	}
}

// Reverse returns the handler for reversing a paid payout.
func Reverse(svc *payoutsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := common.ParseUUIDParam(c, "id")
		if !ok {
			return nil
		}
		p, err := svc.Reverse(c.Context(), id)
		if err != nil {
			return common.ErrorResponseJSON(c, common.ErrorToStatusCode(err), "Reversal failed", err.Error())
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Payout reversed", newPayoutResponse(p))
	}
}

// VerifyMethod returns the handler for destination verification.
func VerifyMethod(svc *payoutsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := common.ParseUUIDParam(c, "id")
		if !ok {
			return nil
		}
		req, err := common.BindAndValidate[VerifyRequest](c)
		if req == nil {
			return err
		}
		m, err := svc.VerifyMethod(c.Context(), req.EmployerID, id)
		if err != nil {
			return common.ErrorResponseJSON(c, common.ErrorToStatusCode(err), "Verification failed", err.Error())
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Method verified", MethodResponse{
			ID:         m.ID,
			Kind:       string(m.Kind),
			HolderName: m.HolderName,
			Verified:   m.Verified,
		})
	}
}

// CreateRequest is the payload for POST /payouts.
type CreateRequest struct {
	EmployerID uuid.UUID  `json:"employer_id" validate:"required"`
	EmployeeID uuid.UUID  `json:"employee_id" validate:"required"`
	MethodID   *uuid.UUID `json:"method_id"`
	Category   string     `json:"category" validate:"required,oneof=PAYROLL EXPENSE"`
	Amount     int64      `json:"amount" validate:"required,gt=0"`
	Currency   string     `json:"currency" validate:"required,len=3"`
	SourceType string     `json:"source_type" validate:"required"`
	SourceID   uuid.UUID  `json:"source_id" validate:"required"`
}

// UpdateStatusRequest is the payload for PATCH /payouts/:id/status.
type UpdateStatusRequest struct {
	Status         string `json:"status" validate:"required,oneof=PAID FAILED CANCELED"`
	Reason         string `json:"reason"`
	IdempotencyKey string `json:"idempotency_key" validate:"required"`
}

// VerifyRequest is the payload for POST /methods/:id/verify.
type VerifyRequest struct {
	EmployerID uuid.UUID `json:"employer_id" validate:"required"`
}

// ProcessResponse is the outcome of a processing pass.
type ProcessResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// PayoutResponse is the wire shape of a payout.
type PayoutResponse struct {
	ID            uuid.UUID  `json:"id"`
	EmployerID    uuid.UUID  `json:"employer_id"`
	EmployeeID    uuid.UUID  `json:"employee_id"`
	BatchID       *uuid.UUID `json:"batch_id,omitempty"`
	Category      string     `json:"category"`
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency"`
	Provider      string     `json:"provider,omitempty"`
	ProviderRef   string     `json:"provider_ref,omitempty"`
	Status        string     `json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`
}

// MethodResponse is the wire shape of a verified method.
type MethodResponse struct {
	ID         uuid.UUID `json:"id"`
	Kind       string    `json:"kind"`
	HolderName string    `json:"holder_name"`
	Verified   bool      `json:"verified"`
}

func newPayoutResponse(p *domain.Payout) *PayoutResponse {
	return &PayoutResponse{
		ID:            p.ID,
		EmployerID:    p.EmployerID,
		EmployeeID:    p.EmployeeID,
		BatchID:       p.BatchID,
		Category:      string(p.Category),
		Amount:        p.Amount,
		Currency:      p.Currency,
		Provider:      p.Provider,
		ProviderRef:   p.ProviderRef,
		Status:        string(p.Status),
		FailureReason: p.FailureReason,
	}
}
