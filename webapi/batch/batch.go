// Package batch exposes the batch lifecycle over HTTP.
package batch

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	domain "github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/repository"
	batchsvc "github.com/velohr/settlement/pkg/service/batch"
	"github.com/velohr/settlement/webapi/common"
)

// Routes registers the batch endpoints.
//
// Routes:
//   - POST /batches              : Create a batch with its member payouts.
//   - GET  /batches/:id          : Read a batch and its members.
//   - POST /batches/:id/approve  : Satisfy the approval gate.
//   - POST /batches/:id/process  : Run a settlement pass.
func Routes(app *fiber.App, svc *batchsvc.Service, uow repository.UnitOfWork, logger *slog.Logger) {
	app.Post("/batches", Create(svc, logger))
	app.Get("/batches/:id", Get(uow))
	app.Post("/batches/:id/approve", Approve(svc))
	app.Post("/batches/:id/process", Process(svc, logger))
}

// Create returns the handler for recording a new batch.
func Create(svc *batchsvc.Service, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := common.BindAndValidate[CreateRequest](c)
		if req == nil {
			return err
		}

		in, err := req.toInput()
		if err != nil {
			return common.ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid request", err.Error())
		}
		b, err := svc.Create(c.Context(), in)
		if err != nil {
			logger.Error("batch create failed", "error", err)
			return common.ErrorResponseJSON(c, common.ErrorToStatusCode(err), "Batch creation failed", err.Error())
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Batch created", newBatchResponse(b))
	}
}

// Get returns the handler for reading a batch with its members.
func Get(uow repository.UnitOfWork) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := common.ParseUUIDParam(c, "id")
		if !ok {
			return nil
		}
		b, err := uow.Batches().Get(c.Context(), id)
		if err != nil {
			return common.ErrorResponseJSON(c, common.ErrorToStatusCode(err), "Batch not found", err.Error())
		}
		members, err := uow.Payouts().ListByBatch(c.Context(), b.ID)
		if err != nil {
			return common.ErrorResponseJSON(c, common.ErrorToStatusCode(err), "Batch lookup failed", err.Error())
		}
		resp := newBatchResponse(b)
		resp.Members = make([]MemberResponse, len(members))
		for i, m := range members {
			resp.Members[i] = MemberResponse{
				ID:            m.ID,
				EmployeeID:    m.EmployeeID,
				Amount:        m.Amount,
				Currency:      m.Currency,
				Status:        string(m.Status),
				FailureReason: m.FailureReason,
			}
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Batch", resp)
	}
}

// Approve returns the handler for the approval gate.
func Approve(svc *batchsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := common.ParseUUIDParam(c, "id")
		if !ok {
			return nil
		}
		req, err := common.BindAndValidate[ApproveRequest](c)
		if req == nil {
			return err
		}
		b, err := svc.Approve(c.Context(), id, req.ApprovedBy)
		if err != nil {
			return common.ErrorResponseJSON(c, common.ErrorToStatusCode(err), "Approval failed", err.Error())
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Batch approved", newBatchResponse(b))
	}
}

// Process returns the handler that runs a settlement pass over a batch.
func Process(svc *batchsvc.Service, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := common.ParseUUIDParam(c, "id")
		if !ok {
			return nil
		}
		allowRetry := c.QueryBool("retry", false)
		b, err := svc.Process(c.Context(), id, allowRetry)
		if err != nil {
			logger.Error("batch process failed", "batch_id", id, "error", err)
			return common.ErrorResponseJSON(c, common.ErrorToStatusCode(err), "Batch processing failed", err.Error())
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Batch processed", newBatchResponse(b))
	}
}

// CreateRequest is the payload for POST /batches.
type CreateRequest struct {
	EmployerID uuid.UUID     `json:"employer_id" validate:"required"`
	Type       string        `json:"type" validate:"required,oneof=PAYROLL EXPENSE"`
	Currency   string        `json:"currency" validate:"required,len=3"`
	PlannedAt  *time.Time    `json:"planned_at"`
	Items      []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ItemRequest is one member of a batch to create.
type ItemRequest struct {
	EmployeeID uuid.UUID  `json:"employee_id" validate:"required"`
	MethodID   *uuid.UUID `json:"method_id"`
	Amount     int64      `json:"amount" validate:"required,gt=0"`
	SourceType string     `json:"source_type" validate:"required"`
	SourceID   uuid.UUID  `json:"source_id" validate:"required"`
}

func (r *CreateRequest) toInput() (batchsvc.CreateInput, error) {
	in := batchsvc.CreateInput{
		EmployerID: r.EmployerID,
		Type:       domain.Category(r.Type),
		Currency:   r.Currency,
		PlannedAt:  r.PlannedAt,
		Items:      make([]batchsvc.Item, len(r.Items)),
	}
	for i, it := range r.Items {
		in.Items[i] = batchsvc.Item{
			EmployeeID: it.EmployeeID,
			MethodID:   it.MethodID,
			Amount:     it.Amount,
			SourceType: it.SourceType,
			SourceID:   it.SourceID,
		}
	}
	return in, nil
}

// ApproveRequest is the payload for POST /batches/:id/approve.
type ApproveRequest struct {
	ApprovedBy uuid.UUID `json:"approved_by" validate:"required"`
}

// BatchResponse is the wire shape of a batch.
type BatchResponse struct {
	ID          uuid.UUID        `json:"id"`
	EmployerID  uuid.UUID        `json:"employer_id"`
	Type        string           `json:"type"`
	Status      string           `json:"status"`
	Currency    string           `json:"currency"`
	TotalAmount int64            `json:"total_amount"`
	Provider    string           `json:"provider"`
	ApprovedBy  *uuid.UUID       `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time       `json:"approved_at,omitempty"`
	ProcessedAt *time.Time       `json:"processed_at,omitempty"`
	Members     []MemberResponse `json:"members,omitempty"`
}

// MemberResponse is the wire shape of a batch member.
type MemberResponse struct {
	ID            uuid.UUID `json:"id"`
	EmployeeID    uuid.UUID `json:"employee_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

func newBatchResponse(b *domain.Batch) *BatchResponse {
	return &BatchResponse{
		ID:          b.ID,
		EmployerID:  b.EmployerID,
		Type:        string(b.Type),
		Status:      string(b.Status),
		Currency:    b.Currency,
		TotalAmount: b.TotalAmount,
		Provider:    b.Provider,
		ApprovedBy:  b.ApprovedBy,
		ApprovedAt:  b.ApprovedAt,
		ProcessedAt: b.ProcessedAt,
	}
}
