// Package transfer exposes the confirmation sweep trigger over HTTP.
package transfer

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	pollersvc "github.com/velohr/settlement/pkg/service/poller"
	"github.com/velohr/settlement/webapi/common"
)

// Routes registers the transfer endpoints.
//
// Routes:
//   - POST /transfers/poll : Sweep due transfers once.
func Routes(app *fiber.App, svc *pollersvc.Service, logger *slog.Logger) {
	app.Post("/transfers/poll", Poll(svc, logger))
}

// Poll returns the handler triggering one confirmation sweep. An optional
// employer_id query parameter narrows the sweep to one employer.
func Poll(svc *pollersvc.Service, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var employerID *uuid.UUID
		if raw := c.Query("employer_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return common.ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid employer_id", err.Error())
			}
			employerID = &id
		}

		polled, err := svc.Sweep(c.Context(), employerID)
		if err != nil {
			logger.Error("sweep failed", "error", err)
			return common.ErrorResponseJSON(c, common.ErrorToStatusCode(err), "Sweep failed", err.Error())
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Sweep complete", PollResponse{Polled: polled})
	}
}

// PollResponse reports how many transfers a sweep examined.
type PollResponse struct {
	Polled int `json:"polled"`
}
