// Package common holds the response envelope, problem-details writer and
// request-binding helpers shared by all route packages.
package common

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/money"
)

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Errors   any    `json:"errors,omitempty"`
}

// SuccessResponseJSON writes the standard success envelope.
func SuccessResponseJSON(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

// ErrorResponseJSON returns a response following RFC 9457 Problem Details.
func ErrorResponseJSON(c *fiber.Ctx, status int, title string, detail any) error {
	pd := ProblemDetails{
		Type:   "about:blank",
		Title:  title,
		Status: status,
	}
	if detail != nil {
		if s, ok := detail.(string); ok {
			pd.Detail = s
		} else {
			pd.Errors = detail
		}
	}
	pd.Instance = c.OriginalURL()
	c.Set(fiber.HeaderContentType, "application/problem+json")

	return c.Status(status).JSON(pd)
}

// ErrorToStatusCode maps domain errors to appropriate HTTP status codes.
func ErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, payout.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, payout.ErrBatchNotApproved):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, payout.ErrManualUpdateConflict):
		return fiber.StatusConflict
	case errors.Is(err, payout.ErrAlreadyReversed):
		return fiber.StatusConflict
	case errors.Is(err, payout.ErrNotReversible):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, payout.ErrNoDestination),
		errors.Is(err, payout.ErrDestinationNotUsable),
		errors.Is(err, payout.ErrNoActiveConnection):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, money.ErrInvalidCurrency),
		errors.Is(err, money.ErrNonPositiveAmount):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// BindAndValidate parses the request body and validates it using
// go-playground/validator. On failure the error response is already
// written; the caller just returns.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid request body", err.Error()) //nolint:errcheck
		return nil, err
	}
	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		ErrorResponseJSON(c, fiber.StatusBadRequest, "Validation failed", err.Error()) //nolint:errcheck
		return nil, err
	}
	return &input, nil
}

// ParseUUIDParam reads a UUID path parameter, writing the error response
// itself on a malformed value.
func ParseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid id", err.Error()) //nolint:errcheck
		return uuid.Nil, false
	}
	return id, true
}
