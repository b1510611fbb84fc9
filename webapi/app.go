// Package webapi exposes the settlement engine over HTTP: batch
// lifecycle, single-payout operations, the confirmation poll trigger and
// the metrics endpoint.
package webapi

import (
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/velohr/settlement/pkg/repository"
	batchsvc "github.com/velohr/settlement/pkg/service/batch"
	payoutsvc "github.com/velohr/settlement/pkg/service/payout"
	pollersvc "github.com/velohr/settlement/pkg/service/poller"
	"github.com/velohr/settlement/webapi/batch"
	"github.com/velohr/settlement/webapi/common"
	"github.com/velohr/settlement/webapi/payout"
	"github.com/velohr/settlement/webapi/transfer"
)

// Deps carries the services the HTTP layer fronts.
type Deps struct {
	Uow      repository.UnitOfWork
	Payouts  *payoutsvc.Service
	Batches  *batchsvc.Service
	Poller   *pollersvc.Service
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// NewApp builds the fiber application with all routes mounted.
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			}
			return common.ErrorResponseJSON(c, status, "Internal Server Error", err.Error())
		},
	})
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	if deps.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(
			promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}),
		))
	}

	batch.Routes(app, deps.Batches, deps.Uow, deps.Logger)
	payout.Routes(app, deps.Payouts, deps.Logger)
	transfer.Routes(app, deps.Poller, deps.Logger)

	return app
}
