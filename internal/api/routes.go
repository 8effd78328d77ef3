package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taklabs/coordinator/internal/idempotency"
	"github.com/taklabs/coordinator/internal/store"
)

// RegisterRoutes wires the coordinator's HTTP surface: service info,
// health, metrics, and the /api/v1 negotiation and deal endpoints
// behind the idempotency middleware.
func RegisterRoutes(app *fiber.App, nc *nats.Conn, st store.Store, h *Handler, guard *idempotency.Guard) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/health", func(c *fiber.Ctx) error {
		checks := map[string]string{
			"store": "ok",
		}
		status := "ok"
		code := fiber.StatusOK

		healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := st.HealthCheck(healthCtx); err != nil {
			checks["store"] = err.Error()
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}

		if nc != nil {
			checks["nats"] = "ok"
			if !nc.IsConnected() {
				checks["nats"] = "disconnected"
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	})

	// Service info
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"name":               "coordinator",
			"description":        "agent negotiation and settlement coordinator; never holds funds",
			"pricing_unit":       "nano-units (integers only)",
			"deal_state_machine": "awaiting_approval -> approved -> executed | failed; awaiting_approval -> cancelled",
			"settlement_adapter": h.adapterName,
			"idempotency_keys":   "supported via Idempotency-Key header or idempotency_key body field",
			"endpoints": fiber.Map{
				"requests": "/api/v1/requests",
				"offers":   "/api/v1/offers",
				"deals":    "/api/v1/deals",
			},
		})
	})

	v1 := app.Group("/api/v1", IdempotencyMiddleware(guard))

	v1.Post("/requests", h.CreateRequest)
	v1.Get("/requests", h.ListRequests)
	v1.Get("/requests/:id", h.GetRequest)
	v1.Post("/requests/:id/cancel", h.CancelRequest)

	v1.Post("/offers", h.SubmitOffer)
	v1.Get("/offers", h.ListOffers)
	v1.Get("/offers/:id", h.GetOffer)
	v1.Post("/offers/:id/accept", h.AcceptOffer)
	v1.Post("/offers/:id/reject", h.RejectOffer)

	v1.Post("/deals", h.CreateDeal)
	v1.Get("/deals", h.ListDeals)
	v1.Get("/deals/:id", h.GetDeal)
	v1.Post("/deals/:id/approve", h.ApproveDeal)
	v1.Post("/deals/:id/execute", h.ExecuteDeal)
	v1.Post("/deals/:id/cancel", h.CancelDeal)
}
