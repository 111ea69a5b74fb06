package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cardforge/connector/internal/charge"
	"github.com/cardforge/connector/internal/middleware"
)

// RegisterChargeRoutes wires charge endpoints. Charge creation is idempotent
// when the caller supplies an Idempotency-Key header.
func RegisterChargeRoutes(r fiber.Router, h *charge.Handler, d Deps) {
	create := []fiber.Handler{h.Create}
	if d.Cache != nil {
		create = []fiber.Handler{middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger), h.Create}
	}
	r.Post("/accounts/:accountId/charges", create...)
	r.Get("/accounts/:accountId/charges/:chargeId", h.Get)
	r.Put("/accounts/:accountId/charges/:chargeId/status", h.UpdateStatus)
}
