package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cardforge/connector/internal/refund"
)

// RegisterRefundRoutes wires refund endpoints.
func RegisterRefundRoutes(r fiber.Router, h *refund.Handler) {
	r.Post("/accounts/:accountId/charges/:chargeId/refunds", h.Create)
	r.Get("/accounts/:accountId/charges/:chargeId/refunds", h.List)
	r.Get("/accounts/:accountId/charges/:chargeId/refunds/:refundId", h.Get)
}
