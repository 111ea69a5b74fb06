package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cardforge/connector/internal/parity"
)

// RegisterTaskRoutes wires operator-triggered maintenance tasks.
func RegisterTaskRoutes(r fiber.Router, h *parity.Handler) {
	r.Post("/expunge", h.Expunge)
}
