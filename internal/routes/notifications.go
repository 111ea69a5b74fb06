package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cardforge/connector/internal/middleware"
	"github.com/cardforge/connector/internal/notification"
)

// RegisterNotificationRoutes wires the provider callback endpoint, rate
// limited per source IP to absorb webhook floods.
func RegisterNotificationRoutes(r fiber.Router, h *notification.Handler, d Deps) {
	limiter := middleware.RateLimit(d.Cache, 600, "rl:notification")
	r.Post("/accounts/:accountId/notifications/:provider", limiter, h.Receive)
}
