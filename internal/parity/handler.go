package parity

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the expunge task endpoint for operator-triggered runs.
type Handler struct {
	expunger *Expunger
}

// NewHandler constructs an expunge task handler.
func NewHandler(expunger *Expunger) *Handler {
	return &Handler{expunger: expunger}
}

// Expunge runs one expunge pass, bounded by the optional limit query
// parameter (unbounded when absent).
func (h *Handler) Expunge(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	expunged, err := h.expunger.Run(c.UserContext(), limit)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"expunged": expunged})
}
