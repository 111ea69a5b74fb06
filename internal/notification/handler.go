package notification

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/cardforge/connector/internal/gatewayaccount"
)

// Handler exposes the provider callback endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a notification handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Receive accepts a raw provider callback. Unparseable payloads are logged
// and acknowledged anyway so providers do not retry a message we will never
// accept; only authentication failures are refused.
func (h *Handler) Receive(c *fiber.Ctx) error {
	accountID, err := strconv.ParseInt(c.Params("accountId"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	username, password := basicAuth(c.Get(fiber.HeaderAuthorization))

	err = h.service.Handle(c.UserContext(), accountID, c.Params("provider"), c.Body(), username, password)
	switch {
	case errors.Is(err, ErrUnauthorized):
		return fiber.NewError(http.StatusUnauthorized, "invalid notification credentials")
	case errors.Is(err, gatewayaccount.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "gateway account not found")
	}
	return c.SendString("[OK]")
}

// basicAuth decodes an HTTP basic Authorization header value, returning empty
// strings when absent or malformed.
func basicAuth(header string) (string, string) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", ""
	}
	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", ""
	}
	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", ""
	}
	return username, password
}
