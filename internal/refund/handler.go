package refund

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cardforge/connector/internal/charge"
	"github.com/cardforge/connector/internal/gateway"
	"github.com/cardforge/connector/internal/gatewayaccount"
)

// Handler exposes refund endpoints.
type Handler struct {
	service *Service
	charges *charge.Service
}

// NewHandler constructs a refund handler.
func NewHandler(service *Service, charges *charge.Service) *Handler {
	return &Handler{service: service, charges: charges}
}

type createRefundRequest struct {
	Amount int64 `json:"amount"`
	// RefundAmountAvailable is the availability the caller observed; a stale
	// value is rejected as a precondition failure.
	RefundAmountAvailable int64 `json:"refund_amount_available"`
}

type refundResponse struct {
	RefundID    string    `json:"refund_id"`
	ChargeID    string    `json:"charge_id"`
	Amount      int64     `json:"amount"`
	Status      string    `json:"status"`
	Reference   string    `json:"reference,omitempty"`
	CreatedDate time.Time `json:"created_date"`
}

func toRefundResponse(r *Refund) refundResponse {
	return refundResponse{
		RefundID:    r.ExternalID,
		ChargeID:    r.ChargeExternalID,
		Amount:      r.Amount,
		Status:      r.Status.ToExternal().Status,
		Reference:   r.Reference,
		CreatedDate: r.CreatedAt,
	}
}

// Create submits a refund for the charge.
func (h *Handler) Create(c *fiber.Ctx) error {
	accountID, err := strconv.ParseInt(c.Params("accountId"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}

	var req createRefundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	created, err := h.service.Refund(c.UserContext(), Input{
		ChargeExternalID: c.Params("chargeId"),
		GatewayAccountID: accountID,
		Amount:           req.Amount,
		AmountAvailable:  req.RefundAmountAvailable,
	})
	if err != nil {
		var gerr *gateway.Error
		switch {
		case errors.Is(err, charge.ErrNotFound), errors.Is(err, gatewayaccount.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "charge not found")
		case errors.Is(err, ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNotAvailable), errors.Is(err, ErrAvailabilityMismatch),
			errors.Is(err, ErrChargeNotRefundable):
			return fiber.NewError(http.StatusPreconditionFailed, err.Error())
		case errors.Is(err, charge.ErrConflict), errors.Is(err, ErrConflict):
			return fiber.NewError(http.StatusConflict, "refund in progress, retry")
		case errors.As(err, &gerr):
			// The attempt reached the gateway and failed; the refund record
			// carries its terminal error status.
			if created != nil {
				return c.Status(http.StatusAccepted).JSON(toRefundResponse(created))
			}
			return fiber.NewError(http.StatusBadGateway, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusAccepted).JSON(toRefundResponse(created))
}

// List returns a charge's refunds with the current availability.
func (h *Handler) List(c *fiber.Ctx) error {
	found, err := h.charges.FindByExternalID(c.UserContext(), c.Params("chargeId"))
	if errors.Is(err, charge.ErrNotFound) {
		return fiber.NewError(http.StatusNotFound, "charge not found")
	}
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	refunds, err := h.service.ListForCharge(c.UserContext(), found.ExternalID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	available, err := h.service.AmountAvailable(c.UserContext(), found)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	items := make([]refundResponse, 0, len(refunds))
	for _, r := range refunds {
		items = append(items, toRefundResponse(r))
	}
	return c.JSON(fiber.Map{
		"charge_id":               found.ExternalID,
		"refund_amount_available": available,
		"refunds":                 items,
	})
}

// Get returns one refund.
func (h *Handler) Get(c *fiber.Ctx) error {
	found, err := h.service.refunds.GetByExternalID(c.UserContext(), c.Params("refundId"))
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(http.StatusNotFound, "refund not found")
	}
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if found.ChargeExternalID != c.Params("chargeId") {
		return fiber.NewError(http.StatusNotFound, "refund not found")
	}
	return c.JSON(toRefundResponse(found))
}
