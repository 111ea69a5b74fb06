package charge

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cardforge/connector/internal/gatewayaccount"
	"github.com/cardforge/connector/internal/status"
)

// Handler exposes charge endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a charge handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createChargeRequest struct {
	Amount      int64  `json:"amount"`
	Reference   string `json:"reference"`
	Description string `json:"description"`
	Email       string `json:"email"`
	ReturnURL   string `json:"return_url"`
	Language    string `json:"language"`
}

type chargeState struct {
	Status   string `json:"status"`
	Finished bool   `json:"finished"`
}

type chargeEventResponse struct {
	Status           string     `json:"status"`
	Updated          time.Time  `json:"updated"`
	GatewayEventDate *time.Time `json:"gateway_event_date,omitempty"`
}

type chargeResponse struct {
	ChargeID             string                `json:"charge_id"`
	Amount               int64                 `json:"amount"`
	State                chargeState           `json:"state"`
	Reference            string                `json:"reference"`
	Description          string                `json:"description"`
	Email                string                `json:"email,omitempty"`
	ReturnURL            string                `json:"return_url"`
	Language             string                `json:"language"`
	GatewayTransactionID string                `json:"gateway_transaction_id,omitempty"`
	CreatedDate          time.Time             `json:"created_date"`
	Events               []chargeEventResponse `json:"events,omitempty"`
}

func toChargeResponse(c *Charge) chargeResponse {
	external := c.Status.ToExternal()
	resp := chargeResponse{
		ChargeID:             c.ExternalID,
		Amount:               c.Amount,
		State:                chargeState{Status: external.Status, Finished: external.Finished},
		Reference:            c.Reference,
		Description:          c.Description,
		Email:                c.Email,
		ReturnURL:            c.ReturnURL,
		Language:             c.Language,
		GatewayTransactionID: c.GatewayTransactionID,
		CreatedDate:          c.CreatedAt,
	}
	for _, ev := range c.Events {
		resp.Events = append(resp.Events, chargeEventResponse{
			Status:           ev.Status.ToExternal().Status,
			Updated:          ev.Updated,
			GatewayEventDate: ev.GatewayEventDate,
		})
	}
	return resp
}

// Create opens a new charge under the account.
func (h *Handler) Create(c *fiber.Ctx) error {
	accountID, err := accountIDParam(c)
	if err != nil {
		return err
	}

	var req createChargeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	created, err := h.service.Create(c.UserContext(), CreateInput{
		GatewayAccountID: accountID,
		Amount:           req.Amount,
		Reference:        req.Reference,
		Description:      req.Description,
		Email:            req.Email,
		ReturnURL:        req.ReturnURL,
		Language:         req.Language,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRequest):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, gatewayaccount.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "gateway account not found")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(toChargeResponse(created))
}

// Get returns one charge with its event history.
func (h *Handler) Get(c *fiber.Ctx) error {
	accountID, err := accountIDParam(c)
	if err != nil {
		return err
	}

	found, err := h.service.FindByExternalID(c.UserContext(), c.Params("chargeId"))
	if errors.Is(err, ErrNotFound) || (err == nil && found.GatewayAccountID != accountID) {
		return fiber.NewError(http.StatusNotFound, "charge not found")
	}
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(toChargeResponse(found))
}

type transitionRequest struct {
	NewStatus string `json:"new_status"`
}

// UpdateStatus applies a caller-requested status transition, validated
// against the graph like every other status change.
func (h *Handler) UpdateStatus(c *fiber.Ctx) error {
	accountID, err := accountIDParam(c)
	if err != nil {
		return err
	}

	var req transitionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	found, err := h.service.FindByExternalID(c.UserContext(), c.Params("chargeId"))
	if errors.Is(err, ErrNotFound) || (err == nil && found.GatewayAccountID != accountID) {
		return fiber.NewError(http.StatusNotFound, "charge not found")
	}
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	if err := h.service.Transition(c.UserContext(), found, status.ChargeStatus(req.NewStatus), nil); err != nil {
		var invalid status.InvalidTransitionError
		switch {
		case errors.As(err, &invalid):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrConflict):
			return fiber.NewError(http.StatusConflict, "charge was concurrently modified")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(toChargeResponse(found))
}

func accountIDParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("accountId"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	return id, nil
}
