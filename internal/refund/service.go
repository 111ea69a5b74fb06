package refund

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cardforge/connector/internal/charge"
	"github.com/cardforge/connector/internal/events"
	"github.com/cardforge/connector/internal/gateway"
	"github.com/cardforge/connector/internal/gatewayaccount"
	"github.com/cardforge/connector/internal/operation"
	"github.com/cardforge/connector/internal/status"
)

var (
	// ErrNotAvailable indicates the requested amount exceeds what remains
	// refundable on the charge.
	ErrNotAvailable = errors.New("refund amount not available")

	// ErrAvailabilityMismatch indicates the caller's view of the available
	// amount no longer matches ours; a race, treated as a precondition
	// failure rather than silently reconciled.
	ErrAvailabilityMismatch = errors.New("refund amount available mismatch")

	// ErrChargeNotRefundable indicates the charge is not in a state that
	// permits refunds.
	ErrChargeNotRefundable = errors.New("charge not available for refund")

	// ErrInvalidAmount marks a non-positive refund amount.
	ErrInvalidAmount = errors.New("refund amount must be positive")
)

// Service orchestrates refunds: availability validation, refund record
// creation and the three-phase gateway operation.
type Service struct {
	charges   charge.Repository
	refunds   Repository
	accounts  gatewayaccount.Repository
	registry  *gateway.Registry
	publisher events.Publisher
	logger    *slog.Logger
}

// NewService builds a refund service.
func NewService(charges charge.Repository, refunds Repository, accounts gatewayaccount.Repository,
	registry *gateway.Registry, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{charges: charges, refunds: refunds, accounts: accounts,
		registry: registry, publisher: publisher, logger: logger}
}

// Input captures a refund request.
type Input struct {
	ChargeExternalID string
	GatewayAccountID int64
	Amount           int64
	// AmountAvailable is the availability the caller computed; it must
	// still match ours exactly at prepare time.
	AmountAvailable int64
}

// AmountAvailable returns the charge amount minus the sum of amounts of
// refunds currently in an active status.
func (s *Service) AmountAvailable(ctx context.Context, c *charge.Charge) (int64, error) {
	refunds, err := s.refunds.ListByChargeExternalID(ctx, c.ExternalID)
	if err != nil {
		return 0, err
	}
	available := c.Amount
	for _, r := range refunds {
		if r.Active() {
			available -= r.Amount
		}
	}
	return available, nil
}

// ListForCharge returns a charge's refunds.
func (s *Service) ListForCharge(ctx context.Context, chargeExternalID string) ([]*Refund, error) {
	return s.refunds.ListByChargeExternalID(ctx, chargeExternalID)
}

// Transition moves the refund to target if the refund graph allows it, writes
// it under the version guard and emits the state-transition event. Used when
// a provider notification or a reconciliation pass confirms an outcome.
func (s *Service) Transition(ctx context.Context, r *Refund, target status.RefundStatus) error {
	from := r.Status
	if !status.IsValidRefundTransition(from, target) {
		return status.InvalidRefundTransitionError{From: from, To: target}
	}

	r.Status = target
	if err := s.refunds.Update(ctx, r); err != nil {
		r.Status = from
		return err
	}

	s.logger.Info("refund status updated",
		"charge_external_id", r.ChargeExternalID,
		"refund_external_id", r.ExternalID,
		"from", from.String(), "to", target.String())
	s.publish(ctx, events.Event{
		Type:               events.TypeRefundStateTransition,
		ResourceExternalID: r.ExternalID,
		ParentExternalID:   r.ChargeExternalID,
		Status:             target.ToExternal().Status,
		Timestamp:          time.Now().UTC(),
	})
	return nil
}

// Refund validates availability, creates the refund record and drives it
// through the gateway. The returned refund carries the terminal status of
// this attempt; refunds are never auto-retried.
func (s *Service) Refund(ctx context.Context, input Input) (*Refund, error) {
	if input.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	account, err := s.accounts.Get(ctx, input.GatewayAccountID)
	if err != nil {
		return nil, err
	}
	provider, err := s.registry.Resolve(account.Provider)
	if err != nil {
		return nil, err
	}

	var created *Refund

	resp, err := operation.Execute(ctx, operation.Phases[*Refund]{
		Prepare: func(ctx context.Context) (*Refund, error) {
			// Fresh reload so availability reflects the latest committed
			// state.
			c, err := s.charges.GetByExternalID(ctx, input.ChargeExternalID)
			if err != nil {
				return nil, err
			}
			if c.GatewayAccountID != input.GatewayAccountID {
				return nil, charge.ErrNotFound
			}
			if c.Status != status.Captured && c.Status != status.CaptureSubmitted {
				return nil, fmt.Errorf("%w: charge %s in status %s", ErrChargeNotRefundable, c.ExternalID, c.Status)
			}

			available, err := s.AmountAvailable(ctx, c)
			if err != nil {
				return nil, err
			}
			if input.AmountAvailable != available {
				return nil, fmt.Errorf("%w: expected %d, have %d", ErrAvailabilityMismatch, input.AmountAvailable, available)
			}
			if input.Amount > available {
				return nil, fmt.Errorf("%w: requested %d of %d", ErrNotAvailable, input.Amount, available)
			}

			// Bump the charge version before creating the child so a
			// concurrent refund against the same charge loses here, before
			// any remote call and before its refund record exists.
			if err := s.charges.Update(ctx, c); err != nil {
				return nil, err
			}

			r := &Refund{
				ExternalID:       uuid.NewString(),
				ChargeID:         c.ID,
				ChargeExternalID: c.ExternalID,
				Amount:           input.Amount,
				Status:           status.RefundCreated,
				CreatedAt:        time.Now().UTC(),
			}
			if err := s.refunds.Create(ctx, r); err != nil {
				return nil, err
			}
			created = r
			s.logger.Info("refund request sent",
				"charge_external_id", c.ExternalID,
				"refund_external_id", r.ExternalID,
				"amount", r.Amount)
			return r, nil
		},

		Call: func(ctx context.Context, r *Refund) gateway.Response {
			c, err := s.charges.GetByExternalID(ctx, r.ChargeExternalID)
			if err != nil {
				return gateway.Response{Error: gateway.NewError(gateway.ErrorGeneric, "reload charge for refund", err)}
			}
			return provider.Refund(ctx, gateway.RefundRequest{
				Account:       account,
				TransactionID: c.GatewayTransactionID,
				Amount:        r.Amount,
				Reference:     r.ExternalID,
			})
		},

		Finalize: func(ctx context.Context, r *Refund, resp gateway.Response) error {
			// Reload defends against concurrent updates during the remote
			// call; the version guard catches the rest.
			fresh, err := s.refunds.Get(ctx, r.ID)
			if err != nil {
				return err
			}

			target := status.RefundError
			synchronous := false
			if resp.Successful() {
				target = status.RefundSubmitted
				// Some providers confirm completion synchronously; the
				// refund still passes through the submitted state.
				synchronous = resp.ProviderStatus == "REFUNDED"
			}
			if !status.IsValidRefundTransition(fresh.Status, target) {
				return status.InvalidRefundTransitionError{From: fresh.Status, To: target}
			}

			fresh.Status = target
			if resp.Successful() && resp.Reference != "" {
				// Prefer the provider's reference over the locally
				// generated one.
				fresh.Reference = resp.Reference
			}
			if target == status.RefundError {
				fresh.Reference = ""
			}
			if err := s.refunds.Update(ctx, fresh); err != nil {
				return err
			}
			if synchronous {
				fresh.Status = status.Refunded
				if err := s.refunds.Update(ctx, fresh); err != nil {
					return err
				}
			}
			*r = *fresh

			s.logger.Info("refund status updated",
				"charge_external_id", r.ChargeExternalID,
				"refund_external_id", r.ExternalID,
				"status", r.Status.String())
			s.publish(ctx, events.Event{
				Type:               events.TypeRefundStateTransition,
				ResourceExternalID: r.ExternalID,
				ParentExternalID:   r.ChargeExternalID,
				Status:             r.Status.ToExternal().Status,
				Timestamp:          time.Now().UTC(),
			})
			return nil
		},
	})

	if err != nil {
		if created != nil && resp.Error != nil {
			// The attempt reached the gateway; the record carries its
			// terminal error status.
			return created, err
		}
		return nil, err
	}
	return created, nil
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("event publish failed", "event_type", ev.Type, "error", err)
	}
}
