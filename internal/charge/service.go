package charge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cardforge/connector/internal/events"
	"github.com/cardforge/connector/internal/gatewayaccount"
	"github.com/cardforge/connector/internal/status"
)

// ErrInvalidRequest marks a validation failure on charge input. Never
// retried, surfaced to the caller immediately.
var ErrInvalidRequest = errors.New("invalid charge request")

// Service owns charge creation and the validated status transition that is
// the only way a charge's status ever changes.
type Service struct {
	repo        Repository
	accounts    gatewayaccount.Repository
	transitions *status.Transitions
	publisher   events.Publisher
	logger      *slog.Logger
}

// NewService builds a charge service.
func NewService(repo Repository, accounts gatewayaccount.Repository, transitions *status.Transitions, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{repo: repo, accounts: accounts, transitions: transitions, publisher: publisher, logger: logger}
}

// CreateInput captures the data needed to open a charge.
type CreateInput struct {
	GatewayAccountID int64
	Amount           int64
	Reference        string
	Description      string
	Email            string
	ReturnURL        string
	Language         string
}

// Create opens a charge in CREATED with a fresh external id and the initial
// audit event.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Charge, error) {
	if input.Amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrInvalidRequest)
	}
	if input.Reference == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrInvalidRequest)
	}
	if input.ReturnURL == "" {
		return nil, fmt.Errorf("%w: return url is required", ErrInvalidRequest)
	}
	if _, err := s.accounts.Get(ctx, input.GatewayAccountID); err != nil {
		return nil, err
	}

	language := input.Language
	if language == "" {
		language = "en"
	}

	now := time.Now().UTC()
	c := &Charge{
		ExternalID:       newExternalID(),
		Amount:           input.Amount,
		Status:           status.Created,
		GatewayAccountID: input.GatewayAccountID,
		Reference:        input.Reference,
		Description:      input.Description,
		Email:            input.Email,
		ReturnURL:        input.ReturnURL,
		Language:         language,
		CreatedAt:        now,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	if err := s.repo.AppendEvent(ctx, Event{ChargeID: c.ID, Status: status.Created, Updated: now}); err != nil {
		return nil, err
	}
	c.Events = append(c.Events, Event{ChargeID: c.ID, Status: status.Created, Updated: now})

	s.publish(ctx, events.Event{
		Type:               events.TypePaymentCreated,
		ResourceExternalID: c.ExternalID,
		Status:             c.Status.ToExternal().Status,
		Timestamp:          now,
	})
	s.logger.Info("charge created", "charge_external_id", c.ExternalID, "amount", c.Amount)
	return c, nil
}

// FindByExternalID fetches a charge.
func (s *Service) FindByExternalID(ctx context.Context, externalID string) (*Charge, error) {
	return s.repo.GetByExternalID(ctx, externalID)
}

// FindByProviderTransactionID resolves the charge a provider notification
// refers to.
func (s *Service) FindByProviderTransactionID(ctx context.Context, provider, transactionID string) (*Charge, error) {
	return s.repo.GetByProviderTransactionID(ctx, provider, transactionID)
}

// Transition moves the charge to target if the transition graph allows it,
// writes the charge and its audit event in one transaction under the version
// guard, then emits the state-transition event. gatewayEventDate, when known,
// is the provider-reported time of the event.
func (s *Service) Transition(ctx context.Context, c *Charge, target status.ChargeStatus, gatewayEventDate *time.Time) error {
	from := c.Status
	if !s.transitions.IsValidTransition(from, target) {
		return status.InvalidTransitionError{From: from, To: target}
	}

	now := time.Now().UTC()
	ev := Event{ChargeID: c.ID, Status: target, Updated: now, GatewayEventDate: gatewayEventDate}

	c.Status = target
	if err := s.repo.UpdateWithEvent(ctx, c, ev); err != nil {
		c.Status = from
		return err
	}
	c.Events = append(c.Events, ev)

	s.logger.Info("charge status changed",
		"charge_external_id", c.ExternalID, "from", from.String(), "to", target.String())
	s.publish(ctx, events.Event{
		Type:               events.TypePaymentStateTransition,
		ResourceExternalID: c.ExternalID,
		Status:             target.ToExternal().Status,
		Timestamp:          now,
	})
	return nil
}

// Transitions exposes the immutable graph for read-only callers.
func (s *Service) Transitions() *status.Transitions {
	return s.transitions
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("event publish failed", "event_type", ev.Type, "error", err)
	}
}

// newExternalID returns a 26-character lowercase identifier. External ids are
// public-facing, generated once at creation and never reused.
func newExternalID() string {
	u := uuid.New()
	return fmt.Sprintf("%x", u[:13])
}
