// Package notification processes inbound provider callbacks: credential and
// payload verification, de-duplication, status interpretation and the
// resulting validated charge or refund transitions. A notification that
// cannot be applied is logged and dropped; one bad message never blocks the
// rest of a batch.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cardforge/connector/internal/charge"
	"github.com/cardforge/connector/internal/gateway"
	"github.com/cardforge/connector/internal/gatewayaccount"
	"github.com/cardforge/connector/internal/metrics"
	"github.com/cardforge/connector/internal/refund"
)

const dedupPrefix = "notification:v1:"

// ErrUnauthorized indicates the notification endpoint credentials did not
// match the account's.
var ErrUnauthorized = errors.New("notification credentials rejected")

// Service handles inbound provider notifications for one gateway account at
// a time.
type Service struct {
	accounts gatewayaccount.Repository
	registry *gateway.Registry
	charges  *charge.Service
	refunds  *refund.Service
	dedup    *redis.Client
	dedupTTL time.Duration
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewService builds the notification service. dedup may be nil, in which case
// duplicate suppression is disabled (tests, local development).
func NewService(accounts gatewayaccount.Repository, registry *gateway.Registry,
	charges *charge.Service, refunds *refund.Service,
	dedup *redis.Client, dedupTTL time.Duration,
	recorder metrics.Recorder, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts, registry: registry,
		charges: charges, refunds: refunds,
		dedup: dedup, dedupTTL: dedupTTL,
		recorder: recorder, logger: logger,
	}
}

// Handle verifies, parses and applies a raw notification payload for the
// account. username and password are the endpoint credentials, empty when the
// provider does not authenticate the endpoint. Per-notification failures are
// logged and skipped; Handle errors only when the whole payload is unusable.
func (s *Service) Handle(ctx context.Context, accountID int64, providerName string, payload []byte, username, password string) error {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Provider != providerName {
		return fmt.Errorf("account %d is not a %s account", accountID, providerName)
	}

	provider, err := s.registry.Resolve(providerName)
	if err != nil {
		return err
	}
	if !provider.VerifyNotificationCredentials(account, username, password) {
		s.recorder.IncCounter("notification.unauthorized")
		return ErrUnauthorized
	}

	notifications, err := provider.ParseNotification(account, payload)
	if err != nil {
		s.recorder.IncCounter("notification.parse_failures")
		return fmt.Errorf("parse %s notification: %w", providerName, err)
	}

	for _, n := range notifications {
		s.process(ctx, account, provider, n)
	}
	return nil
}

// process applies one parsed notification. All failure paths log and return;
// the provider has already been told the batch was accepted.
func (s *Service) process(ctx context.Context, account gatewayaccount.Account, provider gateway.Provider, n gateway.Notification) {
	log := s.logger.With(
		"provider", provider.Name(),
		"transaction_id", n.TransactionID,
		"raw_status", n.Status)

	dup, err := s.seen(ctx, provider.Name(), n)
	if err != nil {
		log.Warn("notification dedup check failed, processing anyway", "error", err)
	}
	if dup {
		s.recorder.IncCounter("notification.duplicates")
		log.Info("duplicate notification, skipping")
		return
	}

	interpreted := provider.InterpretStatus(n)
	switch interpreted.Type {
	case gateway.StatusIgnored:
		log.Debug("informational notification, no state change")
		return
	case gateway.StatusUnknown:
		s.recorder.IncCounter("notification.unknown_status")
		log.Info("unrecognised provider status, skipping")
		return
	}

	c, err := s.charges.FindByProviderTransactionID(ctx, provider.Name(), n.TransactionID)
	if errors.Is(err, charge.ErrNotFound) {
		log.Info("no charge for notification transaction id, skipping")
		return
	}
	if err != nil {
		log.Error("charge lookup failed", "error", err)
		return
	}
	if c.GatewayAccountID != account.ID {
		log.Warn("notification account does not own charge, skipping",
			"charge_external_id", c.ExternalID)
		return
	}

	switch interpreted.Type {
	case gateway.StatusCharge:
		s.applyChargeStatus(ctx, log, c, n, interpreted)
	case gateway.StatusRefund:
		s.applyRefundStatus(ctx, log, c, n, interpreted)
	}
}

func (s *Service) applyChargeStatus(ctx context.Context, log *slog.Logger, c *charge.Charge, n gateway.Notification, interpreted gateway.InterpretedStatus) {
	var eventDate *time.Time
	if !n.EventDate.IsZero() {
		d := n.EventDate.UTC()
		eventDate = &d
	}

	if err := s.charges.Transition(ctx, c, interpreted.ChargeStatus, eventDate); err != nil {
		log.Info("notification transition not applied",
			"charge_external_id", c.ExternalID,
			"target", interpreted.ChargeStatus.String(),
			"error", err)
		return
	}
	s.recorder.IncCounter("notification.charge_transitions")
}

// applyRefundStatus resolves the refund the notification refers to by its
// gateway reference, falling back to the local external id for providers that
// echo it back.
func (s *Service) applyRefundStatus(ctx context.Context, log *slog.Logger, c *charge.Charge, n gateway.Notification, interpreted gateway.InterpretedStatus) {
	refunds, err := s.refunds.ListForCharge(ctx, c.ExternalID)
	if err != nil {
		log.Error("refund lookup failed", "charge_external_id", c.ExternalID, "error", err)
		return
	}

	var target *refund.Refund
	for _, r := range refunds {
		if n.Reference != "" && (r.Reference == n.Reference || r.ExternalID == n.Reference) {
			target = r
			break
		}
	}
	if target == nil {
		log.Info("no refund matches notification reference, skipping",
			"charge_external_id", c.ExternalID, "reference", n.Reference)
		return
	}

	if err := s.refunds.Transition(ctx, target, interpreted.RefundStatus); err != nil {
		log.Info("refund notification transition not applied",
			"refund_external_id", target.ExternalID,
			"target", interpreted.RefundStatus.String(),
			"error", err)
		return
	}
	s.recorder.IncCounter("notification.refund_transitions")
}

// seen reserves the notification's dedup key and reports whether it was
// already reserved. Redis being unavailable degrades to processing the
// notification; a duplicate transition is still rejected by the graph.
func (s *Service) seen(ctx context.Context, providerName string, n gateway.Notification) (bool, error) {
	if s.dedup == nil {
		return false, nil
	}
	key := fmt.Sprintf("%s%s:%s:%s", dedupPrefix, providerName, n.TransactionID, n.Status)
	set, err := s.dedup.SetNX(ctx, key, "1", s.dedupTTL).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}
