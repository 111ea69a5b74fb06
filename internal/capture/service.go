// Package capture settles authorised charges: a per-charge capture operation
// driven through the transactional executor, and a batch process that polls
// for capture-eligible charges on a schedule.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cardforge/connector/internal/charge"
	"github.com/cardforge/connector/internal/gateway"
	"github.com/cardforge/connector/internal/gatewayaccount"
	"github.com/cardforge/connector/internal/operation"
	"github.com/cardforge/connector/internal/status"
)

// ErrNotEligible indicates the charge is not awaiting capture.
var ErrNotEligible = errors.New("charge not eligible for capture")

// Service performs the capture operation for a single charge.
type Service struct {
	charges    charge.Repository
	chargeSvc  *charge.Service
	accounts   gatewayaccount.Repository
	registry   *gateway.Registry
	maxRetries int
	logger     *slog.Logger
}

// NewService builds a capture service. maxRetries bounds automatic retries;
// a charge whose attempts exceed it lands on CAPTURE ERROR.
func NewService(charges charge.Repository, chargeSvc *charge.Service, accounts gatewayaccount.Repository,
	registry *gateway.Registry, maxRetries int, logger *slog.Logger) *Service {
	return &Service{charges: charges, chargeSvc: chargeSvc, accounts: accounts,
		registry: registry, maxRetries: maxRetries, logger: logger}
}

// Capture drives one capture attempt for the charge. The attempt counter is
// bumped under the version guard in prepare, which is what makes concurrent
// invocations safe: the loser observes a conflict before any remote call.
func (s *Service) Capture(ctx context.Context, chargeExternalID string) error {
	var account gatewayaccount.Account
	var provider gateway.Provider

	_, err := operation.Execute(ctx, operation.Phases[*charge.Charge]{
		Prepare: func(ctx context.Context) (*charge.Charge, error) {
			c, err := s.charges.GetByExternalID(ctx, chargeExternalID)
			if err != nil {
				return nil, err
			}
			if c.Status != status.CaptureReady {
				return nil, fmt.Errorf("%w: charge %s in status %s", ErrNotEligible, c.ExternalID, c.Status)
			}

			account, err = s.accounts.Get(ctx, c.GatewayAccountID)
			if err != nil {
				return nil, err
			}
			provider, err = s.registry.Resolve(account.Provider)
			if err != nil {
				return nil, err
			}

			now := time.Now().UTC()
			c.CaptureAttempts++
			c.LastCaptureAttempt = &now
			if err := s.charges.Update(ctx, c); err != nil {
				return nil, err
			}
			return c, nil
		},

		Call: func(ctx context.Context, c *charge.Charge) gateway.Response {
			return provider.Capture(ctx, gateway.CaptureRequest{
				Account:       account,
				TransactionID: c.GatewayTransactionID,
				Amount:        c.Amount,
			})
		},

		Finalize: func(ctx context.Context, c *charge.Charge, resp gateway.Response) error {
			fresh, err := s.charges.GetByExternalID(ctx, c.ExternalID)
			if err != nil {
				return err
			}

			if resp.Successful() {
				// The provider assigns the transaction id on the first
				// successful dispatch; once set it never changes, and
				// notifications resolve the charge through it.
				if fresh.GatewayTransactionID == "" && resp.TransactionID != "" {
					fresh.GatewayTransactionID = resp.TransactionID
				}
				return s.chargeSvc.Transition(ctx, fresh, status.CaptureSubmitted, nil)
			}

			if fresh.CaptureAttempts > s.maxRetries {
				s.logger.Error("capture retries exhausted, marking capture error",
					"charge_external_id", fresh.ExternalID, "attempts", fresh.CaptureAttempts)
				return s.chargeSvc.Transition(ctx, fresh, status.CaptureError, nil)
			}

			s.logger.Warn("capture attempt failed, will retry",
				"charge_external_id", fresh.ExternalID,
				"attempts", fresh.CaptureAttempts,
				"error", resp.Error)
			return nil
		},
	})
	return err
}
