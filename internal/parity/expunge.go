package parity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cardforge/connector/internal/charge"
	"github.com/cardforge/connector/internal/metrics"
)

// ExpungerConfig carries the expunge process tuning.
type ExpungerConfig struct {
	Enabled bool
	// MinAge is how old a charge must be before it is considered.
	MinAge time.Duration
	// ExcludeCheckedWithin skips charges whose last parity check is recent,
	// so a mismatched charge is not re-processed on every run.
	ExcludeCheckedWithin time.Duration
}

// Expunger hard-removes aged charges that are terminal and fully reconciled
// against the ledger. Anything else gets its parity-check date stamped and
// stays.
type Expunger struct {
	charges  charge.Repository
	checker  *Checker
	config   ExpungerConfig
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewExpunger builds the expunge process.
func NewExpunger(charges charge.Repository, checker *Checker, config ExpungerConfig,
	recorder metrics.Recorder, logger *slog.Logger) *Expunger {
	return &Expunger{charges: charges, checker: checker, config: config,
		recorder: recorder, logger: logger}
}

// Run processes up to limit charges (unbounded when limit <= 0) and returns
// how many were expunged. It stops as soon as no eligible charge remains.
func (e *Expunger) Run(ctx context.Context, limit int) (int, error) {
	if !e.config.Enabled {
		e.logger.Info("expunge disabled, skipping run")
		return 0, nil
	}

	expunged := 0
	for processed := 0; limit <= 0 || processed < limit; processed++ {
		if ctx.Err() != nil {
			return expunged, ctx.Err()
		}

		c, err := e.charges.FindForExpunge(ctx, e.config.MinAge, e.config.ExcludeCheckedWithin)
		if errors.Is(err, charge.ErrNotFound) {
			break
		}
		if err != nil {
			return expunged, err
		}

		ok, err := e.processCharge(ctx, c)
		if err != nil {
			return expunged, err
		}
		if ok {
			expunged++
		}
	}

	e.logger.Info("expunge run complete", "expunged", expunged)
	return expunged, nil
}

// processCharge expunges the charge when it is externally finished and its
// parity is EXISTS_IN_LEDGER; otherwise it stamps the parity-check date so
// the next run moves on.
func (e *Expunger) processCharge(ctx context.Context, c *charge.Charge) (bool, error) {
	now := time.Now().UTC()

	if !c.Status.ToExternal().Finished {
		e.logger.Info("charge not in finished state, skipping expunge",
			"charge_external_id", c.ExternalID, "status", c.Status.String())
		return false, e.charges.UpdateParityCheckedAt(ctx, c.ID, now)
	}

	parityStatus, err := e.checker.Check(ctx, c)
	if err != nil {
		return false, err
	}
	if parityStatus != ExistsInLedger {
		e.recorder.IncCounter("expunge.parity_mismatch")
		e.logger.Warn("charge failed parity check, keeping",
			"charge_external_id", c.ExternalID, "parity", string(parityStatus))
		return false, e.charges.UpdateParityCheckedAt(ctx, c.ID, now)
	}

	if err := e.charges.Expunge(ctx, c.ID); err != nil {
		return false, err
	}
	e.recorder.IncCounter("expunge.expunged")
	e.logger.Info("charge expunged", "charge_external_id", c.ExternalID)
	return true, nil
}
