// Package parity reconciles local charges against the external ledger and
// decides whether an aged-out charge can be safely expunged. It reads both
// sides and never calls a gateway.
package parity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cardforge/connector/internal/charge"
	"github.com/cardforge/connector/internal/ledger"
	"github.com/cardforge/connector/internal/refund"
)

// Status classifies the comparison of a local charge against the ledger.
// A mismatch is a classification value, not an error.
type Status string

const (
	ExistsInLedger  Status = "EXISTS_IN_LEDGER"
	MissingInLedger Status = "MISSING_IN_LEDGER"
	DataMismatch    Status = "DATA_MISMATCH"
)

// Checker compares a charge and its refunds field-by-field against the
// ledger's transaction projections.
type Checker struct {
	ledger  ledger.Reader
	refunds refund.Repository
	logger  *slog.Logger
}

// NewChecker builds a parity checker.
func NewChecker(reader ledger.Reader, refunds refund.Repository, logger *slog.Logger) *Checker {
	return &Checker{ledger: reader, refunds: refunds, logger: logger}
}

// Check classifies the charge. EXISTS_IN_LEDGER requires every compared
// charge field and every refund to match exactly; the first difference
// decides the classification.
func (c *Checker) Check(ctx context.Context, ch *charge.Charge) (Status, error) {
	tx, err := c.ledger.GetTransaction(ctx, ch.ExternalID)
	if errors.Is(err, ledger.ErrNotFound) {
		return MissingInLedger, nil
	}
	if err != nil {
		return "", err
	}

	if field, ok := c.chargeMismatch(ch, tx); !ok {
		c.logger.Info("parity mismatch on charge field",
			"charge_external_id", ch.ExternalID, "field", field)
		return DataMismatch, nil
	}

	return c.checkRefunds(ctx, ch)
}

// chargeMismatch compares the charge against the ledger transaction and
// returns the first differing field name.
func (c *Checker) chargeMismatch(ch *charge.Charge, tx ledger.Transaction) (string, bool) {
	external := ch.Status.ToExternal()
	switch {
	case tx.TransactionID != ch.ExternalID:
		return "external_id", false
	case tx.Amount != ch.Amount:
		return "amount", false
	case tx.Description != ch.Description:
		return "description", false
	case tx.Reference != ch.Reference:
		return "reference", false
	case tx.Language != ch.Language:
		return "language", false
	case tx.Email != ch.Email:
		return "email", false
	case tx.ReturnURL != ch.ReturnURL:
		return "return_url", false
	case tx.GatewayTransactionID != ch.GatewayTransactionID:
		return "gateway_transaction_id", false
	case tx.State.Status != external.Status:
		return "state", false
	}
	return "", true
}

// checkRefunds requires every refund of the charge to exist in the ledger
// with matching amount and external status. The first non-matching refund
// short-circuits with its own classification.
func (c *Checker) checkRefunds(ctx context.Context, ch *charge.Charge) (Status, error) {
	refunds, err := c.refunds.ListByChargeExternalID(ctx, ch.ExternalID)
	if err != nil {
		return "", err
	}

	for _, ref := range refunds {
		tx, err := c.ledger.GetTransaction(ctx, ref.ExternalID)
		if errors.Is(err, ledger.ErrNotFound) {
			c.logger.Info("refund missing in ledger",
				"charge_external_id", ch.ExternalID, "refund_external_id", ref.ExternalID)
			return MissingInLedger, nil
		}
		if err != nil {
			return "", err
		}
		if tx.Amount != ref.Amount || tx.State.Status != ref.Status.ToExternal().Status {
			c.logger.Info("parity mismatch on refund",
				"charge_external_id", ch.ExternalID, "refund_external_id", ref.ExternalID)
			return DataMismatch, nil
		}
	}
	return ExistsInLedger, nil
}
