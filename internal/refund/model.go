// Package refund holds the refund model and the orchestration service that
// validates availability and drives refunds through the transactional
// gateway operation.
package refund

import (
	"time"

	"github.com/cardforge/connector/internal/status"
)

// Refund is a request to return part or all of a captured charge's amount.
// ChargeID and Amount are immutable after creation. Reference is assigned
// from the provider's response, or left empty on error.
type Refund struct {
	ID               int64
	ExternalID       string
	ChargeID         int64
	ChargeExternalID string
	Amount           int64
	Status           status.RefundStatus
	Reference        string
	CreatedAt        time.Time
	Version          int64
}

// Active reports whether the refund currently counts against the charge's
// refundable amount: created, submitted to the gateway, or confirmed.
func (r *Refund) Active() bool {
	switch r.Status {
	case status.RefundCreated, status.RefundSubmitted, status.Refunded:
		return true
	default:
		return false
	}
}
