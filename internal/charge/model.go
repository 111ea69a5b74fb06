// Package charge holds the payment attempt model and the service that owns
// every charge status change.
package charge

import (
	"time"

	"github.com/cardforge/connector/internal/status"
)

// Charge is one payment attempt. ExternalID, Amount and GatewayAccountID are
// immutable after creation; GatewayTransactionID is immutable once assigned
// by the provider. Status moves only along the transition graph, through the
// service. Version backs the optimistic-concurrency discipline: every write
// compares and bumps it.
type Charge struct {
	ID                   int64
	ExternalID           string
	Amount               int64
	Status               status.ChargeStatus
	GatewayTransactionID string
	GatewayAccountID     int64
	Reference            string
	Description          string
	Email                string
	ReturnURL            string
	Language             string
	CreatedAt            time.Time
	Version              int64

	CaptureAttempts    int
	LastCaptureAttempt *time.Time
	ParityCheckedAt    *time.Time

	// Events is the ordered, append-only audit trail: one entry per
	// accepted transition.
	Events []Event
}

// Event records a status the charge entered and when. GatewayEventDate is
// set when the provider reported its own event time.
type Event struct {
	ID               int64
	ChargeID         int64
	Status           status.ChargeStatus
	Updated          time.Time
	GatewayEventDate *time.Time
}

// FirstEventAt returns the time the charge first reached s, preferring the
// gateway-reported time when present. The events list is the source of truth
// for this question.
func (c *Charge) FirstEventAt(s status.ChargeStatus) (time.Time, bool) {
	for _, ev := range c.Events {
		if ev.Status != s {
			continue
		}
		if ev.GatewayEventDate != nil {
			return *ev.GatewayEventDate, true
		}
		return ev.Updated, true
	}
	return time.Time{}, false
}
