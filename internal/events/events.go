// Package events emits charge and refund lifecycle events to the ledger
// pipeline. The publisher is a side channel: failures are logged by callers
// and never influence control flow.
package events

import (
	"context"
	"log/slog"
	"time"
)

// Event types.
const (
	TypePaymentCreated         = "PAYMENT_CREATED"
	TypePaymentStateTransition = "PAYMENT_STATE_TRANSITION"
	TypeRefundStateTransition  = "REFUND_STATE_TRANSITION"
)

// Event is one lifecycle event addressed by the resource's external id.
type Event struct {
	Type               string    `json:"event_type"`
	ResourceExternalID string    `json:"resource_external_id"`
	ParentExternalID   string    `json:"parent_external_id,omitempty"`
	Status             string    `json:"status,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// LoggerPublisher writes events to the structured logger. Used in dev and
// tests where no broker is available.
type LoggerPublisher struct {
	logger *slog.Logger
}

// NewLoggerPublisher constructs a logging publisher.
func NewLoggerPublisher(logger *slog.Logger) *LoggerPublisher {
	return &LoggerPublisher{logger: logger}
}

// Publish writes the event to the logger.
func (p *LoggerPublisher) Publish(_ context.Context, ev Event) error {
	if p == nil || p.logger == nil {
		return nil
	}
	p.logger.Info("event emitted",
		"event_type", ev.Type,
		"resource_external_id", ev.ResourceExternalID,
		"status", ev.Status)
	return nil
}
