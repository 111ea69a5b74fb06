// Package gateway defines the provider-agnostic abstraction over external
// payment processors: normalized request/response shapes, the Provider
// interface every adapter implements, the gateway error taxonomy and the
// status-mapping contract.
package gateway

import (
	"context"
	"time"

	"github.com/cardforge/connector/internal/gatewayaccount"
	"github.com/cardforge/connector/internal/status"
)

// Card carries the card details needed for an authorisation.
type Card struct {
	Number         string
	CVC            string
	ExpiryDate     string
	CardholderName string
}

// AuthoriseRequest asks a provider to authorise a payment.
type AuthoriseRequest struct {
	Account       gatewayaccount.Account
	TransactionID string
	Amount        int64
	Description   string
	Card          Card
}

// CaptureRequest asks a provider to capture a previously authorised payment.
type CaptureRequest struct {
	Account       gatewayaccount.Account
	TransactionID string
	Amount        int64
}

// RefundRequest asks a provider to return part or all of a captured amount.
type RefundRequest struct {
	Account       gatewayaccount.Account
	TransactionID string
	Amount        int64
	Reference     string
}

// CancelRequest asks a provider to cancel an authorised payment.
type CancelRequest struct {
	Account       gatewayaccount.Account
	TransactionID string
}

// Response is the normalized result of any gateway operation.
type Response struct {
	Success        bool
	TransactionID  string
	Reference      string
	ProviderStatus string
	Error          *Error
}

// Successful reports whether the operation completed without a gateway
// error and the provider accepted it.
func (r Response) Successful() bool {
	return r.Success && r.Error == nil
}

// Notification is a single inbound provider message reporting a status
// change. It is transient and never persisted as-is.
type Notification struct {
	TransactionID string
	Reference     string
	Status        string
	// Success disambiguates providers whose event codes carry a separate
	// success flag (Smartpay style). HasSuccess marks it as meaningful.
	Success    bool
	HasSuccess bool
	EventDate  time.Time
}

// Provider is the per-processor adapter. All adapters are interchangeable:
// the same four operations, the same result shape. Adding a provider never
// requires changing a caller.
type Provider interface {
	Name() string

	Authorise(ctx context.Context, req AuthoriseRequest) Response
	Capture(ctx context.Context, req CaptureRequest) Response
	Refund(ctx context.Context, req RefundRequest) Response
	Cancel(ctx context.Context, req CancelRequest) Response

	// ParseNotification decodes a provider callback payload into normalized
	// notifications, verifying payload authenticity where the provider
	// requires it (e.g. a signature over canonical fields).
	ParseNotification(account gatewayaccount.Account, payload []byte) ([]Notification, error)

	// VerifyNotificationCredentials checks transport-level credentials on
	// the notification endpoint. Providers without endpoint auth accept
	// everything.
	VerifyNotificationCredentials(account gatewayaccount.Account, username, password string) bool

	// InterpretStatus translates a notification's raw provider status into
	// a local outcome through the provider's status table.
	InterpretStatus(n Notification) InterpretedStatus
}

// InterpretedStatusType tags the outcome of a status-mapping lookup.
type InterpretedStatusType int

const (
	// StatusUnknown marks a raw code that is not registered for the
	// provider. Callers log and skip; providers add codes without notice.
	StatusUnknown InterpretedStatusType = iota
	// StatusIgnored marks an informational code that causes no state change.
	StatusIgnored
	// StatusCharge maps to a new charge status.
	StatusCharge
	// StatusRefund maps to a new refund status.
	StatusRefund
)

// InterpretedStatus is the outcome of mapping a raw provider code.
type InterpretedStatus struct {
	Type         InterpretedStatusType
	ChargeStatus status.ChargeStatus
	RefundStatus status.RefundStatus
}
