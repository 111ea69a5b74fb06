// Package sandbox implements a providerless adapter used by test accounts.
// It performs no network I/O and answers deterministically: well-formed
// requests succeed, a handful of magic card numbers simulate declines and
// errors.
package sandbox

import (
	"context"

	"github.com/google/uuid"

	"github.com/cardforge/connector/internal/gateway"
	"github.com/cardforge/connector/internal/gatewayaccount"
	"github.com/cardforge/connector/internal/status"
)

// ProviderName is the registry key for the sandbox.
const ProviderName = "sandbox"

// Magic card numbers recognised by the sandbox.
const (
	CardDeclined = "4000000000000002"
	CardError    = "4000000000000119"
)

// Provider is the sandbox gateway adapter.
type Provider struct{}

// New builds a sandbox adapter.
func New() *Provider { return &Provider{} }

// Name implements gateway.Provider.
func (p *Provider) Name() string { return ProviderName }

// Authorise approves everything except the magic decline/error cards.
func (p *Provider) Authorise(_ context.Context, req gateway.AuthoriseRequest) gateway.Response {
	switch req.Card.Number {
	case CardDeclined:
		return gateway.Response{ProviderStatus: "DECLINED"}
	case CardError:
		return gateway.Response{
			ProviderStatus: "ERROR",
			Error:          gateway.NewError(gateway.ErrorGeneric, "sandbox simulated gateway error", nil),
		}
	default:
		return gateway.Response{Success: true, TransactionID: uuid.NewString(), ProviderStatus: "AUTHORISED"}
	}
}

// Capture always succeeds.
func (p *Provider) Capture(_ context.Context, req gateway.CaptureRequest) gateway.Response {
	return gateway.Response{Success: true, TransactionID: req.TransactionID, ProviderStatus: "CAPTURED"}
}

// Refund always succeeds with a fresh reference.
func (p *Provider) Refund(_ context.Context, req gateway.RefundRequest) gateway.Response {
	return gateway.Response{Success: true, TransactionID: req.TransactionID, Reference: uuid.NewString(), ProviderStatus: "REFUNDED"}
}

// Cancel always succeeds.
func (p *Provider) Cancel(_ context.Context, req gateway.CancelRequest) gateway.Response {
	return gateway.Response{Success: true, TransactionID: req.TransactionID, ProviderStatus: "CANCELLED"}
}

// ParseNotification is unsupported; the sandbox emits no notifications.
func (p *Provider) ParseNotification(gatewayaccount.Account, []byte) ([]gateway.Notification, error) {
	return nil, nil
}

// VerifyNotificationCredentials implements gateway.Provider.
func (p *Provider) VerifyNotificationCredentials(gatewayaccount.Account, string, string) bool {
	return true
}

// InterpretStatus maps a sandbox status code.
func (p *Provider) InterpretStatus(n gateway.Notification) gateway.InterpretedStatus {
	return statusMapper.From(n.Status)
}

var statusMapper = gateway.NewStatusMapper(
	gateway.Ignore("AUTHORISED"),
	gateway.MapCharge("CAPTURED", status.Captured),
	gateway.MapRefund("REFUNDED", status.Refunded),
)
