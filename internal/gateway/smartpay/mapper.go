package smartpay

import (
	"github.com/cardforge/connector/internal/gateway"
	"github.com/cardforge/connector/internal/status"
)

// statusKey disambiguates Smartpay event codes, which carry a separate
// success flag.
type statusKey struct {
	Code    string
	Success bool
}

var statusMapper = gateway.NewStatusMapper(
	gateway.Ignore(statusKey{Code: "AUTHORISATION", Success: true}),
	gateway.Ignore(statusKey{Code: "AUTHORISATION", Success: false}),
	gateway.MapCharge(statusKey{Code: "CAPTURE", Success: true}, status.Captured),
	gateway.MapCharge(statusKey{Code: "CAPTURE", Success: false}, status.CaptureError),
	gateway.MapCharge(statusKey{Code: "CANCELLATION", Success: true}, status.SystemCancelled),
	gateway.MapCharge(statusKey{Code: "CANCELLATION", Success: false}, status.SystemCancelError),
	gateway.MapRefund(statusKey{Code: "REFUND", Success: true}, status.Refunded),
	gateway.MapRefund(statusKey{Code: "REFUND", Success: false}, status.RefundError),
	gateway.MapRefund(statusKey{Code: "REFUND_FAILED", Success: true}, status.RefundError),
	gateway.MapRefund(statusKey{Code: "REFUND_FAILED", Success: false}, status.RefundError),
)
