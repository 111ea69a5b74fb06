package worldpay

import (
	"github.com/cardforge/connector/internal/gateway"
	"github.com/cardforge/connector/internal/status"
)

// statusMapper is the Worldpay event-code table. Informational events cause
// no state change; everything unregistered comes back unknown.
var statusMapper = gateway.NewStatusMapper(
	gateway.Ignore("SENT_FOR_AUTHORISATION"),
	gateway.Ignore("AUTHORISED"),
	gateway.Ignore("CANCELLED"),
	gateway.Ignore("EXPIRED"),
	gateway.Ignore("REFUSED"),
	gateway.Ignore("REFUSED_BY_BANK"),
	gateway.Ignore("SETTLED_BY_MERCHANT"),
	gateway.Ignore("SENT_FOR_REFUND"),
	gateway.MapCharge("CAPTURED", status.Captured),
	gateway.MapRefund("REFUNDED", status.Refunded),
	gateway.MapRefund("REFUNDED_BY_MERCHANT", status.Refunded),
	gateway.MapRefund("REFUND_FAILED", status.RefundError),
)
