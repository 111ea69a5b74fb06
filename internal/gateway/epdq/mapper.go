package epdq

import (
	"github.com/cardforge/connector/internal/gateway"
	"github.com/cardforge/connector/internal/status"
)

// statusMapper is the ePDQ numeric status table:
//
//	2  authorisation refused     5  authorised
//	6  authorisation cancelled   7  payment deleted
//	8  refund                    83 refund refused
//	9  payment requested         94 refund declined by acquirer
var statusMapper = gateway.NewStatusMapper(
	gateway.MapCharge("2", status.AuthorisationRejected),
	gateway.MapCharge("5", status.AuthorisationSuccess),
	gateway.MapCharge("6", status.SystemCancelled),
	gateway.MapCharge("7", status.SystemCancelled),
	gateway.MapCharge("9", status.Captured),
	gateway.Ignore("73"),
	gateway.MapRefund("8", status.Refunded),
	gateway.MapRefund("83", status.RefundError),
	gateway.MapRefund("94", status.RefundError),
)
