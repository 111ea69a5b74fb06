// Package status defines the charge and refund status vocabularies, their
// external-facing classification and the directed transition graph that every
// status change in the connector is validated against.
package status

// ChargeStatus is the internal lifecycle state of a charge.
type ChargeStatus string

const (
	Created                ChargeStatus = "CREATED"
	EnteringCardDetails    ChargeStatus = "ENTERING CARD DETAILS"
	AuthorisationReady     ChargeStatus = "AUTHORISATION READY"
	AuthorisationSubmitted ChargeStatus = "AUTHORISATION SUBMITTED"
	AuthorisationSuccess   ChargeStatus = "AUTHORISATION SUCCESS"
	AuthorisationRejected  ChargeStatus = "AUTHORISATION REJECTED"
	AuthorisationCancelled ChargeStatus = "AUTHORISATION CANCELLED"
	AuthorisationError     ChargeStatus = "AUTHORISATION ERROR"
	CaptureReady           ChargeStatus = "CAPTURE READY"
	CaptureSubmitted       ChargeStatus = "CAPTURE SUBMITTED"
	Captured               ChargeStatus = "CAPTURED"
	CaptureError           ChargeStatus = "CAPTURE ERROR"
	ExpireCancelReady      ChargeStatus = "EXPIRE CANCEL READY"
	ExpireCancelSubmitted  ChargeStatus = "EXPIRE CANCEL SUBMITTED"
	ExpireCancelFailed     ChargeStatus = "EXPIRE CANCEL FAILED"
	Expired                ChargeStatus = "EXPIRED"
	SystemCancelReady      ChargeStatus = "SYSTEM CANCEL READY"
	SystemCancelSubmitted  ChargeStatus = "SYSTEM CANCEL SUBMITTED"
	SystemCancelError      ChargeStatus = "SYSTEM CANCEL ERROR"
	SystemCancelled        ChargeStatus = "SYSTEM CANCELLED"
	UserCancelReady        ChargeStatus = "USER CANCEL READY"
	UserCancelSubmitted    ChargeStatus = "USER CANCEL SUBMITTED"
	UserCancelError        ChargeStatus = "USER CANCEL ERROR"
	UserCancelled          ChargeStatus = "USER CANCELLED"
)

// RefundStatus is the internal lifecycle state of a refund.
type RefundStatus string

const (
	RefundCreated   RefundStatus = "CREATED"
	RefundSubmitted RefundStatus = "REFUND SUBMITTED"
	Refunded        RefundStatus = "REFUNDED"
	RefundError     RefundStatus = "REFUND ERROR"
)

// ExternalState is the classification presented to API consumers and compared
// against the ledger during parity checks.
type ExternalState struct {
	Status   string
	Finished bool
}

var (
	ExternalCreated         = ExternalState{Status: "created"}
	ExternalStarted         = ExternalState{Status: "started"}
	ExternalSubmitted       = ExternalState{Status: "submitted"}
	ExternalSuccess         = ExternalState{Status: "success", Finished: true}
	ExternalFailedRejected  = ExternalState{Status: "declined", Finished: true}
	ExternalFailedExpired   = ExternalState{Status: "timedout", Finished: true}
	ExternalFailedCancelled = ExternalState{Status: "cancelled", Finished: true}
	ExternalCancelled       = ExternalState{Status: "cancelled", Finished: true}
	ExternalError           = ExternalState{Status: "error", Finished: true}

	ExternalRefundCreated   = ExternalState{Status: "created"}
	ExternalRefundSubmitted = ExternalState{Status: "submitted"}
	ExternalRefundSuccess   = ExternalState{Status: "success", Finished: true}
	ExternalRefundError     = ExternalState{Status: "error", Finished: true}
)

// chargeExternal maps every charge status to its external classification. The
// classification is always derived through this table, never stored on the
// charge itself.
var chargeExternal = map[ChargeStatus]ExternalState{
	Created:                ExternalCreated,
	EnteringCardDetails:    ExternalStarted,
	AuthorisationReady:     ExternalStarted,
	AuthorisationSubmitted: ExternalStarted,
	AuthorisationSuccess:   ExternalSubmitted,
	AuthorisationRejected:  ExternalFailedRejected,
	AuthorisationCancelled: ExternalFailedCancelled,
	AuthorisationError:     ExternalError,
	CaptureReady:           ExternalSuccess,
	CaptureSubmitted:       ExternalSuccess,
	Captured:               ExternalSuccess,
	CaptureError:           ExternalError,
	ExpireCancelReady:      ExternalSubmitted,
	ExpireCancelSubmitted:  ExternalSubmitted,
	ExpireCancelFailed:     ExternalError,
	Expired:                ExternalFailedExpired,
	SystemCancelReady:      ExternalSubmitted,
	SystemCancelSubmitted:  ExternalSubmitted,
	SystemCancelError:      ExternalError,
	SystemCancelled:        ExternalCancelled,
	UserCancelReady:        ExternalSubmitted,
	UserCancelSubmitted:    ExternalSubmitted,
	UserCancelError:        ExternalError,
	UserCancelled:          ExternalFailedCancelled,
}

var refundExternal = map[RefundStatus]ExternalState{
	RefundCreated:   ExternalRefundCreated,
	RefundSubmitted: ExternalRefundSubmitted,
	Refunded:        ExternalRefundSuccess,
	RefundError:     ExternalRefundError,
}

// ToExternal returns the external classification for a charge status.
func (s ChargeStatus) ToExternal() ExternalState {
	return chargeExternal[s]
}

// ToExternal returns the external classification for a refund status.
func (s RefundStatus) ToExternal() ExternalState {
	return refundExternal[s]
}

// String implements fmt.Stringer.
func (s ChargeStatus) String() string { return string(s) }

// String implements fmt.Stringer.
func (s RefundStatus) String() string { return string(s) }
