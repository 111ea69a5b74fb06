package status

import "fmt"

// Transition is one directed edge of the charge state graph, labelled with
// the actor that causes it.
type Transition struct {
	From  ChargeStatus
	To    ChargeStatus
	Cause string
}

// Transitions is the immutable charge transition graph. Build it once with
// NewTransitions and share the value; it is safe for unsynchronised
// concurrent reads.
type Transitions struct {
	edges map[ChargeStatus]map[ChargeStatus]string
}

// InvalidTransitionError reports a requested status change that is not an
// edge of the transition graph.
type InvalidTransitionError struct {
	From ChargeStatus
	To   ChargeStatus
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("charge state transition [%s] -> [%s] not allowed", e.From, e.To)
}

// InvalidRefundTransitionError reports a refund status change outside the
// refund graph.
type InvalidRefundTransitionError struct {
	From RefundStatus
	To   RefundStatus
}

func (e InvalidRefundTransitionError) Error() string {
	return fmt.Sprintf("refund state transition [%s] -> [%s] not allowed", e.From, e.To)
}

// NewTransitions builds the full charge transition graph.
func NewTransitions() *Transitions {
	t := &Transitions{edges: make(map[ChargeStatus]map[ChargeStatus]string)}

	t.add(Created, EnteringCardDetails, "PaymentFrontend")
	t.add(Created, Expired, "ChargeExpiryProcess")
	t.add(Created, SystemCancelled, "SystemCancelService")

	t.add(EnteringCardDetails, AuthorisationReady, "PaymentFrontend")
	t.add(EnteringCardDetails, Expired, "ChargeExpiryProcess")
	t.add(EnteringCardDetails, UserCancelled, "UserCancelService")
	t.add(EnteringCardDetails, SystemCancelled, "SystemCancelService")

	t.add(AuthorisationReady, AuthorisationSubmitted, "CardAuthoriseService")
	t.add(AuthorisationReady, AuthorisationSuccess, "CardAuthoriseService")
	t.add(AuthorisationReady, AuthorisationRejected, "CardAuthoriseService")
	t.add(AuthorisationReady, AuthorisationCancelled, "CardAuthoriseService")
	t.add(AuthorisationReady, AuthorisationError, "CardAuthoriseService")

	t.add(AuthorisationSubmitted, AuthorisationSuccess, "Notification")
	t.add(AuthorisationSubmitted, AuthorisationRejected, "Notification")
	t.add(AuthorisationSubmitted, AuthorisationError, "Notification")

	t.add(AuthorisationSuccess, CaptureReady, "CardCaptureService")
	t.add(AuthorisationSuccess, ExpireCancelReady, "ChargeExpiryProcess")
	t.add(AuthorisationSuccess, SystemCancelReady, "SystemCancelService")
	t.add(AuthorisationSuccess, UserCancelReady, "UserCancelService")

	t.add(CaptureReady, CaptureSubmitted, "CardCaptureProcess")
	t.add(CaptureReady, CaptureError, "CardCaptureProcess")

	t.add(CaptureSubmitted, Captured, "Notification")
	t.add(CaptureSubmitted, CaptureError, "Notification")

	t.add(ExpireCancelReady, ExpireCancelSubmitted, "ChargeExpiryProcess")
	t.add(ExpireCancelReady, Expired, "ChargeExpiryProcess")
	t.add(ExpireCancelReady, ExpireCancelFailed, "ChargeExpiryProcess")
	t.add(ExpireCancelSubmitted, Expired, "Notification")
	t.add(ExpireCancelSubmitted, ExpireCancelFailed, "Notification")

	t.add(SystemCancelReady, SystemCancelSubmitted, "SystemCancelService")
	t.add(SystemCancelReady, SystemCancelled, "SystemCancelService")
	t.add(SystemCancelReady, SystemCancelError, "SystemCancelService")
	t.add(SystemCancelSubmitted, SystemCancelled, "Notification")
	t.add(SystemCancelSubmitted, SystemCancelError, "Notification")

	t.add(UserCancelReady, UserCancelSubmitted, "UserCancelService")
	t.add(UserCancelReady, UserCancelled, "UserCancelService")
	t.add(UserCancelReady, UserCancelError, "UserCancelService")
	t.add(UserCancelSubmitted, UserCancelled, "Notification")
	t.add(UserCancelSubmitted, UserCancelError, "Notification")

	return t
}

func (t *Transitions) add(from, to ChargeStatus, cause string) {
	m, ok := t.edges[from]
	if !ok {
		m = make(map[ChargeStatus]string)
		t.edges[from] = m
	}
	m[to] = cause
}

// IsValidTransition reports whether the graph contains the edge from -> to.
func (t *Transitions) IsValidTransition(from, to ChargeStatus) bool {
	_, ok := t.edges[from][to]
	return ok
}

// Cause returns the label of the edge from -> to, or false when the edge does
// not exist.
func (t *Transitions) Cause(from, to ChargeStatus) (string, bool) {
	cause, ok := t.edges[from][to]
	return cause, ok
}

// AllStatuses returns the complete set of charge statuses.
func (t *Transitions) AllStatuses() map[ChargeStatus]struct{} {
	all := make(map[ChargeStatus]struct{}, len(chargeExternal))
	for s := range chargeExternal {
		all[s] = struct{}{}
	}
	return all
}

// AllTransitions returns every edge of the graph as (from, to, cause)
// triples.
func (t *Transitions) AllTransitions() []Transition {
	var out []Transition
	for from, tos := range t.edges {
		for to, cause := range tos {
			out = append(out, Transition{From: from, To: to, Cause: cause})
		}
	}
	return out
}

// IsTerminal reports whether the status has no outgoing edges. Terminality is
// derived from the graph, never stored separately.
func (t *Transitions) IsTerminal(s ChargeStatus) bool {
	return len(t.edges[s]) == 0
}

// refundEdges is the much smaller refund graph.
var refundEdges = map[RefundStatus]map[RefundStatus]struct{}{
	RefundCreated:   {RefundSubmitted: {}, RefundError: {}},
	RefundSubmitted: {Refunded: {}, RefundError: {}},
}

// IsValidRefundTransition reports whether a refund may move from -> to.
func IsValidRefundTransition(from, to RefundStatus) bool {
	_, ok := refundEdges[from][to]
	return ok
}
