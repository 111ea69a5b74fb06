package status

import "testing"

func TestIsValidTransition(t *testing.T) {
	transitions := NewTransitions()

	if !transitions.IsValidTransition(CaptureReady, CaptureSubmitted) {
		t.Fatalf("expected CAPTURE READY -> CAPTURE SUBMITTED to be valid")
	}
	if transitions.IsValidTransition(Created, AuthorisationReady) {
		t.Fatalf("expected CREATED -> AUTHORISATION READY to be invalid")
	}
	if transitions.IsValidTransition(Captured, Created) {
		t.Fatalf("expected transition out of a terminal status to be invalid")
	}
}

func TestAllStatusesCoversVocabulary(t *testing.T) {
	transitions := NewTransitions()
	all := transitions.AllStatuses()

	for _, s := range []ChargeStatus{Created, EnteringCardDetails, AuthorisationSuccess, Captured, Expired, UserCancelled} {
		if _, ok := all[s]; !ok {
			t.Fatalf("missing status %s", s)
		}
	}
	if len(all) != 24 {
		t.Fatalf("expected 24 charge statuses, got %d", len(all))
	}
}

func TestAllTransitionsCarriesCauseLabels(t *testing.T) {
	transitions := NewTransitions()

	found := false
	for _, tr := range transitions.AllTransitions() {
		if tr.From == Created && tr.To == Expired {
			found = true
			if tr.Cause != "ChargeExpiryProcess" {
				t.Fatalf("unexpected cause label %q", tr.Cause)
			}
		}
	}
	if !found {
		t.Fatalf("CREATED -> EXPIRED edge missing")
	}
}

func TestTerminalStatusesHaveNoOutgoingEdges(t *testing.T) {
	transitions := NewTransitions()

	for _, s := range []ChargeStatus{Captured, Expired, AuthorisationRejected, UserCancelled, SystemCancelled, CaptureError} {
		if !transitions.IsTerminal(s) {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	if transitions.IsTerminal(CaptureReady) {
		t.Fatalf("CAPTURE READY must not be terminal")
	}
}

func TestExternalClassification(t *testing.T) {
	cases := []struct {
		status   ChargeStatus
		external string
		finished bool
	}{
		{Created, "created", false},
		{AuthorisationSuccess, "submitted", false},
		{Captured, "success", true},
		{AuthorisationRejected, "declined", true},
		{Expired, "timedout", true},
		{SystemCancelled, "cancelled", true},
		{CaptureError, "error", true},
	}

	for _, c := range cases {
		ext := c.status.ToExternal()
		if ext.Status != c.external || ext.Finished != c.finished {
			t.Fatalf("%s: got %+v", c.status, ext)
		}
	}
}

func TestRefundTransitions(t *testing.T) {
	valid := [][2]RefundStatus{
		{RefundCreated, RefundSubmitted},
		{RefundCreated, RefundError},
		{RefundSubmitted, Refunded},
		{RefundSubmitted, RefundError},
	}
	for _, v := range valid {
		if !IsValidRefundTransition(v[0], v[1]) {
			t.Fatalf("expected %s -> %s to be valid", v[0], v[1])
		}
	}

	if IsValidRefundTransition(Refunded, RefundError) {
		t.Fatalf("REFUNDED is terminal")
	}
	if IsValidRefundTransition(RefundError, RefundSubmitted) {
		t.Fatalf("REFUND ERROR is terminal")
	}
}
