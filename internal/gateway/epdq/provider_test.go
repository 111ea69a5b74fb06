package epdq

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/cardforge/connector/internal/gateway"
	"github.com/cardforge/connector/internal/gatewayaccount"
	"github.com/cardforge/connector/internal/logging"
	"github.com/cardforge/connector/internal/status"
)

const testPassphrase = "Mysecretsig1875!?"

func testAccount() gatewayaccount.Account {
	return gatewayaccount.Account{
		ID:       3,
		Provider: ProviderName,
		Credentials: map[string]string{
			gatewayaccount.CredentialMerchantID:      "PSPID1",
			gatewayaccount.CredentialUsername:        "epdq-user",
			gatewayaccount.CredentialPassword:        "epdq-pass",
			gatewayaccount.CredentialShaInPassphrase: testPassphrase,
		},
	}
}

func newProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := gateway.NewClient(2*time.Second, logging.Discard())
	return New(client, srv.URL, logging.Discard())
}

func TestCaptureSuccess(t *testing.T) {
	var gotForm url.Values
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotForm, _ = url.ParseQuery(string(body))
		w.Write([]byte("STATUS=91&PAYID=3014726&NCERROR=0"))
	})

	resp := p.Capture(context.Background(), gateway.CaptureRequest{
		Account: testAccount(), TransactionID: "3014726", Amount: 2500,
	})
	if !resp.Successful() || resp.TransactionID != "3014726" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if gotForm.Get("OPERATION") != "SAS" || gotForm.Get("AMOUNT") != "2500" || gotForm.Get("PAYID") != "3014726" {
		t.Fatalf("unexpected form %v", gotForm)
	}

	params := make(map[string]string)
	for k := range gotForm {
		if k == "SHASIGN" {
			continue
		}
		params[k] = gotForm.Get(k)
	}
	if gotForm.Get("SHASIGN") != shaSign(params, testPassphrase) {
		t.Fatalf("request SHASIGN does not verify: %q", gotForm.Get("SHASIGN"))
	}
}

func TestRefundBuildsSubReference(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("STATUS=81&PAYID=3014726&PAYIDSUB=2&NCERROR=0"))
	})

	resp := p.Refund(context.Background(), gateway.RefundRequest{
		Account: testAccount(), TransactionID: "3014726", Amount: 1000, Reference: "refund-ext-1",
	})
	if !resp.Successful() || resp.Reference != "3014726/2" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestMaintenanceErrorReply(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("STATUS=93&PAYID=3014726&NCERROR=50001127&NCERRORPLUS=insufficient+funds"))
	})

	resp := p.Capture(context.Background(), gateway.CaptureRequest{
		Account: testAccount(), TransactionID: "3014726", Amount: 2500,
	})
	if resp.Successful() {
		t.Fatalf("error reply reported success: %+v", resp)
	}
	if resp.Error == nil || resp.Error.Kind != gateway.ErrorGeneric {
		t.Fatalf("expected generic gateway error, got %+v", resp)
	}
}

func TestReplyMissingStatus(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("PAYID=3014726"))
	})

	resp := p.Capture(context.Background(), gateway.CaptureRequest{
		Account: testAccount(), TransactionID: "3014726", Amount: 2500,
	})
	if resp.Error == nil || resp.Error.Kind != gateway.ErrorMalformedResponse {
		t.Fatalf("expected malformed response error, got %+v", resp)
	}
}

func notificationPayload(t *testing.T, params map[string]string, passphrase string) []byte {
	t.Helper()
	signed := make(map[string]string, len(params))
	for k, v := range params {
		signed[k] = v
	}
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("SHASIGN", shaSign(signed, passphrase))
	return []byte(form.Encode())
}

func TestParseNotificationVerifiesSignature(t *testing.T) {
	p := New(nil, "", logging.Discard())
	payload := notificationPayload(t, map[string]string{
		"PAYID":    "3014726",
		"PAYIDSUB": "2",
		"STATUS":   "9",
		"ORDERID":  "charge-ext-1",
	}, testPassphrase)

	notifications, err := p.ParseNotification(testAccount(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifications))
	}
	n := notifications[0]
	if n.TransactionID != "3014726" || n.Reference != "3014726/2" || n.Status != "9" {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestParseNotificationRejectsBadSignature(t *testing.T) {
	p := New(nil, "", logging.Discard())
	payload := notificationPayload(t, map[string]string{
		"PAYID":  "3014726",
		"STATUS": "9",
	}, "a-different-passphrase")

	if _, err := p.ParseNotification(testAccount(), payload); err == nil {
		t.Fatal("forged notification accepted")
	}
}

func TestParseNotificationRejectsTamperedField(t *testing.T) {
	p := New(nil, "", logging.Discard())
	payload := notificationPayload(t, map[string]string{
		"PAYID":  "3014726",
		"STATUS": "9",
	}, testPassphrase)
	tampered := []byte(string(payload) + "&AMOUNT=1")

	if _, err := p.ParseNotification(testAccount(), tampered); err == nil {
		t.Fatal("tampered notification accepted")
	}
}

func TestInterpretStatusCodes(t *testing.T) {
	p := New(nil, "", logging.Discard())

	got := p.InterpretStatus(gateway.Notification{Status: "9"})
	if got.Type != gateway.StatusCharge || got.ChargeStatus != status.Captured {
		t.Fatalf("status 9 interpreted as %+v", got)
	}

	got = p.InterpretStatus(gateway.Notification{Status: "8"})
	if got.Type != gateway.StatusRefund || got.RefundStatus != status.Refunded {
		t.Fatalf("status 8 interpreted as %+v", got)
	}

	got = p.InterpretStatus(gateway.Notification{Status: "73"})
	if got.Type != gateway.StatusIgnored {
		t.Fatalf("status 73 interpreted as %+v", got)
	}

	got = p.InterpretStatus(gateway.Notification{Status: "9999"})
	if got.Type != gateway.StatusUnknown {
		t.Fatalf("unregistered status interpreted as %+v", got)
	}
}
