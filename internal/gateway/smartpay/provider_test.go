package smartpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/cardforge/connector/internal/gateway"
	"github.com/cardforge/connector/internal/gatewayaccount"
	"github.com/cardforge/connector/internal/logging"
	"github.com/cardforge/connector/internal/status"
)

func testAccount(t *testing.T) gatewayaccount.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("notify-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return gatewayaccount.Account{
		ID:       2,
		Provider: ProviderName,
		Credentials: map[string]string{
			gatewayaccount.CredentialMerchantID:               "SmartpayMerchant",
			gatewayaccount.CredentialUsername:                 "sp-user",
			gatewayaccount.CredentialPassword:                 "sp-pass",
			gatewayaccount.CredentialNotificationUsername:     "notify-user",
			gatewayaccount.CredentialNotificationPasswordHash: string(hash),
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

func TestAuthoriseSuccess(t *testing.T) {
	var gotPath string
	var gotReq paymentRequest
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(paymentResponse{PspReference: "psp-123", ResultCode: "Authorised"})
	})

	resp := p.Authorise(context.Background(), gateway.AuthoriseRequest{
		Account:       testAccount(t),
		TransactionID: "charge-ext-1",
		Amount:        2500,
		Card:          gateway.Card{Number: "5555444433331111", ExpiryDate: "12/2028", CVC: "737", CardholderName: "J Doe"},
	})

	if !resp.Successful() || resp.TransactionID != "psp-123" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if gotPath != "/authorise" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotReq.MerchantAccount != "SmartpayMerchant" || gotReq.PaymentAmount == nil || gotReq.PaymentAmount.Value != 2500 {
		t.Fatalf("unexpected request %+v", gotReq)
	}
}

func TestAuthoriseRefused(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(paymentResponse{PspReference: "psp-123", ResultCode: "Refused", RefusalReason: "CVC Declined"})
	})

	resp := p.Authorise(context.Background(), gateway.AuthoriseRequest{
		Account: testAccount(t), TransactionID: "charge-ext-1", Amount: 100,
	})
	if resp.Successful() || resp.Error != nil {
		t.Fatalf("refusal should be unsuccessful without gateway error: %+v", resp)
	}
	if resp.ProviderStatus != "Refused" {
		t.Fatalf("provider status = %q", resp.ProviderStatus)
	}
}

func TestCaptureAcknowledged(t *testing.T) {
	var gotReq paymentRequest
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(paymentResponse{PspReference: "psp-456", Response: "[capture-received]"})
	})

	resp := p.Capture(context.Background(), gateway.CaptureRequest{
		Account: testAccount(t), TransactionID: "psp-123", Amount: 2500,
	})
	if !resp.Successful() || resp.TransactionID != "psp-456" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if gotReq.OriginalRef != "psp-123" || gotReq.Amount == nil || gotReq.Amount.Value != 2500 {
		t.Fatalf("unexpected request %+v", gotReq)
	}
}

func TestRefundUsesPspReference(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(paymentResponse{PspReference: "psp-789", Response: "[refund-received]"})
	})

	resp := p.Refund(context.Background(), gateway.RefundRequest{
		Account: testAccount(t), TransactionID: "psp-123", Amount: 1000, Reference: "refund-ext-1",
	})
	if !resp.Successful() || resp.Reference != "psp-789" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestMalformedResponse(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json"))
	})

	resp := p.Capture(context.Background(), gateway.CaptureRequest{
		Account: testAccount(t), TransactionID: "psp-123", Amount: 2500,
	})
	if resp.Error == nil || resp.Error.Kind != gateway.ErrorMalformedResponse {
		t.Fatalf("expected malformed response error, got %+v", resp)
	}
}

func TestUnexpectedHTTPStatus(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	resp := p.Capture(context.Background(), gateway.CaptureRequest{
		Account: testAccount(t), TransactionID: "psp-123", Amount: 2500,
	})
	if resp.Error == nil || resp.Error.Kind != gateway.ErrorUnexpectedHTTPStatus {
		t.Fatalf("expected unexpected status error, got %+v", resp)
	}
}

func TestParseNotificationBatch(t *testing.T) {
	p := New(nil, "", logging.Discard())
	payload := []byte(`{"notificationItems":[
	  {"NotificationRequestItem":{"eventCode":"CAPTURE","success":"true","originalReference":"psp-123","pspReference":"psp-456","eventDate":"2026-03-10T14:30:00Z"}},
	  {"NotificationRequestItem":{"eventCode":"AUTHORISATION","success":"true","pspReference":"psp-123"}}
	]}`)

	notifications, err := p.ParseNotification(testAccount(t), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("notifications = %d, want 2", len(notifications))
	}

	capture := notifications[0]
	if capture.TransactionID != "psp-123" || capture.Status != "CAPTURE" || !capture.Success || !capture.HasSuccess {
		t.Fatalf("unexpected capture notification %+v", capture)
	}
	want := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	if !capture.EventDate.Equal(want) {
		t.Fatalf("event date = %v, want %v", capture.EventDate, want)
	}

	auth := notifications[1]
	if auth.TransactionID != "psp-123" {
		t.Fatalf("authorisation should fall back to pspReference, got %+v", auth)
	}
}

func TestVerifyNotificationCredentials(t *testing.T) {
	p := New(nil, "", logging.Discard())
	account := testAccount(t)

	if !p.VerifyNotificationCredentials(account, "notify-user", "notify-pass") {
		t.Fatal("valid credentials rejected")
	}
	if p.VerifyNotificationCredentials(account, "notify-user", "wrong") {
		t.Fatal("wrong password accepted")
	}
	if p.VerifyNotificationCredentials(account, "other-user", "notify-pass") {
		t.Fatal("wrong username accepted")
	}
	if p.VerifyNotificationCredentials(gatewayaccount.Account{Provider: ProviderName}, "notify-user", "notify-pass") {
		t.Fatal("account without notification credentials accepted")
	}
}

func TestInterpretStatusPairKey(t *testing.T) {
	p := New(nil, "", logging.Discard())

	got := p.InterpretStatus(gateway.Notification{Status: "CAPTURE", Success: true})
	if got.Type != gateway.StatusCharge || got.ChargeStatus != status.Captured {
		t.Fatalf("CAPTURE/true interpreted as %+v", got)
	}

	got = p.InterpretStatus(gateway.Notification{Status: "CAPTURE", Success: false})
	if got.Type != gateway.StatusCharge || got.ChargeStatus != status.CaptureError {
		t.Fatalf("CAPTURE/false interpreted as %+v", got)
	}

	got = p.InterpretStatus(gateway.Notification{Status: "REFUND", Success: false})
	if got.Type != gateway.StatusRefund || got.RefundStatus != status.RefundError {
		t.Fatalf("REFUND/false interpreted as %+v", got)
	}

	got = p.InterpretStatus(gateway.Notification{Status: "REPORT_AVAILABLE", Success: true})
	if got.Type != gateway.StatusUnknown {
		t.Fatalf("unregistered code interpreted as %+v", got)
	}
}
