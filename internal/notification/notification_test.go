package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cardforge/connector/internal/charge"
	"github.com/cardforge/connector/internal/gateway"
	"github.com/cardforge/connector/internal/gatewayaccount"
	"github.com/cardforge/connector/internal/logging"
	"github.com/cardforge/connector/internal/metrics"
	"github.com/cardforge/connector/internal/refund"
	"github.com/cardforge/connector/internal/status"
)

// stubProvider parses every payload into a fixed notification batch and
// interprets statuses through a fixed table.
type stubProvider struct {
	notifications []gateway.Notification
	parseErr      error
	rejectCreds   bool
	statuses      map[string]gateway.InterpretedStatus
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Authorise(context.Context, gateway.AuthoriseRequest) gateway.Response {
	return gateway.Response{}
}
func (p *stubProvider) Capture(context.Context, gateway.CaptureRequest) gateway.Response {
	return gateway.Response{}
}
func (p *stubProvider) Refund(context.Context, gateway.RefundRequest) gateway.Response {
	return gateway.Response{}
}
func (p *stubProvider) Cancel(context.Context, gateway.CancelRequest) gateway.Response {
	return gateway.Response{}
}

func (p *stubProvider) ParseNotification(gatewayaccount.Account, []byte) ([]gateway.Notification, error) {
	return p.notifications, p.parseErr
}

func (p *stubProvider) VerifyNotificationCredentials(gatewayaccount.Account, string, string) bool {
	return !p.rejectCreds
}

func (p *stubProvider) InterpretStatus(n gateway.Notification) gateway.InterpretedStatus {
	if interpreted, ok := p.statuses[n.Status]; ok {
		return interpreted
	}
	return gateway.InterpretedStatus{Type: gateway.StatusUnknown}
}

type fixture struct {
	charges  *charge.MemoryRepository
	refunds  *refund.MemoryRepository
	service  *Service
	provider *stubProvider
	recorder *metrics.MemoryRecorder
}

func newFixture(t *testing.T, provider *stubProvider) *fixture {
	t.Helper()
	logger := logging.Discard()

	accounts := gatewayaccount.NewMemoryRepository(gatewayaccount.Account{ID: 1, Provider: "stub"})
	charges := charge.NewMemoryRepository()
	charges.AccountProviders[1] = "stub"
	refunds := refund.NewMemoryRepository()

	registry := gateway.NewRegistry(provider)
	chargeSvc := charge.NewService(charges, accounts, status.NewTransitions(), nil, logger)
	refundSvc := refund.NewService(charges, refunds, accounts, registry, nil, logger)

	mr := miniredis.RunT(t)
	dedup := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { dedup.Close() })

	recorder := metrics.NewMemoryRecorder()
	svc := NewService(accounts, registry, chargeSvc, refundSvc, dedup, time.Hour, recorder, logger)
	return &fixture{charges: charges, refunds: refunds, service: svc, provider: provider, recorder: recorder}
}

func (f *fixture) seedCharge(t *testing.T, st status.ChargeStatus) *charge.Charge {
	t.Helper()
	c := &charge.Charge{
		ExternalID:           "ch1",
		Amount:               2500,
		Status:               st,
		GatewayAccountID:     1,
		GatewayTransactionID: "txn-1",
		Reference:            "ref-1",
		CreatedAt:            time.Now().UTC(),
	}
	if err := f.charges.Create(context.Background(), c); err != nil {
		t.Fatalf("seed charge: %v", err)
	}
	return c
}

func TestHandleAppliesChargeTransition(t *testing.T) {
	eventDate := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	provider := &stubProvider{
		notifications: []gateway.Notification{{TransactionID: "txn-1", Status: "CAPTURED", EventDate: eventDate}},
		statuses: map[string]gateway.InterpretedStatus{
			"CAPTURED": {Type: gateway.StatusCharge, ChargeStatus: status.Captured},
		},
	}
	f := newFixture(t, provider)
	f.seedCharge(t, status.CaptureSubmitted)

	if err := f.service.Handle(context.Background(), 1, "stub", []byte("{}"), "", ""); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got, _ := f.charges.GetByExternalID(context.Background(), "ch1")
	if got.Status != status.Captured {
		t.Fatalf("status = %s, want %s", got.Status, status.Captured)
	}
	if len(got.Events) != 1 || got.Events[0].GatewayEventDate == nil || !got.Events[0].GatewayEventDate.Equal(eventDate) {
		t.Fatalf("gateway event date not recorded: %+v", got.Events)
	}
}

func TestHandleDuplicateSkipped(t *testing.T) {
	provider := &stubProvider{
		notifications: []gateway.Notification{{TransactionID: "txn-1", Status: "CAPTURED"}},
		statuses: map[string]gateway.InterpretedStatus{
			"CAPTURED": {Type: gateway.StatusCharge, ChargeStatus: status.Captured},
		},
	}
	f := newFixture(t, provider)
	f.seedCharge(t, status.CaptureSubmitted)

	for i := 0; i < 2; i++ {
		if err := f.service.Handle(context.Background(), 1, "stub", []byte("{}"), "", ""); err != nil {
			t.Fatalf("handle %d: %v", i, err)
		}
	}

	if got := f.recorder.Counter("notification.duplicates"); got != 1 {
		t.Fatalf("duplicate counter = %d, want 1", got)
	}
	if got := f.recorder.Counter("notification.charge_transitions"); got != 1 {
		t.Fatalf("transition counter = %d, want 1", got)
	}
}

func TestHandleUnknownStatusSkipped(t *testing.T) {
	provider := &stubProvider{
		notifications: []gateway.Notification{{TransactionID: "txn-1", Status: "SOMETHING_NEW"}},
	}
	f := newFixture(t, provider)
	f.seedCharge(t, status.CaptureSubmitted)

	if err := f.service.Handle(context.Background(), 1, "stub", []byte("{}"), "", ""); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got, _ := f.charges.GetByExternalID(context.Background(), "ch1")
	if got.Status != status.CaptureSubmitted {
		t.Fatalf("status changed to %s on unknown code", got.Status)
	}
	if got := f.recorder.Counter("notification.unknown_status"); got != 1 {
		t.Fatalf("unknown counter = %d, want 1", got)
	}
}

func TestHandleRefundNotification(t *testing.T) {
	provider := &stubProvider{
		notifications: []gateway.Notification{{TransactionID: "txn-1", Reference: "prov-ref", Status: "REFUND_OK"}},
		statuses: map[string]gateway.InterpretedStatus{
			"REFUND_OK": {Type: gateway.StatusRefund, RefundStatus: status.Refunded},
		},
	}
	f := newFixture(t, provider)
	c := f.seedCharge(t, status.Captured)

	ref := &refund.Refund{
		ExternalID:       "rf1",
		ChargeID:         c.ID,
		ChargeExternalID: c.ExternalID,
		Amount:           1000,
		Status:           status.RefundSubmitted,
		Reference:        "prov-ref",
		CreatedAt:        time.Now().UTC(),
	}
	if err := f.refunds.Create(context.Background(), ref); err != nil {
		t.Fatalf("seed refund: %v", err)
	}

	if err := f.service.Handle(context.Background(), 1, "stub", []byte("{}"), "", ""); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got, _ := f.refunds.GetByExternalID(context.Background(), "rf1")
	if got.Status != status.Refunded {
		t.Fatalf("refund status = %s, want %s", got.Status, status.Refunded)
	}
}

func TestHandleRejectsBadCredentials(t *testing.T) {
	provider := &stubProvider{rejectCreds: true}
	f := newFixture(t, provider)

	err := f.service.Handle(context.Background(), 1, "stub", []byte("{}"), "user", "wrong")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestHandleParseFailure(t *testing.T) {
	provider := &stubProvider{parseErr: errors.New("bad payload")}
	f := newFixture(t, provider)

	if err := f.service.Handle(context.Background(), 1, "stub", []byte("not-xml"), "", ""); err == nil {
		t.Fatal("expected parse error")
	}
	if got := f.recorder.Counter("notification.parse_failures"); got != 1 {
		t.Fatalf("parse failure counter = %d, want 1", got)
	}
}
