package capture

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cardforge/connector/internal/charge"
	"github.com/cardforge/connector/internal/gateway"
	"github.com/cardforge/connector/internal/gatewayaccount"
	"github.com/cardforge/connector/internal/logging"
	"github.com/cardforge/connector/internal/metrics"
	"github.com/cardforge/connector/internal/status"
)

// stubProvider answers capture calls with a canned response and counts them.
type stubProvider struct {
	captures int
	resp     gateway.Response
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Authorise(context.Context, gateway.AuthoriseRequest) gateway.Response {
	return gateway.Response{}
}

func (p *stubProvider) Capture(_ context.Context, req gateway.CaptureRequest) gateway.Response {
	p.captures++
	resp := p.resp
	if resp.TransactionID == "" {
		resp.TransactionID = req.TransactionID
	}
	return resp
}

func (p *stubProvider) Refund(context.Context, gateway.RefundRequest) gateway.Response {
	return gateway.Response{}
}

func (p *stubProvider) Cancel(context.Context, gateway.CancelRequest) gateway.Response {
	return gateway.Response{}
}

func (p *stubProvider) ParseNotification(gatewayaccount.Account, []byte) ([]gateway.Notification, error) {
	return nil, nil
}

func (p *stubProvider) VerifyNotificationCredentials(gatewayaccount.Account, string, string) bool {
	return true
}

func (p *stubProvider) InterpretStatus(gateway.Notification) gateway.InterpretedStatus {
	return gateway.InterpretedStatus{Type: gateway.StatusUnknown}
}

type fixture struct {
	charges  *charge.MemoryRepository
	service  *Service
	provider *stubProvider
}

func newFixture(t *testing.T, maxRetries int, resp gateway.Response) *fixture {
	t.Helper()
	logger := logging.Discard()

	account := gatewayaccount.Account{ID: 1, Provider: "stub"}
	accounts := gatewayaccount.NewMemoryRepository(account)
	charges := charge.NewMemoryRepository()
	charges.AccountProviders[1] = "stub"

	provider := &stubProvider{resp: resp}
	registry := gateway.NewRegistry(provider)
	chargeSvc := charge.NewService(charges, accounts, status.NewTransitions(), nil, logger)

	return &fixture{
		charges:  charges,
		service:  NewService(charges, chargeSvc, accounts, registry, maxRetries, logger),
		provider: provider,
	}
}

func (f *fixture) seedCharge(t *testing.T, externalID string, st status.ChargeStatus, createdAt time.Time) *charge.Charge {
	t.Helper()
	c := &charge.Charge{
		ExternalID:           externalID,
		Amount:               1000,
		Status:               st,
		GatewayAccountID:     1,
		GatewayTransactionID: "txn-" + externalID,
		Reference:            externalID,
		CreatedAt:            createdAt,
	}
	if err := f.charges.Create(context.Background(), c); err != nil {
		t.Fatalf("seed charge: %v", err)
	}
	return c
}

func TestCaptureSuccess(t *testing.T) {
	f := newFixture(t, 2, gateway.Response{Success: true, ProviderStatus: "CAPTURED"})
	f.seedCharge(t, "ch1", status.CaptureReady, time.Now().UTC())

	if err := f.service.Capture(context.Background(), "ch1"); err != nil {
		t.Fatalf("capture: %v", err)
	}

	got, err := f.charges.GetByExternalID(context.Background(), "ch1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != status.CaptureSubmitted {
		t.Fatalf("status = %s, want %s", got.Status, status.CaptureSubmitted)
	}
	if got.CaptureAttempts != 1 {
		t.Fatalf("attempts = %d, want 1", got.CaptureAttempts)
	}
	if got.LastCaptureAttempt == nil {
		t.Fatal("last capture attempt not recorded")
	}
	if len(got.Events) != 1 || got.Events[0].Status != status.CaptureSubmitted {
		t.Fatalf("events = %+v, want one CAPTURE SUBMITTED event", got.Events)
	}
}

func TestCaptureRecordsProviderTransactionID(t *testing.T) {
	f := newFixture(t, 2, gateway.Response{Success: true, TransactionID: "provider-assigned-123"})
	c := &charge.Charge{
		ExternalID:       "ch1",
		Amount:           1000,
		Status:           status.CaptureReady,
		GatewayAccountID: 1,
		Reference:        "ch1",
		CreatedAt:        time.Now().UTC(),
	}
	if err := f.charges.Create(context.Background(), c); err != nil {
		t.Fatalf("seed charge: %v", err)
	}

	if err := f.service.Capture(context.Background(), "ch1"); err != nil {
		t.Fatalf("capture: %v", err)
	}

	got, err := f.charges.GetByExternalID(context.Background(), "ch1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.GatewayTransactionID != "provider-assigned-123" {
		t.Fatalf("gateway transaction id = %q, want provider-assigned-123", got.GatewayTransactionID)
	}
	if _, err := f.charges.GetByProviderTransactionID(context.Background(), "stub", "provider-assigned-123"); err != nil {
		t.Fatalf("lookup by provider transaction id: %v", err)
	}
}

func TestCaptureKeepsExistingTransactionID(t *testing.T) {
	f := newFixture(t, 2, gateway.Response{Success: true, TransactionID: "late-replacement"})
	f.seedCharge(t, "ch1", status.CaptureReady, time.Now().UTC())

	if err := f.service.Capture(context.Background(), "ch1"); err != nil {
		t.Fatalf("capture: %v", err)
	}

	got, _ := f.charges.GetByExternalID(context.Background(), "ch1")
	if got.GatewayTransactionID != "txn-ch1" {
		t.Fatalf("gateway transaction id = %q, want txn-ch1 unchanged", got.GatewayTransactionID)
	}
}

func TestCaptureNotEligible(t *testing.T) {
	f := newFixture(t, 2, gateway.Response{Success: true})
	f.seedCharge(t, "ch1", status.Created, time.Now().UTC())

	err := f.service.Capture(context.Background(), "ch1")
	if !errors.Is(err, ErrNotEligible) {
		t.Fatalf("err = %v, want ErrNotEligible", err)
	}
	if f.provider.captures != 0 {
		t.Fatalf("provider called %d times, want 0", f.provider.captures)
	}
}

func TestCaptureTimeoutRetriesExhausted(t *testing.T) {
	timeout := gateway.NewError(gateway.ErrorConnectionTimeout, "read timed out", nil)
	f := newFixture(t, 0, gateway.Response{Error: timeout})
	f.seedCharge(t, "ch1", status.CaptureReady, time.Now().UTC())

	err := f.service.Capture(context.Background(), "ch1")
	var gerr *gateway.Error
	if !errors.As(err, &gerr) || gerr.Kind != gateway.ErrorConnectionTimeout {
		t.Fatalf("err = %v, want connection timeout", err)
	}

	got, _ := f.charges.GetByExternalID(context.Background(), "ch1")
	if got.Status != status.CaptureError {
		t.Fatalf("status = %s, want %s", got.Status, status.CaptureError)
	}
}

func TestCaptureFailureLeavesReadyWithinRetryCap(t *testing.T) {
	timeout := gateway.NewError(gateway.ErrorConnectionTimeout, "read timed out", nil)
	f := newFixture(t, 3, gateway.Response{Error: timeout})
	f.seedCharge(t, "ch1", status.CaptureReady, time.Now().UTC())

	if err := f.service.Capture(context.Background(), "ch1"); err == nil {
		t.Fatal("expected gateway error")
	}

	got, _ := f.charges.GetByExternalID(context.Background(), "ch1")
	if got.Status != status.CaptureReady {
		t.Fatalf("status = %s, want %s", got.Status, status.CaptureReady)
	}
	if got.CaptureAttempts != 1 {
		t.Fatalf("attempts = %d, want 1", got.CaptureAttempts)
	}
}

func TestCaptureConcurrentAttemptConflicts(t *testing.T) {
	f := newFixture(t, 2, gateway.Response{Success: true})
	c := f.seedCharge(t, "ch1", status.CaptureReady, time.Now().UTC())

	// Simulate a racing writer bumping the version between read and write.
	stale := *c
	if err := f.charges.Update(context.Background(), c); err != nil {
		t.Fatalf("racing update: %v", err)
	}
	if err := f.charges.Update(context.Background(), &stale); !errors.Is(err, charge.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestProcessBatchSizeBound(t *testing.T) {
	f := newFixture(t, 2, gateway.Response{Success: true, ProviderStatus: "CAPTURED"})
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 8; i++ {
		f.seedCharge(t, fmt.Sprintf("ch%d", i), status.CaptureReady, base.Add(time.Duration(i)*time.Minute))
	}

	recorder := metrics.NewMemoryRecorder()
	process := NewProcess(f.charges, f.service, 5, time.Minute, 2, recorder, logging.Discard())

	if err := process.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if f.provider.captures != 5 {
		t.Fatalf("provider called %d times, want 5", f.provider.captures)
	}
	if got := recorder.Gauge("capture.queue_size"); got != 8 {
		t.Fatalf("queue size gauge = %v, want 8", got)
	}

	// Oldest five were taken; the newest three remain queued.
	remaining, err := process.QueueSize(context.Background())
	if err != nil {
		t.Fatalf("queue size: %v", err)
	}
	if remaining != 3 {
		t.Fatalf("remaining queue = %d, want 3", remaining)
	}
}

func TestProcessContinuesPastFailures(t *testing.T) {
	timeout := gateway.NewError(gateway.ErrorConnectionTimeout, "read timed out", nil)
	f := newFixture(t, 5, gateway.Response{Error: timeout})
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		f.seedCharge(t, fmt.Sprintf("ch%d", i), status.CaptureReady, base.Add(time.Duration(i)*time.Minute))
	}

	recorder := metrics.NewMemoryRecorder()
	process := NewProcess(f.charges, f.service, 10, time.Minute, 5, recorder, logging.Discard())

	if err := process.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if f.provider.captures != 3 {
		t.Fatalf("provider called %d times, want 3", f.provider.captures)
	}
	if got := recorder.Counter("capture.failures"); got != 3 {
		t.Fatalf("failure counter = %v, want 3", got)
	}
}
