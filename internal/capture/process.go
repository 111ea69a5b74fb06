package capture

import (
	"context"
	"log/slog"
	"time"

	"github.com/cardforge/connector/internal/charge"
	"github.com/cardforge/connector/internal/metrics"
)

// Process polls for capture-eligible charges and drives each one through the
// capture service. It is run on a ticker by the worker.
type Process struct {
	charges       charge.Repository
	service       *Service
	batchSize     int
	retryInterval time.Duration
	maxRetries    int
	recorder      metrics.Recorder
	logger        *slog.Logger
}

// NewProcess builds the batch capture process. batchSize caps how many charges
// one run touches; retryInterval is the minimum gap between attempts on the
// same charge.
func NewProcess(charges charge.Repository, service *Service, batchSize int,
	retryInterval time.Duration, maxRetries int, recorder metrics.Recorder, logger *slog.Logger) *Process {
	return &Process{
		charges:       charges,
		service:       service,
		batchSize:     batchSize,
		retryInterval: retryInterval,
		maxRetries:    maxRetries,
		recorder:      recorder,
		logger:        logger,
	}
}

// QueueSize reports how many charges are currently awaiting capture.
func (p *Process) QueueSize(ctx context.Context) (int64, error) {
	return p.charges.CountForCapture(ctx, p.retryInterval, p.maxRetries)
}

// Run executes one batch: records queue depth, flags charges stuck past the
// retry cap, then captures up to batchSize eligible charges. A failure on one
// charge never aborts the rest of the batch.
func (p *Process) Run(ctx context.Context) error {
	size, err := p.charges.CountForCapture(ctx, p.retryInterval, p.maxRetries)
	if err != nil {
		return err
	}
	p.recorder.SetGauge("capture.queue_size", float64(size))

	stuck, err := p.charges.CountOverCaptureRetryCap(ctx, p.maxRetries)
	if err != nil {
		return err
	}
	if stuck > 0 {
		p.logger.Warn("charges over capture retry cap", "count", stuck)
	}

	charges, err := p.charges.FindForCapture(ctx, p.batchSize, p.retryInterval, p.maxRetries)
	if err != nil {
		return err
	}

	start := time.Now()
	captured := 0
	for _, c := range charges {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.service.Capture(ctx, c.ExternalID); err != nil {
			p.logger.Error("capture failed", "charge_external_id", c.ExternalID, "error", err)
			p.recorder.IncCounter("capture.failures")
			continue
		}
		captured++
	}

	p.recorder.IncCounter("capture.batches")
	p.recorder.ObserveDuration("capture.batch_duration", time.Since(start))
	p.logger.Info("capture batch complete", "eligible", len(charges), "captured", captured)
	return nil
}
