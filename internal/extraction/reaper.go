package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	"github.com/contracthub/extraction-service/internal/store"
	"github.com/contracthub/extraction-service/pkg/metrics"
)

// Reaper fails processing rows whose run exceeded the staleness window.
// A worker crash otherwise leaves an extraction stuck in processing forever,
// blocking retriggers through the one-active-per-contract constraint.
type Reaper struct {
	store    store.Store
	timeout  time.Duration
	interval time.Duration
}

func NewReaper(s store.Store, timeout, interval time.Duration) *Reaper {
	return &Reaper{store: s, timeout: timeout, interval: interval}
}

// Run blocks until the context is cancelled. The ticker is jittered so
// multiple replicas do not sweep in lockstep.
func (r *Reaper) Run(ctx context.Context) {
	ticker := jitterbug.New(r.interval, &jitterbug.Norm{Stdev: r.interval / 10})
	defer ticker.Stop()

	zap.S().Named("reaper").Infow("reaper started", "timeout", r.timeout, "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			zap.S().Named("reaper").Info("reaper stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	deadline := time.Now().Add(-r.timeout)
	stale, err := r.store.Extraction().ListStaleProcessing(ctx, deadline)
	if err != nil {
		zap.S().Named("reaper").Errorw("failed to list stale extractions", "error", err)
		return
	}

	for i := range stale {
		e := stale[i]
		if err := e.Fail(fmt.Sprintf("processing timed out after %s", r.timeout)); err != nil {
			// raced with a worker finishing the row, nothing to do
			continue
		}
		if _, err := r.store.Extraction().Update(ctx, &e); err != nil {
			zap.S().Named("reaper").Warnw("failed to reap extraction", "extraction_id", e.ID, "error", err)
			continue
		}
		metrics.ObserveExtractionFinished(string(e.Status), r.timeout.Seconds())
		zap.S().Named("reaper").Infow("reaped stale extraction", "extraction_id", e.ID, "contract_id", e.ContractID)
	}
}
