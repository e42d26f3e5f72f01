package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/metrics"
)

// SweepTimeout bounds one sweep so a stuck store cannot pile up runs.
const SweepTimeout = 2 * time.Minute

// Expirer completes attempts whose time budget ran out.
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// ExpiryWorker closes attempts abandoned past their deadline. Attempts that
// are still being used are expired lazily on their next request; this covers
// students who simply closed the browser.
type ExpiryWorker struct {
	expirer Expirer
	cron    *cron.Cron
	log     zerolog.Logger
	ctx     context.Context
}

// NewExpiryWorker validates the schedule ("@every 30s", "*/1 * * * *").
func NewExpiryWorker(expirer Expirer, schedule string, log zerolog.Logger) (*ExpiryWorker, error) {
	w := &ExpiryWorker{
		expirer: expirer,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		log: log.With().
			Str("component", "expiry_worker").
			Str("job", config.WorkerKey.ExpirySweepJob).
			Logger(),
		ctx: context.Background(),
	}
	if _, err := w.cron.AddFunc(schedule, func() { w.RunOnce(w.ctx) }); err != nil {
		return nil, fmt.Errorf("invalid expiry schedule %q: %w", schedule, err)
	}
	return w, nil
}

// Start runs the schedule until ctx is cancelled, then waits for a running
// sweep to finish.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.ctx = ctx
	w.log.Info().Msg("ExpiryWorker started")
	w.cron.Start()

	<-ctx.Done()
	w.log.Info().Msg("Shutdown requested. Waiting for running sweep...")
	<-w.cron.Stop().Done()
	w.log.Info().Msg("ExpiryWorker stopped")
}

// RunOnce performs a single sweep.
func (w *ExpiryWorker) RunOnce(parent context.Context) int {
	ctx, cancel := context.WithTimeout(parent, SweepTimeout)
	defer cancel()

	start := time.Now()
	n, err := w.expirer.ExpireOverdue(ctx)
	metrics.ExpirySweepDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		w.log.Error().Err(err).Int("expired", n).Msg("Expiry sweep failed")
		return n
	}
	if n > 0 {
		w.log.Info().Int("expired", n).Dur("took", time.Since(start)).Msg("Expired abandoned attempts")
	}
	return n
}
