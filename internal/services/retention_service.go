package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/fieldtrack/internal/store"
	"github.com/rs/zerolog"
)

// RetentionService periodically purges samples older than the retention
// window. Purging is the only path that ever deletes data.
type RetentionService struct {
	RetentionDays int
	SweepInterval time.Duration
	Store         store.Store
	Logger        zerolog.Logger

	// Now supplies the sweep clock; nil means time.Now.
	Now func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRetentionService initializes a new RetentionService.
func NewRetentionService(retentionDays int, sweepInterval time.Duration,
	st store.Store, logger zerolog.Logger) *RetentionService {

	return &RetentionService{
		RetentionDays: retentionDays,
		SweepInterval: sweepInterval,
		Store:         st,
		Logger:        logger,
		Now:           time.Now,
	}
}

// Start launches the sweep loop in a separate goroutine.
func (r *RetentionService) Start() error {
	if r.ctx != nil {
		r.Logger.Warn().Msg("RetentionService is already running")
		return errors.New("retention service is already running")
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.runSweepLoop()
	}()

	r.Logger.Info().
		Int("retention_days", r.RetentionDays).
		Dur("sweep_interval", r.SweepInterval).
		Msg("RetentionService started successfully")
	return nil
}

// Stop gracefully stops the retention service.
func (r *RetentionService) Stop() error {
	if r.ctx == nil {
		r.Logger.Warn().Msg("RetentionService is not running")
		return errors.New("retention service is not running")
	}

	r.cancel()
	r.wg.Wait()

	r.ctx = nil
	r.cancel = nil

	r.Logger.Info().Msg("RetentionService stopped successfully")
	return nil
}

// runSweepLoop sweeps once at startup and then on every tick.
func (r *RetentionService) runSweepLoop() {
	r.Sweep()

	ticker := time.NewTicker(r.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-r.ctx.Done():
			r.Logger.Info().Msg("RetentionService stopping gracefully")
			return
		}
	}
}

// Sweep purges everything older than the retention window.
func (r *RetentionService) Sweep() {
	cutoff := r.Now().Add(-time.Duration(r.RetentionDays) * 24 * time.Hour).Unix()

	purged, err := r.Store.PurgeOlderThan(cutoff)
	if err != nil {
		r.Logger.Error().Err(err).Msg("Retention sweep failed")
		return
	}
	if purged > 0 {
		r.Logger.Info().Int64("purged", purged).Int64("cutoff", cutoff).Msg("Retention sweep removed old samples")
	}
}
