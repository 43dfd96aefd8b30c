package service

import (
	"context"
	"time"

	"crewsignal/internal/constants"
	"crewsignal/internal/metrics"

	"github.com/sirupsen/logrus"
)

type SweeperStore interface {
	ExpireSignals(ctx context.Context, now time.Time) (int, error)
}

// ExpirySweeper periodically marks active signals past their expiry as
// expired. The dispatch pipeline itself never expires signals; the sweep
// owns that transition.
type ExpirySweeper struct {
	store    SweeperStore
	interval time.Duration
	registry *metrics.Registry
	logger   *logrus.Logger
	stopCh   chan struct{}
}

func NewExpirySweeper(store SweeperStore, interval time.Duration, registry *metrics.Registry, logger *logrus.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = constants.DefaultExpirySweepIntervalMin * time.Minute
	}
	return &ExpirySweeper{
		store:    store,
		interval: interval,
		registry: registry,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

func (s *ExpirySweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.WithField("interval", s.interval).Info("Starting signal expiry sweeper")

	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Expiry sweeper context cancelled, stopping")
			return
		case <-s.stopCh:
			s.logger.Info("Expiry sweeper stop signal received, stopping")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ExpirySweeper) Stop() {
	close(s.stopCh)
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	swept, err := s.store.ExpireSignals(ctx, time.Now().UTC())
	if err != nil {
		s.logger.WithError(err).Error("Failed to expire signals")
		return
	}

	if swept > 0 {
		s.registry.AddToCounter(metrics.MetricSignalsExpired, float64(swept), nil)
		s.logger.WithField("count", swept).Info("Expired signals")
	}
}
