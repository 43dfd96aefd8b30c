package tracker

import (
	"context"
	"sync"
	"time"

	"crewsignal/internal/constants"
	"crewsignal/internal/geo"
	"crewsignal/internal/models"

	"github.com/sirupsen/logrus"
)

// LocationSource provides the device's current position.
type LocationSource interface {
	Current(ctx context.Context) (models.Coordinates, error)
}

// PublishFunc delivers a sampled position, typically to the location
// endpoint of the dispatch service.
type PublishFunc func(ctx context.Context, location models.Coordinates) error

// Tracker is a best-effort periodic location sampler. It owns its timer,
// last sample, and active flag explicitly; nothing lives at package
// level. Sampling is gated on the active flag, and a sample within the
// minimum displacement of the previous one is not published.
type Tracker struct {
	source          LocationSource
	publish         PublishFunc
	interval        time.Duration
	minDisplacement float64
	logger          *logrus.Logger

	mu         sync.Mutex
	active     bool
	lastSample *models.Coordinates

	stopCh chan struct{}
}

func New(source LocationSource, publish PublishFunc, interval time.Duration, minDisplacement float64, logger *logrus.Logger) *Tracker {
	if interval <= 0 {
		interval = constants.DefaultTrackerIntervalSec * time.Second
	}
	if minDisplacement <= 0 {
		minDisplacement = constants.DefaultMinDisplacementMeters
	}
	return &Tracker{
		source:          source,
		publish:         publish,
		interval:        interval,
		minDisplacement: minDisplacement,
		logger:          logger,
		stopCh:          make(chan struct{}),
	}
}

// SetActive flips the foreground gate. Lifecycle transitions drive this;
// an inactive tracker keeps ticking but skips sampling.
func (t *Tracker) SetActive(active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = active
}

// LastSample returns the most recently published position, if any.
func (t *Tracker) LastSample() (models.Coordinates, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lastSample == nil {
		return models.Coordinates{}, false
	}
	return *t.lastSample, true
}

// Start runs the sampling loop until Stop is called or the context is
// cancelled. It samples once immediately, then on every tick.
func (t *Tracker) Start(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.WithFields(logrus.Fields{
		"interval":        t.interval,
		"minDisplacement": t.minDisplacement,
	}).Info("Starting location tracker")

	t.sample(ctx)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Location tracker context cancelled, stopping")
			return
		case <-t.stopCh:
			t.logger.Info("Location tracker stopped")
			return
		case <-ticker.C:
			t.sample(ctx)
		}
	}
}

func (t *Tracker) Stop() {
	close(t.stopCh)
}

// sample takes one reading and publishes it if the tracker is active and
// the device has moved far enough. Errors are logged, never escalated;
// the next tick retries naturally.
func (t *Tracker) sample(ctx context.Context) {
	t.mu.Lock()
	active := t.active
	last := t.lastSample
	t.mu.Unlock()

	if !active {
		return
	}

	current, err := t.source.Current(ctx)
	if err != nil {
		t.logger.WithError(err).Warn("Failed to read current location")
		return
	}

	if last != nil {
		moved := geo.Distance(*last, current)
		if moved < t.minDisplacement {
			t.logger.WithField("movedMeters", moved).Debug("Displacement below threshold, skipping publish")
			return
		}
	}

	if err := t.publish(ctx, current); err != nil {
		t.logger.WithError(err).Warn("Failed to publish location sample")
		return
	}

	t.mu.Lock()
	t.lastSample = &current
	t.mu.Unlock()
}
