package tracker

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"crewsignal/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	mu       sync.Mutex
	location models.Coordinates
	err      error
	calls    int
}

func (s *stubSource) Current(ctx context.Context) (models.Coordinates, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.location, s.err
}

func (s *stubSource) set(location models.Coordinates) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = location
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []models.Coordinates
	err       error
}

func (p *recordingPublisher) publish(ctx context.Context, location models.Coordinates) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, location)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestTracker(source *stubSource, publisher *recordingPublisher) *Tracker {
	return New(source, publisher.publish, time.Minute, 25, testLogger())
}

func TestSamplePublishesWhenActive(t *testing.T) {
	source := &stubSource{location: models.Coordinates{Latitude: 52.52, Longitude: 13.405}}
	publisher := &recordingPublisher{}
	tr := newTestTracker(source, publisher)

	tr.SetActive(true)
	tr.sample(context.Background())

	require.Equal(t, 1, publisher.count())
	last, ok := tr.LastSample()
	require.True(t, ok)
	assert.InDelta(t, 52.52, last.Latitude, 1e-9)
}

func TestSampleSkippedWhenInactive(t *testing.T) {
	source := &stubSource{location: models.Coordinates{Latitude: 1, Longitude: 1}}
	publisher := &recordingPublisher{}
	tr := newTestTracker(source, publisher)

	tr.sample(context.Background())

	assert.Equal(t, 0, publisher.count())
	assert.Equal(t, 0, source.calls)
	_, ok := tr.LastSample()
	assert.False(t, ok)
}

func TestSampleSkipsSmallDisplacement(t *testing.T) {
	origin := models.Coordinates{Latitude: 0, Longitude: 0}
	source := &stubSource{location: origin}
	publisher := &recordingPublisher{}
	tr := newTestTracker(source, publisher)
	tr.SetActive(true)

	tr.sample(context.Background())
	require.Equal(t, 1, publisher.count())

	// ~11m north, below the 25m threshold
	source.set(models.Coordinates{Latitude: 0.0001, Longitude: 0})
	tr.sample(context.Background())
	assert.Equal(t, 1, publisher.count())

	// ~55m north of the last published sample
	source.set(models.Coordinates{Latitude: 0.0005, Longitude: 0})
	tr.sample(context.Background())
	assert.Equal(t, 2, publisher.count())
}

func TestSampleKeepsLastOnPublishFailure(t *testing.T) {
	source := &stubSource{location: models.Coordinates{Latitude: 1, Longitude: 1}}
	publisher := &recordingPublisher{err: assert.AnError}
	tr := newTestTracker(source, publisher)
	tr.SetActive(true)

	tr.sample(context.Background())

	_, ok := tr.LastSample()
	assert.False(t, ok)
}

func TestSampleToleratesSourceError(t *testing.T) {
	source := &stubSource{err: assert.AnError}
	publisher := &recordingPublisher{}
	tr := newTestTracker(source, publisher)
	tr.SetActive(true)

	tr.sample(context.Background())

	assert.Equal(t, 0, publisher.count())
}

func TestStartSamplesImmediatelyAndStops(t *testing.T) {
	source := &stubSource{location: models.Coordinates{Latitude: 1, Longitude: 1}}
	publisher := &recordingPublisher{}
	tr := New(source, publisher.publish, time.Hour, 25, testLogger())
	tr.SetActive(true)

	done := make(chan struct{})
	go func() {
		tr.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return publisher.count() == 1
	}, time.Second, 10*time.Millisecond)

	tr.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tracker did not stop")
	}
}

func TestStartHonoursContextCancellation(t *testing.T) {
	source := &stubSource{location: models.Coordinates{Latitude: 1, Longitude: 1}}
	publisher := &recordingPublisher{}
	tr := New(source, publisher.publish, time.Hour, 25, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tracker did not observe context cancellation")
	}
}
