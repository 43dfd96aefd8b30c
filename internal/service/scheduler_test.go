package service

import (
	"context"
	"testing"
	"time"

	"crewsignal/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestExpirySweeperSweepsOnStart(t *testing.T) {
	store := new(mockStore)
	swept := make(chan struct{}, 1)
	store.On("ExpireSignals", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		select {
		case swept <- struct{}{}:
		default:
		}
	}).Return(2, nil)

	registry := metrics.NewRegistry()
	sweeper := NewExpirySweeper(store, time.Hour, registry, testLogger())

	go sweeper.Start(context.Background())
	defer sweeper.Stop()

	select {
	case <-swept:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not run on start")
	}

	assert.Eventually(t, func() bool {
		return registry.GetCounterValue(metrics.MetricSignalsExpired, nil) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestExpirySweeperStops(t *testing.T) {
	store := new(mockStore)
	store.On("ExpireSignals", mock.Anything, mock.Anything).Return(0, nil)

	sweeper := NewExpirySweeper(store, time.Hour, metrics.NewRegistry(), testLogger())

	done := make(chan struct{})
	go func() {
		sweeper.Start(context.Background())
		close(done)
	}()

	sweeper.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestExpirySweeperHonoursContextCancellation(t *testing.T) {
	store := new(mockStore)
	store.On("ExpireSignals", mock.Anything, mock.Anything).Return(0, nil)

	sweeper := NewExpirySweeper(store, time.Hour, metrics.NewRegistry(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not observe context cancellation")
	}
}

func TestExpirySweeperSurvivesStoreError(t *testing.T) {
	store := new(mockStore)
	store.On("ExpireSignals", mock.Anything, mock.Anything).Return(0, assert.AnError)

	registry := metrics.NewRegistry()
	sweeper := NewExpirySweeper(store, time.Hour, registry, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	cancel()
	<-done

	assert.Equal(t, float64(0), registry.GetCounterValue(metrics.MetricSignalsExpired, nil))
}
