package service

import (
	"context"
	"fmt"
	"time"

	"crewsignal/internal/metrics"
	"crewsignal/internal/models"
	"crewsignal/internal/tracing"
	"crewsignal/pkg/push"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type DispatcherStore interface {
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	RecordDispatchSuccess(ctx context.Context, id string, notificationsSent int) error
	RecordDispatchFailure(ctx context.Context, id, reason string) error
}

// SignalDispatcher runs the one-shot dispatch pipeline for a signal:
// resolve targets, fetch tokens and locations, filter by proximity, fan
// out push notifications, and persist the outcome. It is fire-and-forget;
// the persisted signal record is the only failure channel.
type SignalDispatcher struct {
	store      DispatcherStore
	resolver   *TargetResolver
	fetcher    *LocationTokenFetcher
	pushClient push.Client
	events     *EventHub
	registry   *metrics.Registry
	logger     *logrus.Logger
}

func NewSignalDispatcher(
	store DispatcherStore,
	resolver *TargetResolver,
	fetcher *LocationTokenFetcher,
	pushClient push.Client,
	events *EventHub,
	registry *metrics.Registry,
	logger *logrus.Logger,
) *SignalDispatcher {
	return &SignalDispatcher{
		store:      store,
		resolver:   resolver,
		fetcher:    fetcher,
		pushClient: pushClient,
		events:     events,
		registry:   registry,
		logger:     logger,
	}
}

// Dispatch processes one signal end to end. Each signal is processed by
// at most one run; there is no retry and no cancellation once started.
func (d *SignalDispatcher) Dispatch(ctx context.Context, signal *models.Signal) {
	start := time.Now()

	ctx, span := tracing.StartSpan(ctx, "dispatch.run",
		attribute.String("signal.id", signal.ID),
		attribute.String("signal.target_type", string(signal.TargetType)),
	)
	defer span.End()

	log := d.logger.WithFields(logrus.Fields{
		"signalId":   signal.ID,
		"targetType": signal.TargetType,
	})

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic during dispatch: %v", r)
			tracing.RecordError(ctx, err)
			d.fail(ctx, signal, log, err)
		}
		d.registry.RecordTimer(metrics.MetricPipelineDuration, time.Since(start), nil)
	}()

	if err := d.run(ctx, signal, log); err != nil {
		tracing.RecordError(ctx, err)
		d.fail(ctx, signal, log, err)
	}
}

func (d *SignalDispatcher) run(ctx context.Context, signal *models.Signal, log *logrus.Entry) error {
	candidateIDs, err := d.resolveStage(ctx, signal)
	if err != nil {
		return fmt.Errorf("target resolution: %w", err)
	}
	if len(candidateIDs) == 0 {
		// Absence of targets is not an error condition.
		log.Info("No candidates for signal, skipping dispatch")
		return d.finish(ctx, signal, log, 0)
	}

	candidates, err := d.fetchStage(ctx, candidateIDs)
	if err != nil {
		return fmt.Errorf("location and token fetch: %w", err)
	}

	senderName := d.senderName(ctx, signal.SenderID)
	plan := d.filterStage(ctx, signal, senderName, candidates)
	if len(plan.Messages) == 0 {
		log.WithField("candidates", len(candidates)).Info("No recipients in range, skipping dispatch")
		return d.finish(ctx, signal, log, 0)
	}

	if err := d.sendStage(ctx, plan); err != nil {
		return fmt.Errorf("push dispatch: %w", err)
	}

	return d.finish(ctx, signal, log, len(plan.Messages))
}

func (d *SignalDispatcher) resolveStage(ctx context.Context, signal *models.Signal) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "dispatch.resolve")
	defer span.End()

	candidateIDs, err := d.resolver.Resolve(ctx, signal)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("dispatch.candidates", len(candidateIDs)))
	return candidateIDs, nil
}

func (d *SignalDispatcher) fetchStage(ctx context.Context, candidateIDs []string) ([]DispatchCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "dispatch.fetch")
	defer span.End()

	candidates, err := d.fetcher.Fetch(ctx, candidateIDs)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("dispatch.fetched", len(candidates)))
	return candidates, nil
}

func (d *SignalDispatcher) filterStage(ctx context.Context, signal *models.Signal, senderName string, candidates []DispatchCandidate) DispatchPlan {
	_, span := tracing.StartSpan(ctx, "dispatch.filter")
	defer span.End()

	plan := BuildDispatchPlan(signal, senderName, candidates)
	span.SetAttributes(attribute.Int("dispatch.in_range", len(plan.Targets)))
	return plan
}

func (d *SignalDispatcher) sendStage(ctx context.Context, plan DispatchPlan) error {
	ctx, span := tracing.StartSpan(ctx, "dispatch.send",
		attribute.Int("dispatch.messages", len(plan.Messages)),
	)
	defer span.End()

	// Per-message provider rejections are accepted; only transport-level
	// failure aborts the run.
	_, err := d.pushClient.SendBatch(ctx, plan.Messages)
	return err
}

// finish records the single terminal success write and publishes the
// outcome.
func (d *SignalDispatcher) finish(ctx context.Context, signal *models.Signal, log *logrus.Entry, sent int) error {
	if err := d.store.RecordDispatchSuccess(ctx, signal.ID, sent); err != nil {
		return fmt.Errorf("outcome write: %w", err)
	}

	d.registry.IncrementCounter(metrics.MetricSignalsProcessed, map[string]string{"target": string(signal.TargetType)})
	eventType := EventDispatched
	if sent == 0 {
		d.registry.IncrementCounter(metrics.MetricSignalsShortCircuit, nil)
		eventType = EventNoRecipients
	} else {
		d.registry.AddToCounter(metrics.MetricNotificationsSent, float64(sent), nil)
	}

	d.events.Publish(DispatchEvent{
		Type:              eventType,
		SignalID:          signal.ID,
		NotificationsSent: sent,
		At:                time.Now().UTC(),
	})

	log.WithField("notificationsSent", sent).Info("Signal dispatched")
	return nil
}

// fail records the terminal failure write. The triggering event has no
// caller to propagate to, so the record is the only failure signal.
func (d *SignalDispatcher) fail(ctx context.Context, signal *models.Signal, log *logrus.Entry, dispatchErr error) {
	log.WithError(dispatchErr).Error("Dispatch pipeline failed")
	d.registry.IncrementCounter(metrics.MetricSignalsFailed, nil)

	if err := d.store.RecordDispatchFailure(ctx, signal.ID, dispatchErr.Error()); err != nil {
		log.WithError(err).Error("Failed to record dispatch failure")
	}

	d.events.Publish(DispatchEvent{
		Type:     EventFailed,
		SignalID: signal.ID,
		Error:    dispatchErr.Error(),
		At:       time.Now().UTC(),
	})
}

func (d *SignalDispatcher) senderName(ctx context.Context, senderID string) string {
	users, err := d.store.GetUsersByIDs(ctx, []string{senderID})
	if err != nil || len(users) == 0 || users[0].DisplayName == "" {
		return "Someone"
	}
	return users[0].DisplayName
}
