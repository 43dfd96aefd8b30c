package service

import (
	"context"
	"fmt"
	"time"

	"crewsignal/internal/constants"
	apperrors "crewsignal/internal/errors"
	"crewsignal/internal/metrics"
	"crewsignal/internal/models"
	"crewsignal/internal/privacy"
	"crewsignal/internal/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type SignalStore interface {
	SaveSignal(ctx context.Context, signal *models.Signal) error
	GetSignal(ctx context.Context, id string) (*models.Signal, error)
	UpdateSignalStatus(ctx context.Context, id string, next models.SignalStatus) error
	UpsertUserLocation(ctx context.Context, userID string, latitude, longitude float64) error
}

// CreateSignalRequest carries the client-supplied fields of a new signal.
type CreateSignalRequest struct {
	Message         string            `json:"message"`
	RadiusMeters    float64           `json:"radiusMeters"`
	Latitude        float64           `json:"latitude"`
	Longitude       float64           `json:"longitude"`
	TargetType      models.TargetType `json:"targetType"`
	TargetIDs       []string          `json:"targetIds"`
	DurationMinutes int               `json:"durationMinutes"`
}

// SignalService owns signal creation and the externally driven lifecycle
// transitions. Creating a signal triggers exactly one dispatch pipeline
// run for it, fire-and-forget.
type SignalService struct {
	store      SignalStore
	dispatcher *SignalDispatcher
	registry   *metrics.Registry
	logger     *logrus.Logger
}

func NewSignalService(store SignalStore, dispatcher *SignalDispatcher, registry *metrics.Registry, logger *logrus.Logger) *SignalService {
	return &SignalService{
		store:      store,
		dispatcher: dispatcher,
		registry:   registry,
		logger:     logger,
	}
}

func (s *SignalService) CreateSignal(ctx context.Context, senderID string, req CreateSignalRequest) (*models.Signal, error) {
	if err := validation.ValidateUserID(senderID); err != nil {
		return nil, err
	}
	if err := validation.ValidateCoordinates(req.Latitude, req.Longitude); err != nil {
		return nil, err
	}
	if err := validation.ValidateRadius(req.RadiusMeters); err != nil {
		return nil, err
	}
	if err := validation.ValidateMessage(req.Message); err != nil {
		return nil, err
	}
	if err := validation.ValidateTargetType(req.TargetType, req.TargetIDs); err != nil {
		return nil, err
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = constants.DefaultSignalDurationMinutes
	}

	now := time.Now().UTC()
	signal := &models.Signal{
		ID:              uuid.NewString(),
		SenderID:        senderID,
		Message:         req.Message,
		RadiusMeters:    req.RadiusMeters,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		TargetType:      req.TargetType,
		TargetIDs:       req.TargetIDs,
		Status:          models.SignalStatusActive,
		DurationMinutes: duration,
		CreatedAt:       now,
		ExpiresAt:       now.Add(time.Duration(duration) * time.Minute),
	}

	if err := s.store.SaveSignal(ctx, signal); err != nil {
		return nil, fmt.Errorf("failed to persist signal: %w", err)
	}

	// One-shot trigger: the pipeline runs detached from the request, the
	// way a record-creation event would fire it. The request context must
	// not cancel the run.
	go s.dispatcher.Dispatch(context.Background(), signal)

	s.logger.WithFields(logrus.Fields{
		"signalId":   signal.ID,
		"senderId":   signal.SenderID,
		"targetType": signal.TargetType,
	}).Info("Signal created, dispatch triggered")

	return signal, nil
}

func (s *SignalService) GetSignal(ctx context.Context, id string) (*models.Signal, error) {
	signal, err := s.store.GetSignal(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindInternal, "failed to load signal")
	}
	if signal == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "signal not found").WithContext("signalId", id)
	}
	return signal, nil
}

// CancelSignal applies the user-driven active -> cancelled transition.
// Only the sender may cancel their signal.
func (s *SignalService) CancelSignal(ctx context.Context, id, callerID string) error {
	signal, err := s.GetSignal(ctx, id)
	if err != nil {
		return err
	}
	if signal.SenderID != callerID {
		return apperrors.New(apperrors.KindUnauthenticated, "only the sender can cancel a signal")
	}

	return s.store.UpdateSignalStatus(ctx, id, models.SignalStatusCancelled)
}

// UpdateLocation upserts the caller's last-known position with a
// server-assigned timestamp.
func (s *SignalService) UpdateLocation(ctx context.Context, userID string, latitude, longitude float64) error {
	if err := validation.ValidateUserID(userID); err != nil {
		return err
	}
	if err := validation.ValidateCoordinates(latitude, longitude); err != nil {
		return err
	}

	if err := s.store.UpsertUserLocation(ctx, userID, latitude, longitude); err != nil {
		return apperrors.Wrap(err, apperrors.KindInternal, "failed to update location")
	}

	s.registry.IncrementCounter(metrics.MetricLocationUpdates, nil)
	s.logger.WithFields(logrus.Fields{
		"userId":   userID,
		"position": privacy.MaskCoordinates(latitude, longitude),
	}).Debug("Location updated")
	return nil
}
