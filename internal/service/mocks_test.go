package service

import (
	"context"
	"io"
	"time"

	"crewsignal/internal/models"
	pushtypes "crewsignal/pkg/push/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListCandidateIDs(ctx context.Context, excludeUserID string) ([]string, error) {
	args := m.Called(ctx, excludeUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) GetCrewMembers(ctx context.Context, crewID string) ([]string, error) {
	args := m.Called(ctx, crewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *mockStore) GetLocationsByUserIDs(ctx context.Context, ids []string) (map[string]models.UserLocation, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.UserLocation), args.Error(1)
}

func (m *mockStore) RecordDispatchSuccess(ctx context.Context, id string, notificationsSent int) error {
	args := m.Called(ctx, id, notificationsSent)
	return args.Error(0)
}

func (m *mockStore) RecordDispatchFailure(ctx context.Context, id, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *mockStore) SaveSignal(ctx context.Context, signal *models.Signal) error {
	args := m.Called(ctx, signal)
	return args.Error(0)
}

func (m *mockStore) GetSignal(ctx context.Context, id string) (*models.Signal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Signal), args.Error(1)
}

func (m *mockStore) UpdateSignalStatus(ctx context.Context, id string, next models.SignalStatus) error {
	args := m.Called(ctx, id, next)
	return args.Error(0)
}

func (m *mockStore) UpsertUserLocation(ctx context.Context, userID string, latitude, longitude float64) error {
	args := m.Called(ctx, userID, latitude, longitude)
	return args.Error(0)
}

func (m *mockStore) ExpireSignals(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

type mockPushClient struct {
	mock.Mock
}

func (m *mockPushClient) SendBatch(ctx context.Context, messages []pushtypes.Message) ([]pushtypes.Ticket, error) {
	args := m.Called(ctx, messages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pushtypes.Ticket), args.Error(1)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
