package service

import (
	"context"
	"testing"
	"time"

	"crewsignal/internal/metrics"
	"crewsignal/internal/models"
	pushtypes "crewsignal/pkg/push/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(store *mockStore, pushClient *mockPushClient) (*SignalDispatcher, *EventHub, *metrics.Registry) {
	logger := testLogger()
	resolver := NewTargetResolver(store, logger)
	fetcher := NewLocationTokenFetcher(store, 0, logger)
	events := NewEventHub()
	registry := metrics.NewRegistry()
	dispatcher := NewSignalDispatcher(store, resolver, fetcher, pushClient, events, registry, logger)
	return dispatcher, events, registry
}

func dispatchSignal() *models.Signal {
	now := time.Now().UTC()
	return &models.Signal{
		ID:              "sig-1",
		SenderID:        "sender-1",
		Message:         "Anyone around?",
		RadiusMeters:    1000,
		Latitude:        0,
		Longitude:       0,
		TargetType:      models.TargetAll,
		Status:          models.SignalStatusActive,
		DurationMinutes: 120,
		CreatedAt:       now,
		ExpiresAt:       now.Add(2 * time.Hour),
	}
}

func TestDispatchFiltersAndRecordsOutcome(t *testing.T) {
	store := new(mockStore)
	pushClient := new(mockPushClient)

	store.On("ListCandidateIDs", mock.Anything, "sender-1").Return([]string{"near", "far"}, nil)
	store.On("GetUsersByIDs", mock.Anything, []string{"near", "far"}).Return([]models.User{
		{ID: "near", PushToken: "ExpoPushToken[near]"},
		{ID: "far", PushToken: "ExpoPushToken[far]"},
	}, nil)
	store.On("GetLocationsByUserIDs", mock.Anything, []string{"near", "far"}).Return(map[string]models.UserLocation{
		"near": {UserID: "near", Location: models.Coordinates{Latitude: 0.0045, Longitude: 0}, UpdatedAt: time.Now().UTC()},
		"far":  {UserID: "far", Location: models.Coordinates{Latitude: 0.0135, Longitude: 0}, UpdatedAt: time.Now().UTC()},
	}, nil)
	store.On("GetUsersByIDs", mock.Anything, []string{"sender-1"}).Return([]models.User{
		{ID: "sender-1", DisplayName: "Alice"},
	}, nil)
	pushClient.On("SendBatch", mock.Anything, mock.MatchedBy(func(messages []pushtypes.Message) bool {
		return len(messages) == 1 && messages[0].To == "ExpoPushToken[near]"
	})).Return([]pushtypes.Ticket{{Status: pushtypes.TicketStatusOK, ID: "t1"}}, nil)
	store.On("RecordDispatchSuccess", mock.Anything, "sig-1", 1).Return(nil)

	dispatcher, events, registry := newTestDispatcher(store, pushClient)
	eventCh, unsubscribe := events.Subscribe()
	defer unsubscribe()

	dispatcher.Dispatch(context.Background(), dispatchSignal())

	store.AssertExpectations(t)
	pushClient.AssertExpectations(t)
	store.AssertNotCalled(t, "RecordDispatchFailure", mock.Anything, mock.Anything, mock.Anything)

	event := <-eventCh
	assert.Equal(t, EventDispatched, event.Type)
	assert.Equal(t, "sig-1", event.SignalID)
	assert.Equal(t, 1, event.NotificationsSent)

	assert.Equal(t, float64(1), registry.GetCounterValue(metrics.MetricSignalsProcessed, map[string]string{"target": "all"}))
	assert.Equal(t, float64(1), registry.GetCounterValue(metrics.MetricNotificationsSent, nil))
}

func TestDispatchShortCircuitsOnEmptyCandidates(t *testing.T) {
	store := new(mockStore)
	pushClient := new(mockPushClient)

	store.On("ListCandidateIDs", mock.Anything, "sender-1").Return([]string{}, nil)
	store.On("RecordDispatchSuccess", mock.Anything, "sig-1", 0).Return(nil)

	dispatcher, events, registry := newTestDispatcher(store, pushClient)
	eventCh, unsubscribe := events.Subscribe()
	defer unsubscribe()

	dispatcher.Dispatch(context.Background(), dispatchSignal())

	store.AssertExpectations(t)
	pushClient.AssertNotCalled(t, "SendBatch", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "RecordDispatchFailure", mock.Anything, mock.Anything, mock.Anything)

	event := <-eventCh
	assert.Equal(t, EventNoRecipients, event.Type)
	assert.Equal(t, 0, event.NotificationsSent)

	assert.Equal(t, float64(1), registry.GetCounterValue(metrics.MetricSignalsShortCircuit, nil))
}

func TestDispatchNoRecipientsInRange(t *testing.T) {
	store := new(mockStore)
	pushClient := new(mockPushClient)

	store.On("ListCandidateIDs", mock.Anything, "sender-1").Return([]string{"far"}, nil)
	store.On("GetUsersByIDs", mock.Anything, []string{"far"}).Return([]models.User{
		{ID: "far", PushToken: "ExpoPushToken[far]"},
	}, nil)
	store.On("GetLocationsByUserIDs", mock.Anything, []string{"far"}).Return(map[string]models.UserLocation{
		"far": {UserID: "far", Location: models.Coordinates{Latitude: 1, Longitude: 1}, UpdatedAt: time.Now().UTC()},
	}, nil)
	store.On("GetUsersByIDs", mock.Anything, []string{"sender-1"}).Return([]models.User{
		{ID: "sender-1", DisplayName: "Alice"},
	}, nil)
	store.On("RecordDispatchSuccess", mock.Anything, "sig-1", 0).Return(nil)

	dispatcher, _, _ := newTestDispatcher(store, pushClient)
	dispatcher.Dispatch(context.Background(), dispatchSignal())

	store.AssertExpectations(t)
	pushClient.AssertNotCalled(t, "SendBatch", mock.Anything, mock.Anything)
}

func TestDispatchFetchFailureRecordsTerminalError(t *testing.T) {
	store := new(mockStore)
	pushClient := new(mockPushClient)

	store.On("ListCandidateIDs", mock.Anything, "sender-1").Return([]string{"u1"}, nil)
	store.On("GetUsersByIDs", mock.Anything, []string{"u1"}).Return(nil, assert.AnError)
	store.On("RecordDispatchFailure", mock.Anything, "sig-1", mock.MatchedBy(func(reason string) bool {
		return reason != ""
	})).Return(nil)

	dispatcher, events, registry := newTestDispatcher(store, pushClient)
	eventCh, unsubscribe := events.Subscribe()
	defer unsubscribe()

	dispatcher.Dispatch(context.Background(), dispatchSignal())

	store.AssertExpectations(t)
	store.AssertNotCalled(t, "RecordDispatchSuccess", mock.Anything, mock.Anything, mock.Anything)
	pushClient.AssertNotCalled(t, "SendBatch", mock.Anything, mock.Anything)

	event := <-eventCh
	assert.Equal(t, EventFailed, event.Type)
	assert.NotEmpty(t, event.Error)

	assert.Equal(t, float64(1), registry.GetCounterValue(metrics.MetricSignalsFailed, nil))
}

func TestDispatchPushFailureRecordsTerminalError(t *testing.T) {
	store := new(mockStore)
	pushClient := new(mockPushClient)

	store.On("ListCandidateIDs", mock.Anything, "sender-1").Return([]string{"near"}, nil)
	store.On("GetUsersByIDs", mock.Anything, []string{"near"}).Return([]models.User{
		{ID: "near", PushToken: "ExpoPushToken[near]"},
	}, nil)
	store.On("GetLocationsByUserIDs", mock.Anything, []string{"near"}).Return(map[string]models.UserLocation{
		"near": {UserID: "near", Location: models.Coordinates{Latitude: 0.0045, Longitude: 0}, UpdatedAt: time.Now().UTC()},
	}, nil)
	store.On("GetUsersByIDs", mock.Anything, []string{"sender-1"}).Return([]models.User{
		{ID: "sender-1", DisplayName: "Alice"},
	}, nil)
	pushClient.On("SendBatch", mock.Anything, mock.Anything).Return(nil, assert.AnError)
	store.On("RecordDispatchFailure", mock.Anything, "sig-1", mock.MatchedBy(func(reason string) bool {
		return reason != ""
	})).Return(nil)

	dispatcher, _, _ := newTestDispatcher(store, pushClient)
	dispatcher.Dispatch(context.Background(), dispatchSignal())

	store.AssertExpectations(t)
	store.AssertNotCalled(t, "RecordDispatchSuccess", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatchSenderNameFallback(t *testing.T) {
	store := new(mockStore)
	pushClient := new(mockPushClient)

	store.On("ListCandidateIDs", mock.Anything, "sender-1").Return([]string{"near"}, nil)
	store.On("GetUsersByIDs", mock.Anything, []string{"near"}).Return([]models.User{
		{ID: "near", PushToken: "ExpoPushToken[near]"},
	}, nil)
	store.On("GetLocationsByUserIDs", mock.Anything, []string{"near"}).Return(map[string]models.UserLocation{
		"near": {UserID: "near", Location: models.Coordinates{Latitude: 0.0045, Longitude: 0}, UpdatedAt: time.Now().UTC()},
	}, nil)
	store.On("GetUsersByIDs", mock.Anything, []string{"sender-1"}).Return([]models.User{}, nil)
	pushClient.On("SendBatch", mock.Anything, mock.MatchedBy(func(messages []pushtypes.Message) bool {
		return len(messages) == 1 && messages[0].Data["senderName"] == "Someone"
	})).Return([]pushtypes.Ticket{{Status: pushtypes.TicketStatusOK}}, nil)
	store.On("RecordDispatchSuccess", mock.Anything, "sig-1", 1).Return(nil)

	dispatcher, _, _ := newTestDispatcher(store, pushClient)
	dispatcher.Dispatch(context.Background(), dispatchSignal())

	pushClient.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	store := new(mockStore)
	pushClient := new(mockPushClient)

	store.On("ListCandidateIDs", mock.Anything, "sender-1").Panic("resolver blew up")
	store.On("RecordDispatchFailure", mock.Anything, "sig-1", mock.MatchedBy(func(reason string) bool {
		return reason != ""
	})).Return(nil)

	dispatcher, _, _ := newTestDispatcher(store, pushClient)

	require.NotPanics(t, func() {
		dispatcher.Dispatch(context.Background(), dispatchSignal())
	})
	store.AssertExpectations(t)
}
