package service

import (
	"testing"

	"crewsignal/internal/geo"
	"crewsignal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planSignal(radiusMeters float64) *models.Signal {
	return &models.Signal{
		ID:              "sig-1",
		SenderID:        "sender-1",
		Message:         "Coffee at the park?",
		RadiusMeters:    radiusMeters,
		Latitude:        0,
		Longitude:       0,
		TargetType:      models.TargetAll,
		DurationMinutes: 120,
	}
}

func TestBuildDispatchPlanFiltersByRadius(t *testing.T) {
	// roughly 500m and 1500m north of the origin
	near := models.Coordinates{Latitude: 0.0045, Longitude: 0}
	far := models.Coordinates{Latitude: 0.0135, Longitude: 0}
	candidates := []DispatchCandidate{
		{UserID: "near", Token: "ExpoPushToken[near]", Location: near},
		{UserID: "far", Token: "ExpoPushToken[far]", Location: far},
	}

	plan := BuildDispatchPlan(planSignal(1000), "Alice", candidates)

	require.Len(t, plan.Targets, 1)
	require.Len(t, plan.Messages, 1)
	assert.Equal(t, "near", plan.Targets[0].UserID)
	assert.Equal(t, "ExpoPushToken[near]", plan.Messages[0].To)
}

func TestBuildDispatchPlanBoundaryIsInclusive(t *testing.T) {
	signal := planSignal(0)
	boundary := models.Coordinates{Latitude: 0.001, Longitude: 0}
	signal.RadiusMeters = geo.Distance(signal.Origin(), boundary)

	plan := BuildDispatchPlan(signal, "Alice", []DispatchCandidate{
		{UserID: "edge", Token: "ExpoPushToken[edge]", Location: boundary},
	})

	require.Len(t, plan.Targets, 1)
	assert.Equal(t, "edge", plan.Targets[0].UserID)
}

func TestBuildDispatchPlanMessageFields(t *testing.T) {
	location := models.Coordinates{Latitude: 0.0045, Longitude: 0}
	plan := BuildDispatchPlan(planSignal(1000), "Alice", []DispatchCandidate{
		{UserID: "u1", Token: "ExpoPushToken[u1]", Location: location},
	})

	require.Len(t, plan.Messages, 1)
	msg := plan.Messages[0]

	assert.Equal(t, "ExpoPushToken[u1]", msg.To)
	assert.Equal(t, "Signal!", msg.Title)
	assert.Contains(t, msg.Subtitle, "Alice")
	assert.Contains(t, msg.Subtitle, "m away")
	assert.Equal(t, "Coffee at the park?", msg.Body)
	assert.Equal(t, "high", msg.Priority)
	assert.Equal(t, "default", msg.Sound)
	assert.Equal(t, 120*60, msg.TTLSeconds)

	assert.Equal(t, "sig-1", msg.Data["signalId"])
	assert.Equal(t, "sender-1", msg.Data["senderId"])
	assert.Equal(t, "Alice", msg.Data["senderName"])
	assert.Equal(t, "signal-detail", msg.Data["route"])
	assert.InDelta(t, plan.Targets[0].DistanceMeters, msg.Data["distanceMeters"].(float64), 1.0)
}

func TestBuildDispatchPlanDefaultBody(t *testing.T) {
	signal := planSignal(1000)
	signal.Message = ""

	plan := BuildDispatchPlan(signal, "Alice", []DispatchCandidate{
		{UserID: "u1", Token: "ExpoPushToken[u1]", Location: models.Coordinates{Latitude: 0.001, Longitude: 0}},
	})

	require.Len(t, plan.Messages, 1)
	assert.Equal(t, "Someone nearby sent a signal", plan.Messages[0].Body)
}

func TestBuildDispatchPlanEmptyCandidates(t *testing.T) {
	plan := BuildDispatchPlan(planSignal(1000), "Alice", nil)

	assert.Empty(t, plan.Targets)
	assert.Empty(t, plan.Messages)
}
