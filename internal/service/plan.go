package service

import (
	"fmt"
	"math"

	"crewsignal/internal/constants"
	"crewsignal/internal/geo"
	"crewsignal/internal/models"
	pushtypes "crewsignal/pkg/push/types"
)

// DispatchPlan is the pure outcome of proximity matching for one signal:
// the in-range delivery targets and the push messages addressed to them.
type DispatchPlan struct {
	Targets  []models.DeliveryTarget
	Messages []pushtypes.Message
}

// BuildDispatchPlan applies the proximity filter to fetched candidates
// and builds one push message per in-range token. It performs no I/O,
// which keeps the matching logic testable in isolation.
func BuildDispatchPlan(signal *models.Signal, senderName string, candidates []DispatchCandidate) DispatchPlan {
	origin := signal.Origin()

	var plan DispatchPlan
	for _, candidate := range candidates {
		distance := geo.Distance(origin, candidate.Location)
		// Inclusive boundary: a candidate at exactly the radius is in range.
		if distance > signal.RadiusMeters {
			continue
		}

		target := models.DeliveryTarget{
			UserID:         candidate.UserID,
			Token:          candidate.Token,
			Location:       candidate.Location,
			DistanceMeters: distance,
		}
		plan.Targets = append(plan.Targets, target)
		plan.Messages = append(plan.Messages, buildMessage(signal, senderName, target))
	}

	return plan
}

func buildMessage(signal *models.Signal, senderName string, target models.DeliveryTarget) pushtypes.Message {
	body := signal.Message
	if body == "" {
		body = constants.DefaultNotificationBody
	}

	duration := signal.DurationMinutes
	if duration <= 0 {
		duration = constants.DefaultSignalDurationMinutes
	}

	return pushtypes.Message{
		To:       target.Token,
		Title:    constants.DefaultNotificationTitle,
		Subtitle: fmt.Sprintf("%s · %s", senderName, geo.FormatDistance(target.DistanceMeters)),
		Body:     body,
		Data: map[string]interface{}{
			"signalId":       signal.ID,
			"senderId":       signal.SenderID,
			"senderName":     senderName,
			"distanceMeters": math.Round(target.DistanceMeters),
			"route":          "signal-detail",
		},
		Priority: constants.DefaultPushPriority,
		Sound:    "default",
		// The provider stops delivering once the signal has expired.
		TTLSeconds: duration * 60,
	}
}
