package models

import "time"

// SignalStatus is the lifecycle state of a signal.
type SignalStatus string

const (
	SignalStatusActive    SignalStatus = "active"
	SignalStatusExpired   SignalStatus = "expired"
	SignalStatusCancelled SignalStatus = "cancelled"
	SignalStatusFailed    SignalStatus = "failed"
)

// TargetType classifies who a signal should reach.
type TargetType string

const (
	TargetAll      TargetType = "all"
	TargetCrews    TargetType = "crews"
	TargetContacts TargetType = "contacts"
)

// Signal is a time-boxed broadcast request asking nearby people to respond.
// Status only moves forward: active -> expired | cancelled | failed. The
// dispatch outcome (notifications sent, or a failure reason) is written
// exactly once, after the one-shot pipeline run.
type Signal struct {
	ID                string       `json:"id"`
	SenderID          string       `json:"senderId"`
	Message           string       `json:"message,omitempty"`
	RadiusMeters      float64      `json:"radiusMeters"`
	Latitude          float64      `json:"latitude"`
	Longitude         float64      `json:"longitude"`
	TargetType        TargetType   `json:"targetType"`
	TargetIDs         []string     `json:"targetIds,omitempty"`
	Status            SignalStatus `json:"status"`
	DurationMinutes   int          `json:"durationMinutes"`
	NotificationsSent *int         `json:"notificationsSent,omitempty"`
	Error             string       `json:"error,omitempty"`
	CreatedAt         time.Time    `json:"createdAt"`
	ExpiresAt         time.Time    `json:"expiresAt"`
	ProcessedAt       *time.Time   `json:"processedAt,omitempty"`
}

// Origin returns the signal's origin coordinates.
func (s *Signal) Origin() Coordinates {
	return Coordinates{Latitude: s.Latitude, Longitude: s.Longitude}
}

// CanTransitionTo reports whether moving to the given status is a legal
// forward transition. Terminal states never transition.
func (s *Signal) CanTransitionTo(next SignalStatus) bool {
	if s.Status != SignalStatusActive {
		return false
	}
	switch next {
	case SignalStatusExpired, SignalStatusCancelled, SignalStatusFailed:
		return true
	default:
		return false
	}
}

// DispatchOutcome is the terminal result of one pipeline run, persisted
// back onto the signal record.
type DispatchOutcome struct {
	SignalID          string    `json:"signalId"`
	NotificationsSent int       `json:"notificationsSent"`
	Failed            bool      `json:"failed"`
	Error             string    `json:"error,omitempty"`
	ProcessedAt       time.Time `json:"processedAt"`
}
