package types

import (
	"regexp"
)

// Priority levels accepted by the push transport.
const (
	PriorityDefault = "default"
	PriorityNormal  = "normal"
	PriorityHigh    = "high"
)

// Message is a single push notification addressed to one delivery token.
type Message struct {
	To       string                 `json:"to"`
	Title    string                 `json:"title,omitempty"`
	Subtitle string                 `json:"subtitle,omitempty"`
	Body     string                 `json:"body,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Priority string                 `json:"priority,omitempty"`
	Sound    string                 `json:"sound,omitempty"`
	// TTLSeconds bounds how long the provider keeps trying to deliver.
	TTLSeconds int `json:"ttl,omitempty"`
}

// Ticket is the provider's per-message receipt from a batch send.
type Ticket struct {
	Status  string            `json:"status"`
	ID      string            `json:"id,omitempty"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

const (
	TicketStatusOK    = "ok"
	TicketStatusError = "error"
)

// SendResponse is the provider's batch send response body.
type SendResponse struct {
	Data []Ticket `json:"data"`
}

var tokenPattern = regexp.MustCompile(`^Expo(nent)?PushToken\[[A-Za-z0-9_-]+\]$`)

// IsValidToken reports whether a string looks like a delivery token the
// provider will accept. Anything else is dropped before dispatch.
func IsValidToken(token string) bool {
	return tokenPattern.MatchString(token)
}
