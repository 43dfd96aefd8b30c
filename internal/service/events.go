package service

import (
	"sync"
	"time"

	"crewsignal/internal/constants"
)

// Event types published by the dispatch pipeline.
const (
	EventDispatched   = "dispatched"
	EventNoRecipients = "no_recipients"
	EventFailed       = "failed"
)

// DispatchEvent describes the terminal outcome of one pipeline run.
type DispatchEvent struct {
	Type              string    `json:"type"`
	SignalID          string    `json:"signalId"`
	NotificationsSent int       `json:"notificationsSent"`
	Error             string    `json:"error,omitempty"`
	At                time.Time `json:"at"`
}

// EventHub fans dispatch outcomes out to stream subscribers. Slow
// subscribers lose events rather than block the pipeline.
type EventHub struct {
	mu          sync.Mutex
	subscribers map[chan DispatchEvent]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{
		subscribers: make(map[chan DispatchEvent]struct{}),
	}
}

// Subscribe registers a listener. The returned function unsubscribes it
// and closes the channel.
func (h *EventHub) Subscribe() (<-chan DispatchEvent, func()) {
	ch := make(chan DispatchEvent, constants.EventBufferSize)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
	}

	return ch, unsubscribe
}

// Publish delivers an event to every subscriber without blocking.
func (h *EventHub) Publish(event DispatchEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *EventHub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subscribers)
}
