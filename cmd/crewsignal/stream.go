package main

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// handleStream upgrades the connection and feeds the caller dispatch
// outcomes as they happen. Events missed while the client is slow are
// dropped by the hub, not queued.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to accept stream connection")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	events, unsubscribe := s.events.Subscribe()
	defer unsubscribe()

	s.logger.WithField("userId", userID).Debug("Dispatch outcome stream opened")

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := wsjson.Write(ctx, conn, event); err != nil {
				s.logger.WithError(err).Debug("Stream write failed, closing")
				return
			}
		}
	}
}
