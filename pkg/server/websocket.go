package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// handleFeed upgrades to a websocket and streams the session's events,
// starting with a full state snapshot.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.metrics.RecordWebSocketError("upgrade")
		s.logger.Debug("feed upgrade failed", "session", sess.ID, "error", err)
		return
	}
	defer conn.Close()

	sub := sess.feed.subscribe()
	if sub == nil {
		s.writeClose(conn, "session closed")
		return
	}
	defer sess.feed.unsubscribe(sub)

	s.metrics.SubscriberAdded()
	defer s.metrics.SubscriberRemoved()

	snapshot, err := json.Marshal(message{Event: EventState, Data: stateView(sess.ID, sess.stager)})
	if err == nil {
		err = s.write(conn, websocket.TextMessage, snapshot)
	}
	if err != nil {
		s.metrics.RecordWebSocketError("write")
		return
	}

	readDone := make(chan struct{})
	go s.readLoop(conn, readDone)

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-sub.send:
			if !ok {
				s.writeClose(conn, "session closed")
				return
			}
			if err := s.write(conn, websocket.TextMessage, payload); err != nil {
				s.metrics.RecordWebSocketError("write")
				return
			}
			sess.touch(time.Now())

		case <-ticker.C:
			if err := s.write(conn, websocket.PingMessage, nil); err != nil {
				s.metrics.RecordWebSocketError("write")
				return
			}

		case <-readDone:
			return
		}
	}
}

// readLoop discards client messages; it exists to process control frames
// and notice when the client goes away.
func (s *Server) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.metrics.RecordWebSocketError("read")
			}
			return
		}
	}
}

func (s *Server) write(conn *websocket.Conn, messageType int, data []byte) error {
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	return conn.WriteMessage(messageType, data)
}

func (s *Server) writeClose(conn *websocket.Conn, reason string) {
	s.write(conn, websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
}
