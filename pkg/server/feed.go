package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/vango-dev/filestage/pkg/middleware"
)

// Feed event names.
const (
	EventState  = "filestage:state"
	EventChange = "filestage:change"
	EventError  = "filestage:error"
	EventClosed = "filestage:closed"
)

// subscriberBuffer is the number of messages queued per websocket.
const subscriberBuffer = 32

// message is the wire form of a feed event.
type message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// feed fans session events out to websocket subscribers.
// Emit never blocks: a subscriber whose queue is full misses the message.
type feed struct {
	logger  *slog.Logger
	metrics *middleware.Metrics

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	send chan []byte
}

func newFeed(logger *slog.Logger, metrics *middleware.Metrics) *feed {
	return &feed{
		logger:  logger,
		metrics: metrics,
		subs:    make(map[*subscriber]struct{}),
	}
}

// Emit implements toast.Emitter.
func (f *feed) Emit(name string, data any) {
	payload, err := json.Marshal(message{Event: name, Data: data})
	if err != nil {
		f.logger.Error("feed encode failed", "event", name, "error", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		select {
		case sub.send <- payload:
		default:
			f.metrics.RecordWebSocketError("dropped")
			f.logger.Warn("feed subscriber too slow, message dropped", "event", name)
		}
	}
}

// subscribe registers a new subscriber. It returns nil once the feed is
// closed.
func (f *feed) subscribe() *subscriber {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	sub := &subscriber{send: make(chan []byte, subscriberBuffer)}
	f.subs[sub] = struct{}{}
	return sub
}

func (f *feed) unsubscribe(sub *subscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[sub]; ok {
		delete(f.subs, sub)
		close(sub.send)
	}
}

// close disconnects every subscriber after their queued messages drain.
func (f *feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for sub := range f.subs {
		delete(f.subs, sub)
		close(sub.send)
	}
}

func (f *feed) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
