package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/procmeta/pkg/domain"
)

// Event announces a catalog change so consoles can refetch.
type Event struct {
	Kind domain.Kind `json:"kind,omitempty"`
	Op   string      `json:"op"`
	Key  string      `json:"key,omitempty"`
	// TypeCode is the type the changed entity belongs to. Empty for batches.
	TypeCode string `json:"type_code,omitempty"`
}

// StreamManager handles active SSE connections.
// Subscribers under the empty topic receive every event.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // type code -> set of channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a listener for topic and returns its channel with a
// cancel function that must be called once.
func (sm *StreamManager) Subscribe(topic string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[topic]; !ok {
		sm.subscribers[topic] = make(map[chan<- string]struct{})
	}
	sm.subscribers[topic][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[topic]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, topic)
			}
		}
	}
}

// Subscribers returns the number of listeners of topic.
func (sm *StreamManager) Subscribers(topic string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[topic])
}

// Publish encodes ev and broadcasts it to the listeners of its type and to
// the global listeners.
func (sm *StreamManager) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		sm.logger.Error("failed to encode event", "err", err)
		return
	}
	sm.Broadcast("", string(data))
	if ev.TypeCode != "" {
		sm.Broadcast(ev.TypeCode, string(data))
	}
}

func (sm *StreamManager) Broadcast(topic string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	subs, ok := sm.subscribers[topic]
	if !ok {
		return
	}
	sm.logger.Debug("broadcasting event", "topic", topic, "subscribers", len(subs))
	for ch := range subs {
		select {
		case ch <- msg:
		default:
			// Slow client.
			sm.logger.Warn("SSE client buffer full, dropping event", "topic", topic)
		}
	}
}

// SubscribeEvents handles GET /events (SSE). The optional type query
// parameter restricts the stream to one type.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	topic := r.URL.Query().Get("type")
	ch, cancel := s.streams.Subscribe(topic)
	defer cancel()
	s.logger.Info("SSE client subscribed", "type", topic)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected", "type", topic)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
