package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/jpillora/eventsource"

	"github.com/brandgrowthos/bgos/pkg/services/stores"
)

const heartbeatInterval = time.Second * 25

func writeEvent(w http.ResponseWriter, id, name string, m any) bool {
	var b []byte
	var err error
	if s, ok := m.(string); ok {
		b = []byte(s)
	} else {
		b, err = json.Marshal(m)
		if err != nil {
			logger().Infow("json marshal fail", "m", m, "err", err)
			return false
		}
	}

	if err = eventsource.WriteEvent(w, eventsource.Event{
		ID:   id,
		Type: name,
		Data: b,
	}); err != nil {
		logger().Infow("eventsource write fail", "err", err)
		return false
	}

	return true
}

// getEvents streams state changes and voice events to the client as
// server-sent events. One stream carries everything; the client
// switches on the event name.
func (s *server) getEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Content-Type", "text/event-stream")

	subID, feed := s.state.Subscribe()
	defer s.state.Unsubscribe(subID)
	logger().Debugw("event stream open", "sub", subID, "ip", r.RemoteAddr)

	if !writeEvent(w, "0", "hello", M{"user_id": s.userID}) {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	var idx int
	for {
		select {
		case <-r.Context().Done():
			logger().Debugw("event stream closed", "sub", subID)
			return
		case ev := <-feed:
			idx++
			if !writeEvent(w, strconv.Itoa(idx), stateEventName(ev), ev) {
				return
			}
			flusher.Flush()
		case ev := <-s.voiceFeed:
			idx++
			if !writeEvent(w, strconv.Itoa(idx), "voice", ev) {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			idx++
			if !writeEvent(w, strconv.Itoa(idx), "ping", "{}") {
				return
			}
			flusher.Flush()
		}
	}
}

func stateEventName(ev stores.StateEvent) string {
	return string(ev.Kind)
}
