package voice

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	mv "github.com/brandgrowthos/bgos/pkg/models/voice"
	"github.com/brandgrowthos/bgos/pkg/settings"
)

// ConnState is the coarse socket state.
type ConnState string

// states
const (
	StateClosed     ConnState = "closed"
	StateConnecting ConnState = "connecting"
	StateOpen       ConnState = "open"
)

const (
	dftMaxReconnect   = 5
	dftReconnectDelay = time.Second
)

// EventService holds one conversation event socket, re-emits typed
// frames to registered listeners and recovers from abnormal closures
// with capped exponential backoff. Disconnect detaches everything
// first, so an intentional close never triggers a reconnect.
type EventService struct {
	mu sync.Mutex

	dialer  *websocket.Dialer
	baseURL string
	apiKey  string

	conn    *websocket.Conn
	convID  string
	state   ConnState
	gen     int // bumped on Connect/Disconnect; stale goroutines check it
	retries int
	timer   *time.Timer

	maxReconnect int
	delay        time.Duration

	terminalSent bool

	listeners map[mv.EventType]map[int]func(mv.Event)
	nextID    int
}

type Option func(*EventService)

func WithBaseURL(u string) Option {
	return func(s *EventService) { s.baseURL = u }
}

func WithReconnectDelay(d time.Duration) Option {
	return func(s *EventService) { s.delay = d }
}

func WithDialer(d *websocket.Dialer) Option {
	return func(s *EventService) { s.dialer = d }
}

func NewEventService(apiKey string, opts ...Option) *EventService {
	s := &EventService{
		dialer:       websocket.DefaultDialer,
		baseURL:      settings.Current.VoiceWSBase,
		apiKey:       apiKey,
		state:        StateClosed,
		maxReconnect: dftMaxReconnect,
		delay:        dftReconnectDelay,
		listeners:    make(map[mv.EventType]map[int]func(mv.Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// On registers a listener; the returned id feeds Off.
func (s *EventService) On(t mv.EventType, fn func(mv.Event)) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	if s.listeners[t] == nil {
		s.listeners[t] = make(map[int]func(mv.Event))
	}
	s.listeners[t][s.nextID] = fn
	return s.nextID
}

func (s *EventService) Off(t mv.EventType, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners[t], id)
}

func (s *EventService) RemoveAllListeners(types ...mv.EventType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(types) == 0 {
		s.listeners = make(map[mv.EventType]map[int]func(mv.Event))
		return
	}
	for _, t := range types {
		delete(s.listeners, t)
	}
}

func (s *EventService) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *EventService) IsConnected() bool {
	return s.State() == StateOpen
}

// Connect opens the event socket for one conversation. Like a browser
// socket the dial happens in the background; failures surface as error
// events and the reconnect path.
func (s *EventService) Connect(conversationID string) {
	s.mu.Lock()
	if s.state == StateOpen {
		s.mu.Unlock()
		logger().Warnw("websocket already connected", "conv", conversationID)
		return
	}
	s.gen++
	gen := s.gen
	s.convID = conversationID
	s.retries = 0
	s.terminalSent = false
	s.state = StateConnecting
	s.mu.Unlock()

	go s.dial(gen)
}

// Disconnect closes intentionally: handlers are detached by bumping the
// generation before the socket closes, so nothing fires afterwards.
func (s *EventService) Disconnect() {
	s.mu.Lock()
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	conn := s.conn
	s.conn = nil
	s.convID = ""
	s.retries = 0
	s.state = StateClosed
	s.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
	logger().Debugw("websocket disconnected")
}

func (s *EventService) eventURL(conversationID string) string {
	return fmt.Sprintf("%s/v1/convai/conversation/%s/events", s.baseURL, conversationID)
}

func (s *EventService) dial(gen int) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	convID := s.convID
	s.mu.Unlock()

	var hdr map[string][]string
	if s.apiKey != "" {
		hdr = map[string][]string{"Xi-Api-Key": {s.apiKey}}
	}
	conn, resp, err := s.dialer.Dial(s.eventURL(convID), hdr)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		s.conn = nil
		s.state = StateClosed
		s.mu.Unlock()
		logger().Infow("websocket dial fail", "conv", convID, "err", err)
		s.emit(mv.ErrorEvent(mv.CodeWebSocketError, "WebSocket connection error"))
		s.maybeReconnect(gen)
		return
	}

	s.conn = conn
	s.state = StateOpen
	s.retries = 0
	s.mu.Unlock()

	logger().Infow("websocket connected", "conv", convID)
	go s.readLoop(conn, gen)
}

func (s *EventService) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.handleClose(gen, err)
			return
		}

		var ev mv.Event
		if jerr := json.Unmarshal(raw, &ev); jerr != nil || ev.Type == "" {
			logger().Infow("parse frame fail", "err", jerr, "raw", string(raw))
			s.emit(mv.ErrorEvent(mv.CodeParseError, "Failed to parse WebSocket message"))
			continue
		}
		ev.Raw = raw
		s.emit(ev)
	}
}

func (s *EventService) handleClose(gen int, err error) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.state = StateClosed
	s.mu.Unlock()

	code := closeCode(err)
	logger().Infow("websocket closed", "code", code, "err", err)

	if code == websocket.CloseNormalClosure {
		return
	}
	s.maybeReconnect(gen)
}

// maybeReconnect schedules the next attempt with exponential backoff,
// or emits the terminal error once the cap is hit.
func (s *EventService) maybeReconnect(gen int) {
	s.mu.Lock()
	if gen != s.gen || s.convID == "" {
		s.mu.Unlock()
		return
	}
	if s.retries >= s.maxReconnect {
		terminal := !s.terminalSent
		s.terminalSent = true
		s.mu.Unlock()
		if terminal {
			logger().Warnw("websocket reconnect exhausted", "attempts", s.maxReconnect)
			s.emit(mv.ErrorEvent(mv.CodeMaxReconnectAttempts, "Failed to reconnect to WebSocket"))
		}
		return
	}
	s.retries++
	attempt := s.retries
	delay := s.delay << (attempt - 1)
	s.state = StateConnecting
	s.timer = time.AfterFunc(delay, func() {
		s.dial(gen)
	})
	s.mu.Unlock()

	logger().Infow("websocket reconnecting", "attempt", attempt, "max", s.maxReconnect, "delay", delay)
}

func (s *EventService) emit(ev mv.Event) {
	s.mu.Lock()
	cbs := make([]func(mv.Event), 0, len(s.listeners[ev.Type]))
	for _, fn := range s.listeners[ev.Type] {
		cbs = append(cbs, fn)
	}
	s.mu.Unlock()

	for _, fn := range cbs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger().Warnw("listener panic", "type", ev.Type, "recover", r)
				}
			}()
			fn(ev)
		}()
	}
}

func closeCode(err error) int {
	if ce, ok := err.(*websocket.CloseError); ok {
		return ce.Code
	}
	return websocket.CloseAbnormalClosure
}
