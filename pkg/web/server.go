package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	mv "github.com/brandgrowthos/bgos/pkg/models/voice"
	"github.com/brandgrowthos/bgos/pkg/services/backend"
	"github.com/brandgrowthos/bgos/pkg/services/queue"
	"github.com/brandgrowthos/bgos/pkg/services/stores"
	"github.com/brandgrowthos/bgos/pkg/services/transport"
	"github.com/brandgrowthos/bgos/pkg/services/voice"
	"github.com/brandgrowthos/bgos/pkg/settings"
)

type Service interface {
	Serve(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Config struct {
	Addr  string
	Debug bool

	DocHandler http.Handler
}

type server struct {
	Addr string
	cfg  Config

	sto   stores.Storage
	state *stores.State

	be        *backend.Client
	tr        queue.Transport
	vs        *voice.EventService
	voiceFeed chan mv.Event

	userID  string
	welcome string

	qmu    sync.Mutex
	queues map[string]*queue.Queue

	ar *chi.Mux     // app router
	hs *http.Server // http server
}

// New return new web server
func New(cfg Config) Service {
	ar := chi.NewMux()
	if cfg.Debug {
		ar.Use(middleware.Logger)
	}
	ar.Use(middleware.Recoverer, middleware.RealIP)

	s := &server{
		Addr: cfg.Addr, ar: ar,
		cfg:       cfg,
		sto:       stores.Sgt(),
		be:        backend.NewClient(""),
		tr:        transport.NewWebhook(),
		vs:        voice.NewEventService(settings.Current.VoiceAPIKey),
		voiceFeed: make(chan mv.Event, 16),
		userID:    settings.Current.UserID,
		queues:    make(map[string]*queue.Queue),
	}
	s.state = s.sto.State()
	s.strapVoiceFeed()

	preset, err := stores.LoadPreset()
	if err == nil {
		logger().Infow("loaded preset", "assistants", len(preset.Assistants))
		if len(preset.Assistants) > 0 {
			s.state.SetAssistants(preset.Assistants)
		}
		s.welcome = preset.Welcome
	}
	s.strapRouter()

	s.hs = &http.Server{
		Addr:    s.Addr,
		Handler: s.ar,
	}

	if cfg.Debug {
		logger().Infow("routes:")
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			route = strings.Replace(route, "/*/", "/", -1)
			fmt.Fprintf(os.Stderr, "DEBUG: %-6s %-24s --> %s (%d mw)\n", method, route, nameOfFunction(handler), len(middlewares))
			return nil
		}

		if err := chi.Walk(ar, walkFunc); err != nil {
			logger().Infow("router walk fail", "err", err)
		}
	}
	return s
}

func (s *server) Serve(ctx context.Context) error {
	// Run HTTP server
	runErrChan := make(chan error)
	t := time.AfterFunc(time.Millisecond*200, func() {
		runErrChan <- s.hs.ListenAndServe()
	})

	defer t.Stop()
	logger().Infow("Listen on", "addr", s.hs.Addr)

	// Wait
	for {
		select {
		case runErr := <-runErrChan:
			if runErr != nil {
				logger().Infow("run http server failed",
					"err", runErr,
				)
				return runErr
			}
		case <-ctx.Done():
			logger().Info("http server has been stopped")
			return ctx.Err()
		}
	}
}

func (s *server) Stop(ctx context.Context) error {
	s.vs.Disconnect()
	s.qmu.Lock()
	for _, q := range s.queues {
		q.Stop()
	}
	s.queues = make(map[string]*queue.Queue)
	s.qmu.Unlock()

	if err := s.hs.Shutdown(ctx); err != nil {
		logger().Fatalw("Server Shutdown", "err", err)
		return err
	}
	return nil
}

// strapVoiceFeed relays voice socket events onto the SSE feed. The
// channel drops when no browser is draining.
func (s *server) strapVoiceFeed() {
	relay := func(ev mv.Event) {
		select {
		case s.voiceFeed <- ev:
		default:
		}
	}
	for _, et := range []mv.EventType{
		mv.EtConversationInit, mv.EtUserTranscript, mv.EtAgentResponse,
		mv.EtToolCalled, mv.EtToolCompleted, mv.EtToolError, mv.EtError,
	} {
		s.vs.On(et, relay)
	}
}

// queueFor returns the outbound queue of one chat, creating it with
// the chat's assistant webhook on first use.
func (s *server) queueFor(chatID string) *queue.Queue {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if q, ok := s.queues[chatID]; ok {
		return q
	}

	// resolved on every send, so a queue created before the assistant
	// roster arrives picks the webhook up once a sync lands
	resolve := func() string {
		if c, ok := s.state.Chat(chatID); ok {
			if ast, ok := s.state.Assistant(c.AssistantID); ok {
				return ast.WebhookURL
			}
		}
		return ""
	}

	q := queue.New(queue.Config{
		ChatID:         chatID,
		ResolveWebhook: resolve,
		UserID:         s.userID,
		State:          s.state,
		Cache:          s.sto.History(chatID),
		Transport:      s.tr,
	})
	s.queues[chatID] = q
	return q
}

func (s *server) dropQueue(chatID string) {
	s.qmu.Lock()
	if q, ok := s.queues[chatID]; ok {
		q.Stop()
		delete(s.queues, chatID)
	}
	s.qmu.Unlock()
}
