package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/ulule/limiter/v3"
	lmhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/brandgrowthos/bgos/pkg/settings"
)

type M = render.M

func rateMw() func(next http.Handler) http.Handler {
	rate, err := limiter.NewRateFromFormatted(settings.Current.RateLimit)
	if err != nil {
		logger().Infow("parse rate limit fail", "value", settings.Current.RateLimit, "err", err)
		return func(next http.Handler) http.Handler { return next }
	}
	mw := lmhttp.NewMiddleware(limiter.New(memory.NewStore(), rate))
	return mw.Handler
}

func corsMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if settings.AllowAllOrigins() {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				for _, o := range settings.Current.AllowOrigins {
					if o == origin {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						break
					}
				}
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) strapRouter() {

	s.ar.Get("/ping", handlerPing)

	s.ar.Route("/api", func(r chi.Router) {
		r.Use(corsMw, rateMw())

		r.Get("/me", s.handleMe)
		r.Get("/welcome", s.getWelcome)
		r.Post("/sync", s.postSync)

		r.Get("/assistants", s.getAssistants)

		r.Get("/chats", s.getChats)
		r.Post("/chats", s.postChat)
		r.Route("/chats/{cid}", func(r chi.Router) {
			r.Patch("/", s.patchChat)
			r.Delete("/", s.deleteChat)
			r.Get("/name", s.getChatName)
			r.Post("/messages", s.postMessage)
			r.Get("/queue", s.getQueue)
			r.Post("/scheduled", s.postScheduled)
		})

		r.Get("/history/{cid}", s.getHistory)
		r.Delete("/history/{cid}", s.deleteHistory)

		r.Get("/unread", s.getUnread)

		r.Post("/voice/connect", s.postVoiceConnect)
		r.Post("/voice/disconnect", s.postVoiceDisconnect)
		r.Get("/voice/state", s.getVoiceState)

		r.Post("/artifacts/article", s.postArticle)

		r.Get("/events", s.getEvents)
	})

	if s.cfg.DocHandler != nil {
		s.ar.Get("/", s.cfg.DocHandler.ServeHTTP)
		s.ar.NotFound(s.cfg.DocHandler.ServeHTTP)
	}
}

func handlerPing(w http.ResponseWriter, r *http.Request) {
	render.Data(w, r, []byte("Pong\n"))
}

func apiFail(w http.ResponseWriter, r *http.Request, status int, err interface{}) {
	res := render.M{
		"status": status,
		"error":  err,
	}
	switch ret := err.(type) {
	case error:
		res["message"] = ret.Error()
	case fmt.Stringer:
		res["message"] = ret.String()
	case string, *string, []byte:
		res["message"] = ret
	}
	render.Status(r, status)
	render.JSON(w, r, res)
}

type RespDone struct {
	Status int `json:"status"`
	Data   any `json:"data,omitempty"`
	Count  int `json:"count,omitempty"`
}

func apiOk(w http.ResponseWriter, r *http.Request, args ...any) {
	res := &RespDone{}
	if len(args) > 0 && args[0] != nil {
		res.Data = args[0]
		if len(args) > 1 {
			if c, ok := args[1].(int); ok {
				res.Count = c
			}
		}
	}

	render.JSON(w, r, res)
}
