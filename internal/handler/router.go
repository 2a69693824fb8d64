package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/claritycoach/backend/internal/handler/chat"
	"github.com/claritycoach/backend/internal/handler/snapshot"
	"github.com/claritycoach/backend/internal/handler/stage"
	"github.com/claritycoach/backend/internal/handler/stream"
	middlewarePkg "github.com/claritycoach/backend/internal/middleware"
	coachService "github.com/claritycoach/backend/internal/service/coach"
	snapshotService "github.com/claritycoach/backend/internal/service/snapshot"
	"github.com/claritycoach/backend/pkg/utils"
)

// Options carries the settings the router needs besides services.
type Options struct {
	AllowedOrigins []string
	Streaming      bool
}

// NewRouter wires HTTP routes to core services. A nil coachSvc leaves the chat
// endpoints answering 503.
func NewRouter(coachSvc *coachService.Service, snapshots *snapshotService.Store, opts Options, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(opts.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"ai":     coachSvc != nil,
		})
	})

	r.Route("/api", func(api chi.Router) {
		stage.New().RegisterRoutes(api)
		snapshot.New(snapshots, logger).RegisterRoutes(api)

		if coachSvc == nil {
			unavailable := func(w http.ResponseWriter, r *http.Request) {
				utils.RespondError(w, http.StatusServiceUnavailable, "ai provider not configured")
			}
			api.Post("/chat", unavailable)
			api.Post("/chat/stream", unavailable)
			api.Get("/chat/ws", unavailable)
			return
		}

		chat.New(coachSvc, logger).RegisterRoutes(api)
		stream.New(coachSvc, opts.Streaming, logger).RegisterRoutes(api)
		stream.NewWebSocketHandler(coachSvc, opts.AllowedOrigins, logger).RegisterWebSocketRoutes(api)
	})

	return r
}
