package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/topten/internal/api/apierr"
	"github.com/mcoot/topten/internal/api/handler"
	apimiddleware "github.com/mcoot/topten/internal/api/middleware"
	"github.com/mcoot/topten/internal/api/response"
	"github.com/mcoot/topten/internal/api/stream"
	"github.com/mcoot/topten/internal/middleware"
	"github.com/mcoot/topten/internal/services/questions"
	"github.com/mcoot/topten/internal/services/resilience"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger     *slog.Logger
	Supervisor *resilience.Supervisor
	Questions  *questions.Service
	Hubs       *stream.HubManager
	// StorageType is reported by the health check
	StorageType string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	roomHandler := handler.NewRoomHandler(cfg.Supervisor, cfg.Logger)
	streamHandler := handler.NewStreamHandler(cfg.Supervisor, cfg.Hubs, cfg.Logger)

	identityMiddleware := apimiddleware.Identity()
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger, apiPanicHandler)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Health check endpoint (no identity)
	api.HandleFunc("/health", healthHandler(cfg)).Methods(http.MethodGet)

	// Room routes (all require a player ID)
	rooms := api.PathPrefix("/rooms").Subrouter()
	rooms.Use(identityMiddleware)
	rooms.HandleFunc("", roomHandler.Create).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}", roomHandler.Get).Methods(http.MethodGet)
	rooms.HandleFunc("/{code}", roomHandler.Close).Methods(http.MethodDelete)
	rooms.HandleFunc("/{code}/join", roomHandler.Join).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/leave", roomHandler.Leave).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/disconnect", roomHandler.Disconnect).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/reconnect", roomHandler.Reconnect).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/stream", streamHandler.Watch).Methods(http.MethodGet)

	// Game routes
	rooms.HandleFunc("/{code}/start", roomHandler.Start).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/answers", roomHandler.Submit).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/timeout", roomHandler.Timeout).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/end", roomHandler.End).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/eligibility", roomHandler.Eligibility).Methods(http.MethodGet)

	return r
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}

func healthHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories := []string{}
		if cfg.Questions != nil {
			categories = cfg.Questions.CategoryIDs()
		}
		response.OK(w, response.Health{
			Status:     "ok",
			Storage:    cfg.StorageType,
			Categories: categories,
		})
	}
}
