package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Billy-Davies-2/championship-draft/internal/auth"
	"github.com/Billy-Davies-2/championship-draft/internal/bracket"
	"github.com/Billy-Davies-2/championship-draft/internal/coordinator"
	"github.com/Billy-Davies-2/championship-draft/internal/dal"
	"github.com/Billy-Davies-2/championship-draft/internal/draft"
	"github.com/Billy-Davies-2/championship-draft/internal/logger"
	"github.com/Billy-Davies-2/championship-draft/internal/models"
	"github.com/Billy-Davies-2/championship-draft/internal/pubsub"
)

const maxBodyBytes = 64 << 10

// Stats answers analytics queries
type Stats interface {
	BanCounts(ctx context.Context) ([]models.BanCount, error)
}

// Options wires the API to the rest of the service
type Options struct {
	Coordinator *coordinator.Coordinator
	Bracket     *bracket.Service
	Broadcaster *pubsub.Broadcaster
	Sessions    *auth.Sessions
	Auth        auth.AuthProvider
	Store       dal.DocumentStore
	Stats       Stats

	PingInterval   time.Duration
	BanWarningTTL  time.Duration
	AllowedOrigins []string
}

// API contains all API handler methods
type API struct {
	coord       *coordinator.Coordinator
	reader      *coordinator.Reader
	bracket     *bracket.Service
	broadcaster *pubsub.Broadcaster
	sessions    *auth.Sessions
	auth        auth.AuthProvider
	store       dal.DocumentStore
	stats       Stats

	pingInterval time.Duration
	warnings     *cache.Cache
	origins      []string
}

// New creates the API
func New(opts Options) *API {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 25 * time.Second
	}
	if opts.BanWarningTTL <= 0 {
		opts.BanWarningTTL = time.Hour
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	return &API{
		coord:        opts.Coordinator,
		reader:       opts.Coordinator.Reader(),
		bracket:      opts.Bracket,
		broadcaster:  opts.Broadcaster,
		sessions:     opts.Sessions,
		auth:         opts.Auth,
		store:        opts.Store,
		stats:        opts.Stats,
		pingInterval: opts.PingInterval,
		warnings:     cache.New(opts.BanWarningTTL, opts.BanWarningTTL*2),
		origins:      opts.AllowedOrigins,
	}
}

// Router builds the HTTP routes
func (h *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(h.sessions.Middleware)

	r.Get("/healthz", h.Liveness)
	r.Get("/readyz", h.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/auth/login", h.auth.LoginHandler)
	r.Get("/auth/callback", h.auth.CallbackHandler)
	r.Get("/auth/logout", h.auth.LogoutHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", h.Catalog)
		r.Get("/tournaments", h.ListTournaments)
		r.Get("/tournaments/{id}", h.GetTournament)
		r.Get("/matches/{id}", h.GetMatch)
		r.Get("/users", h.ListUsers)
		r.Get("/status", h.Status)
		r.Get("/stats/bans", h.BanStats)
		r.Get("/events", h.EventsSSE)
		r.Get("/ws", h.EventsWebsocket)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole())
			r.Get("/me", h.Me)
			r.Post("/matches/{id}/ready", h.Ready)
			r.Post("/matches/{id}/bans", h.SubmitBans)
			r.Post("/matches/{id}/faction", h.ChooseFaction)
			r.Post("/matches/{id}/picks", h.SubmitPicks)
			r.Post("/matches/{id}/confirm", h.Confirm)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))
			r.Post("/tournaments", h.CreateTournament)
			r.Put("/tournaments/{id}/status", h.SetTournamentStatus)
			r.Post("/tournaments/{id}/result", h.RecordResult)
			r.Post("/users", h.RegisterUser)
		})
	})

	return r
}

// requestLogger logs every request through the structured logger
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"ip", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError maps domain errors onto status codes. Validation failures
// carry their reason code so clients can explain which rule failed.
func writeError(w http.ResponseWriter, err error) {
	var validation *draft.ValidationError
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: string(validation.Reason), Message: validation.Message})
	case errors.Is(err, draft.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden", Message: err.Error()})
	case errors.Is(err, draft.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not-found", Message: err.Error()})
	case errors.Is(err, draft.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: "conflict", Message: "the match could not be updated, try again"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "unavailable", Message: err.Error()})
	default:
		logger.Error("Request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal error"})
	}
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: string(draft.ReasonInvalidRequest), Message: message})
}

// decode reads a JSON body. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	logger.Debug("Failed to decode request body", "path", r.URL.Path, "error", err)
	badRequest(w, "malformed request body")
	return false
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
