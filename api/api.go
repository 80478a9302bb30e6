// Package api exposes the ledgerwork admin HTTP API.
//
// Routes:
//
//	GET    /healthz               store connectivity
//	GET    /v1/nodes              list ledger nodes
//	POST   /v1/nodes              register a ledger node
//	GET    /v1/nodes/{nodeId}     fetch one node
//	DELETE /v1/nodes/{nodeId}     tombstone a node
//	GET    /v1/stats              scheduling statistics
//	POST   /v1/passes             run one scheduling pass now
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/xraph/ledgerwork"
	"github.com/xraph/ledgerwork/engine"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// API serves the admin routes for one engine.
type API struct {
	eng         *engine.Engine
	logger      *slog.Logger
	timeout     time.Duration
	passLimiter *rate.Limiter
}

// Option configures the API.
type Option func(*API)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) { a.logger = l }
}

// WithTimeout bounds each request. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(a *API) { a.timeout = d }
}

// WithPassRateLimit caps manual pass requests at perSecond with the given
// burst. Requests over the limit get 429 Too Many Requests.
func WithPassRateLimit(perSecond float64, burst int) Option {
	return func(a *API) {
		if burst < 1 {
			burst = 1
		}
		a.passLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// New creates an API for eng.
func New(eng *engine.Engine, opts ...Option) *API {
	a := &API{
		eng:     eng,
		logger:  slog.Default(),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if a.timeout > 0 {
		r.Use(middleware.Timeout(a.timeout))
	}
	r.Use(a.logRequests)

	a.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the API routes on r.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", a.health)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/nodes", func(r chi.Router) {
			r.Get("/", a.listNodes)
			r.Post("/", a.createNode)
			r.Get("/{nodeId}", a.getNode)
			r.Delete("/{nodeId}", a.deleteNode)
		})
		r.Get("/stats", a.stats)
		r.With(a.limitPasses).Post("/passes", a.runPass)
	})
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (a *API) limitPasses(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.passLimiter != nil && !a.passLimiter.Allow() {
			respondError(w, http.StatusTooManyRequests, "pass rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	if err := a.eng.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondJSON writes data as a JSON response body.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", slog.String("error", err.Error()))
		}
	}
}

// respondError sends a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondStoreError maps ledgerwork sentinel errors to HTTP status codes.
func (a *API) respondStoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledgerwork.ErrNodeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledgerwork.ErrNodeAlreadyExists),
		errors.Is(err, ledgerwork.ErrPassInProgress):
		status = http.StatusConflict
	case errors.Is(err, ledgerwork.ErrNodeDeleted):
		status = http.StatusGone
	case errors.Is(err, ledgerwork.ErrShuttingDown),
		errors.Is(err, ledgerwork.ErrDisabled):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		a.logger.Error("api request failed", slog.String("error", err.Error()))
	}
	respondError(w, status, err.Error())
}
