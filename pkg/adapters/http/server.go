// Package http exposes a ports.Catalog as the procmeta REST API.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/procmeta"
	"github.com/aretw0/procmeta/internal/logging"
	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/aretw0/procmeta/pkg/observability"
	"github.com/aretw0/procmeta/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// BasePath prefixes every resource endpoint.
const BasePath = "/api/v1"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Server serves the REST API over a catalog.
type Server struct {
	catalog ports.Catalog
	streams *StreamManager
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics records every request and serves GET /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewServer creates a server over catalog.
func NewServer(catalog ports.Catalog, opts ...Option) *Server {
	s := &Server{
		catalog: catalog,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)
	return s
}

// Streams returns the event hub of the server.
func (s *Server) Streams() *StreamManager { return s.streams }

// NewHandler creates the HTTP handler for catalog.
func NewHandler(catalog ports.Catalog, opts ...Option) http.Handler {
	return NewServer(catalog, opts...).Handler()
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// Swagger UI
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})

	r.Route(BasePath, func(r chi.Router) {
		r.Get("/types", s.ListTypes)
		r.Post("/types", s.CreateType)
		r.Get("/types/{code}", s.GetType)
		r.Put("/types/{code}", s.UpdateType)
		r.Delete("/types/{code}", s.DeleteType)

		r.Get("/types/{code}/states", s.ListStates)
		r.Post("/types/{code}/states", s.CreateState)
		r.Get("/states/{id}", s.GetState)
		r.Put("/states/{id}", s.UpdateState)
		r.Delete("/states/{id}", s.DeleteState)

		r.Get("/types/{code}/operations", s.ListOperations)
		r.Post("/types/{code}/operations", s.CreateOperation)
		r.Get("/operations/{id}", s.GetOperation)
		r.Put("/operations/{id}", s.UpdateOperation)
		r.Delete("/operations/{id}", s.DeleteOperation)

		r.Post("/save-all", s.SaveAll)
		r.Get("/events", s.SubscribeEvents)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// observe records request metrics under the matched route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(route, r.Method, status, time.Since(start))
		s.logger.Debug("request served", "method", r.Method, "route", route, "status", status, "elapsed", time.Since(start))
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	} else if err != nil {
		s.logger.Error("failed to load OpenAPI spec", "err", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "procmeta-http",
		"version":     strings.TrimSpace(procmeta.Version),
		"api_version": apiVersion,
	})
}

// -- Helpers --

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps catalog errors to HTTP status codes. A not-found raised while
// writing refers to something named in the body and is a bad request; the
// path resource has already been resolved by then.
func statusFor(err error, writing bool) int {
	switch {
	case domain.IsValidation(err),
		errors.Is(err, domain.ErrCycle),
		errors.Is(err, domain.ErrSelfParent):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateCode), errors.Is(err, domain.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		if writing {
			return http.StatusBadRequest
		}
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, writing bool) {
	status := statusFor(err, writing)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeError(w, status, err.Error())
}
