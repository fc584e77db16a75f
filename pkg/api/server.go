// Package api serves fits, poses and outfit previews over HTTP.
//
// Routes:
//
//	GET  /healthz
//	GET  /api/poses
//	GET  /api/poses/{id}
//	GET  /api/tryon/fits?poseId=front_v1&itemIds=a,b
//	POST /api/tryon/fits
//	POST /api/tryon/layout
//	POST /api/tryon/preview?format=png
//
// The caller is identified by the X-User-ID header. Servers started with
// [Config.NoAuth] treat every request as the "local" user.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/tryon/pkg/buildinfo"
	"github.com/matzehuels/tryon/pkg/errors"
	"github.com/matzehuels/tryon/pkg/fitstore"
	"github.com/matzehuels/tryon/pkg/observability"
	"github.com/matzehuels/tryon/pkg/pipeline"
	"github.com/matzehuels/tryon/pkg/pose"
)

const (
	// UserHeader carries the caller identity.
	UserHeader = "X-User-ID"
	// RequestIDHeader is echoed on every response.
	RequestIDHeader = "X-Request-ID"
	// LocalUser is the identity of every request when auth is disabled.
	LocalUser = "local"

	maxBodySize = 1 << 20
)

// Config configures a [Server].
type Config struct {
	Store  fitstore.Store
	Runner *pipeline.Runner
	Poses  *pose.Registry
	Logger *log.Logger

	// FitPose is the pose fits default to (front_v1).
	FitPose string
	// NoAuth disables the user header requirement.
	NoAuth bool
	// Timeout bounds request handling (30s).
	Timeout time.Duration
}

// Server is the HTTP API.
type Server struct {
	cfg    Config
	logger *log.Logger
	router chi.Router
}

// New creates a server. Store and Runner are required.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "api: store is required")
	}
	if cfg.Runner == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "api: runner is required")
	}
	if cfg.Poses == nil {
		cfg.Poses = pose.DefaultRegistry()
	}
	if cfg.FitPose == "" {
		cfg.FitPose = pose.CanonicalID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	s := &Server{cfg: cfg, logger: cfg.Logger}
	s.router = s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Timeout))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/poses", s.handleListPoses)
		r.Get("/poses/{id}", s.handleGetPose)

		r.Route("/tryon", func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/fits", s.handleFetchFits)
			r.Post("/fits", s.handleSaveFit)
			r.Post("/layout", s.handleLayout)
			r.Post("/preview", s.handlePreview)
		})
	})
	return r
}

// =============================================================================
// Middleware
// =============================================================================

type ctxKey int

const (
	userKey ctxKey = iota
	requestIDKey
)

// UserFromContext returns the authenticated user of a request.
func UserFromContext(ctx context.Context) string {
	u, _ := ctx.Value(userKey).(string)
	return u
}

// RequestIDFromContext returns the request id.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.HTTP().OnResponse(r.Context(), r.Method, r.Host, r.URL.Path, status, time.Since(start))
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", RequestIDFromContext(r.Context()))
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get(UserHeader)
		if s.cfg.NoAuth {
			user = LocalUser
		}
		if user == "" {
			s.writeError(w, r, errors.New(errors.ErrCodeUnauthorized, "missing %s header", UserHeader))
			return
		}
		if err := errors.ValidateUserID(user); err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// =============================================================================
// Responses
// =============================================================================

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes an error.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	code := string(errors.GetCode(err))
	if code == "" {
		code = string(errors.ErrCodeInternal)
	}
	msg := errors.UserMessage(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err, "request_id", RequestIDFromContext(r.Context()))
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	s.writeJSON(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: msg}})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"store":   s.cfg.Store.Name(),
		"version": buildinfo.Current(),
	})
}
