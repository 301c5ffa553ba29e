// Package api exposes the carebook engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/engine"
	"github.com/hupe1980/carebook/logging"
)

// Defaults of the HTTP surface.
const (
	ThreadHeader    = "X-THREAD-ID"
	DefaultThreadID = "111222"
	ServiceName     = "hospital_booking_backend"
	Version         = "1.0.0"

	maxBodyBytes = 64 << 10
)

// Engine is the subset of *engine.Engine the handlers need.
type Engine interface {
	Ask(ctx context.Context, threadID, query string) (engine.Reply, error)
	Reset(ctx context.Context, threadID string) error
}

// GenerationRequest is the body of POST /generate-stream/.
type GenerationRequest struct {
	Query string `json:"query"`
}

// GenerationResponse is the success body of POST /generate-stream/.
type GenerationResponse struct {
	Answer      string `json:"answer"`
	DialogState string `json:"dialog_state"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// Options configures the router.
type Options struct {
	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Logger  logging.Logger
	// RequestTimeout bounds a request; 0 leaves it to the engine.
	RequestTimeout time.Duration
}

// Handler serves the conversation endpoints.
type Handler struct {
	engine Engine
	logger logging.Logger
}

// NewRouter wires the routes and middleware around eng.
func NewRouter(eng Engine, optFns ...func(o *Options)) http.Handler {
	opts := Options{
		CORSOrigins: []string{"*"},
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	h := &Handler{engine: eng, logger: opts.Logger}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(CORS(opts.CORSOrigins))
	if opts.RequestTimeout > 0 {
		r.Use(chiMiddleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	r.Post("/generate-stream/", h.Generate)
	r.Post("/generate-stream", h.Generate)
	r.Post("/execute", h.Generate)

	r.Delete("/threads/{threadID}", h.ResetThread)

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	return r
}

// Root returns API information.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"message": "Hospital Appointment Booking System API",
		"version": Version,
		"endpoints": map[string]string{
			"generate_stream": "/generate-stream/",
			"execute":         "/execute",
			"health":          "/health",
			"reset_thread":    "/threads/{thread_id}",
			"metrics":         "/metrics",
		},
	})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": ServiceName})
}

// Generate runs one conversation turn.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	threadID := strings.TrimSpace(r.Header.Get(ThreadHeader))
	if threadID == "" {
		threadID = DefaultThreadID
	}

	var req GenerationRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.logger.Warn("api.request.invalid", "thread_id", threadID, "error", err)
		Error(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		Error(w, http.StatusBadRequest, "invalid request body", "query must not be empty")
		return
	}

	h.logger.Info("api.query.received", "thread_id", threadID, "query_len", len(req.Query))

	reply, err := h.engine.Ask(r.Context(), threadID, req.Query)
	if err != nil {
		h.logger.Error("api.query.failed", "thread_id", threadID, "error", err)
		status, detail := classify(err)
		Error(w, status, "Error processing request", detail)
		return
	}

	JSON(w, http.StatusOK, GenerationResponse{Answer: reply.Answer, DialogState: reply.DialogState.String()})
}

// ResetThread forgets a conversation.
func (h *Handler) ResetThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	if err := h.engine.Reset(r.Context(), threadID); err != nil {
		h.logger.Error("api.reset.failed", "thread_id", threadID, "error", err)
		Error(w, http.StatusInternalServerError, "Error resetting thread", internalErrorDetail)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// internalErrorDetail replaces the text of unclassified errors, which is
// only logged.
const internalErrorDetail = "internal error processing the request"

// classify maps a turn error onto a status code and a client-safe detail.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrEmptyQuery), errors.Is(err, engine.ErrEmptyThreadID):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "the request took too long"
	case core.IsRoutingError(err):
		return http.StatusInternalServerError, "the assistant could not route the request"
	case core.IsAdapterFailure(err):
		return http.StatusBadGateway, "the language model is unavailable"
	default:
		return http.StatusInternalServerError, internalErrorDetail
	}
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes an ErrorResponse.
func Error(w http.ResponseWriter, status int, message, detail string) {
	JSON(w, status, ErrorResponse{Error: message, Detail: detail})
}
