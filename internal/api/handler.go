// Package api exposes the people agent over HTTP: JSON turns, SSE streaming
// and a websocket chat.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/people-agent/server/internal/agent/auth"
	"github.com/people-agent/server/internal/agent/model"
	"github.com/people-agent/server/internal/agent/people"
	"github.com/people-agent/server/internal/agent/session"
	errx "github.com/people-agent/server/internal/core/error"
	logx "github.com/people-agent/server/pkg/logger"
)

const maxBodyBytes = 64 * 1024

// Handler serves every route. The session store is owned by the caller.
type Handler struct {
	sessions *session.Store
	tokens   auth.TokenSource
	dir      people.Directory
}

func NewHandler(sessions *session.Store, tokens auth.TokenSource, dir people.Directory) *Handler {
	return &Handler{sessions: sessions, tokens: tokens, dir: dir}
}

// NewRouter builds the chi router with the global middleware.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/users", h.ListUsers)
		r.Get("/ws", h.ServeWS)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.CreateSession)
			r.Route("/{identity}", func(r chi.Router) {
				r.Delete("/", h.EndSession)
				r.Post("/query", h.Query)
				r.Post("/stream", h.Stream)
				r.Get("/history", h.History)
				r.Get("/users", h.SessionUsers)
			})
		})
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logx.Info().
				Str("request_id", chiMiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Warn().Err(err).Msg("failed to encode response")
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

type candidatesResponse struct {
	Error      string                `json:"error"`
	Candidates []model.UserCandidate `json:"candidates"`
}

// writeError maps err onto its status and public message. An ambiguous
// name also lists the candidates to choose from.
func writeError(w http.ResponseWriter, err error) {
	status := errx.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logx.Error().Err(err).Int("status", status).Msg("request failed")
	}

	var amb *people.AmbiguousIdentityError
	if errors.As(err, &amb) {
		JSON(w, status, candidatesResponse{Error: errx.PublicMessage(err), Candidates: amb.Candidates})
		return
	}
	Error(w, status, errx.PublicMessage(err))
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func identityParam(r *http.Request) string {
	raw := chi.URLParam(r, "identity")
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
