package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pranavk-10/GAP-Github/internal/config"
	"github.com/pranavk-10/GAP-Github/internal/domain"
	"github.com/pranavk-10/GAP-Github/internal/service/ratelimiter"
	"github.com/pranavk-10/GAP-Github/internal/triage"
)

// ChatBucket is the limiter bucket guarding the chat endpoint.
const ChatBucket = "chat"

// maxBodyBytes caps the chat request body.
const maxBodyBytes = 1 << 20

// TurnResponder runs one triage turn.
type TurnResponder interface {
	Respond(ctx context.Context, req domain.QueryRequest) (triage.Outcome, error)
}

// Server aggregates handlers dependencies.
type Server struct {
	Cfg        config.Config
	Triage     TurnResponder
	Limiter    ratelimiter.Limiter
	ModelCheck func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
// limiter, modelCheck and redisCheck may be nil.
func NewServer(cfg config.Config, t TurnResponder, limiter ratelimiter.Limiter, modelCheck, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Triage: t, Limiter: limiter, ModelCheck: modelCheck, RedisCheck: redisCheck}
}

func acceptsJSON(r *http.Request) (string, bool) {
	a := r.Header.Get("Accept")
	return a, a == "" || strings.Contains(a, "*/*") || strings.Contains(a, "application/json") || strings.Contains(a, "application/*")
}

// ChatHandler serves POST /api/chat: one dialogue turn per request.
func (s *Server) ChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Accept negotiation: only JSON responses supported
		if a, ok := acceptsJSON(r); !ok {
			writeNotAcceptable(w, a)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "" && !strings.Contains(strings.ToLower(ct), "application/json") {
			writeError(w, r, fmt.Errorf("%w: content-type must be application/json", domain.ErrInvalidArgument), nil)
			return
		}
		if !s.allow(w, r) {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req domain.QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
					Code:    "INVALID_ARGUMENT",
					Message: "payload too large",
					Details: map[string]any{"max_bytes": maxBodyBytes},
				}})
				return
			}
			if errors.Is(err, domain.ErrInvalidArgument) {
				writeError(w, r, err, nil)
				return
			}
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), validationDetails(err))
			return
		}

		out, err := s.Triage.Respond(r.Context(), req)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("X-Triage-Source", string(out.Source))
		writeJSON(w, http.StatusOK, out.Stage)
	}
}

// allow applies the shared limiter. It writes the 429 response itself.
func (s *Server) allow(w http.ResponseWriter, r *http.Request) bool {
	if s.Limiter == nil {
		return true
	}
	allowed, retryAfter, err := s.Limiter.Allow(r.Context(), ChatBucket, ClientIP(r), 1)
	if err != nil {
		LoggerFrom(r).Warn("rate limiter unavailable; allowing request", slog.Any("error", err))
	}
	if allowed {
		return true
	}
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, r, fmt.Errorf("%w: too many requests", domain.ErrRateLimited), map[string]any{"retry_after_seconds": secs})
	return false
}

// HealthzHandler reports liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler probes the model configuration and, when configured, Redis.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"model", s.ModelCheck},
			{"redis", s.RedisCheck},
		}
		checks := make([]check, 0, len(probes))
		ok := true
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			if err := p.fn(ctx); err != nil {
				ok = false
				checks = append(checks, check{Name: p.name, OK: false, Details: err.Error()})
				continue
			}
			checks = append(checks, check{Name: p.name, OK: true})
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
