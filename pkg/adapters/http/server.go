// Package http exposes the pipeline over a small JSON API: one POST per
// dialog turn, plus health and info endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ketram/parley/internal/logging"
	"github.com/ketram/parley/pkg/domain"
	"github.com/ketram/parley/pkg/ports"
)

const shutdownGrace = 5 * time.Second

// TurnRequest is the POST /turns body. An empty context_id starts a fresh
// dialog.
type TurnRequest struct {
	ContextID string         `json:"context_id,omitempty"`
	Text      string         `json:"text"`
	Extra     map[string]any `json:"extra,omitempty"`
	Misc      map[string]any `json:"misc,omitempty"`
}

func newRequestMessage(body TurnRequest) domain.Message {
	return domain.Message{Text: body.Text, Extra: body.Extra}
}

// TurnResponse is the POST /turns reply.
type TurnResponse struct {
	ContextID string `json:"context_id"`
	Response  string `json:"response"`
	Label     string `json:"label"`
	Turn      int    `json:"turn"`
}

// NewHandler builds the HTTP routes over a turn handler. Exposed separately
// from the messenger so tests can drive it with httptest.
func NewHandler(handler ports.TurnHandler, logger *slog.Logger, version string) http.Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/info", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"app":     "parley-http",
			"version": version,
		})
	})

	r.Post("/turns", func(w http.ResponseWriter, req *http.Request) {
		var body TurnRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			logger.Warn("turn: invalid request body", "err", err)
			return
		}
		if body.Text == "" {
			http.Error(w, "Field 'text' is required", http.StatusBadRequest)
			return
		}

		dc, err := handler(req.Context(), newRequestMessage(body), body.ContextID, body.Misc)
		if err != nil {
			http.Error(w, fmt.Sprintf("Turn error: %v", err), http.StatusInternalServerError)
			logger.Error("turn failed", "context_id", body.ContextID, "err", err)
			return
		}

		resp, _ := dc.LastResponse()
		writeJSON(w, http.StatusOK, TurnResponse{
			ContextID: dc.ID,
			Response:  resp.Text,
			Label:     dc.LastLabel(),
			Turn:      dc.TurnCount(),
		})
	})

	return enableCORS(r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Messenger serves the pipeline over HTTP. Unlike the console messenger it
// multiplexes many dialogs, one per context_id.
type Messenger struct {
	addr    string
	logger  *slog.Logger
	version string
	metrics http.Handler
}

type MessengerOption func(*Messenger)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) MessengerOption {
	return func(m *Messenger) { m.logger = logger }
}

// WithVersion sets the version reported by GET /info.
func WithVersion(version string) MessengerOption {
	return func(m *Messenger) { m.version = version }
}

// WithMetrics mounts a metrics handler (e.g. promhttp.Handler) at /metrics.
func WithMetrics(h http.Handler) MessengerOption {
	return func(m *Messenger) { m.metrics = h }
}

// NewMessenger creates an HTTP messenger listening on addr.
func NewMessenger(addr string, opts ...MessengerOption) *Messenger {
	m := &Messenger{
		addr:    addr,
		logger:  logging.NewNop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect serves until ctx is cancelled, then shuts down gracefully.
func (m *Messenger) Connect(ctx context.Context, handler ports.TurnHandler) error {
	h := NewHandler(handler, m.logger, m.version)
	if m.metrics != nil {
		mux := chi.NewRouter()
		mux.Handle("/metrics", m.metrics)
		mux.Mount("/", h)
		h = mux
	}
	srv := &http.Server{
		Addr:    m.addr,
		Handler: h,
	}

	errCh := make(chan error, 1)
	go func() {
		m.logger.Info("http server listening", "addr", m.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		m.logger.Info("http server shutting down")
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
