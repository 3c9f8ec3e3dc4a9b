package http

import (
	"encoding/json"
	"net/http"
	"time"

	"trivia-party/internal/app"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NewRouter wires the host display endpoints.
func NewRouter(game *app.GameService, teams *app.TeamService, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	ws := NewWSHandler(game, teams, log)

	r := chi.NewRouter()
	r.Use(requestLogger(log))
	r.Get("/healthz", Healthz)
	r.Get("/api/state", State(game))
	r.Get("/api/catalog", Catalog(game))
	r.Get("/ws", ws.ServeWS)
	return r
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// State returns the current session snapshot.
func State(game *app.GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, game.Snapshot())
	}
}

// Catalog returns the catalog being played.
func Catalog(game *app.GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, game.Catalog())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("elapsed", time.Since(start)))
		})
	}
}
