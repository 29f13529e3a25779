package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const apiWorking = "Server API is working 🚀"

// Pinger is anything whose liveness can be probed, normally the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

type StatusHandler struct {
	db     Pinger
	logger *slog.Logger
}

func NewStatusHandler(db Pinger, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{db: db, logger: logger}
}

// HandleRoot serves GET / and GET /test with a fixed JSON string.
func (h *StatusHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiWorking)
}

// HandleHealth serves GET /healthz: 200 when the database answers a ping
// within two seconds, 503 otherwise.
func (h *StatusHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
