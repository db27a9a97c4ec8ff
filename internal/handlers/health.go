package handlers

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler reports liveness plus database reachability, so the
// orchestrator can pull a node whose Postgres connection is gone.
type HealthHandler struct {
	db  *sql.DB
	log *slog.Logger
}

func NewHealthHandler(db *sql.DB, log *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, log: log}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

// ServeHTTP handles GET /health
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "healthy",
		Database:  "up",
		Timestamp: time.Now().UTC(),
	}
	status := http.StatusOK

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.log.Error("health check database ping failed", "error", err)
			resp.Status = "degraded"
			resp.Database = "down"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, resp)
}
