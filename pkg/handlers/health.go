package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Pinger verifies the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service health by pinging the store.
type HealthHandler struct {
	db     Pinger
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// RegisterRoutes registers the health route on the given router.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
}

// Health handles GET /health requests.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error("Health check failed", zap.Error(err))
		if writeErr := ErrorResponse(w, http.StatusInternalServerError, "store_error", "database unreachable"); writeErr != nil {
			h.logger.Error("Failed to write error response", zap.Error(writeErr))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}
