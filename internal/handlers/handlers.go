package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/nahidhasan98/review-relay/internal/logger"
	"github.com/nahidhasan98/review-relay/internal/models"
	"github.com/nahidhasan98/review-relay/internal/notify"
	"github.com/nahidhasan98/review-relay/internal/registry"
	"github.com/nahidhasan98/review-relay/internal/relay"
	"github.com/nahidhasan98/review-relay/internal/validation"
	"github.com/nahidhasan98/review-relay/internal/webhook"
)

// GroupLister is implemented by notifiers that can list their group chats
type GroupLister interface {
	Groups(ctx context.Context) ([]models.GroupInfo, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	orchestrator *webhook.Orchestrator
	relay        *relay.Relay
	registry     registry.Registry
	notifier     notify.Notifier
	maxBodyBytes int64
	log          *logger.Logger
	validator    *validation.Validator
}

// New creates a new handler instance
func New(
	orchestrator *webhook.Orchestrator,
	rel *relay.Relay,
	reg registry.Registry,
	notifier notify.Notifier,
	maxBodyBytes int64,
	log *logger.Logger,
) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		relay:        rel,
		registry:     reg,
		notifier:     notifier,
		maxBodyBytes: maxBodyBytes,
		log:          log,
		validator:    validation.New(),
	}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, &models.HealthResponse{
		Status:    "ok",
		Notifier:  h.notifier.Name(),
		Connected: h.notifier.Connected(),
		Timestamp: time.Now().Unix(),
	}, http.StatusOK)
}
