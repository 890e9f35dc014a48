package handlers

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/nahidhasan98/review-relay/internal/errors"
	"github.com/nahidhasan98/review-relay/internal/middleware"
	"github.com/nahidhasan98/review-relay/internal/models"
	"github.com/nahidhasan98/review-relay/internal/webhook"
)

// GitHubWebhook handles GitHub push deliveries. The whole pipeline runs
// inside the request: verify, fetch, notify, review, reply.
func (h *Handler) GitHubWebhook(w http.ResponseWriter, r *http.Request) {
	deliveryID := middleware.GetRequestID(r.Context())
	if deliveryID == "" {
		deliveryID = r.Header.Get(webhook.HeaderDelivery)
	}
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}
	log := h.log.With("delivery", deliveryID)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			h.writeAppError(w, errors.PayloadTooLarge(tooLarge.Limit))
			return
		}
		h.writeAppError(w, errors.InvalidRequest("Failed to read request body: "+err.Error()))
		return
	}

	result, err := h.orchestrator.Handle(r.Context(), webhook.Delivery{
		ID:        deliveryID,
		Body:      body,
		Signature: r.Header.Get(webhook.HeaderSignature),
		Event:     r.Header.Get(webhook.HeaderEvent),
	})
	if err != nil {
		h.writeAppError(w, errors.AsAppError(err))
		return
	}

	if result.Status != models.StatusReviewQueued {
		h.writeJSON(w, &models.DeliveryResponse{ReviewResult: result}, http.StatusOK)
		return
	}

	// Dispatch problems are reported in the body; GitHub only sees a
	// failed delivery for authentication and payload errors.
	outcome := h.relay.Dispatch(r.Context(), result)
	if outcome.SkippedReason != "" {
		log.Warnf("Delivery for %s@%s not reviewed: %s", result.Repo, result.Commit, outcome.SkippedReason)
	} else {
		log.Infof("Delivery for %s@%s handled (review_sent=%t)", result.Repo, result.Commit, outcome.ReviewSent)
	}
	h.writeJSON(w, &models.DeliveryResponse{ReviewResult: result, Dispatch: outcome}, http.StatusOK)
}
