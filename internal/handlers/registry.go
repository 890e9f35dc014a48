package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nahidhasan98/review-relay/internal/errors"
	"github.com/nahidhasan98/review-relay/internal/models"
)

// ListMappings handles GET /registry with optional limit and offset
func (h *Handler) ListMappings(w http.ResponseWriter, r *http.Request) {
	page, appErr := h.validator.ParsePage(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if appErr != nil {
		h.writeAppError(w, appErr)
		return
	}

	mappings, err := h.registry.List(r.Context())
	if err != nil {
		h.writeAppError(w, errors.DatabaseError(err))
		return
	}

	h.writeJSON(w, page.Apply(mappings), http.StatusOK)
}

// RegisterMapping handles POST /registry
func (h *Handler) RegisterMapping(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeAppError(w, errors.InvalidRequest("Invalid request body: "+err.Error()))
		return
	}

	if appErr := h.validator.ValidateRegisterRequest(&req); appErr != nil {
		h.writeAppError(w, appErr)
		return
	}

	if err := h.registry.Put(r.Context(), req.RepoID, req.ChatID); err != nil {
		h.writeAppError(w, errors.DatabaseError(err))
		return
	}

	h.log.Infof("Repository %d registered for chat %d", req.RepoID, req.ChatID)
	h.writeJSON(w, &models.RepoChatMapping{RepoID: req.RepoID, ChatID: req.ChatID}, http.StatusCreated)
}

// GetMapping handles GET /registry/{repo_id}
func (h *Handler) GetMapping(w http.ResponseWriter, r *http.Request) {
	repoID, appErr := h.validator.ParseRepoID(r.PathValue("repo_id"))
	if appErr != nil {
		h.writeAppError(w, appErr)
		return
	}

	chat, err := h.registry.Get(r.Context(), repoID)
	if err != nil {
		h.writeAppError(w, errors.DatabaseError(err))
		return
	}
	if chat.IsNone() {
		h.writeAppError(w, errors.RepoNotRegistered(repoID))
		return
	}

	h.writeJSON(w, &models.RepoChatMapping{RepoID: repoID, ChatID: chat.UnwrapOr(0)}, http.StatusOK)
}
