package handlers

import (
	"net/http"

	"github.com/nahidhasan98/review-relay/internal/errors"
)

// GetGroups lists the WhatsApp groups of the linked device so their chat
// ids can be registered.
func (h *Handler) GetGroups(w http.ResponseWriter, r *http.Request) {
	lister, ok := h.notifier.(GroupLister)
	if !ok {
		h.writeAppError(w, errors.New(errors.ErrCodeNotFound, "Group listing needs the whatsapp notifier"))
		return
	}

	groups, err := lister.Groups(r.Context())
	if err != nil {
		h.writeAppError(w, errors.AsAppError(err))
		return
	}

	h.writeJSON(w, groups, http.StatusOK)
}
