package handler

import (
	"net/http"

	"github.com/nardwin/platform/internal/presence"
)

// PresenceHandler exposes the online-session registry.
type PresenceHandler struct {
	registry *presence.Registry
}

// NewPresenceHandler creates a new PresenceHandler.
func NewPresenceHandler(registry *presence.Registry) *PresenceHandler {
	return &PresenceHandler{registry: registry}
}

// Heartbeat handles POST /presence/heartbeat.
func (h *PresenceHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	h.registry.Heartbeat(userID)
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Disconnect handles DELETE /presence.
func (h *PresenceHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	h.registry.Disconnect(userID)
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Online handles GET /presence/online.
func (h *PresenceHandler) Online(w http.ResponseWriter, r *http.Request) {
	if _, err := userIDFromContext(r); err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"online": h.registry.Online()})
}
