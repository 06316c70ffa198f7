package api

import "net/http"

type rebuildResponse struct {
	Events int `json:"events"`
}

// RebuildHandler handles aggregate rebuild requests.
type RebuildHandler struct {
	deps RebuildDependencies
}

// NewRebuildHandler creates a new rebuild handler.
func NewRebuildHandler(deps RebuildDependencies) *RebuildHandler {
	return &RebuildHandler{deps: deps}
}

// HandleRebuild handles POST /admin/rebuild requests.
func (h *RebuildHandler) HandleRebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	n, err := h.deps.Rebuild(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage_error", err)
		return
	}
	writeJSON(w, http.StatusOK, rebuildResponse{Events: n})
}
