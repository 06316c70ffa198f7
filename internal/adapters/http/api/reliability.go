package api

import (
	"net/http"
	"strings"

	"github.com/okian/cardsections/internal/domain/model"
	"github.com/okian/cardsections/internal/domain/reliability"
)

// ReliabilityHandler handles reliability queries.
type ReliabilityHandler struct {
	deps ReliabilityDependencies
}

// NewReliabilityHandler creates a new reliability handler.
func NewReliabilityHandler(deps ReliabilityDependencies) *ReliabilityHandler {
	return &ReliabilityHandler{deps: deps}
}

// HandleGetReliability handles GET /reliability/{section_id} requests.
// Unknown sections report zero reliability rather than 404.
func (h *ReliabilityHandler) HandleGetReliability(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_reliability"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/reliability/"))
	if id == "" {
		h.HandleReport(w, r)
		return
	}
	if strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not_found", wrapKind(op, ErrNotFound, nil))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Reliability(model.SectionRef(id)))
}

type reportResponse struct {
	Sections []reliability.Entry `json:"sections"`
}

// HandleReport handles GET /reliability requests.
func (h *ReliabilityHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	entries := h.deps.ReliabilityReport()
	if entries == nil {
		entries = []reliability.Entry{}
	}
	writeJSON(w, http.StatusOK, reportResponse{Sections: entries})
}
