package api

import (
	"net/http"

	"github.com/okian/cardsections/internal/domain/model"
)

type optimizeRequest struct {
	Keywords         []string `json:"keywords"`
	BaselineSections []any    `json:"baseline_sections"`
}

type optimizeResponse struct {
	Sections []model.SectionRef          `json:"sections"`
	Reasons  map[model.SectionRef]string `json:"reasons"`
}

// OptimizeHandler handles optimize requests.
type OptimizeHandler struct {
	deps OptimizeDependencies
}

// NewOptimizeHandler creates a new optimize handler.
func NewOptimizeHandler(deps OptimizeDependencies) *OptimizeHandler {
	return &OptimizeHandler{deps: deps}
}

// HandleOptimize handles POST /optimize requests. Malformed baseline entries
// are dropped by the optimizer; only an unparsable body is rejected.
func (h *OptimizeHandler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	const op = "api.optimize"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req optimizeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	res := h.deps.Optimize(r.Context(), req.Keywords, req.BaselineSections)
	writeJSON(w, http.StatusOK, optimizeResponse{Sections: res.Sections, Reasons: res.Reasons})
}
