package api

import (
	"errors"
	"net/http"

	"github.com/okian/cardsections/internal/domain/model"
	"github.com/okian/cardsections/internal/domain/recorder"
)

type selectionRequest struct {
	ArticleID string                       `json:"article_id"`
	Keywords  []string                     `json:"keywords"`
	Sections  []model.SectionRef           `json:"sections"`
	Scores    map[model.SectionRef]float64 `json:"scores"`
}

type selectionResponse struct {
	Status    string `json:"status"`
	ArticleID string `json:"article_id"`
	Warning   string `json:"warning,omitempty"`
}

// SelectionsHandler handles selection recording requests.
type SelectionsHandler struct {
	deps SelectionDependencies
}

// NewSelectionsHandler creates a new selections handler.
func NewSelectionsHandler(deps SelectionDependencies) *SelectionsHandler {
	return &SelectionsHandler{deps: deps}
}

// HandlePostSelection handles POST /selections requests. A storage failure
// still answers 202: the outcome was accepted, analytics were not kept.
func (h *SelectionsHandler) HandlePostSelection(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_selection"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req selectionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	id, err := h.deps.Record(r.Context(), recorder.Input{
		ArticleID: req.ArticleID,
		Keywords:  req.Keywords,
		Sections:  req.Sections,
		Scores:    req.Scores,
	})
	var warn *recorder.Warning
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, selectionResponse{Status: "recorded", ArticleID: id})
	case recorder.IsDuplicate(err):
		writeJSON(w, http.StatusOK, selectionResponse{Status: "duplicate", ArticleID: id})
	case errors.As(err, &warn):
		writeJSON(w, http.StatusAccepted, selectionResponse{Status: "degraded", ArticleID: id, Warning: warn.Error()})
	default:
		writeJSON(w, http.StatusAccepted, selectionResponse{Status: "degraded", ArticleID: id, Warning: err.Error()})
	}
}
