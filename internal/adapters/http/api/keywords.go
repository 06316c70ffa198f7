package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/cardsections/internal/domain/model"
)

// defaultTopN is used when top_n is omitted.
const defaultTopN = 2

type keywordResponse struct {
	Keyword  string                `json:"keyword"`
	Sections []model.ScoredSection `json:"sections"`
}

// KeywordsHandler handles keyword correlation queries.
type KeywordsHandler struct {
	deps KeywordDependencies
}

// NewKeywordsHandler creates a new keywords handler.
func NewKeywordsHandler(deps KeywordDependencies) *KeywordsHandler {
	return &KeywordsHandler{deps: deps}
}

// HandleGetSections handles GET /keywords/{keyword}/sections?top_n=N.
func (h *KeywordsHandler) HandleGetSections(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_keyword_sections"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.EscapedPath(), "/keywords/")
	raw, ok := strings.CutSuffix(rest, "/sections")
	if !ok || raw == "" || strings.Contains(raw, "/") {
		writeError(w, http.StatusNotFound, "not_found", wrapKind(op, ErrNotFound, nil))
		return
	}
	keyword, err := url.PathUnescape(raw)
	if err != nil || strings.TrimSpace(keyword) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, errors.New("invalid keyword")))
		return
	}

	topN := defaultTopN
	if v := r.URL.Query().Get("top_n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, errors.New("top_n must be a positive integer")))
			return
		}
		topN = n
	}

	sections := h.deps.BestSections(keyword, topN)
	if sections == nil {
		sections = []model.ScoredSection{}
	}
	writeJSON(w, http.StatusOK, keywordResponse{Keyword: strings.TrimSpace(keyword), Sections: sections})
}
