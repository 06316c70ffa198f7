// Package section resolves the loosely shaped section values callers pass in
// into canonical section ids.
//
// A baseline section may arrive as a bare id, as an (id, score) pair, or as a
// small record carrying an id-like key. All of them are resolved once, here,
// into model.SectionRef; nothing downstream inspects shapes.
package section

import (
	"strings"

	"github.com/okian/cardsections/internal/domain/model"
)

// Kind tags which input shape a Ref was resolved from.
type Kind int

const (
	KindPlain Kind = iota + 1
	KindPair
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindPair:
		return "pair"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Ref is a resolved section value. Score is set only for pairs that carried
// a numeric second element.
type Ref struct {
	Kind     Kind
	ID       model.SectionRef
	Score    float64
	HasScore bool
}

// idKeys are checked in order on record-shaped values.
var idKeys = []string{"id", "section_id", "section", "name"}

// Parse resolves a single value into a Ref. Any unsupported shape or an empty
// id yields a *ValidationError.
func Parse(v any) (Ref, error) {
	switch val := v.(type) {
	case Ref:
		return checkID(val.Kind, string(val.ID), val, v)
	case *Ref:
		if val == nil {
			return Ref{}, invalid(v, "nil ref")
		}
		return checkID(val.Kind, string(val.ID), *val, v)
	case string:
		return checkID(KindPlain, val, Ref{}, v)
	case model.SectionRef:
		return checkID(KindPlain, string(val), Ref{}, v)
	case []string:
		if len(val) < 2 {
			return Ref{}, invalid(v, "pair needs at least two elements")
		}
		return checkID(KindPair, val[0], Ref{}, v)
	case []any:
		return parsePair(val, v)
	case map[string]any:
		for _, key := range idKeys {
			if raw, ok := val[key]; ok {
				id, ok := raw.(string)
				if !ok {
					return Ref{}, invalid(v, "record id is not a string")
				}
				return checkID(KindRecord, id, Ref{}, v)
			}
		}
		return Ref{}, invalid(v, "record has no id key")
	case map[string]string:
		for _, key := range idKeys {
			if id, ok := val[key]; ok {
				return checkID(KindRecord, id, Ref{}, v)
			}
		}
		return Ref{}, invalid(v, "record has no id key")
	case nil:
		return Ref{}, invalid(v, "nil value")
	default:
		return Ref{}, invalid(v, "unsupported shape")
	}
}

func parsePair(val []any, orig any) (Ref, error) {
	if len(val) < 2 {
		return Ref{}, invalid(orig, "pair needs at least two elements")
	}
	var id string
	switch first := val[0].(type) {
	case string:
		id = first
	case model.SectionRef:
		id = string(first)
	default:
		return Ref{}, invalid(orig, "pair id is not a string")
	}
	ref := Ref{}
	if score, ok := toFloat(val[1]); ok {
		ref.Score = score
		ref.HasScore = true
	}
	return checkID(KindPair, id, ref, orig)
}

func checkID(kind Kind, id string, ref Ref, orig any) (Ref, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Ref{}, invalid(orig, "empty id")
	}
	if kind == 0 {
		kind = KindPlain
	}
	ref.Kind = kind
	ref.ID = model.SectionRef(id)
	return ref, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

// Normalize resolves values into canonical ids, preserving first-seen order
// and dropping duplicates. Rejected values are reported to reject when it is
// non-nil; they never cause a failure.
func Normalize(values []any, reject func(*ValidationError)) []model.SectionRef {
	out := make([]model.SectionRef, 0, len(values))
	seen := make(map[model.SectionRef]struct{}, len(values))
	for _, v := range values {
		ref, err := Parse(v)
		if err != nil {
			if ve, ok := err.(*ValidationError); ok && reject != nil {
				reject(ve)
			}
			continue
		}
		if _, dup := seen[ref.ID]; dup {
			continue
		}
		seen[ref.ID] = struct{}{}
		out = append(out, ref.ID)
	}
	return out
}
