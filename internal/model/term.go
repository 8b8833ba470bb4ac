package model

import "time"

// MatchType determines how a dictionary term is applied to a transcript.
type MatchType string

const (
	MatchPhrase MatchType = "phrase"
	MatchRegex  MatchType = "regex"
	MatchStem   MatchType = "stem"
)

// DictionaryTerm is a weighted pattern from a versioned dictionary. Terms are
// immutable within a version; edits land as a new version.
type DictionaryTerm struct {
	ID         int64     `json:"id"`
	DictCode   string    `json:"dict_code"`
	Term       string    `json:"term"`
	MatchType  MatchType `json:"match_type"`
	Weight     float64   `json:"weight"`
	IsNegative bool      `json:"is_negative"`
	IsActive   bool      `json:"is_active"`
	Version    string    `json:"version"`
}

// DictionaryHit is one term firing against one call transcript. Append-only;
// the weight optimizer aggregates these later.
type DictionaryHit struct {
	HistoryID   int64     `json:"history_id"`
	DictCode    string    `json:"dict_code"`
	Term        string    `json:"term"`
	MatchType   MatchType `json:"match_type"`
	Weight      float64   `json:"weight"`
	HitCount    int       `json:"hit_count"`
	Snippet     string    `json:"snippet"`
	IsNegative  bool      `json:"is_negative"`
	DictVersion string    `json:"dict_version"`
	DetectedAt  time.Time `json:"detected_at"`
}

// Impact is the weighted contribution of this hit before any category scaling.
func (h *DictionaryHit) Impact() float64 {
	return h.Weight * float64(h.HitCount)
}
