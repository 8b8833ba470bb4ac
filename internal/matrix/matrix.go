// Package matrix holds the adaptive complaint weight matrix: thresholds and
// per-category multiplier/bias pairs applied when scoring complaint signals.
// Snapshots are immutable; updates build a new snapshot and swap it atomically.
package matrix

// CategoryParams scales a category's raw score: score*Multiplier + Bias.
type CategoryParams struct {
	Multiplier float64 `json:"multiplier"`
	Bias       float64 `json:"bias"`
}

// Document is the wire/storage shape of a matrix. It is what gets persisted
// and what the optimizer produces.
type Document struct {
	Thresholds map[string]float64        `json:"thresholds"`
	Categories map[string]CategoryParams `json:"categories"`
}

// Snapshot is an immutable view of a weight matrix. All lookup methods are
// safe for concurrent use; there are no mutating methods.
type Snapshot struct {
	thresholds map[string]float64
	categories map[string]CategoryParams
}

// ThresholdComplaintScore is the key for the complaint gate threshold.
const ThresholdComplaintScore = "complaint_score"

// Default returns the built-in matrix used when no persisted matrix exists or
// the persisted one fails to load.
func Default() *Snapshot {
	return &Snapshot{
		thresholds: map[string]float64{
			ThresholdComplaintScore: 60,
		},
		categories: map[string]CategoryParams{
			"legal":        {Multiplier: 1.3},
			"behavior":     {Multiplier: 1.2},
			"process":      {Multiplier: 1.1},
			"refund":       {Multiplier: 1.4},
			"info_request": {Multiplier: 0.0},
			"spam":         {Multiplier: -2.0},
		},
	}
}

// FromDocument builds a snapshot from a persisted document, layering it over
// the defaults so a partial document never loses built-in entries.
func FromDocument(doc Document) *Snapshot {
	s := Default().clone()
	for k, v := range doc.Thresholds {
		s.thresholds[k] = v
	}
	for k, v := range doc.Categories {
		s.categories[k] = v
	}
	return s
}

// Document exports the snapshot in its storage shape.
func (s *Snapshot) Document() Document {
	doc := Document{
		Thresholds: make(map[string]float64, len(s.thresholds)),
		Categories: make(map[string]CategoryParams, len(s.categories)),
	}
	for k, v := range s.thresholds {
		doc.Thresholds[k] = v
	}
	for k, v := range s.categories {
		doc.Categories[k] = v
	}
	return doc
}

// Threshold returns the named threshold, or fallback when it is absent.
func (s *Snapshot) Threshold(key string, fallback float64) float64 {
	if v, ok := s.thresholds[key]; ok {
		return v
	}
	return fallback
}

// Category returns the scaling parameters for a category. Unknown categories
// get the identity transform so new categories score unscaled rather than
// being dropped.
func (s *Snapshot) Category(name string) CategoryParams {
	if p, ok := s.categories[name]; ok {
		return p
	}
	return CategoryParams{Multiplier: 1}
}

// Apply scales a raw category score through the matrix.
func (s *Snapshot) Apply(category string, v float64) float64 {
	p := s.Category(category)
	return v*p.Multiplier + p.Bias
}

// WithThreshold returns a new snapshot with one threshold changed.
func (s *Snapshot) WithThreshold(key string, v float64) *Snapshot {
	out := s.clone()
	out.thresholds[key] = v
	return out
}

// WithCategory returns a new snapshot with one category changed.
func (s *Snapshot) WithCategory(name string, p CategoryParams) *Snapshot {
	out := s.clone()
	out.categories[name] = p
	return out
}

func (s *Snapshot) clone() *Snapshot {
	out := &Snapshot{
		thresholds: make(map[string]float64, len(s.thresholds)),
		categories: make(map[string]CategoryParams, len(s.categories)),
	}
	for k, v := range s.thresholds {
		out.thresholds[k] = v
	}
	for k, v := range s.categories {
		out.categories[k] = v
	}
	return out
}
