package model

import (
	"encoding/json"
	"math"
	"time"
)

// Metric groups.
const (
	GroupOperational = "operational"
	GroupConversion  = "conversion"
	GroupQuality     = "quality"
	GroupRisk        = "risk"
	GroupForecast    = "forecast"
	GroupAux         = "aux"
)

// Calculation methods.
const (
	MethodRule = "rule"
	MethodMeta = "meta"
)

// NumericLimit bounds every persisted numeric metric value.
const NumericLimit = 999999.9999

// ValueKind names the logical payload of a metric draft. Exactly one kind
// applies per metric code; consumers switch on it exhaustively.
type ValueKind int

const (
	KindNumeric ValueKind = iota
	KindLabel
	KindFlag
	KindJSON
)

func (k ValueKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindLabel:
		return "label"
	case KindFlag:
		return "flag"
	case KindJSON:
		return "json"
	default:
		return "unknown"
	}
}

// MetricDraft is one computed metric for one call, before persistence.
// Label and flag kinds keep a numeric mirror so aggregate SQL stays simple;
// the kind tag remains authoritative for which payload is meaningful.
type MetricDraft struct {
	Code    string
	Group   string
	Kind    ValueKind
	Numeric *float64
	Label   string
	JSON    json.RawMessage
	Method  string
}

// NumericDraft builds a numeric metric, clamping to NumericLimit and rejecting
// NaN/Inf to a null payload.
func NumericDraft(code, group string, v float64) MetricDraft {
	d := MetricDraft{Code: code, Group: group, Kind: KindNumeric, Method: MethodRule}
	if n, ok := NormalizeNumeric(v); ok {
		d.Numeric = &n
	}
	return d
}

// LabelDraft builds a label metric with an optional numeric mirror.
func LabelDraft(code, group, label string, mirror *float64) MetricDraft {
	d := MetricDraft{Code: code, Group: group, Kind: KindLabel, Label: label, Method: MethodRule}
	if mirror != nil {
		if n, ok := NormalizeNumeric(*mirror); ok {
			d.Numeric = &n
		}
	}
	return d
}

// FlagDraft builds a boolean metric stored as label "true"/"false" with a 1/0
// numeric mirror.
func FlagDraft(code, group string, set bool) MetricDraft {
	label := "false"
	mirror := 0.0
	if set {
		label = "true"
		mirror = 1.0
	}
	return MetricDraft{Code: code, Group: group, Kind: KindFlag, Label: label, Numeric: &mirror, Method: MethodRule}
}

// JSONDraft builds a metric whose payload is an arbitrary document.
func JSONDraft(code, group string, doc any) MetricDraft {
	d := MetricDraft{Code: code, Group: group, Kind: KindJSON, Method: MethodRule}
	raw, err := json.Marshal(doc)
	if err == nil {
		d.JSON = raw
	}
	return d
}

// NormalizeNumeric clamps v to ±NumericLimit and rounds to 4 decimal places.
// NaN and ±Inf are rejected (ok=false): they persist as NULL, never as a number.
func NormalizeNumeric(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if v > NumericLimit {
		v = NumericLimit
	}
	if v < -NumericLimit {
		v = -NumericLimit
	}
	return math.Round(v*10000) / 10000, true
}

// MetricValue is a persisted metric row, unique per
// (history id, metric code, engine version).
type MetricValue struct {
	ID            int64
	HistoryID     int64
	ScoreID       *int64
	Code          string
	Group         string
	Numeric       *float64
	Label         *string
	JSON          json.RawMessage
	EngineVersion string
	CalcProfile   string
	CalcMethod    string
	CalcSource    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
