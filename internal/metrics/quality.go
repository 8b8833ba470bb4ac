package metrics

import (
	"github.com/velmed/callscore/internal/model"
)

// Metric codes, quality group.
const (
	CodeNormalizedCallScore    = "normalized_call_score"
	CodeChecklistCoverageRatio = "checklist_coverage_ratio"
	CodeScriptRiskIndex        = "script_risk_index"
)

// Quality computes assessment-derived metrics. Calls without any score record
// or raw score emit null payloads rather than fabricated values.
func Quality(call *model.CallRecord, score *model.ScoreRecord) []model.MetricDraft {
	drafts := make([]model.MetricDraft, 0, 3)

	if s, ok := call.Score(score); ok {
		drafts = append(drafts,
			model.NumericDraft(CodeNormalizedCallScore, model.GroupQuality, s*10),
			model.NumericDraft(CodeScriptRiskIndex, model.GroupQuality, scriptRisk(call, s)),
		)
	} else {
		drafts = append(drafts,
			model.MetricDraft{Code: CodeNormalizedCallScore, Group: model.GroupQuality, Kind: model.KindNumeric, Method: model.MethodRule},
			model.MetricDraft{Code: CodeScriptRiskIndex, Group: model.GroupQuality, Kind: model.KindNumeric, Method: model.MethodRule},
		)
	}

	if score != nil && score.Checklist != nil {
		ratio := *score.Checklist / 10
		if ratio < 0 {
			ratio = 0
		}
		if ratio > 1 {
			ratio = 1
		}
		drafts = append(drafts, model.NumericDraft(CodeChecklistCoverageRatio, model.GroupQuality, ratio))
	} else {
		drafts = append(drafts, model.MetricDraft{Code: CodeChecklistCoverageRatio, Group: model.GroupQuality, Kind: model.KindNumeric, Method: model.MethodRule})
	}

	return drafts
}

// scriptRisk grows as the assessed score falls, with a surcharge for calls the
// platform already labelled complaints.
func scriptRisk(call *model.CallRecord, score float64) float64 {
	risk := (10 - score) * 10
	if call.Category == model.CategoryComplaint {
		risk += 10
	}
	if risk < 0 {
		risk = 0
	}
	if risk > 100 {
		risk = 100
	}
	return risk
}
