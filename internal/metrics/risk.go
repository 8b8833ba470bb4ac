package metrics

import (
	"github.com/velmed/callscore/internal/complaint"
	"github.com/velmed/callscore/internal/model"
)

// Metric codes, risk group.
const (
	CodeComplaintFlag  = "complaint_flag"
	CodeComplaintScore = "complaint_score"
	CodeChurnRisk      = "churn_risk"
)

// Churn levels.
const (
	ChurnHigh   = "high"
	ChurnMedium = "medium"
	ChurnLow    = "low"
)

// Risk computes complaint and churn metrics. The complaint result is the
// shared one from the engine; this group never re-runs the gate.
func Risk(call *model.CallRecord, res *complaint.Result) []model.MetricDraft {
	level, churn := churnRisk(call)

	drafts := []model.MetricDraft{
		model.FlagDraft(CodeComplaintFlag, model.GroupRisk, res.Flag),
		model.NumericDraft(CodeComplaintScore, model.GroupRisk, res.Score),
		model.LabelDraft(CodeChurnRisk, model.GroupRisk, level, &churn),
	}

	if len(res.Reasons) > 0 || len(res.CategoryBreakdown) > 0 {
		drafts = append(drafts, model.JSONDraft("complaint_context", model.GroupRisk, map[string]any{
			"reasons":            res.Reasons,
			"gated":              res.Gated,
			"gate_reason":        res.GateReason,
			"category_breakdown": res.CategoryBreakdown,
		}))
	}
	return drafts
}

// churnScore looks the call up in the category/outcome table.
func churnScore(call *model.CallRecord) float64 {
	switch call.Category {
	case model.CategoryCancellation:
		return 80
	case model.CategoryComplaint:
		return 75
	case model.CategoryReschedule:
		return 50
	}
	switch call.Outcome {
	case model.OutcomeCancel:
		return 80
	case model.OutcomeBooked:
		return 10
	case model.OutcomeLeadNoBooking:
		return 40
	case model.OutcomeInfoOnly:
		return 20
	}
	return 30
}

func churnRisk(call *model.CallRecord) (string, float64) {
	score := churnScore(call)
	switch {
	case score >= 70:
		return ChurnHigh, score
	case score >= 40:
		return ChurnMedium, score
	default:
		return ChurnLow, score
	}
}
