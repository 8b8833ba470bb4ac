package metrics

import (
	"github.com/velmed/callscore/internal/complaint"
	"github.com/velmed/callscore/internal/model"
)

// Metric codes, forecast group. Forecast values mirror the risk-group
// classification tables as clamped 0.0-1.0 probabilities.
const (
	CodeComplaintProb  = "complaint_prob"
	CodeChurnProb      = "churn_prob"
	CodeConversionProb = "conversion_prob"
	CodeSecondCallProb = "second_call_prob"
)

// Forecast computes probability metrics from the shared complaint result and
// the same lookup tables the risk and conversion groups use.
func Forecast(call *model.CallRecord, res *complaint.Result) []model.MetricDraft {
	return []model.MetricDraft{
		model.NumericDraft(CodeComplaintProb, model.GroupForecast, clampProb(res.Probability())),
		model.NumericDraft(CodeChurnProb, model.GroupForecast, clampProb(churnScore(call)/100)),
		model.NumericDraft(CodeConversionProb, model.GroupForecast, clampProb(conversionScore(call)/100)),
		model.NumericDraft(CodeSecondCallProb, model.GroupForecast, clampProb(secondCallProb(call))),
	}
}

func secondCallProb(call *model.CallRecord) float64 {
	switch call.Category {
	case model.CategoryComplaint:
		return 0.8
	case model.CategoryCancellation, model.CategoryReschedule:
		return 0.7
	}
	switch call.Outcome {
	case model.OutcomeBooked:
		return 0.1
	case model.OutcomeLeadNoBooking:
		return 0.6
	case model.OutcomeInfoOnly:
		return 0.3
	}
	return 0.4
}

func clampProb(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
