package metrics

import (
	"strings"

	"github.com/velmed/callscore/internal/model"
)

// Metric codes, conversion group.
const (
	CodeConversionScore    = "conversion_score"
	CodeLostOpportunity    = "lost_opportunity"
	CodeCrossSellPotential = "cross_sell_potential"
)

// Loss categories resolved by the fallback chain.
const (
	LossPrice       = "price"
	LossSchedule    = "schedule"
	LossCompetitor  = "competitor"
	LossNoService   = "no_service"
	LossUndecided   = "undecided"
	LossUnspecified = "unspecified"
	LossNone        = "none"
)

// Conversion computes outcome-driven conversion metrics.
func Conversion(call *model.CallRecord, score *model.ScoreRecord) []model.MetricDraft {
	lost, lossCategory := lostOpportunity(call, score)
	return []model.MetricDraft{
		model.NumericDraft(CodeConversionScore, model.GroupConversion, conversionScore(call)),
		model.LabelDraft(CodeLostOpportunity, model.GroupConversion, lossCategory, &lost),
		model.NumericDraft(CodeCrossSellPotential, model.GroupConversion, crossSellPotential(call)),
	}
}

func conversionScore(call *model.CallRecord) float64 {
	switch {
	case call.Outcome == model.OutcomeBooked:
		return 100
	case call.Outcome == model.OutcomeLeadNoBooking:
		return 50
	case call.Category == model.CategoryInformational, call.Category == model.CategoryNavigation:
		return 20
	default:
		return 0
	}
}

// lostOpportunity activates only for target calls that did not book. Base 60,
// plus up to 30 for signs the lead was genuinely engaged.
func lostOpportunity(call *model.CallRecord, score *model.ScoreRecord) (float64, string) {
	if !call.IsTarget || call.Outcome == model.OutcomeBooked {
		return 0, LossNone
	}

	v := 60.0
	if call.TalkDuration >= 60 {
		v += 15
	}
	if s, ok := call.Score(score); ok && s >= 7 {
		v += 15
	}
	return v, lossCategory(call, score)
}

// lossCodeCategories maps coded refusal enums onto loss categories; the second
// tier of the fallback chain.
var lossCodeCategories = map[string]string{
	"PRICE_TOO_HIGH":                    LossPrice,
	"NO_SLOTS":                          LossSchedule,
	"INCONVENIENT_TIME":                 LossSchedule,
	"CHOSE_COMPETITOR":                  LossCompetitor,
	model.RefusalCodeServiceNotProvided: LossNoService,
	"WILL_THINK":                        LossUndecided,
}

var lossKeywords = []struct {
	category string
	words    []string
}{
	{LossPrice, []string{"expensive", "price", "cost", "cheaper", "afford"}},
	{LossSchedule, []string{"no slots", "no time", "schedule", "inconvenient", "too late", "too early"}},
	{LossCompetitor, []string{"competitor", "another clinic", "somewhere else", "other place"}},
	{LossNoService, []string{"service not provided", "don't offer", "do not offer", "not available"}},
	{LossUndecided, []string{"think about it", "call back later", "not sure", "maybe"}},
}

// lossCategory resolves the loss reason through a 4-tier fallback chain:
// explicit group field, coded enum, keywords over the structured refusal
// reason, keywords over free-text result notes.
func lossCategory(call *model.CallRecord, score *model.ScoreRecord) string {
	if score != nil && score.LossGroup != "" {
		return score.LossGroup
	}
	code := call.RefusalCode
	if code == "" && score != nil {
		code = score.LossCode
	}
	if cat, ok := lossCodeCategories[strings.ToUpper(code)]; ok {
		return cat
	}
	if cat := matchLossKeywords(call.RefusalReason); cat != "" {
		return cat
	}
	if score != nil {
		if cat := matchLossKeywords(score.ResultNotes); cat != "" {
			return cat
		}
	}
	return LossUnspecified
}

func matchLossKeywords(text string) string {
	if text == "" {
		return ""
	}
	lowered := strings.ToLower(text)
	for _, lk := range lossKeywords {
		for _, w := range lk.words {
			if strings.Contains(lowered, w) {
				return lk.category
			}
		}
	}
	return ""
}

func crossSellPotential(call *model.CallRecord) float64 {
	switch call.Outcome {
	case model.OutcomeBooked:
		if call.TalkDuration >= 60 {
			return 70
		}
		return 50
	case model.OutcomeLeadNoBooking:
		return 30
	default:
		return 0
	}
}
