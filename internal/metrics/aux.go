package metrics

import (
	"strings"
	"time"

	"github.com/velmed/callscore/internal/model"
)

// Metric codes, aux group.
const (
	CodeFollowupNeeded   = "followup_needed"
	CodeCalcProfile      = "calc_profile"
	CodeEngineVersionTag = "engine_version_tag"
)

// Calc profiles selected by call time.
const (
	ProfileDefault    = "default_v1"
	ProfileNightShift = "night_shift_v1"
	ProfileWeekend    = "weekend_v1"
)

// Aux computes the follow-up recommendation and bookkeeping tags.
func Aux(call *model.CallRecord, score *model.ScoreRecord, engineVersion string) []model.MetricDraft {
	needed, reasons := followupNeeded(call, score)

	drafts := []model.MetricDraft{
		model.FlagDraft(CodeFollowupNeeded, model.GroupAux, needed),
		model.LabelDraft(CodeCalcProfile, model.GroupAux, CalcProfile(call.CallDate), nil),
		model.LabelDraft(CodeEngineVersionTag, model.GroupAux, engineVersion, nil),
	}
	if needed {
		drafts = append(drafts, model.JSONDraft("followup_reasons", model.GroupAux, reasons))
	}
	return drafts
}

// CalcProfile picks the scoring profile by call time: night shift wins over
// weekend when both apply.
func CalcProfile(t time.Time) string {
	h := t.Hour()
	if h >= 22 || h < 6 {
		return ProfileNightShift
	}
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return ProfileWeekend
	}
	return ProfileDefault
}

// callSuccessDeny are assessment flags that make a follow-up pointless.
var callSuccessDeny = map[string]bool{
	"failed":     true,
	"no_contact": true,
	"dropped":    true,
}

// refusalGroupDeny are refusal classifications that exclude a follow-up.
var refusalGroupDeny = map[string]bool{
	"spam":         true,
	"wrong_number": true,
	"no_service":   true,
}

// followupTemplates turn allowed refusal codes into concrete follow-up reasons.
var followupTemplates = map[string]string{
	"WILL_THINK":        "caller is undecided, needs a nudge",
	"INCONVENIENT_TIME": "offer a more convenient time",
	"NO_SLOTS":          "offer a slot when one opens",
	"PRICE_TOO_HIGH":    "discuss pricing options",
}

// followupIntents are transcript phrases that signal the caller expects
// another contact.
var followupIntents = []string{
	"call me back",
	"call back",
	"call later",
	"call me tomorrow",
	"think about it",
	"i'll think",
	"i will think",
	"send me the details",
}

// followupNeeded runs the AND-gates, then accumulates reasons. Gates passing
// with zero reasons is still a negative: a follow-up recommendation without a
// stated reason is useless to the operator.
func followupNeeded(call *model.CallRecord, score *model.ScoreRecord) (bool, []string) {
	if call.Category == model.CategorySpam || call.Category == model.CategoryAutoResponse {
		return false, nil
	}
	if score == nil || !score.LiveVoice {
		return false, nil
	}
	if call.TalkDuration < 15 {
		return false, nil
	}
	if callSuccessDeny[score.CallSuccess] {
		return false, nil
	}
	if !call.IsTarget && call.Category != model.CategoryLead {
		return false, nil
	}
	if strings.EqualFold(call.RefusalCode, model.RefusalCodeServiceNotProvided) ||
		refusalGroupDeny[call.RefusalGroup] {
		return false, nil
	}

	var reasons []string
	if tmpl, ok := followupTemplates[strings.ToUpper(call.RefusalCode)]; ok {
		reasons = append(reasons, tmpl)
	}
	lowered := strings.ToLower(call.Transcript)
	for _, intent := range followupIntents {
		if strings.Contains(lowered, intent) {
			reasons = append(reasons, "caller asked for contact: "+intent)
			break
		}
	}
	if call.Category == model.CategoryLead && call.Outcome != model.OutcomeBooked {
		reasons = append(reasons, "lead without booking")
	}
	if call.Outcome != model.OutcomeBooked && call.Outcome != model.OutcomeLeadNoBooking {
		reasons = append(reasons, "live conversation ended without a lead outcome")
	}
	if call.IsTarget && call.Outcome != model.OutcomeBooked {
		reasons = append(reasons, "target call without booking")
	}

	if len(reasons) == 0 {
		return false, nil
	}
	return true, reasons
}
