package complaint

import "strings"

// Matrix categories a dictionary hit can be classified into. The optimizer
// reclassifies historical hits with the same function, so the two stay in sync
// by construction.
const (
	CategoryLegal       = "legal"
	CategoryRefund      = "refund"
	CategoryBehavior    = "behavior"
	CategoryProcess     = "process"
	CategoryInfoRequest = "info_request"
	CategorySpam        = "spam"
)

var categoryMarkers = []struct {
	category string
	words    []string
}{
	{CategoryLegal, []string{
		"sue", "lawyer", "attorney", "court", "legal", "lawsuit",
		"consumer protection", "regulator", "complaint",
	}},
	{CategoryRefund, []string{
		"refund", "money back", "chargeback", "compensation", "reimburse",
		"overcharged", "double charged",
	}},
	{CategoryBehavior, []string{
		"rude", "yelled", "yelling", "hung up on me", "disrespect",
		"unprofessional", "ignored me", "attitude",
	}},
	{CategoryProcess, []string{
		"waiting", "delay", "late", "reschedule", "nobody called",
		"no one called", "lost my booking", "wrong appointment", "promised",
	}},
	{CategorySpam, []string{
		"unsubscribe", "stop calling", "wrong number", "robocall",
		"advertising", "promotion", "survey",
	}},
}

// ClassifyHitTerm maps a dictionary term's text into a matrix category.
// Anything without a recognizable marker counts as an information request,
// the neutral bucket.
func ClassifyHitTerm(term string) string {
	lowered := strings.ToLower(term)
	for _, m := range categoryMarkers {
		for _, w := range m.words {
			if strings.Contains(lowered, w) {
				return m.category
			}
		}
	}
	return CategoryInfoRequest
}

// signalForCategory maps a matrix category onto the core signal it reinforces.
// Neutral categories reinforce nothing.
func signalForCategory(category string) string {
	switch category {
	case CategoryLegal, CategoryRefund:
		return SignalComplaintPhrase
	case CategoryBehavior:
		return SignalNegativeEmotion
	case CategoryProcess:
		return SignalExpectationViolation
	default:
		return ""
	}
}
