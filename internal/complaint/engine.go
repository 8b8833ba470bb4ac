package complaint

import (
	"fmt"
	"strings"

	"github.com/velmed/callscore/internal/matrix"
	"github.com/velmed/callscore/internal/model"
)

// Gate reasons.
const (
	GateTechFailure        = "tech_failure"
	GateShortTranscript    = "short_transcript"
	GateShortCall          = "short_call"
	GateServiceNotProvided = "service_not_provided"
	GateNonTargetTraffic   = "non_target_traffic"
)

const (
	minTalkSeconds     = 15
	longCallSeconds    = 120
	minSentenceUnits   = 2
	longCallBonus      = 5
	sensitiveBonus     = 5
	maxScore           = 100
	neutralCloseReason = "neutral_closing"
)

// Result is the full outcome of one complaint evaluation. The risk group's
// complaint flag and the forecast group's complaint probability both read it,
// so the gate and signal detection run exactly once per call.
type Result struct {
	Score             float64
	Flag              bool
	Gated             bool
	GateReason        string
	Reasons           []string
	Signals           map[string]bool
	Hits              []model.DictionaryHit
	CategoryBreakdown map[string]float64
}

// Probability is the forecast-group view of the score.
func (r *Result) Probability() float64 {
	return r.Score / maxScore
}

// Evaluate runs the gate, signal detection and weighted scoring for one call.
// Dictionary hits are scanned by the caller and passed in; the matrix snapshot
// scales their impacts for the diagnostic breakdown only.
func Evaluate(call *model.CallRecord, hits []model.DictionaryHit, m *matrix.Snapshot) *Result {
	res := &Result{
		Signals:           map[string]bool{},
		Hits:              hits,
		CategoryBreakdown: map[string]float64{},
	}

	if reason := gateReason(call); reason != "" {
		res.Gated = true
		res.GateReason = reason
		res.Reasons = []string{reason}
		return res
	}

	lowered := strings.ToLower(call.Transcript)

	detectPhrases(res, lowered, SignalComplaintPhrase, complaintPhrases)
	detectPhrases(res, lowered, SignalNegativeEmotion, negativeEmotionWords)
	detectPhrases(res, lowered, SignalDialogConflict, conflictPhrases)
	detectPhrases(res, lowered, SignalExpectationViolation, expectationPhrases)

	for i := range hits {
		h := &hits[i]
		category := ClassifyHitTerm(h.Term)
		res.CategoryBreakdown[category] += m.Apply(category, h.Impact())
		if sig := signalForCategory(category); sig != "" && !res.Signals[sig] {
			res.Signals[sig] = true
			res.Reasons = append(res.Reasons, fmt.Sprintf("%s: dictionary term %q (%s)", sig, h.Term, category))
		}
	}

	if len(res.Signals) == 0 {
		return res
	}

	// A polite closing neutralizes soft signals, but never an explicit
	// complaint or a broken-promise signal.
	if hasAny(lowered, neutralClosings) &&
		!res.Signals[SignalComplaintPhrase] && !res.Signals[SignalExpectationViolation] {
		res.Signals = map[string]bool{}
		res.Reasons = []string{neutralCloseReason}
		return res
	}

	var score float64
	for sig := range res.Signals {
		score += signalWeights[sig]
	}
	if call.TalkDuration >= longCallSeconds {
		score += longCallBonus
	}
	if sensitiveSources[call.SourceTag] {
		score += sensitiveBonus
	}
	if score > maxScore {
		score = maxScore
	}

	res.Score = score
	res.Flag = score > 0
	return res
}

func gateReason(call *model.CallRecord) string {
	switch {
	case call.Category == model.CategoryTechFailure:
		return GateTechFailure
	case sentenceUnits(call.Transcript) < minSentenceUnits:
		return GateShortTranscript
	case call.TalkDuration < minTalkSeconds:
		return GateShortCall
	case isServiceNotProvided(call):
		return GateServiceNotProvided
	case call.Outcome == model.OutcomeInfoOnly,
		call.Category == model.CategorySpam,
		call.Category == model.CategoryAutoResponse:
		return GateNonTargetTraffic
	}
	return ""
}

func isServiceNotProvided(call *model.CallRecord) bool {
	if strings.EqualFold(call.RefusalCode, model.RefusalCodeServiceNotProvided) {
		return true
	}
	reason := strings.ToLower(call.RefusalReason)
	return strings.Contains(reason, "service not provided") ||
		strings.Contains(reason, "service was not provided")
}

// sentenceUnits counts sentence-like clauses: pieces delimited by terminal
// punctuation, commas or newlines that contain at least one word.
func sentenceUnits(text string) int {
	units := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '.', '!', '?', ',', ';', ':', '\n':
			return true
		}
		return false
	})
	n := 0
	for _, u := range units {
		if strings.TrimSpace(u) != "" {
			n++
		}
	}
	return n
}

func detectPhrases(res *Result, lowered, signal string, phrases []string) {
	for _, p := range phrases {
		if strings.Contains(lowered, p) {
			res.Signals[signal] = true
			res.Reasons = append(res.Reasons, fmt.Sprintf("%s: %q (%s)", signal, p, ClassifyHitTerm(p)))
		}
	}
}

func hasAny(lowered string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}
