// Package complaint implements the gated complaint risk engine: a hard gate,
// four core-signal detectors over transcript keywords and dictionary hits, and
// a weighted score shared by the risk and forecast metric groups.
package complaint

// Core signal names. The fixed weight of each signal is what the score sums;
// dictionary-hit impacts only feed the diagnostic category breakdown.
const (
	SignalComplaintPhrase      = "complaint_phrase"
	SignalNegativeEmotion      = "negative_emotion"
	SignalDialogConflict       = "dialog_conflict"
	SignalExpectationViolation = "expectation_violation"
)

// signalWeights are the fixed per-signal contributions, capped at 100 overall.
var signalWeights = map[string]float64{
	SignalComplaintPhrase:      70,
	SignalNegativeEmotion:      30,
	SignalDialogConflict:       20,
	SignalExpectationViolation: 40,
}

// complaintPhrases are explicit complaint statements.
var complaintPhrases = []string{
	"i want to complain",
	"i am filing a complaint",
	"file a complaint",
	"formal complaint",
	"report this to management",
	"speak to your manager",
	"speak to a supervisor",
	"refund my money",
	"i want my money back",
	"give me my money back",
	"i demand a refund",
	"this is unacceptable",
	"i will sue",
	"my lawyer",
	"consumer protection",
	"leave a review about this",
}

// negativeEmotionWords signal frustration or hostility without an explicit
// complaint statement.
var negativeEmotionWords = []string{
	"terrible",
	"awful",
	"horrible",
	"disgusting",
	"outrageous",
	"furious",
	"fed up",
	"sick of",
	"ridiculous",
	"worst",
	"never again",
	"waste of time",
	"disappointed",
}

// conflictPhrases mark dialog escalation between the parties.
var conflictPhrases = []string{
	"don't interrupt",
	"do not interrupt",
	"let me finish",
	"stop talking over me",
	"you are not listening",
	"you're not listening",
	"are you even listening",
	"don't you dare",
	"raise your voice",
	"stop shouting",
	"i said no",
}

// expectationPhrases mark broken promises and unmet commitments.
var expectationPhrases = []string{
	"you promised",
	"was promised",
	"you said it would",
	"nobody called me back",
	"no one called me back",
	"still waiting",
	"second time i call",
	"third time i call",
	"again the same problem",
	"was supposed to",
	"you guaranteed",
	"didn't show up",
	"did not show up",
}

// neutralClosings are polite wrap-up phrases. When one appears and no
// complaint-phrase or expectation-violation signal fired, the call is treated
// as having no complaint signal at all.
var neutralClosings = []string{
	"thank you, goodbye",
	"thanks, goodbye",
	"thank you for your help",
	"thanks for your help",
	"have a nice day",
	"have a good day",
	"all good, thanks",
	"no complaints",
	"everything is fine",
}

// sensitiveSources are call-source tags fed by external review channels.
// Complaints arriving from these get a small score bump.
var sensitiveSources = map[string]bool{
	"external_review": true,
	"review_site":     true,
	"regulator":       true,
	"social_media":    true,
}
