package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velmed/callscore/internal/complaint"
	"github.com/velmed/callscore/internal/matrix"
	"github.com/velmed/callscore/internal/model"
)

func draft(t *testing.T, drafts []model.MetricDraft, code string) model.MetricDraft {
	t.Helper()
	for _, d := range drafts {
		if d.Code == code {
			return d
		}
	}
	t.Fatalf("draft %s not found", code)
	return model.MetricDraft{}
}

func numeric(t *testing.T, drafts []model.MetricDraft, code string) float64 {
	t.Helper()
	d := draft(t, drafts, code)
	require.NotNil(t, d.Numeric, "metric %s has null numeric", code)
	return *d.Numeric
}

func TestOperational_DeadCall(t *testing.T) {
	// talk_duration=0, no outcome
	call := &model.CallRecord{TalkDuration: 0, WaitSeconds: 5}
	drafts := Operational(call)

	rs := draft(t, drafts, CodeResponseSpeed)
	assert.Equal(t, ZoneRed, rs.Label)
	assert.Equal(t, 1.0, *rs.Numeric)
	assert.Equal(t, 0.0, numeric(t, drafts, CodeTalkEfficiency))
	assert.Equal(t, 0.0, numeric(t, drafts, CodeQueueImpactIndex))
}

func TestResponseSpeed_Bands(t *testing.T) {
	tests := []struct {
		wait  float64
		score float64
		zone  string
	}{
		{10, 5, ZoneGreen},
		{25, 4, ZoneGreen},
		{45, 3, ZoneYellow},
		{90, 2, ZoneRed},
		{200, 1, ZoneRed},
	}
	for _, tt := range tests {
		call := &model.CallRecord{TalkDuration: 60, WaitSeconds: tt.wait}
		score, zone := responseSpeed(call)
		assert.Equal(t, tt.score, score, "wait=%v", tt.wait)
		assert.Equal(t, tt.zone, zone, "wait=%v", tt.wait)
	}
}

func TestTalkEfficiency(t *testing.T) {
	assert.Equal(t, 0.0, talkEfficiency(-3))
	assert.Equal(t, 0.0, talkEfficiency(0))
	assert.Equal(t, 40.0, talkEfficiency(20))
	assert.Equal(t, 30.0, talkEfficiency(90))
	assert.Equal(t, 100.0, talkEfficiency(600))
}

func TestConversion_BookedTarget(t *testing.T) {
	// outcome=booked, target=true
	call := &model.CallRecord{Outcome: model.OutcomeBooked, IsTarget: true, TalkDuration: 120}
	drafts := Conversion(call, nil)

	assert.Equal(t, 100.0, numeric(t, drafts, CodeConversionScore))
	assert.Equal(t, 0.0, numeric(t, drafts, CodeLostOpportunity))
	assert.Equal(t, LossNone, draft(t, drafts, CodeLostOpportunity).Label)

	riskDrafts := Risk(call, &complaint.Result{})
	churn := draft(t, riskDrafts, CodeChurnRisk)
	assert.Equal(t, ChurnLow, churn.Label)
	assert.Equal(t, 10.0, *churn.Numeric)
}

func TestConversionScore_Table(t *testing.T) {
	assert.Equal(t, 50.0, conversionScore(&model.CallRecord{Outcome: model.OutcomeLeadNoBooking}))
	assert.Equal(t, 20.0, conversionScore(&model.CallRecord{Category: model.CategoryInformational}))
	assert.Equal(t, 20.0, conversionScore(&model.CallRecord{Category: model.CategoryNavigation}))
	assert.Equal(t, 0.0, conversionScore(&model.CallRecord{Outcome: model.OutcomeCancel}))
}

func TestLostOpportunity_EngagedLead(t *testing.T) {
	q := 8.0
	call := &model.CallRecord{
		Outcome:      model.OutcomeLeadNoBooking,
		IsTarget:     true,
		TalkDuration: 90,
		QualityScore: &q,
	}
	v, cat := lostOpportunity(call, nil)
	assert.Equal(t, 90.0, v) // 60 base + 15 duration + 15 quality
	assert.Equal(t, LossUnspecified, cat)
}

func TestLossCategory_FallbackChain(t *testing.T) {
	call := &model.CallRecord{
		Outcome:       model.OutcomeLeadNoBooking,
		IsTarget:      true,
		RefusalCode:   "PRICE_TOO_HIGH",
		RefusalReason: "too expensive for the caller",
	}
	score := &model.ScoreRecord{LossGroup: "competitor", ResultNotes: "will think about it"}

	// tier 1: explicit group wins
	assert.Equal(t, "competitor", lossCategory(call, score))

	// tier 2: coded enum
	score.LossGroup = ""
	assert.Equal(t, LossPrice, lossCategory(call, score))

	// tier 3: refusal-reason keywords
	call.RefusalCode = "OTHER"
	assert.Equal(t, LossPrice, lossCategory(call, score))

	// tier 4: free-text result notes
	call.RefusalReason = ""
	assert.Equal(t, LossUndecided, lossCategory(call, score))

	// nothing matches
	score.ResultNotes = ""
	assert.Equal(t, LossUnspecified, lossCategory(call, score))
}

func TestQuality_NoScoreEmitsNull(t *testing.T) {
	drafts := Quality(&model.CallRecord{}, nil)
	assert.Nil(t, draft(t, drafts, CodeNormalizedCallScore).Numeric)
	assert.Nil(t, draft(t, drafts, CodeChecklistCoverageRatio).Numeric)
	assert.Nil(t, draft(t, drafts, CodeScriptRiskIndex).Numeric)
}

func TestQuality_WithScore(t *testing.T) {
	cs := 7.0
	checklist := 8.0
	drafts := Quality(
		&model.CallRecord{Category: model.CategoryComplaint},
		&model.ScoreRecord{CallScore: &cs, Checklist: &checklist},
	)
	assert.Equal(t, 70.0, numeric(t, drafts, CodeNormalizedCallScore))
	assert.Equal(t, 0.8, numeric(t, drafts, CodeChecklistCoverageRatio))
	assert.Equal(t, 40.0, numeric(t, drafts, CodeScriptRiskIndex)) // (10-7)*10 + complaint surcharge
}

func TestForecast_ProbabilitiesClamped(t *testing.T) {
	call := &model.CallRecord{Category: model.CategoryComplaint}
	res := &complaint.Result{Score: 85, Flag: true}

	drafts := Forecast(call, res)
	assert.Equal(t, 0.85, numeric(t, drafts, CodeComplaintProb))
	assert.Equal(t, 0.75, numeric(t, drafts, CodeChurnProb))
	assert.Equal(t, 0.0, numeric(t, drafts, CodeConversionProb))
	assert.Equal(t, 0.8, numeric(t, drafts, CodeSecondCallProb))

	for _, d := range drafts {
		require.NotNil(t, d.Numeric)
		assert.GreaterOrEqual(t, *d.Numeric, 0.0)
		assert.LessOrEqual(t, *d.Numeric, 1.0)
	}
}

func TestFollowup_ServiceNotProvidedOverridesOutcome(t *testing.T) {
	// outcome alone would suggest a follow-up; the refusal code wins
	call := &model.CallRecord{
		Outcome:      model.OutcomeLeadNoBooking,
		Category:     model.CategoryLead,
		RefusalCode:  model.RefusalCodeServiceNotProvided,
		TalkDuration: 60,
		IsTarget:     true,
	}
	score := &model.ScoreRecord{LiveVoice: true}

	needed, reasons := followupNeeded(call, score)
	assert.False(t, needed)
	assert.Empty(t, reasons)
}

func TestFollowup_LeadAccumulatesReasons(t *testing.T) {
	call := &model.CallRecord{
		Outcome:      model.OutcomeLeadNoBooking,
		Category:     model.CategoryLead,
		RefusalCode:  "WILL_THINK",
		Transcript:   "sounds good, call me back tomorrow",
		TalkDuration: 60,
		IsTarget:     true,
	}
	score := &model.ScoreRecord{LiveVoice: true}

	needed, reasons := followupNeeded(call, score)
	assert.True(t, needed)
	assert.NotEmpty(t, reasons)
	assert.Contains(t, reasons, "lead without booking")
	assert.Contains(t, reasons, "target call without booking")
}

func TestFollowup_GatesPassButNoReasons(t *testing.T) {
	call := &model.CallRecord{
		Outcome:      model.OutcomeBooked,
		TalkDuration: 60,
		IsTarget:     true,
	}
	score := &model.ScoreRecord{LiveVoice: true}

	needed, reasons := followupNeeded(call, score)
	assert.False(t, needed)
	assert.Empty(t, reasons)
}

func TestFollowup_NoScoreRecord(t *testing.T) {
	call := &model.CallRecord{Outcome: model.OutcomeLeadNoBooking, IsTarget: true, TalkDuration: 60}
	needed, _ := followupNeeded(call, nil)
	assert.False(t, needed)
}

func TestCalcProfile(t *testing.T) {
	tue := time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, ProfileDefault, CalcProfile(tue))

	sat := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, ProfileWeekend, CalcProfile(sat))

	lateNight := time.Date(2026, 8, 25, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, ProfileNightShift, CalcProfile(lateNight))

	satNight := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, ProfileNightShift, CalcProfile(satNight))
}

func TestCalculator_FullSet(t *testing.T) {
	call := &model.CallRecord{
		HistoryID:    42,
		CallDate:     time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC),
		Outcome:      model.OutcomeBooked,
		Category:     model.CategoryBooking,
		TalkDuration: 95,
		WaitSeconds:  12,
		Transcript:   "Hello. I would like to book a visit. Great, see you then.",
		IsTarget:     true,
	}
	res := complaint.Evaluate(call, nil, matrix.Default())

	calc := NewCalculator("")
	drafts := calc.Calculate(call, nil, res)

	codes := map[string]bool{}
	for _, d := range drafts {
		assert.False(t, codes[d.Code], "duplicate code %s", d.Code)
		codes[d.Code] = true
		if d.Numeric != nil {
			assert.LessOrEqual(t, *d.Numeric, model.NumericLimit)
			assert.GreaterOrEqual(t, *d.Numeric, -model.NumericLimit)
		}
	}
	for _, code := range []string{
		CodeResponseSpeed, CodeTalkEfficiency, CodeQueueImpactIndex,
		CodeConversionScore, CodeLostOpportunity, CodeCrossSellPotential,
		CodeNormalizedCallScore, CodeChecklistCoverageRatio, CodeScriptRiskIndex,
		CodeComplaintFlag, CodeComplaintScore, CodeChurnRisk,
		CodeComplaintProb, CodeChurnProb, CodeConversionProb, CodeSecondCallProb,
		CodeFollowupNeeded, CodeCalcProfile, CodeEngineVersionTag,
	} {
		assert.True(t, codes[code], "missing code %s", code)
	}
	assert.Equal(t, DefaultEngineVersion, draft(t, drafts, CodeEngineVersionTag).Label)
	assert.Equal(t, ProfileDefault, draft(t, drafts, CodeCalcProfile).Label)
}
