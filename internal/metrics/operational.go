// Package metrics implements the six pure calculator groups. Every calculator
// is a function of (CallRecord, optional ScoreRecord) with no I/O; the risk and
// forecast groups additionally reuse the complaint engine's result so the gate
// and signal detection run once per call.
package metrics

import (
	"github.com/velmed/callscore/internal/model"
)

// Metric codes, operational group.
const (
	CodeResponseSpeed    = "response_speed"
	CodeTalkEfficiency   = "talk_efficiency"
	CodeQueueImpactIndex = "queue_impact_index"
)

// Zone labels for banded metrics.
const (
	ZoneGreen  = "green"
	ZoneYellow = "yellow"
	ZoneRed    = "red"
)

// Operational computes the wait/duration metrics.
func Operational(call *model.CallRecord) []model.MetricDraft {
	speed, zone := responseSpeed(call)
	return []model.MetricDraft{
		model.LabelDraft(CodeResponseSpeed, model.GroupOperational, zone, &speed),
		model.NumericDraft(CodeTalkEfficiency, model.GroupOperational, talkEfficiency(call.TalkDuration)),
		model.NumericDraft(CodeQueueImpactIndex, model.GroupOperational, queueImpact(call)),
	}
}

// responseSpeed bands the queue wait into a 1-5 score with a traffic-light
// zone. A call that barely connected is always the worst band no matter how
// fast it was answered.
func responseSpeed(call *model.CallRecord) (float64, string) {
	if call.TalkDuration <= 1 {
		return 1, ZoneRed
	}
	switch {
	case call.WaitSeconds < 20:
		return 5, ZoneGreen
	case call.WaitSeconds < 40:
		return 4, ZoneGreen
	case call.WaitSeconds < 60:
		return 3, ZoneYellow
	case call.WaitSeconds < 120:
		return 2, ZoneRed
	default:
		return 1, ZoneRed
	}
}

func talkEfficiency(duration float64) float64 {
	switch {
	case duration <= 0:
		return 0
	case duration >= 60:
		v := duration / 3
		if v > 100 {
			v = 100
		}
		return v
	default:
		return duration * 2
	}
}

// queueImpact estimates how much of the caller's time was spent waiting
// rather than talking, as a 0-100 share. Calls that never really connected
// contribute nothing.
func queueImpact(call *model.CallRecord) float64 {
	if call.TalkDuration <= 1 || call.WaitSeconds <= 0 {
		return 0
	}
	share := call.WaitSeconds / (call.WaitSeconds + call.TalkDuration) * 100
	if share > 100 {
		share = 100
	}
	return share
}
