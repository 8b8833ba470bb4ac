package metrics

import (
	"github.com/velmed/callscore/internal/complaint"
	"github.com/velmed/callscore/internal/model"
)

// DefaultEngineVersion tags every persisted metric with the ruleset release.
const DefaultEngineVersion = "v2.3"

// Calculator runs all six groups over one call. It holds no mutable state and
// is safe to share across workers.
type Calculator struct {
	engineVersion string
}

func NewCalculator(engineVersion string) *Calculator {
	if engineVersion == "" {
		engineVersion = DefaultEngineVersion
	}
	return &Calculator{engineVersion: engineVersion}
}

func (c *Calculator) EngineVersion() string {
	return c.engineVersion
}

// Calculate produces the full metric set for one call. The complaint result
// must be the single shared evaluation for this call; risk and forecast both
// read it without re-running the engine.
func (c *Calculator) Calculate(call *model.CallRecord, score *model.ScoreRecord, res *complaint.Result) []model.MetricDraft {
	out := make([]model.MetricDraft, 0, 18)
	out = append(out, Operational(call)...)
	out = append(out, Conversion(call, score)...)
	out = append(out, Quality(call, score)...)
	out = append(out, Risk(call, res)...)
	out = append(out, Forecast(call, res)...)
	out = append(out, Aux(call, score, c.engineVersion)...)
	return out
}
