package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNumeric(t *testing.T) {
	tests := []struct {
		name   string
		in     float64
		want   float64
		wantOK bool
	}{
		{"plain", 42.5, 42.5, true},
		{"rounded", 1.00005, 1.0001, true},
		{"clamp high", 5e9, NumericLimit, true},
		{"clamp low", -5e9, -NumericLimit, true},
		{"nan rejected", math.NaN(), 0, false},
		{"pos inf rejected", math.Inf(1), 0, false},
		{"neg inf rejected", math.Inf(-1), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeNumeric(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestNumericDraft_RejectsNaNToNull(t *testing.T) {
	d := NumericDraft("talk_time_efficiency", GroupOperational, math.NaN())
	assert.Equal(t, KindNumeric, d.Kind)
	assert.Nil(t, d.Numeric)
}

func TestFlagDraft(t *testing.T) {
	d := FlagDraft("followup_needed_flag", GroupRisk, true)
	assert.Equal(t, "true", d.Label)
	require.NotNil(t, d.Numeric)
	assert.Equal(t, 1.0, *d.Numeric)

	d = FlagDraft("followup_needed_flag", GroupRisk, false)
	assert.Equal(t, "false", d.Label)
	require.NotNil(t, d.Numeric)
	assert.Equal(t, 0.0, *d.Numeric)
}

func TestWatermark_Advance(t *testing.T) {
	w := Watermark{EngineVersion: "lm_v2", CalcProfile: "default", LastID: 100}

	w2 := w.Advance(150, w.LastDate)
	assert.Equal(t, int64(150), w2.LastID)

	// Never regresses.
	w3 := w2.Advance(120, w2.LastDate)
	assert.Equal(t, int64(150), w3.LastID)
	w4 := w2.Advance(150, w2.LastDate)
	assert.Equal(t, int64(150), w4.LastID)
}

func TestCallRecord_Score(t *testing.T) {
	raw := 6.0
	call := &CallRecord{QualityScore: &raw}

	got, ok := call.Score(nil)
	require.True(t, ok)
	assert.Equal(t, 6.0, got)

	manual := 3.0
	got, ok = call.Score(&ScoreRecord{CallScore: &manual})
	require.True(t, ok)
	assert.Equal(t, 3.0, got)

	_, ok = (&CallRecord{}).Score(nil)
	assert.False(t, ok)
}
