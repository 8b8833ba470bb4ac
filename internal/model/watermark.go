package model

import "time"

// Watermark is the resume cursor for one (engine version, calc profile) pair.
// It only moves forward, and only after the rows behind it are durably saved.
type Watermark struct {
	EngineVersion string
	CalcProfile   string
	LastID        int64
	LastDate      time.Time
}

// Advance returns a copy moved to (id, date) if that is strictly ahead of the
// current position; otherwise it returns the watermark unchanged.
func (w Watermark) Advance(id int64, date time.Time) Watermark {
	if id <= w.LastID {
		return w
	}
	w.LastID = id
	if date.After(w.LastDate) {
		w.LastDate = date
	}
	return w
}
