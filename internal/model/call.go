// Package model defines the shared domain types for call scoring:
// call records, dictionary terms and hits, metric drafts, and watermarks.
package model

import "time"

// Outcome codes recorded by the upstream call platform.
const (
	OutcomeBooked        = "booked"
	OutcomeLeadNoBooking = "lead_no_booking"
	OutcomeCancel        = "cancel"
	OutcomeInfoOnly      = "info_only"
)

// Category labels recorded by the upstream call platform.
const (
	CategoryBooking       = "booking"
	CategoryLead          = "lead"
	CategoryCancellation  = "cancellation"
	CategoryReschedule    = "reschedule"
	CategoryComplaint     = "complaint"
	CategoryInformational = "informational"
	CategoryNavigation    = "navigation"
	CategorySpam          = "spam"
	CategoryAutoResponse  = "auto_response"
	CategoryTechFailure   = "tech_failure"
)

// RefusalCodeServiceNotProvided marks calls that could not be served at all;
// it excludes the call from complaint and follow-up scoring.
const RefusalCodeServiceNotProvided = "SERVICE_NOT_PROVIDED"

// CallRecord is one call from the upstream history source. Immutable here;
// the engine never writes back to it.
type CallRecord struct {
	HistoryID     int64
	CallDate      time.Time
	CallType      string
	TalkDuration  float64 // seconds
	WaitSeconds   float64 // time in queue before answer
	Transcript    string
	Outcome       string
	Category      string
	RefusalReason string
	RefusalCode   string
	RefusalGroup  string
	QualityScore  *float64 // raw operator score, 0-10
	IsTarget      bool
	SourceTag     string
}

// ScoreRecord is the optional manual/automatic assessment attached to a call.
type ScoreRecord struct {
	ID          int64
	HistoryID   int64
	CallScore   *float64 // 0-10
	Checklist   *float64 // checklist items covered, 0-10
	CallSuccess string
	LiveVoice   bool
	LossGroup   string // explicit loss-category group, first tier of the fallback chain
	LossCode    string // coded loss reason, second tier
	ResultNotes string // free-text result, last tier
}

// Score returns the effective 0-10 quality score, preferring the score record
// over the raw value on the call itself.
func (c *CallRecord) Score(s *ScoreRecord) (float64, bool) {
	if s != nil && s.CallScore != nil {
		return *s.CallScore, true
	}
	if c.QualityScore != nil {
		return *c.QualityScore, true
	}
	return 0, false
}
