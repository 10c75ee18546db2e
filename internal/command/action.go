package command

import (
	"encoding/json"
	"time"
)

// ActionTag identifies the kind of mutation a candidate action performs.
// The set is closed: new tags are added by registering a pattern entry.
type ActionTag string

const (
	TagAssignStaff      ActionTag = "assign_staff"
	TagReassignStaff    ActionTag = "reassign_staff"
	TagApproveBooking   ActionTag = "approve_booking"
	TagUpdateBooking    ActionTag = "update_booking"
	TagCreateBooking    ActionTag = "create_booking"
	TagCreateJob        ActionTag = "create_job"
	TagDeleteJob        ActionTag = "delete_job"
	TagRescheduleJob    ActionTag = "reschedule_job"
	TagUpdateCalendar   ActionTag = "update_calendar"
	TagSendNotification ActionTag = "send_notification"
)

// SafetyLevel classifies how much damage an action can do. Dangerous is
// reserved for irreversible operations and always demands an override.
type SafetyLevel string

const (
	SafetySafe      SafetyLevel = "safe"
	SafetyCaution   SafetyLevel = "caution"
	SafetyDangerous SafetyLevel = "dangerous"
)

// Params is the typed parameter bag for one action. Each ActionTag has its
// own variant, so handlers never read fields the extractor didn't populate.
type Params interface {
	isParams()
}

type AssignStaffParams struct {
	// StaffName may be empty: the executor then consults the staff
	// suggestion scorer to pick an assignee.
	StaffName string `json:"staffName,omitempty"`
	JobID     string `json:"jobId"`
}

type ReassignStaffParams struct {
	StaffName string `json:"staffName"`
	JobID     string `json:"jobId"`
}

type ApproveBookingParams struct {
	BookingID string `json:"bookingId"`
}

type UpdateBookingParams struct {
	BookingID string `json:"bookingId"`
	CheckIn   string `json:"checkIn,omitempty"`
	CheckOut  string `json:"checkOut,omitempty"`
	Guests    int    `json:"guests,omitempty"`
}

type CreateBookingParams struct {
	GuestName    string `json:"guestName,omitempty"`
	GuestEmail   string `json:"guestEmail,omitempty"`
	PropertyName string `json:"propertyName,omitempty"`
	CheckIn      string `json:"checkIn"`
	CheckOut     string `json:"checkOut"`
	Guests       int    `json:"guests,omitempty"`
}

type CreateJobParams struct {
	JobType         string `json:"jobType"`
	PropertyName    string `json:"propertyName,omitempty"`
	ScheduledDate   string `json:"scheduledDate"`
	ScheduledTime   string `json:"scheduledTime,omitempty"`
	Priority        string `json:"priority,omitempty"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
}

type DeleteJobParams struct {
	JobID string `json:"jobId"`
	// Override is the caller-supplied acknowledgment that permits this
	// dangerous action to proceed. Never set by the extractor alone.
	Override bool `json:"override,omitempty"`
}

type RescheduleJobParams struct {
	JobID   string `json:"jobId"`
	NewDate string `json:"newDate"`
	NewTime string `json:"newTime,omitempty"`
}

type UpdateCalendarParams struct {
	PropertyName string `json:"propertyName,omitempty"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
}

type SendNotificationParams struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
	Priority  string `json:"priority,omitempty"`
}

func (AssignStaffParams) isParams()      {}
func (ReassignStaffParams) isParams()    {}
func (ApproveBookingParams) isParams()   {}
func (UpdateBookingParams) isParams()    {}
func (CreateBookingParams) isParams()    {}
func (CreateJobParams) isParams()        {}
func (DeleteJobParams) isParams()        {}
func (RescheduleJobParams) isParams()    {}
func (UpdateCalendarParams) isParams()   {}
func (SendNotificationParams) isParams() {}

// CandidateAction is a structured, not-yet-executed interpretation of free
// text. Immutable once produced by the extractor; the only later change is
// the override flag applied after user confirmation.
type CandidateAction struct {
	ID                   string      `json:"id"`
	Tag                  ActionTag   `json:"tag"`
	Params               Params      `json:"parameters"`
	Confidence           float64     `json:"confidence"`
	Safety               SafetyLevel `json:"safetyLevel"`
	RequiresConfirmation bool        `json:"requiresConfirmation"`
	OriginalText         string      `json:"originalText"`
	SourceCollection     string      `json:"sourceCollection"`
	TargetDocumentID     string      `json:"targetDocumentId,omitempty"`
}

// HasOverride reports whether the action's parameters carry an override
// flag.
func (a CandidateAction) HasOverride() bool {
	p, ok := a.Params.(DeleteJobParams)
	return ok && p.Override
}

// WithOverride returns a copy of the action with the override flag applied
// to its parameters. Actions whose parameter type carries no override flag
// are returned unchanged.
func (a CandidateAction) WithOverride() CandidateAction {
	if p, ok := a.Params.(DeleteJobParams); ok {
		p.Override = true
		a.Params = p
	}
	return a
}

// ParamsMap flattens typed parameters into a map for audit entries and API
// payloads.
func ParamsMap(p Params) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// ExecutionContext identifies who is acting. Always supplied by the caller,
// never inferred.
type ExecutionContext struct {
	ActorID   string    `json:"actorId"`
	ActorName string    `json:"actorName"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// ExecutionResult is the structured outcome of one executed action.
type ExecutionResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
	Errors  []string       `json:"errors,omitempty"`
}

// Validation is the collected outcome of all pre-execution checks.
type Validation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}
