package command

import (
	"log/slog"
	"testing"
)

func TestExtract_AssignStaff(t *testing.T) {
	e := NewExtractor(slog.Default())

	actions := e.Extract("assign Maria Santos to job job-001")
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}

	a := actions[0]
	if a.Tag != TagAssignStaff {
		t.Errorf("tag = %s, want %s", a.Tag, TagAssignStaff)
	}
	if a.Safety != SafetySafe {
		t.Errorf("safety = %s, want %s", a.Safety, SafetySafe)
	}
	if a.RequiresConfirmation {
		t.Error("assign_staff should not require confirmation")
	}
	p, ok := a.Params.(AssignStaffParams)
	if !ok {
		t.Fatalf("params type = %T", a.Params)
	}
	if p.StaffName != "Maria Santos" || p.JobID != "job-001" {
		t.Errorf("params = %+v, want staffName=Maria Santos jobId=job-001", p)
	}
	if a.TargetDocumentID != "job-001" {
		t.Errorf("targetDocumentId = %q, want job-001", a.TargetDocumentID)
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		t.Errorf("confidence %v out of [0,1]", a.Confidence)
	}
	if a.ID == "" {
		t.Error("action id should be assigned")
	}
}

func TestExtract_AssignPlaceholderUsesScorer(t *testing.T) {
	e := NewExtractor(slog.Default())

	actions := e.Extract("assign someone to job job-009")
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	p, ok := actions[0].Params.(AssignStaffParams)
	if !ok {
		t.Fatalf("params type = %T", actions[0].Params)
	}
	if p.StaffName != "" {
		t.Errorf("placeholder assignee should leave staffName empty, got %q", p.StaffName)
	}
}

func TestExtract_DeleteJobOverride(t *testing.T) {
	e := NewExtractor(slog.Default())

	tests := []struct {
		name         string
		text         string
		wantOverride bool
	}{
		{"without override", "delete job job-7", false},
		{"with override", "delete job job-7 with override", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions := e.Extract(tt.text)
			if len(actions) != 1 {
				t.Fatalf("expected 1 action, got %d", len(actions))
			}
			a := actions[0]
			if a.Tag != TagDeleteJob || a.Safety != SafetyDangerous {
				t.Errorf("got tag=%s safety=%s", a.Tag, a.Safety)
			}
			if a.HasOverride() != tt.wantOverride {
				t.Errorf("HasOverride = %v, want %v", a.HasOverride(), tt.wantOverride)
			}
		})
	}
}

func TestExtract_ReassignBeatsAssign(t *testing.T) {
	e := NewExtractor(slog.Default())

	actions := e.Extract("reassign Maria Santos to job job-002")
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	if actions[0].Tag != TagReassignStaff {
		t.Errorf("tag = %s, want %s", actions[0].Tag, TagReassignStaff)
	}
}

func TestExtract_SiblingPatternsCompete(t *testing.T) {
	e := NewExtractor(slog.Default())

	// Both reassign patterns match this text. The second clause covers more
	// of the message and must win the per-tag dedupe even though an earlier
	// pattern in the registry also produced a candidate.
	actions := e.Extract("reassign job j1 to Al, reassign Maria Consuela Santos to job-9817")
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	p, ok := actions[0].Params.(ReassignStaffParams)
	if !ok {
		t.Fatalf("params type = %T", actions[0].Params)
	}
	if p.JobID != "job-9817" || p.StaffName != "Maria Consuela Santos" {
		t.Errorf("kept lower-confidence sibling parse: %+v", p)
	}
}

func TestExtract_UpdateBookingDateOrder(t *testing.T) {
	e := NewExtractor(slog.Default())

	tests := []struct {
		name string
		text string
	}{
		{"mixed formats", "change booking b-1 from September 1 2026 to 2026-09-05"},
		{"reversed dates", "change booking b-1 from September 5 2026 to 2026-09-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions := e.Extract(tt.text)
			if len(actions) != 1 {
				t.Fatalf("expected 1 action, got %d", len(actions))
			}
			p, ok := actions[0].Params.(UpdateBookingParams)
			if !ok {
				t.Fatalf("params type = %T", actions[0].Params)
			}
			if p.BookingID != "b-1" {
				t.Errorf("bookingId = %q, want b-1", p.BookingID)
			}
			if p.CheckIn != "2026-09-01" || p.CheckOut != "2026-09-05" {
				t.Errorf("dates = %q / %q, want 2026-09-01 / 2026-09-05", p.CheckIn, p.CheckOut)
			}
		})
	}
}

func TestExtract_MultipleActions(t *testing.T) {
	e := NewExtractor(slog.Default())

	actions := e.Extract("approve booking bk-1 and assign Maria Santos to job job-2")
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(actions))
	}

	tags := map[ActionTag]bool{}
	for _, a := range actions {
		tags[a.Tag] = true
		if a.Confidence < 0 || a.Confidence > 1 {
			t.Errorf("confidence %v out of [0,1]", a.Confidence)
		}
	}
	if !tags[TagApproveBooking] || !tags[TagAssignStaff] {
		t.Errorf("tags = %v, want approve_booking and assign_staff", tags)
	}

	// Sorted by descending confidence.
	for i := 1; i < len(actions); i++ {
		if actions[i].Confidence > actions[i-1].Confidence {
			t.Errorf("actions not sorted by confidence: %v then %v", actions[i-1].Confidence, actions[i].Confidence)
		}
	}
}

func TestExtract_CreateJobDefaults(t *testing.T) {
	e := NewExtractor(slog.Default())

	actions := e.Extract("create a cleaning job at the Sunset Villa tomorrow at 2pm for 2 hours")
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	p, ok := actions[0].Params.(CreateJobParams)
	if !ok {
		t.Fatalf("params type = %T", actions[0].Params)
	}
	if p.JobType != "cleaning" {
		t.Errorf("jobType = %q, want cleaning", p.JobType)
	}
	if p.PropertyName != "Sunset Villa" {
		t.Errorf("propertyName = %q, want Sunset Villa", p.PropertyName)
	}
	if p.ScheduledDate == "" {
		t.Error("scheduledDate should default when text names one")
	}
	if p.ScheduledTime != "14:00" {
		t.Errorf("scheduledTime = %q, want 14:00", p.ScheduledTime)
	}
	if p.Priority != "medium" {
		t.Errorf("priority = %q, want medium default", p.Priority)
	}
	if p.DurationMinutes != 120 {
		t.Errorf("durationMinutes = %d, want 120", p.DurationMinutes)
	}
}

func TestExtract_SendNotification(t *testing.T) {
	e := NewExtractor(slog.Default())

	actions := e.Extract("notify Maria that the guest arrives at 3pm")
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	p, ok := actions[0].Params.(SendNotificationParams)
	if !ok {
		t.Fatalf("params type = %T", actions[0].Params)
	}
	if p.Recipient != "Maria" {
		t.Errorf("recipient = %q, want Maria", p.Recipient)
	}
	if p.Message != "the guest arrives at 3pm" {
		t.Errorf("message = %q", p.Message)
	}
}

func TestExtract_NoCommands(t *testing.T) {
	e := NewExtractor(slog.Default())

	for _, text := range []string{"", "how is occupancy looking this month?"} {
		if actions := e.Extract(text); len(actions) != 0 {
			t.Errorf("Extract(%q) = %d actions, want 0", text, len(actions))
		}
	}
}
