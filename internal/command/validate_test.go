package command

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/store"
)

// fixedCounter is a RecentCounter returning a constant.
type fixedCounter int

func (f fixedCounter) CountRecent(context.Context, string, time.Time) (int, error) {
	return int(f), nil
}

func testValidator(t *testing.T, s store.Store, recent RecentCounter) *Validator {
	t.Helper()
	v := NewValidator(s, recent, Rules{
		RateLimitPerMinute: 10,
		MaxConcurrentJobs:  3,
		BlackoutWeekday:    time.Sunday,
	})
	v.now = func() time.Time { return fixedNow }
	return v
}

func seedJob(t *testing.T, s store.Store, id, status string) {
	t.Helper()
	if _, err := s.Create(context.Background(), store.CollectionJobs, id, map[string]any{"status": status}); err != nil {
		t.Fatalf("seed job: %v", err)
	}
}

func seedStaff(t *testing.T, s store.Store, id, name, status string) {
	t.Helper()
	if _, err := s.Create(context.Background(), store.CollectionStaff, id, map[string]any{"name": name, "status": status}); err != nil {
		t.Fatalf("seed staff: %v", err)
	}
}

func deleteAction(jobID string, override bool) CandidateAction {
	return CandidateAction{
		ID:               "a-1",
		Tag:              TagDeleteJob,
		Params:           DeleteJobParams{JobID: jobID, Override: override},
		Safety:           SafetyDangerous,
		SourceCollection: store.CollectionJobs,
		TargetDocumentID: jobID,
	}
}

func assignAction(staffName, jobID string) CandidateAction {
	return CandidateAction{
		ID:               "a-2",
		Tag:              TagAssignStaff,
		Params:           AssignStaffParams{StaffName: staffName, JobID: jobID},
		Safety:           SafetySafe,
		SourceCollection: store.CollectionJobs,
		TargetDocumentID: jobID,
	}
}

func hasError(v Validation, substr string) bool {
	for _, e := range v.Errors {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func TestValidate_DangerousRequiresOverride(t *testing.T) {
	s := store.NewMemory()
	seedJob(t, s, "job-7", "pending")
	v := testValidator(t, s, fixedCounter(0))

	got := v.Validate(context.Background(), deleteAction("job-7", false), ExecutionContext{ActorID: "admin-1"})
	if got.Valid {
		t.Fatal("dangerous action without override should be invalid")
	}
	if !hasError(got, "override") {
		t.Errorf("errors = %v, want an override-required error", got.Errors)
	}

	got = v.Validate(context.Background(), deleteAction("job-7", true), ExecutionContext{ActorID: "admin-1"})
	if !got.Valid {
		t.Errorf("pending job with override should validate, got %v", got.Errors)
	}
}

func TestValidate_DeleteJobStatusRules(t *testing.T) {
	s := store.NewMemory()
	seedJob(t, s, "job-running", "in_progress")
	seedJob(t, s, "job-done", "completed")
	v := testValidator(t, s, fixedCounter(0))

	// In-progress jobs can never be deleted, override or not.
	got := v.Validate(context.Background(), deleteAction("job-running", true), ExecutionContext{ActorID: "admin-1"})
	if got.Valid || !hasError(got, "in-progress") {
		t.Errorf("in-progress delete: valid=%v errors=%v", got.Valid, got.Errors)
	}

	got = v.Validate(context.Background(), deleteAction("job-done", true), ExecutionContext{ActorID: "admin-1"})
	if !got.Valid {
		t.Errorf("completed delete with override should validate, got %v", got.Errors)
	}
}

func TestValidate_RateLimit(t *testing.T) {
	s := store.NewMemory()
	seedJob(t, s, "job-1", "pending")
	seedStaff(t, s, "staff-1", "Maria Santos", "available")

	tests := []struct {
		name  string
		count int
		valid bool
	}{
		{"under the limit", 5, true},
		{"at the limit", 10, true},
		{"over the limit", 11, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := testValidator(t, s, fixedCounter(tt.count))
			got := v.Validate(context.Background(), assignAction("Maria Santos", "job-1"), ExecutionContext{ActorID: "admin-1"})
			if got.Valid != tt.valid {
				t.Errorf("valid = %v, want %v (errors %v)", got.Valid, tt.valid, got.Errors)
			}
			if !tt.valid && !hasError(got, "rate limit") {
				t.Errorf("errors = %v, want a rate limit error", got.Errors)
			}
		})
	}
}

func TestValidate_TargetExistence(t *testing.T) {
	s := store.NewMemory()
	v := testValidator(t, s, fixedCounter(0))

	got := v.Validate(context.Background(), assignAction("Maria Santos", "job-missing"), ExecutionContext{ActorID: "admin-1"})
	if got.Valid || !hasError(got, "not found") {
		t.Errorf("valid=%v errors=%v, want a not-found error", got.Valid, got.Errors)
	}
}

func TestValidate_LockedTarget(t *testing.T) {
	s := store.NewMemory()
	if _, err := s.Create(context.Background(), store.CollectionJobs, "job-l", map[string]any{"status": "pending", "locked": true}); err != nil {
		t.Fatal(err)
	}
	seedStaff(t, s, "staff-1", "Maria Santos", "available")
	v := testValidator(t, s, fixedCounter(0))

	got := v.Validate(context.Background(), assignAction("Maria Santos", "job-l"), ExecutionContext{ActorID: "admin-1"})
	if got.Valid || !hasError(got, "locked") {
		t.Errorf("valid=%v errors=%v, want a locked error", got.Valid, got.Errors)
	}
}

func TestValidate_AssignStaffRules(t *testing.T) {
	s := store.NewMemory()
	seedJob(t, s, "job-1", "pending")
	seedJob(t, s, "job-done", "completed")
	seedStaff(t, s, "staff-1", "Maria Santos", "available")
	seedStaff(t, s, "staff-2", "Anna Lee", "inactive")
	v := testValidator(t, s, fixedCounter(0))
	ectx := ExecutionContext{ActorID: "admin-1"}

	t.Run("completed job", func(t *testing.T) {
		got := v.Validate(context.Background(), assignAction("Maria Santos", "job-done"), ectx)
		if got.Valid || !hasError(got, "completed") {
			t.Errorf("valid=%v errors=%v", got.Valid, got.Errors)
		}
	})

	t.Run("unknown staff", func(t *testing.T) {
		got := v.Validate(context.Background(), assignAction("Nobody Known", "job-1"), ectx)
		if got.Valid || !hasError(got, "not found") {
			t.Errorf("valid=%v errors=%v", got.Valid, got.Errors)
		}
	})

	t.Run("inactive staff", func(t *testing.T) {
		got := v.Validate(context.Background(), assignAction("Anna Lee", "job-1"), ectx)
		if got.Valid || !hasError(got, "inactive") {
			t.Errorf("valid=%v errors=%v", got.Valid, got.Errors)
		}
	})

	t.Run("empty name defers to scorer", func(t *testing.T) {
		got := v.Validate(context.Background(), assignAction("", "job-1"), ectx)
		if !got.Valid {
			t.Errorf("empty staff name should validate, got %v", got.Errors)
		}
	})
}

func TestValidate_ConcurrentJobCap(t *testing.T) {
	s := store.NewMemory()
	seedJob(t, s, "job-new", "pending")
	seedStaff(t, s, "staff-1", "Maria Santos", "available")
	for i := 0; i < 3; i++ {
		if _, err := s.Create(context.Background(), store.CollectionJobs, fmt.Sprintf("job-%d", i), map[string]any{
			"status":        "assigned",
			"assignedStaff": "staff-1",
		}); err != nil {
			t.Fatal(err)
		}
	}
	v := testValidator(t, s, fixedCounter(0))

	got := v.Validate(context.Background(), assignAction("Maria Santos", "job-new"), ExecutionContext{ActorID: "admin-1"})
	if got.Valid || !hasError(got, "concurrent") {
		t.Errorf("valid=%v errors=%v, want a concurrent-jobs error", got.Valid, got.Errors)
	}
}

func TestValidate_RescheduleJob(t *testing.T) {
	s := store.NewMemory()
	seedJob(t, s, "job-1", "pending")
	v := testValidator(t, s, fixedCounter(0))
	ectx := ExecutionContext{ActorID: "admin-1"}

	reschedule := func(newDate string) CandidateAction {
		return CandidateAction{
			ID:               "a-3",
			Tag:              TagRescheduleJob,
			Params:           RescheduleJobParams{JobID: "job-1", NewDate: newDate},
			Safety:           SafetyCaution,
			SourceCollection: store.CollectionJobs,
			TargetDocumentID: "job-1",
		}
	}

	t.Run("past date", func(t *testing.T) {
		got := v.Validate(context.Background(), reschedule("2025-07-01"), ectx)
		if got.Valid || !hasError(got, "past") {
			t.Errorf("valid=%v errors=%v", got.Valid, got.Errors)
		}
	})

	t.Run("blackout weekday", func(t *testing.T) {
		// 2025-07-20 is a Sunday.
		got := v.Validate(context.Background(), reschedule("2025-07-20"), ectx)
		if got.Valid || !hasError(got, "blackout") {
			t.Errorf("valid=%v errors=%v", got.Valid, got.Errors)
		}
	})

	t.Run("valid weekday", func(t *testing.T) {
		got := v.Validate(context.Background(), reschedule("2025-07-18"), ectx)
		if !got.Valid {
			t.Errorf("friday reschedule should validate, got %v", got.Errors)
		}
	})
}

func TestValidate_BookingRules(t *testing.T) {
	s := store.NewMemory()
	if _, err := s.Create(context.Background(), store.CollectionBookings, "bk-approved", map[string]any{
		"status":  "approved",
		"checkIn": "2025-08-01",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(context.Background(), store.CollectionBookings, "bk-past", map[string]any{
		"status":  "pending_approval",
		"checkIn": "2025-06-01",
	}); err != nil {
		t.Fatal(err)
	}
	v := testValidator(t, s, fixedCounter(0))
	ectx := ExecutionContext{ActorID: "admin-1"}

	approve := func(id string) CandidateAction {
		return CandidateAction{
			ID:               "a-4",
			Tag:              TagApproveBooking,
			Params:           ApproveBookingParams{BookingID: id},
			Safety:           SafetySafe,
			SourceCollection: store.CollectionBookings,
			TargetDocumentID: id,
		}
	}

	t.Run("already approved", func(t *testing.T) {
		got := v.Validate(context.Background(), approve("bk-approved"), ectx)
		if got.Valid || !hasError(got, "already approved") {
			t.Errorf("valid=%v errors=%v", got.Valid, got.Errors)
		}
	})

	t.Run("past check-in", func(t *testing.T) {
		got := v.Validate(context.Background(), approve("bk-past"), ectx)
		if got.Valid || !hasError(got, "past") {
			t.Errorf("valid=%v errors=%v", got.Valid, got.Errors)
		}
	})
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	s := store.NewMemory()
	v := testValidator(t, s, fixedCounter(11))

	// Missing target, over the rate limit, dangerous without override.
	got := v.Validate(context.Background(), deleteAction("job-missing", false), ExecutionContext{ActorID: "admin-1"})
	if got.Valid {
		t.Fatal("expected invalid")
	}
	if len(got.Errors) < 3 {
		t.Errorf("expected at least 3 collected errors, got %v", got.Errors)
	}
}
