package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/command"
	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/store"
)

var baseTime = time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)

// tickingLogger returns a Logger whose clock advances one second per write.
func tickingLogger(s store.Store) *Logger {
	l := NewLogger(s, slog.Default())
	tick := 0
	l.now = func() time.Time {
		t := baseTime.Add(time.Duration(tick) * time.Second)
		tick++
		return t
	}
	return l
}

func sampleAction() command.CandidateAction {
	return command.CandidateAction{
		ID:               "a-1",
		Tag:              command.TagAssignStaff,
		Params:           command.AssignStaffParams{StaffName: "Maria Santos", JobID: "job-1"},
		Confidence:       0.85,
		Safety:           command.SafetySafe,
		SourceCollection: store.CollectionJobs,
		TargetDocumentID: "job-1",
	}
}

func sampleContext() command.ExecutionContext {
	return command.ExecutionContext{ActorID: "admin-1", ActorName: "Admin", SessionID: "sess-1", Source: "api"}
}

func TestLogger_AttemptAndResult(t *testing.T) {
	s := store.NewMemory()
	l := tickingLogger(s)
	ctx := context.Background()

	l.LogAttempt(ctx, sampleAction(), sampleContext())
	l.LogResult(ctx, sampleAction(), sampleContext(), command.ExecutionResult{Success: true, Message: "Assigned Maria Santos to job job-1"})

	entries, err := l.List(ctx, ListQuery{ActorID: "admin-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// Newest first.
	if entries[0].Status != StatusCompleted {
		t.Errorf("first entry status = %s, want completed", entries[0].Status)
	}
	if entries[1].Status != StatusAttempted {
		t.Errorf("second entry status = %s, want attempted", entries[1].Status)
	}

	e := entries[1]
	if e.ActionTag != command.TagAssignStaff || e.ActorID != "admin-1" || e.Source != "api" {
		t.Errorf("entry = %+v", e)
	}
	if e.Parameters["staffName"] != "Maria Santos" {
		t.Errorf("parameters = %v", e.Parameters)
	}
	if e.Confidence != 0.85 {
		t.Errorf("confidence = %v", e.Confidence)
	}
}

func TestLogger_FailedResult(t *testing.T) {
	s := store.NewMemory()
	l := tickingLogger(s)
	ctx := context.Background()

	l.LogResult(ctx, sampleAction(), sampleContext(), command.ExecutionResult{
		Success: false,
		Message: "update job job-1: boom",
		Errors:  []string{"update job job-1: boom"},
	})

	entries, err := l.List(ctx, ListQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Status != StatusFailed {
		t.Fatalf("entries = %+v", entries)
	}
	if len(entries[0].Errors) != 1 {
		t.Errorf("errors = %v", entries[0].Errors)
	}
}

func TestLogger_CountRecent(t *testing.T) {
	s := store.NewMemory()
	l := tickingLogger(s)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l.LogAttempt(ctx, sampleAction(), sampleContext())
	}
	other := sampleContext()
	other.ActorID = "admin-2"
	l.LogAttempt(ctx, sampleAction(), other)

	count, err := l.CountRecent(ctx, "admin-1", baseTime.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	// A window starting after the writes sees nothing.
	count, err = l.CountRecent(ctx, "admin-1", baseTime.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestLogger_ListFilters(t *testing.T) {
	s := store.NewMemory()
	l := tickingLogger(s)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l.LogAttempt(ctx, sampleAction(), sampleContext())
	}

	entries, err := l.List(ctx, ListQuery{ActorID: "admin-1", Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("limit ignored: got %d entries", len(entries))
	}

	// Time range covering only the first two writes.
	entries, err = l.List(ctx, ListQuery{
		From: baseTime,
		To:   baseTime.Add(1 * time.Second),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("time range: got %d entries, want 2", len(entries))
	}

	entries, err = l.List(ctx, ListQuery{ActorID: "nobody"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("unknown actor: got %d entries", len(entries))
	}
}

func TestLogger_BestEffortWrites(t *testing.T) {
	s := store.NewMemory()
	s.FailWrites = true
	l := tickingLogger(s)

	// Must not panic or block; the failure surfaces on the error channel.
	l.LogAttempt(context.Background(), sampleAction(), sampleContext())

	select {
	case err := <-l.Errors():
		if err == nil {
			t.Error("expected a non-nil error")
		}
	default:
		t.Error("expected an error on the channel")
	}
}
