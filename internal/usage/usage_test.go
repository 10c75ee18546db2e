package usage

import (
	"context"
	"log/slog"
	"testing"

	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/store"
)

func TestLog_WritesRecord(t *testing.T) {
	s := store.NewMemory()
	l := NewLogger(s, slog.Default())

	l.Log(context.Background(), Record{
		SessionID:        "sess-1",
		ActorID:          "admin-1",
		Provider:         "anthropic",
		Model:            "claude-sonnet-4-20250514",
		TaskType:         "analysis",
		ResponseTimeMS:   850,
		InputTokens:      120,
		OutputTokens:     300,
		Success:          true,
		CommandsDetected: 2,
		CommandsExecuted: 0,
	})

	docs, err := s.Query(context.Background(), store.CollectionUsageLog, nil, store.QueryOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(docs))
	}
	doc := docs[0]
	if doc.Str("provider") != "anthropic" || doc.Str("taskType") != "analysis" {
		t.Errorf("record = %v", doc.Data)
	}
	if doc.Str("sessionId") != "sess-1" || doc.Str("actorId") != "admin-1" {
		t.Errorf("identity = %q / %q", doc.Str("sessionId"), doc.Str("actorId"))
	}
	if doc.Num("inputTokens") != 120 || doc.Num("outputTokens") != 300 {
		t.Errorf("token counts = %v / %v", doc.Num("inputTokens"), doc.Num("outputTokens"))
	}
	if doc.Num("responseTimeMs") != 850 {
		t.Errorf("responseTimeMs = %v, want 850", doc.Num("responseTimeMs"))
	}
	if !doc.Bool("success") {
		t.Error("success should be recorded")
	}
	if doc.Num("commandsDetected") != 2 || doc.Num("commandsExecuted") != 0 {
		t.Errorf("command counts = %v / %v", doc.Num("commandsDetected"), doc.Num("commandsExecuted"))
	}
	if _, ok := doc.Data["actualProvider"]; ok {
		t.Error("actualProvider should be omitted when the routed provider answered")
	}
	if doc.Str("timestamp") == "" {
		t.Error("timestamp should be stamped on write")
	}
}

func TestLog_RecordsFallbackProvider(t *testing.T) {
	s := store.NewMemory()
	l := NewLogger(s, slog.Default())

	l.Log(context.Background(), Record{
		ActorID:        "admin-1",
		Provider:       "anthropic",
		ActualProvider: "openai",
		Success:        false,
	})

	docs, err := s.Query(context.Background(), store.CollectionUsageLog, nil, store.QueryOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(docs))
	}
	if docs[0].Str("actualProvider") != "openai" {
		t.Errorf("actualProvider = %q, want openai", docs[0].Str("actualProvider"))
	}
	if docs[0].Bool("success") {
		t.Error("failed call should persist success=false")
	}
}

func TestLog_BestEffort(t *testing.T) {
	s := store.NewMemory()
	s.FailWrites = true
	l := NewLogger(s, slog.Default())

	// Must not panic or surface the failure.
	l.Log(context.Background(), Record{ActorID: "admin-1", Provider: "openai"})
}
