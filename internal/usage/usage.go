// Package usage records language-model interactions for cost reporting.
// Writes are best effort: a failed record is logged, never surfaced to
// the caller whose request already succeeded.
package usage

import (
	"context"
	"log/slog"
	"time"

	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/store"
)

// Record is one model interaction as persisted to the usage log. Failed
// calls are recorded too, with Success false and zero token counts.
type Record struct {
	SessionID string `json:"sessionId"`
	ActorID   string `json:"actorId"`
	// Provider is the routed choice; ActualProvider is set only when the
	// fallback resolver diverged from it.
	Provider       string `json:"provider"`
	ActualProvider string `json:"actualProvider,omitempty"`
	Model          string `json:"model"`
	TaskType       string `json:"taskType"`
	ResponseTimeMS int64  `json:"responseTimeMs"`
	InputTokens    int    `json:"inputTokens"`
	OutputTokens   int    `json:"outputTokens"`
	Success        bool   `json:"success"`
	// Follow-up commands surfaced from the reply, and how many of those
	// were executed rather than held for confirmation.
	CommandsDetected int    `json:"commandsDetected"`
	CommandsExecuted int    `json:"commandsExecuted"`
	Timestamp        string `json:"timestamp"`
}

type Logger struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewLogger(s store.Store, logger *slog.Logger) *Logger {
	return &Logger{store: s, logger: logger, now: time.Now}
}

// Log persists the record. The timestamp is stamped here so callers
// never have to set it.
func (l *Logger) Log(ctx context.Context, rec Record) {
	rec.Timestamp = l.now().UTC().Format(time.RFC3339)
	data := map[string]any{
		"sessionId":        rec.SessionID,
		"actorId":          rec.ActorID,
		"provider":         rec.Provider,
		"model":            rec.Model,
		"taskType":         rec.TaskType,
		"responseTimeMs":   rec.ResponseTimeMS,
		"inputTokens":      rec.InputTokens,
		"outputTokens":     rec.OutputTokens,
		"success":          rec.Success,
		"commandsDetected": rec.CommandsDetected,
		"commandsExecuted": rec.CommandsExecuted,
		"timestamp":        rec.Timestamp,
	}
	if rec.ActualProvider != "" {
		data["actualProvider"] = rec.ActualProvider
	}
	if _, err := l.store.Create(ctx, store.CollectionUsageLog, "", data); err != nil {
		l.logger.Error("usage log write failed",
			"provider", rec.Provider,
			"actorId", rec.ActorID,
			"error", err)
	}
}
