// Package audit records every command attempt and outcome on an
// append-only trail. Entries are never updated or deleted; a failed audit
// write degrades the trail but never blocks the command itself.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/command"
	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/store"
)

// Status marks where in its lifecycle an audited action is.
type Status string

// timeLayout is fixed-width so stored timestamps compare correctly as
// strings in store filters.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	StatusAttempted Status = "attempted"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Entry is one immutable audit record.
type Entry struct {
	ID         string              `json:"id"`
	ActionTag  command.ActionTag   `json:"actionTag"`
	Parameters map[string]any      `json:"parameters"`
	Confidence float64             `json:"confidence"`
	Safety     command.SafetyLevel `json:"safetyLevel"`
	ActorID    string              `json:"actorId"`
	ActorName  string              `json:"actorName"`
	SessionID  string              `json:"sessionId"`
	Source     string              `json:"source"`
	Status     Status              `json:"status"`
	Message    string              `json:"message,omitempty"`
	Errors     []string            `json:"errors,omitempty"`
	Timestamp  time.Time           `json:"timestamp"`
}

// Logger appends audit entries to the store. Writes are best-effort:
// failures are logged and surfaced on the error channel so operators can
// observe degraded mode, but the command proceeds.
type Logger struct {
	store  store.Store
	logger *slog.Logger
	errs   chan error
	now    func() time.Time
}

func NewLogger(s store.Store, logger *slog.Logger) *Logger {
	return &Logger{
		store:  s,
		logger: logger,
		errs:   make(chan error, 16),
		now:    time.Now,
	}
}

// Errors exposes audit write failures for observation.
func (l *Logger) Errors() <-chan error {
	return l.errs
}

// LogAttempt records that an action is about to be executed.
func (l *Logger) LogAttempt(ctx context.Context, a command.CandidateAction, ectx command.ExecutionContext) {
	l.append(ctx, a, ectx, StatusAttempted, "", nil)
}

// LogResult records the outcome of an executed action.
func (l *Logger) LogResult(ctx context.Context, a command.CandidateAction, ectx command.ExecutionContext, result command.ExecutionResult) {
	status := StatusCompleted
	if !result.Success {
		status = StatusFailed
	}
	l.append(ctx, a, ectx, status, result.Message, result.Errors)
}

func (l *Logger) append(ctx context.Context, a command.CandidateAction, ectx command.ExecutionContext, status Status, message string, errs []string) {
	ts := l.now().UTC()
	data := map[string]any{
		"actionTag":   string(a.Tag),
		"parameters":  command.ParamsMap(a.Params),
		"confidence":  a.Confidence,
		"safetyLevel": string(a.Safety),
		"actorId":     ectx.ActorID,
		"actorName":   ectx.ActorName,
		"sessionId":   ectx.SessionID,
		"source":      ectx.Source,
		"status":      string(status),
		"timestamp":   ts.Format(timeLayout),
	}
	if message != "" {
		data["message"] = message
	}
	if len(errs) > 0 {
		data["errors"] = errs
	}

	if _, err := l.store.Create(ctx, store.CollectionAuditLog, "", data); err != nil {
		l.logger.Error("audit write failed", "tag", a.Tag, "status", status, "error", err)
		select {
		case l.errs <- err:
		default:
			// Channel full: the slog record above is the fallback signal.
		}
	}
}

// CountRecent counts entries for an actor with a timestamp inside the
// trailing window. Read fresh from the store on every call; the rate
// limiter must see writes from other service instances.
func (l *Logger) CountRecent(ctx context.Context, actorID string, since time.Time) (int, error) {
	return l.store.Count(ctx, store.CollectionAuditLog, []store.Filter{
		store.Eq("actorId", actorID),
		{Field: "timestamp", Op: ">=", Value: since.UTC().Format(timeLayout)},
	})
}

// ListQuery filters the audit export.
type ListQuery struct {
	ActorID string
	From    time.Time
	To      time.Time
	Limit   int
}

// List returns audit entries for operational reporting, newest first.
func (l *Logger) List(ctx context.Context, q ListQuery) ([]Entry, error) {
	var filters []store.Filter
	if q.ActorID != "" {
		filters = append(filters, store.Eq("actorId", q.ActorID))
	}
	if !q.From.IsZero() {
		filters = append(filters, store.Filter{Field: "timestamp", Op: ">=", Value: q.From.UTC().Format(timeLayout)})
	}
	if !q.To.IsZero() {
		filters = append(filters, store.Filter{Field: "timestamp", Op: "<=", Value: q.To.UTC().Format(timeLayout)})
	}

	docs, err := l.store.Query(ctx, store.CollectionAuditLog, filters, store.QueryOpts{
		OrderBy:    "timestamp",
		Descending: true,
		Limit:      q.Limit,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, entryFromDoc(doc))
	}
	return entries, nil
}

func entryFromDoc(doc store.Document) Entry {
	e := Entry{
		ID:         doc.ID,
		ActionTag:  command.ActionTag(doc.Str("actionTag")),
		Confidence: doc.Num("confidence"),
		Safety:     command.SafetyLevel(doc.Str("safetyLevel")),
		ActorID:    doc.Str("actorId"),
		ActorName:  doc.Str("actorName"),
		SessionID:  doc.Str("sessionId"),
		Source:     doc.Str("source"),
		Status:     Status(doc.Str("status")),
		Message:    doc.Str("message"),
		Errors:     doc.Strings("errors"),
	}
	if params, ok := doc.Data["parameters"].(map[string]any); ok {
		e.Parameters = params
	}
	if ts, err := time.Parse(timeLayout, doc.Str("timestamp")); err == nil {
		e.Timestamp = ts
	}
	return e
}
