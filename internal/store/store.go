package store

import (
	"context"
	"errors"
	"time"
)

// Collection names used by the command pipeline.
const (
	CollectionJobs           = "jobs"
	CollectionBookings       = "bookings"
	CollectionStaff          = "staff"
	CollectionAuditLog       = "audit_log"
	CollectionNotifications  = "notifications"
	CollectionUsageLog       = "usage_log"
	CollectionCalendarEvents = "calendar_events"
)

// ErrNotFound is returned by Get when no document matches.
var ErrNotFound = errors.New("document not found")

// Document is a single record in a collection. Data holds the document body;
// timestamps are server-assigned on write.
type Document struct {
	ID         string
	Collection string
	Data       map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Str returns a string field, or "" when absent or not a string.
func (d Document) Str(key string) string {
	s, _ := d.Data[key].(string)
	return s
}

// Bool returns a bool field, false when absent.
func (d Document) Bool(key string) bool {
	b, _ := d.Data[key].(bool)
	return b
}

// Num returns a numeric field as float64. JSON numbers decode as float64;
// int values written by the memory store are converted.
func (d Document) Num(key string) float64 {
	switch v := d.Data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Strings returns a string-slice field, tolerating []any from JSON decoding.
func (d Document) Strings(key string) []string {
	switch v := d.Data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Filter is a single field predicate applied to the document body.
type Filter struct {
	Field string
	Op    string // "==", "!=", ">", ">=", "<", "<="
	Value any
}

// Eq is shorthand for an equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: "==", Value: value}
}

// QueryOpts controls ordering and result size.
type QueryOpts struct {
	OrderBy    string
	Descending bool
	Limit      int
}

// Store is the generic document CRUD + query service the pipeline runs
// against. It is the single source of truth: callers re-read state per
// request and keep no caches of their own.
type Store interface {
	// Get fetches one document, returning ErrNotFound when absent.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Query returns documents matching all filters.
	Query(ctx context.Context, collection string, filters []Filter, opts QueryOpts) ([]Document, error)
	// Count returns the number of documents matching all filters.
	Count(ctx context.Context, collection string, filters []Filter) (int, error)
	// Create inserts a document. An empty id requests a generated one;
	// the assigned id is returned.
	Create(ctx context.Context, collection, id string, data map[string]any) (string, error)
	// UpdateFields merges the given fields into an existing document.
	UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes a document.
	Delete(ctx context.Context, collection, id string) error
}
