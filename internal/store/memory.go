package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store used by tests and local development. It
// applies the same filter semantics as the Postgres implementation: field
// values are compared as their string form.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]Document

	// FailWrites makes every mutating call return an error, for exercising
	// degraded-mode paths.
	FailWrites bool
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]Document)}
}

func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDoc(doc), nil
}

func (m *Memory) Query(_ context.Context, collection string, filters []Filter, opts QueryOpts) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var docs []Document
	for _, doc := range m.collections[collection] {
		if matchesAll(doc, filters) {
			docs = append(docs, cloneDoc(doc))
		}
	}

	if opts.OrderBy != "" {
		sort.Slice(docs, func(i, j int) bool {
			a := fieldString(docs[i], opts.OrderBy)
			b := fieldString(docs[j], opts.OrderBy)
			if opts.Descending {
				return a > b
			}
			return a < b
		})
	}
	if opts.Limit > 0 && len(docs) > opts.Limit {
		docs = docs[:opts.Limit]
	}
	return docs, nil
}

func (m *Memory) Count(_ context.Context, collection string, filters []Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, doc := range m.collections[collection] {
		if matchesAll(doc, filters) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) Create(_ context.Context, collection, id string, data map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return "", fmt.Errorf("memory store: writes disabled")
	}
	if id == "" {
		id = uuid.New().String()
	}
	if _, exists := m.collections[collection][id]; exists {
		return "", fmt.Errorf("document %s/%s already exists", collection, id)
	}

	now := time.Now().UTC()
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]Document)
	}
	m.collections[collection][id] = Document{
		ID:         id,
		Collection: collection,
		Data:       cloneData(data),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return id, nil
}

func (m *Memory) UpdateFields(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return fmt.Errorf("memory store: writes disabled")
	}
	doc, ok := m.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		doc.Data[k] = v
	}
	doc.UpdatedAt = time.Now().UTC()
	m.collections[collection][id] = doc
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return fmt.Errorf("memory store: writes disabled")
	}
	if _, ok := m.collections[collection][id]; !ok {
		return ErrNotFound
	}
	delete(m.collections[collection], id)
	return nil
}

// SetCreatedAt backdates a document's created_at, for tests that need
// entries at a known point in the rate-limit window.
func (m *Memory) SetCreatedAt(collection, id string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc, ok := m.collections[collection][id]; ok {
		doc.CreatedAt = at
		m.collections[collection][id] = doc
	}
}

func matchesAll(doc Document, filters []Filter) bool {
	for _, f := range filters {
		if !matches(doc, f) {
			return false
		}
	}
	return true
}

func matches(doc Document, f Filter) bool {
	got := fieldString(doc, f.Field)
	want := fmt.Sprintf("%v", f.Value)
	switch f.Op {
	case "==", "":
		return got == want
	case "!=":
		return got != want
	case ">":
		return got > want
	case ">=":
		return got >= want
	case "<":
		return got < want
	case "<=":
		return got <= want
	}
	return false
}

func fieldString(doc Document, field string) string {
	v, ok := doc.Data[field]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func cloneDoc(doc Document) Document {
	doc.Data = cloneData(doc.Data)
	return doc
}

func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
