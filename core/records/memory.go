package records

import (
	"context"
	"sync"
)

// MemoryLog keeps records in process memory. It is the default sink and the one tests read back.
type MemoryLog struct {
	mu    sync.Mutex
	items []Record
}

// NewMemoryLog returns an empty log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append implements Sink.
func (m *MemoryLog) Append(_ context.Context, r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	r.Fields = cloneFields(r.Fields)
	m.mu.Lock()
	m.items = append(m.items, r)
	m.mu.Unlock()
	return nil
}

// All returns a snapshot of the appended records in order.
func (m *MemoryLog) All() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.items))
	for i, r := range m.items {
		r.Fields = cloneFields(r.Fields)
		out[i] = r
	}
	return out
}

// Len returns the number of appended records.
func (m *MemoryLog) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close implements Store.
func (m *MemoryLog) Close() error { return nil }

func cloneFields(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
