// Package records stores the structured output of completed flows: meeting requests,
// qualified leads and handover tickets. Records are append-only; the bot never reads them back.
package records

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Kind names the flow that produced a record.
type Kind string

const (
	KindMeeting  Kind = "meeting"
	KindLead     Kind = "lead"
	KindHandover Kind = "handover"
)

// Handover statuses.
const (
	StatusOpen       = "open"
	StatusAfterHours = "after_hours"
)

var (
	// ErrUnknownDriver is returned for an unsupported records driver name.
	ErrUnknownDriver = errors.New("records: unknown driver")
	// ErrInvalidRecord is returned when a record misses its kind, tenant or sender.
	ErrInvalidRecord = errors.New("records: invalid record")
)

// Record is one completed flow.
type Record struct {
	ID        uuid.UUID         `json:"id"`
	Kind      Kind              `json:"kind"`
	TenantID  string            `json:"tenant_id"`
	SenderID  string            `json:"sender_id"`
	Language  string            `json:"language"`
	Fields    map[string]string `json:"fields"`
	Score     string            `json:"score,omitempty"`
	Status    string            `json:"status,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Validate checks the identifying fields.
func (r Record) Validate() error {
	switch {
	case r.Kind != KindMeeting && r.Kind != KindLead && r.Kind != KindHandover:
		return ErrInvalidRecord
	case r.TenantID == "" || r.SenderID == "":
		return ErrInvalidRecord
	}
	return nil
}

// Stamp fills the id and creation time when they are still zero.
func (r *Record) Stamp(now time.Time) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now.UTC()
	}
}

// Sink accepts completed records.
type Sink interface {
	Append(ctx context.Context, r Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r Record) error

// Append calls f.
func (f SinkFunc) Append(ctx context.Context, r Record) error {
	return f(ctx, r)
}
