package session

import (
	"context"
	"errors"
	"time"

	"github.com/m3rciful/leadbot/core/lang"
)

// State identifies a step of the conversation.
type State string

const (
	StateLanguageSelect       State = "LANGUAGE_SELECT"
	StateMainMenu             State = "MAIN_MENU"
	StateServicesMenu         State = "SERVICES_MENU"
	StateMoreMenu             State = "MORE_MENU"
	StateBookMeetingName      State = "BOOK_MEETING_NAME"
	StateBookMeetingEmail     State = "BOOK_MEETING_EMAIL"
	StateBookMeetingTopic     State = "BOOK_MEETING_TOPIC"
	StateLeadService          State = "LEAD_SERVICE"
	StateLeadOtherServiceText State = "LEAD_OTHER_SERVICE_TEXT"
	StateLeadBudget           State = "LEAD_BUDGET"
	StateLeadTimeline         State = "LEAD_TIMELINE"
	StateLeadNotes            State = "LEAD_NOTES"
	StateHandoverReason       State = "HANDOVER_REASON"
)

// States is the closed set of conversation states.
var States = []State{
	StateLanguageSelect,
	StateMainMenu,
	StateServicesMenu,
	StateMoreMenu,
	StateBookMeetingName,
	StateBookMeetingEmail,
	StateBookMeetingTopic,
	StateLeadService,
	StateLeadOtherServiceText,
	StateLeadBudget,
	StateLeadTimeline,
	StateLeadNotes,
	StateHandoverReason,
}

// Valid reports whether s belongs to States.
func (s State) Valid() bool {
	for _, st := range States {
		if st == s {
			return true
		}
	}
	return false
}

// Field names a piece of data collected by a flow.
type Field string

const (
	FieldName     Field = "name"
	FieldEmail    Field = "email"
	FieldTopic    Field = "topic"
	FieldService  Field = "service"
	FieldBudget   Field = "budget"
	FieldTimeline Field = "timeline"
	FieldNotes    Field = "notes"
	FieldReason   Field = "reason"
)

// Session is the per-sender conversation state.
type Session struct {
	SenderID     string
	State        State
	Language     lang.Language
	TenantID     string
	Data         map[Field]string
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// Value returns a collected field, or "" when it is absent.
func (s Session) Value(f Field) string {
	return s.Data[f]
}

// Has reports whether f has been collected.
func (s Session) Has(f Field) bool {
	_, ok := s.Data[f]
	return ok
}

func (s Session) clone() Session {
	out := s
	out.Data = make(map[Field]string, len(s.Data))
	for k, v := range s.Data {
		out.Data[k] = v
	}
	return out
}

// Patch is a partial update. Nil pointers and absent Data keys leave the session untouched.
// ClearData empties collected data before Data is merged in.
type Patch struct {
	State     *State
	Language  *lang.Language
	ClearData bool
	Data      map[Field]string
}

// IsZero reports whether the patch changes nothing besides the activity timestamp.
func (p Patch) IsZero() bool {
	return p.State == nil && p.Language == nil && !p.ClearData && len(p.Data) == 0
}

// To returns a patch that moves the session to st.
func To(st State) Patch {
	return Patch{State: &st}
}

// WithLanguage adds a language change to the patch.
func (p Patch) WithLanguage(l lang.Language) Patch {
	p.Language = &l
	return p
}

// Set adds a field value to the patch.
func (p Patch) Set(f Field, v string) Patch {
	data := make(map[Field]string, len(p.Data)+1)
	for k, val := range p.Data {
		data[k] = val
	}
	data[f] = v
	p.Data = data
	return p
}

// Clear marks the patch to drop previously collected data.
func (p Patch) Clear() Patch {
	p.ClearData = true
	return p
}

// SweepResult reports what a sweep evicted.
type SweepResult struct {
	Sessions int
	Messages int
}

var (
	// ErrEmptySender is returned for operations without a sender identifier.
	ErrEmptySender = errors.New("session: empty sender id")
	// ErrLockAborted is returned by Lock when ctx ends before the lock is acquired.
	ErrLockAborted = errors.New("session: lock wait aborted")
)

// Store keeps conversation sessions and recently processed message ids.
type Store interface {
	// Get returns the sender's session, creating it on first contact.
	Get(ctx context.Context, senderID string) (Session, error)
	// Patch merges p into the sender's session and refreshes its activity time.
	Patch(ctx context.Context, senderID string, p Patch) (Session, error)
	// Reset returns the session to the main menu with no collected data.
	// Tenant and language are preserved.
	Reset(ctx context.Context, senderID string) (Session, error)
	// Sweep evicts idle sessions and expired dedupe entries.
	Sweep(now time.Time) SweepResult
	// MarkSeen records messageID and reports whether it was already seen within the dedupe window.
	MarkSeen(ctx context.Context, messageID string) (bool, error)
	// Forget drops messageID so a redelivery is processed again.
	Forget(ctx context.Context, messageID string) error
	// Lock serializes work for one sender until the returned func is called.
	// It gives up with ErrLockAborted when ctx ends first.
	Lock(ctx context.Context, senderID string) (unlock func(), err error)
}
