// Package tenant holds the static client-brand configuration a conversation runs under.
package tenant

import (
	"time"

	"github.com/m3rciful/leadbot/core/lang"
)

const (
	// DefaultID is the tenant used when nothing more specific matches.
	DefaultID = "default"
	// PremiumID is the second demo tenant.
	PremiumID = "premium"
)

// WorkingHours describes when a human team is available.
// StartHour is inclusive and EndHour exclusive, both in tenant-local time.
type WorkingHours struct {
	Days      []time.Weekday
	StartHour int
	EndHour   int
	UTCOffset time.Duration
}

// Service is a catalog entry offered by the tenant.
type Service struct {
	ID          string
	Title       lang.Text
	Description lang.Text
}

// FAQEntry answers a question when any keyword of the user's language appears in the text.
type FAQEntry struct {
	Keywords map[lang.Language][]string
	Answer   lang.Text
}

// Contact is the human support channel shown to users.
type Contact struct {
	Name  string
	Phone string
	Email string
}

// Tenant is immutable once loaded into a Registry.
type Tenant struct {
	ID       string
	Name     lang.Text
	Hours    WorkingHours
	Services []Service
	FAQ      []FAQEntry
	Support  Contact
	// Labels overrides button titles by button id.
	Labels map[string]lang.Text
}

// Service looks up a catalog entry by id.
func (t *Tenant) Service(id string) (Service, bool) {
	if t == nil {
		return Service{}, false
	}
	for _, s := range t.Services {
		if s.ID == id {
			return s, true
		}
	}
	return Service{}, false
}

// Label returns the tenant override for a button, or fallback when none is configured.
func (t *Tenant) Label(buttonID string, l lang.Language, fallback lang.Text) string {
	if t != nil {
		if txt, ok := t.Labels[buttonID]; ok && !txt.IsZero() {
			return txt.Get(l)
		}
	}
	return fallback.Get(l)
}
