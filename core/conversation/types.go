// Package conversation is the per-sender state machine. Decide is pure: it reads a session
// snapshot and an input, and returns the session changes, the replies and an optional record.
// Callers commit the changes before sending anything.
package conversation

import (
	"time"

	"github.com/m3rciful/leadbot/core/lang"
	"github.com/m3rciful/leadbot/core/outbound"
	"github.com/m3rciful/leadbot/core/records"
	"github.com/m3rciful/leadbot/core/session"
	"github.com/m3rciful/leadbot/core/tenant"
)

// InputKind classifies an inbound unit of input.
type InputKind string

const (
	InputText        InputKind = "text"
	InputSelection   InputKind = "selection"
	InputUnsupported InputKind = "unsupported"
)

// Input is what the router hands to the machine.
type Input struct {
	Kind      InputKind
	Text      string
	Selection string
	// Media is the platform type of unsupported input, for logs.
	Media string
}

// Outcome values reported in Decision.Outcome.
const (
	OutcomeOK        = "ok"
	OutcomeReprompt  = "reprompt"
	OutcomeCompleted = "completed"
)

// Decision is everything a single input produces.
type Decision struct {
	// Handler names the dispatch cell or command that ran.
	Handler string
	Outcome string
	// Reset asks the store to return the session to the main menu before Patch is applied.
	Reset      bool
	Patch      session.Patch
	Directives []outbound.Directive
	// Record is set when a flow completed. ID, tenant, sender, language and time are filled by the caller.
	Record *records.Record
}

// NextState returns the state the session ends in once the decision is committed.
func (d Decision) NextState(current session.State) session.State {
	if d.Patch.State != nil {
		return *d.Patch.State
	}
	if d.Reset {
		return session.StateMainMenu
	}
	return current
}

// Config parameterizes a Machine.
type Config struct {
	// RequireLanguage gates every new session behind an explicit language pick.
	RequireLanguage bool
	// DefaultLanguage is used when auto-detection finds no Arabic script.
	DefaultLanguage lang.Language
	Tenants         *tenant.Registry
	Now             func() time.Time
}

// InitialState is the state new sessions should start in.
func (c Config) InitialState() session.State {
	if c.RequireLanguage {
		return session.StateLanguageSelect
	}
	return session.StateMainMenu
}
