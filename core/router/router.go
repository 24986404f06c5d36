// Package router turns channel events into conversation inputs.
package router

import (
	"errors"
	"strings"
	"time"

	"github.com/m3rciful/leadbot/core/conversation"
)

// ErrMalformed marks events that cannot be attributed to a sender.
var ErrMalformed = errors.New("router: malformed event")

// Platform message types that carry a reply selection.
const (
	TypeText        = "text"
	TypeInteractive = "interactive"
	TypeButton      = "button"
)

// Event is a channel-neutral inbound message.
type Event struct {
	Channel   string
	MessageID string
	SenderID  string
	// Type is the platform message type ("text", "interactive", "image", ...).
	Type string
	Text string
	// ReplyID and ReplyTitle are set for button and list replies.
	ReplyID    string
	ReplyTitle string
	// ProfileName is the display name the platform reports, if any.
	ProfileName string
	ReceivedAt  time.Time
}

// Validate reports ErrMalformed for events without a sender.
func (e Event) Validate() error {
	if strings.TrimSpace(e.SenderID) == "" {
		return ErrMalformed
	}
	return nil
}

// Classify maps an event onto the state machine input kinds.
func Classify(e Event) (conversation.Input, error) {
	if err := e.Validate(); err != nil {
		return conversation.Input{}, err
	}
	typ := strings.ToLower(strings.TrimSpace(e.Type))
	switch typ {
	case TypeText:
		return conversation.Input{Kind: conversation.InputText, Text: strings.TrimSpace(e.Text)}, nil
	case TypeInteractive, TypeButton:
		if id := strings.TrimSpace(e.ReplyID); id != "" {
			return conversation.Input{Kind: conversation.InputSelection, Selection: id}, nil
		}
		// Template quick replies only carry the visible text.
		if title := strings.TrimSpace(e.ReplyTitle); title != "" {
			return conversation.Input{Kind: conversation.InputText, Text: title}, nil
		}
	}
	if typ == "" {
		typ = "unknown"
	}
	return conversation.Input{Kind: conversation.InputUnsupported, Media: typ}, nil
}
