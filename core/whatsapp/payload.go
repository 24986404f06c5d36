// Package whatsapp is the WhatsApp Cloud API channel: webhook payload parsing, the signed
// webhook endpoint and the outbound messages client.
package whatsapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/leadbot/core/router"
)

// Channel is the channel name carried on events and used to pick the outbound sender.
const Channel = "whatsapp"

// ErrInvalidPayload is returned for bodies that are not a WhatsApp webhook notification.
var ErrInvalidPayload = errors.New("whatsapp: invalid payload")

// Payload is the webhook notification envelope.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups changes for one business account.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change is one notification inside an entry.
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value carries the messages or status updates of a change.
type Value struct {
	MessagingProduct string            `json:"messaging_product"`
	Metadata         Metadata          `json:"metadata"`
	Contacts         []Contact         `json:"contacts"`
	Messages         []Message         `json:"messages"`
	Statuses         []json.RawMessage `json:"statuses"`
}

// Metadata identifies the receiving business number.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Contact is the sender profile attached to messages.
type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// Message is one inbound user message.
type Message struct {
	From        string       `json:"from"`
	ID          string       `json:"id"`
	Timestamp   string       `json:"timestamp"`
	Type        string       `json:"type"`
	Text        *TextBody    `json:"text,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
	Button      *QuickReply  `json:"button,omitempty"`
}

// TextBody is the body of a text message.
type TextBody struct {
	Body string `json:"body"`
}

// Interactive is a reply to an interactive button or list message.
type Interactive struct {
	Type        string `json:"type"`
	ButtonReply *Reply `json:"button_reply,omitempty"`
	ListReply   *Reply `json:"list_reply,omitempty"`
}

// Reply identifies the tapped button or list row.
type Reply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// QuickReply is a template quick-reply button press.
type QuickReply struct {
	Payload string `json:"payload"`
	Text    string `json:"text"`
}

// ParsePayload decodes a webhook body.
func ParsePayload(body []byte) (Payload, error) {
	var p Payload
	if len(strings.TrimSpace(string(body))) == 0 {
		return p, ErrInvalidPayload
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return p, nil
}

// Events flattens every inbound message of p into channel-neutral events, in payload order.
// Status updates are skipped.
func (p Payload) Events() []router.Event {
	var out []router.Event
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string, len(change.Value.Contacts))
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}
			for _, m := range change.Value.Messages {
				out = append(out, m.event(names[m.From]))
			}
		}
	}
	return out
}

// StatusCount returns how many delivery status updates p carries.
func (p Payload) StatusCount() int {
	n := 0
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			n += len(change.Value.Statuses)
		}
	}
	return n
}

func (m Message) event(profile string) router.Event {
	ev := router.Event{
		Channel:     Channel,
		MessageID:   m.ID,
		SenderID:    m.From,
		Type:        m.Type,
		ProfileName: profile,
		ReceivedAt:  parseTimestamp(m.Timestamp),
	}
	switch {
	case m.Text != nil:
		ev.Text = m.Text.Body
	case m.Interactive != nil:
		reply := m.Interactive.ButtonReply
		if reply == nil {
			reply = m.Interactive.ListReply
		}
		if reply != nil {
			ev.ReplyID = reply.ID
			ev.ReplyTitle = reply.Title
		}
	case m.Button != nil:
		ev.ReplyID = m.Button.Payload
		ev.ReplyTitle = m.Button.Text
	}
	return ev
}

func parseTimestamp(s string) time.Time {
	sec, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
