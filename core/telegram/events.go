// Package telegram is the optional Telegram channel: a telebot runtime that turns updates into
// engine events and a transport that renders directives as messages with inline keyboards.
package telegram

import (
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/leadbot/core/router"

	tele "gopkg.in/telebot.v4"
)

// Channel is the channel name carried on events and used to pick the outbound sender.
const Channel = "telegram"

const senderPrefix = "tg:"

// SenderID returns the engine sender id for a chat.
func SenderID(chatID int64) string {
	return senderPrefix + strconv.FormatInt(chatID, 10)
}

// ParseSenderID extracts the chat id from a "tg:<chat id>" sender.
func ParseSenderID(id string) (int64, bool) {
	raw, ok := strings.CutPrefix(id, senderPrefix)
	if !ok || raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// EventFromUpdate maps a Telegram update onto a channel-neutral event.
// It reports false for updates that carry no chat (inline queries, polls, ...).
func EventFromUpdate(u tele.Update, now time.Time) (router.Event, bool) {
	ev := router.Event{
		Channel:    Channel,
		MessageID:  strconv.Itoa(u.ID),
		ReceivedAt: now,
	}
	switch {
	case u.Callback != nil:
		cb := u.Callback
		if cb.Message == nil || cb.Message.Chat == nil {
			return router.Event{}, false
		}
		ev.SenderID = SenderID(cb.Message.Chat.ID)
		ev.Type = router.TypeInteractive
		ev.ReplyID = callbackData(cb)
		ev.ProfileName = displayName(cb.Sender)
		return ev, true
	case u.Message != nil:
		m := u.Message
		if m.Chat == nil {
			return router.Event{}, false
		}
		ev.SenderID = SenderID(m.Chat.ID)
		ev.ProfileName = displayName(m.Sender)
		if m.Unixtime > 0 {
			ev.ReceivedAt = m.Time()
		}
		ev.Type = messageType(m)
		if ev.Type == router.TypeText {
			ev.Text = m.Text
		}
		return ev, true
	}
	return router.Event{}, false
}

func messageType(m *tele.Message) string {
	switch {
	case m.Text != "":
		return router.TypeText
	case m.Photo != nil:
		return "image"
	case m.Voice != nil, m.Audio != nil:
		return "audio"
	case m.Video != nil, m.VideoNote != nil:
		return "video"
	case m.Document != nil:
		return "document"
	case m.Sticker != nil:
		return "sticker"
	case m.Location != nil:
		return "location"
	case m.Contact != nil:
		return "contacts"
	}
	return "unknown"
}

// callbackData returns the pressed button id. Buttons built by this package carry the id as raw
// callback data; telebot-style "\f<unique>|<payload>" data is folded back into "unique|payload".
func callbackData(cb *tele.Callback) string {
	if cb.Unique != "" {
		if cb.Data == "" {
			return cb.Unique
		}
		return cb.Unique + "|" + cb.Data
	}
	return strings.TrimSpace(strings.TrimPrefix(cb.Data, "\f"))
}

func displayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}
