package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/m3rciful/leadbot/core/outbound"

	tele "gopkg.in/telebot.v4"
)

// ErrBadRecipient is returned when a sender id is not a "tg:<chat id>" id.
var ErrBadRecipient = errors.New("telegram: bad recipient")

// Messenger is the part of *tele.Bot the transport needs.
type Messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// SendError wraps a Bot API failure with its status so the sender can decide on retries.
type SendError struct {
	Status int
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("telegram: send failed (%d): %v", e.Status, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// StatusCode implements netutil.StatusCoder.
func (e *SendError) StatusCode() int { return e.Status }

// Code returns the short code used in handler summaries.
func (e *SendError) Code() string {
	return fmt.Sprintf("TG_%d", e.Status)
}

// Transport delivers directives through the Bot API. It implements outbound.Transport.
type Transport struct {
	bot Messenger
}

// NewTransport wraps bot.
func NewTransport(bot Messenger) *Transport {
	return &Transport{bot: bot}
}

// SendText implements outbound.Transport.
func (t *Transport) SendText(ctx context.Context, to, body string) error {
	return t.send(ctx, to, body, &tele.SendOptions{DisableWebPagePreview: true})
}

// SendButtons implements outbound.Transport. Buttons render as a one-per-row inline keyboard.
func (t *Transport) SendButtons(ctx context.Context, to, body string, buttons []outbound.Button) error {
	return t.send(ctx, to, body, &tele.SendOptions{ReplyMarkup: InlineKeyboard(buttons)})
}

func (t *Transport) send(ctx context.Context, to, body string, opts *tele.SendOptions) error {
	chatID, ok := ParseSenderID(to)
	if !ok {
		return fmt.Errorf("%w: %q", ErrBadRecipient, to)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Send(tele.ChatID(chatID), body, opts); err != nil {
		return wrapSendError(err)
	}
	return nil
}

// wrapSendError attaches the API status when telebot reports one. Transport-level failures are
// returned as is so the retry classifier still sees the network error.
func wrapSendError(err error) error {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) && apiErr.Code > 0 {
		return &SendError{Status: apiErr.Code, Err: err}
	}
	return err
}

// InlineKeyboard builds an inline keyboard with one button per row. The button id travels as
// raw callback data.
func InlineKeyboard(buttons []outbound.Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	rows := make([][]tele.InlineButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []tele.InlineButton{{Text: b.Title, Data: b.ID}})
	}
	markup.InlineKeyboard = rows
	return markup
}
