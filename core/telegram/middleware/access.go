package middleware

import (
	"log/slog"

	"github.com/m3rciful/leadbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// PrivateOnly drops updates from groups and channels. Conversations are one-to-one.
func PrivateOnly(onReject tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil || chat.Type == tele.ChatPrivate {
				return next(c)
			}
			logger.Debug(ContextFrom(c), "tg", "tg.reject",
				slog.Int64("chat_id", chat.ID),
				slog.String("chat_type", string(chat.Type)),
			)
			if onReject != nil {
				return onReject(c)
			}
			return nil
		}
	}
}
