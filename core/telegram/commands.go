package telegram

import tele "gopkg.in/telebot.v4"

// BotCommands lists the commands shown in the Telegram command menu. The words match the
// global conversation commands, so "/menu" is handled like typing "menu".
func BotCommands() []tele.Command {
	return []tele.Command{
		{Text: "start", Description: "Start over from the main menu"},
		{Text: "menu", Description: "Show the main menu"},
		{Text: "support", Description: "Talk to a person"},
		{Text: "language", Description: "Change language / تغيير اللغة"},
		{Text: "reset", Description: "Clear this conversation"},
	}
}
