package telegram

import "gopkg.in/telebot.v3"

// Client defines an interface for sending messages via a Telegram bot.
// Monitors deliver notifications through it without depending on the bot itself.
type Client interface {
	SendMessage(chatID int64, text string, options *telebot.SendOptions) error
}
