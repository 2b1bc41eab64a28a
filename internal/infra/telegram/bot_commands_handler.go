// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// Commands is the command menu published to Telegram.
var Commands = []telebot.Command{
	{Text: "cycles", Description: "Current open-world cycles"},
	{Text: "fissures", Description: "Active void fissures [normal|hard|storm]"},
	{Text: "market", Description: "Best prices for an item"},
	{Text: "remind_cycle", Description: "Remind me before a cycle phase starts"},
	{Text: "remind_market", Description: "Alert me when a price is reached"},
	{Text: "remind_fissure", Description: "Alert me when a fissure mission appears"},
	{Text: "remind_in", Description: "Remind me in N minutes"},
	{Text: "reminders", Description: "List my pending reminders"},
	{Text: "cancel", Description: "Cancel a reminder by number or id"},
	{Text: "clear_reminders", Description: "Forget my fired and cancelled reminders"},
	{Text: "help", Description: "How to use this bot"},
}

const helpText = `<b>Lookups</b>
/cycles - Plains of Eidolon, Orb Vallis and Cambion Drift right now
/fissures [normal|hard|storm] - active void fissures
/market &lt;item&gt; - best sell and buy orders

<b>Reminders</b>
/remind_cycle &lt;region&gt; &lt;phase&gt; [minutes_before] - e.g. /remind_cycle cetus night 10
/remind_market &lt;sell|buy&gt; &lt;price&gt; &lt;item&gt; [rank=N] - sell watches sellers at or below the price, buy watches buyers at or above it
/remind_fissure &lt;mission&gt; [normal|hard|storm|all] - e.g. /remind_fissure Survival hard
/remind_in &lt;minutes&gt; &lt;label&gt;

/reminders - your pending reminders
/cancel &lt;number|id&gt; - cancel one
/clear_reminders - forget fired and cancelled ones

Every reminder fires once.`

// RegisterBotCommands registers /start and /help and publishes the command menu.
func RegisterBotCommands(b *telebot.Bot, baseLogger *logrus.Entry) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	if err := b.SetCommands(Commands); err != nil {
		startHelpLogger.WithError(err).Warn("Failed to publish the command menu")
	}

	b.Handle("/start", func(c telebot.Context) error {
		commandLogger(startHelpLogger, c, "/start")
		name := "Tenno"
		if c.Sender() != nil && c.Sender().FirstName != "" {
			name = c.Sender().FirstName
		}
		return c.Send(fmt.Sprintf("Hello, %s! I track Warframe cycles, fissures and market prices and ping you when something you care about happens. Use /help to see the commands.", name))
	})

	b.Handle("/help", func(c telebot.Context) error {
		commandLogger(startHelpLogger, c, "/help")
		return c.Send(helpText, telebot.ModeHTML)
	})
}
