package telegram

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"wf_reminder_bot/internal/app"
	"wf_reminder_bot/internal/domain/reminder"
)

// RegisterInfoHandlers registers the read-only lookups: cycles, fissures and
// market prices.
func RegisterInfoHandlers(ctx context.Context, b *telebot.Bot, tracker *app.CycleTracker, board *app.FissureBoard, marketSvc *app.MarketService, renderer *app.Renderer, baseLogger *logrus.Entry) {
	b.Handle("/cycles", func(c telebot.Context) error {
		log := commandLogger(baseLogger, c, "/cycles")
		cctx, cancel := context.WithTimeout(ctx, handlerTimeout)
		defer cancel()
		statuses, err := tracker.Statuses(cctx)
		if err != nil {
			log.WithError(err).Warn("Failed to load cycles")
			return c.Send(userMessage(err))
		}
		return c.Send(renderer.Cycles(statuses), telebot.ModeHTML)
	})

	b.Handle("/fissures", func(c telebot.Context) error {
		log := commandLogger(baseLogger, c, "/fissures")
		difficulty, err := reminder.ParseDifficulty(strings.Join(c.Args(), " "))
		if err != nil {
			return c.Send("Usage: /fissures [normal|hard|storm|all]")
		}
		cctx, cancel := context.WithTimeout(ctx, handlerTimeout)
		defer cancel()
		fissures, err := board.Active(cctx, difficulty)
		if err != nil {
			log.WithError(err).Warn("Failed to load fissures")
			return c.Send("Fissure data is unavailable right now, please try again later.")
		}
		return c.Send(renderer.Fissures(fissures), telebot.ModeHTML)
	})

	b.Handle("/market", func(c telebot.Context) error {
		log := commandLogger(baseLogger, c, "/market")
		query := strings.Join(c.Args(), " ")
		if strings.TrimSpace(query) == "" {
			return c.Send("Usage: /market <item>\nExample: /market Serration")
		}
		cctx, cancel := context.WithTimeout(ctx, handlerTimeout)
		defer cancel()
		quote, err := marketSvc.Lookup(cctx, query)
		if err != nil {
			log.WithError(err).Info("Market lookup failed")
			return c.Send(userMessage(err))
		}
		return c.Send(renderer.Quote(quote), telebot.ModeHTML)
	})
}
