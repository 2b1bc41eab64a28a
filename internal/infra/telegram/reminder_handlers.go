package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"wf_reminder_bot/internal/app"
	"wf_reminder_bot/internal/domain/cycle"
	"wf_reminder_bot/internal/domain/reminder"
)

// handlerTimeout bounds the upstream calls a single command may make.
const handlerTimeout = 20 * time.Second

const (
	usageRemindCycle   = "Usage: /remind_cycle <region> <phase> [minutes_before]\nExample: /remind_cycle cetus night 10"
	usageRemindMarket  = "Usage: /remind_market <sell|buy> <price> <item> [rank=N]\nExample: /remind_market sell 50 Serration rank=10"
	usageRemindFissure = "Usage: /remind_fissure <mission> [normal|hard|storm|all]\nExample: /remind_fissure Survival hard"
	usageRemindIn      = "Usage: /remind_in <minutes> <label>\nExample: /remind_in 30 Baro arrives"
	usageCancel        = "Usage: /cancel <index|id>. See /reminders for the numbers."
)

// userMessage turns a service error into a reply for the user.
func userMessage(err error) string {
	var notFound *app.ItemNotFoundError
	switch {
	case errors.As(err, &notFound):
		if len(notFound.Suggestions) == 0 {
			return fmt.Sprintf("Item %q not found.", notFound.Query)
		}
		names := make([]string, 0, len(notFound.Suggestions))
		for _, s := range notFound.Suggestions {
			names = append(names, s.Name)
		}
		return fmt.Sprintf("Item %q not found. Did you mean: %s?", notFound.Query, strings.Join(names, ", "))
	case errors.Is(err, cycle.ErrRegionNotFound):
		return "Unknown region. Try cetus, vallis or cambion."
	case errors.Is(err, app.ErrPhaseNotFound),
		errors.Is(err, app.ErrRankNotSupported),
		errors.Is(err, app.ErrRankOutOfRange),
		errors.Is(err, app.ErrInvalidPrice),
		errors.Is(err, app.ErrInvalidSide),
		errors.Is(err, app.ErrEmptyMission),
		errors.Is(err, app.ErrEmptyLabel),
		errors.Is(err, app.ErrTimeInPast),
		errors.Is(err, reminder.ErrInvalidDifficulty):
		return capitalize(err.Error()) + "."
	case errors.Is(err, app.ErrCycleUnavailable):
		return "Cycle data is unavailable right now, please try again in a minute."
	case errors.Is(err, app.ErrMarketUnavailable):
		return "The market is not answering right now, please try again later."
	case errors.Is(err, reminder.ErrReminderNotFound):
		return "No such reminder. See /reminders for the numbers."
	case errors.Is(err, app.ErrAlreadyHandled):
		return "That reminder has already fired or been cancelled."
	case errors.Is(err, app.ErrAmbiguousID):
		return "That id matches more than one reminder, please give more of it."
	default:
		return "Something went wrong, please try again later."
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// RegisterReminderHandlers registers the commands that create, list and
// cancel reminders.
func RegisterReminderHandlers(ctx context.Context, b *telebot.Bot, svc *app.ReminderService, renderer *app.Renderer, baseLogger *logrus.Entry) {
	// reply reports a service error to the user, logging the unexpected ones.
	reply := func(c telebot.Context, log *logrus.Entry, err error) error {
		msg := userMessage(err)
		if strings.HasPrefix(msg, "Something went wrong") {
			log.WithError(err).Error("Command failed")
		} else {
			log.WithError(err).Info("Command rejected")
		}
		return c.Send(msg)
	}
	created := func(c telebot.Context, log *logrus.Entry, r *reminder.Reminder) error {
		log.WithField("reminder_id", r.ID).Info("Reminder created")
		return c.Send(renderer.ReminderCreated(r), telebot.ModeHTML)
	}

	b.Handle("/remind_cycle", func(c telebot.Context) error {
		log := commandLogger(baseLogger, c, "/remind_cycle")
		args, err := parseCycleArgs(c.Args())
		if err != nil {
			if errors.Is(err, errUsage) {
				return c.Send(usageRemindCycle)
			}
			return c.Send(capitalize(err.Error()) + ".")
		}
		cctx, cancel := context.WithTimeout(ctx, handlerTimeout)
		defer cancel()
		r, err := svc.CreateCycleReminder(cctx, c.Sender().ID, c.Chat().ID, args.Region, args.Phase, args.LeadMinutes)
		if err != nil {
			return reply(c, log, err)
		}
		return created(c, log, r)
	})

	b.Handle("/remind_market", func(c telebot.Context) error {
		log := commandLogger(baseLogger, c, "/remind_market")
		args, err := parseMarketArgs(c.Args())
		if err != nil {
			if errors.Is(err, errUsage) {
				return c.Send(usageRemindMarket)
			}
			return c.Send(capitalize(err.Error()) + ".")
		}
		cctx, cancel := context.WithTimeout(ctx, handlerTimeout)
		defer cancel()
		r, err := svc.CreateMarketReminder(cctx, c.Sender().ID, c.Chat().ID, args.Query, args.Side, args.Price, args.Rank)
		if err != nil {
			return reply(c, log, err)
		}
		return created(c, log, r)
	})

	b.Handle("/remind_fissure", func(c telebot.Context) error {
		log := commandLogger(baseLogger, c, "/remind_fissure")
		mission, difficulty, err := parseFissureArgs(c.Args())
		if err != nil {
			return c.Send(usageRemindFissure)
		}
		r, err := svc.CreateFissureReminder(ctx, c.Sender().ID, c.Chat().ID, mission, difficulty)
		if err != nil {
			return reply(c, log, err)
		}
		return created(c, log, r)
	})

	b.Handle("/remind_in", func(c telebot.Context) error {
		log := commandLogger(baseLogger, c, "/remind_in")
		minutes, label, err := parseRemindIn(c.Args())
		if err != nil {
			if errors.Is(err, errUsage) {
				return c.Send(usageRemindIn)
			}
			return c.Send(capitalize(err.Error()) + ".")
		}
		at := time.Now().Add(time.Duration(minutes) * time.Minute)
		r, err := svc.CreateCustomReminder(ctx, c.Sender().ID, c.Chat().ID, label, at)
		if err != nil {
			return reply(c, log, err)
		}
		return created(c, log, r)
	})

	b.Handle("/reminders", func(c telebot.Context) error {
		log := commandLogger(baseLogger, c, "/reminders")
		items, err := svc.List(ctx, c.Sender().ID)
		if err != nil {
			return reply(c, log, err)
		}
		return c.Send(renderer.ReminderList(items), telebot.ModeHTML)
	})

	b.Handle("/cancel", func(c telebot.Context) error {
		log := commandLogger(baseLogger, c, "/cancel")
		index, id, err := parseCancelArg(c.Args())
		if err != nil {
			return c.Send(usageCancel)
		}
		var r *reminder.Reminder
		if id != "" {
			r, err = svc.CancelByID(ctx, c.Sender().ID, id)
		} else {
			r, err = svc.CancelByIndex(ctx, c.Sender().ID, index)
		}
		if err != nil {
			return reply(c, log, err)
		}
		log.WithField("reminder_id", r.ID).Info("Reminder cancelled")
		return c.Send(fmt.Sprintf("Cancelled: %s", r.DisplayName))
	})

	b.Handle("/clear_reminders", func(c telebot.Context) error {
		log := commandLogger(baseLogger, c, "/clear_reminders")
		n, err := svc.ClearHistory(ctx, c.Sender().ID)
		if err != nil {
			return reply(c, log, err)
		}
		return c.Send(fmt.Sprintf("Removed %d fired or cancelled reminders.", n))
	})
}

func commandLogger(base *logrus.Entry, c telebot.Context, command string) *logrus.Entry {
	fields := logrus.Fields{"handler": command}
	if c.Sender() != nil {
		fields["sender_id"] = c.Sender().ID
	}
	if c.Chat() != nil {
		fields["chat_id"] = c.Chat().ID
	}
	log := base.WithFields(fields)
	log.Info("Command received")
	return log
}
