package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"wf_reminder_bot/internal/domain/fissure"
	"wf_reminder_bot/internal/domain/reminder"
	domainTelegram "wf_reminder_bot/internal/domain/telegram"
)

// FissureMonitor matches pending fissure reminders against the live snapshot.
type FissureMonitor struct {
	repo     reminder.Repository
	source   FissureSource
	client   domainTelegram.Client
	renderer *Renderer
	logger   *logrus.Entry
	now      func() time.Time
}

func NewFissureMonitor(repo reminder.Repository, source FissureSource, client domainTelegram.Client, renderer *Renderer, logger *logrus.Entry) *FissureMonitor {
	return &FissureMonitor{repo: repo, source: source, client: client, renderer: renderer, logger: logger, now: time.Now}
}

// Tick fetches one snapshot and fires every reminder that has a match. A
// reminder is claimed with Disable first and only delivered if the claim won.
func (m *FissureMonitor) Tick(ctx context.Context) error {
	pending, err := m.repo.ListEnabled(ctx, reminder.KindFissure)
	if err != nil {
		return fmt.Errorf("failed to list fissure reminders: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	snapshot, err := m.source.Fissures(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch fissures: %w", err)
	}
	now := m.now()

	for _, r := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log := m.logger.WithFields(logrus.Fields{"reminder_id": r.ID, "user_id": r.UserID})

		f, ok := fissure.FirstMatch(snapshot, r.Fissure.MissionType, r.Fissure.Difficulty, now)
		if !ok {
			continue
		}
		claimed, err := m.repo.Disable(ctx, r.ID)
		if err != nil {
			log.WithError(err).Error("Failed to disable fissure reminder")
			continue
		}
		if !claimed {
			log.Debug("Fissure reminder was cancelled before delivery")
			continue
		}

		err = m.client.SendMessage(r.ChannelID, m.renderer.FissureFound(r, f), &telebot.SendOptions{ParseMode: telebot.ModeHTML})
		if err != nil {
			log.WithError(err).Error("Failed to deliver fissure reminder")
			continue
		}
		log.WithField("fissure_id", f.ID).Info("Fissure reminder delivered")
	}
	return nil
}
