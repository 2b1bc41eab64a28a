// internal/app/cycle_monitor.go
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"wf_reminder_bot/internal/domain/reminder"
	domainTelegram "wf_reminder_bot/internal/domain/telegram"
)

// CycleMonitor fires time-based reminders (cycle and custom) once their
// trigger time has passed.
type CycleMonitor struct {
	repo     reminder.Repository
	client   domainTelegram.Client
	renderer *Renderer
	logger   *logrus.Entry
	now      func() time.Time
}

func NewCycleMonitor(repo reminder.Repository, client domainTelegram.Client, renderer *Renderer, logger *logrus.Entry) *CycleMonitor {
	return &CycleMonitor{repo: repo, client: client, renderer: renderer, logger: logger, now: time.Now}
}

// Tick pops every due reminder and delivers it. Reminders are disabled
// before delivery, so a failed send is logged and not retried.
func (m *CycleMonitor) Tick(ctx context.Context) error {
	due, err := m.repo.PopDue(ctx, m.now().Unix(), reminder.KindCycle, reminder.KindCustom)
	if err != nil {
		return fmt.Errorf("failed to pop due reminders: %w", err)
	}
	for _, r := range due {
		log := m.logger.WithFields(logrus.Fields{"reminder_id": r.ID, "user_id": r.UserID, "kind": r.Kind})
		err := m.client.SendMessage(r.ChannelID, m.renderer.ReminderDue(r), &telebot.SendOptions{ParseMode: telebot.ModeHTML})
		if err != nil {
			log.WithError(err).Error("Failed to deliver reminder")
			continue
		}
		log.Info("Reminder delivered")
	}
	return nil
}
