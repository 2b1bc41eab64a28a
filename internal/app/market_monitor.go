package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"

	"wf_reminder_bot/internal/domain/market"
	"wf_reminder_bot/internal/domain/reminder"
	domainTelegram "wf_reminder_bot/internal/domain/telegram"
)

// MarketMonitor checks pending price alerts one item at a time, throttled
// to stay within the marketplace rate limit.
type MarketMonitor struct {
	repo     reminder.Repository
	source   MarketSource
	client   domainTelegram.Client
	renderer *Renderer
	limiter  *rate.Limiter
	logger   *logrus.Entry
}

// NewMarketMonitor allows one order-book request per interval. A
// non-positive interval disables throttling.
func NewMarketMonitor(repo reminder.Repository, source MarketSource, client domainTelegram.Client, renderer *Renderer, interval time.Duration, logger *logrus.Entry) *MarketMonitor {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &MarketMonitor{
		repo:     repo,
		source:   source,
		client:   client,
		renderer: renderer,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
	}
}

// Tick scans every pending market reminder, notifies the ones whose target
// is met and disables them in one batch at the end. A cancelled context stops
// the scan, but reminders that already fired are still disabled.
func (m *MarketMonitor) Tick(ctx context.Context) error {
	pending, err := m.repo.ListEnabled(ctx, reminder.KindMarket)
	if err != nil {
		return fmt.Errorf("failed to list market reminders: %w", err)
	}

	var fired []string
	scanErr := func() error {
		for _, r := range pending {
			if err := m.limiter.Wait(ctx); err != nil {
				return err
			}
			if m.check(ctx, r) {
				fired = append(fired, r.ID)
			}
		}
		return nil
	}()

	if len(fired) > 0 {
		n, err := m.repo.DisableMany(context.WithoutCancel(ctx), fired)
		if err != nil {
			return fmt.Errorf("failed to disable %d fired market reminders: %w", len(fired), err)
		}
		m.logger.WithFields(logrus.Fields{"fired": len(fired), "disabled": n}).Info("Market reminders fired")
	}
	if scanErr != nil {
		return fmt.Errorf("market scan interrupted: %w", scanErr)
	}
	return nil
}

// check reports whether r fired. A failed delivery still counts: the record
// is disabled either way.
func (m *MarketMonitor) check(ctx context.Context, r *reminder.Reminder) bool {
	t := r.Market
	log := m.logger.WithFields(logrus.Fields{"reminder_id": r.ID, "user_id": r.UserID, "slug": t.Slug})

	best, err := m.source.BestOrder(ctx, t.Slug, t.Side, t.Rank)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch best order")
		return false
	}
	if best == nil || !market.Triggered(t.Side, best.Price, t.TargetPrice) {
		return false
	}

	err = m.client.SendMessage(r.ChannelID, m.renderer.PriceReached(r, best), &telebot.SendOptions{ParseMode: telebot.ModeHTML})
	if err != nil {
		log.WithError(err).Error("Failed to deliver market reminder")
		return true
	}
	log.WithField("price", best.Price).Info("Market reminder delivered")
	return true
}
