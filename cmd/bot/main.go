package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"wf_reminder_bot/internal/app"
	"wf_reminder_bot/internal/domain/cycle"
	"wf_reminder_bot/internal/domain/reminder"
	"wf_reminder_bot/internal/infra/config"
	idb "wf_reminder_bot/internal/infra/database"
	"wf_reminder_bot/internal/infra/logger"
	marketapi "wf_reminder_bot/internal/infra/market"
	"wf_reminder_bot/internal/infra/scheduler"
	"wf_reminder_bot/internal/infra/storage"
	"wf_reminder_bot/internal/infra/telegram"
	"wf_reminder_bot/internal/infra/warframestat"
)

// Each monitor run gets this long before its context is cancelled.
const (
	cycleMonitorTimeout   = 30 * time.Second
	fissureMonitorTimeout = time.Minute
	marketMonitorTimeout  = 5 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.WithError(err).Fatal("Could not load application configuration")
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")

	mainLogger.WithFields(logrus.Fields{
		"log_level":     cfg.LogLevel,
		"environment":   cfg.Environment,
		"store_backend": cfg.StoreBackend,
		"timezone":      cfg.Location.String(),
	}).Info("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, db, err := openStore(ctx, cfg)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not open reminder store")
	}
	if db != nil {
		defer db.Close()
	}
	mainLogger.WithField("store_backend", cfg.StoreBackend).Info("Reminder store initialized")

	regions, err := cycle.LoadRegions()
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not load region catalog")
	}

	worldState := warframestat.NewClient(cfg.WorldStateURL, cfg.HTTPTimeout)
	marketClient := marketapi.NewClient(cfg.MarketURL, cfg.HTTPTimeout, cfg.CatalogTTL)

	tracker := app.NewCycleTracker(worldState, regions)
	board := app.NewFissureBoard(worldState)
	marketService := app.NewMarketService(marketClient)
	reminderService := app.NewReminderService(repo, tracker, marketService, logger.Component("reminder_service"))
	renderer := app.NewRenderer(cfg.Location)

	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := logger.Component("telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{
					"message":   c.Text(),
					"sender_id": c.Sender().ID,
					"chat_id":   c.Chat().ID,
				})
			}
			entry.Error("Unhandled bot error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}
	client := telegram.NewTelebotAdapter(bot)

	handlersLogger := logger.Component("telegram")
	telegram.RegisterBotCommands(bot, handlersLogger)
	telegram.RegisterInfoHandlers(ctx, bot, tracker, board, marketService, renderer, handlersLogger)
	telegram.RegisterReminderHandlers(ctx, bot, reminderService, renderer, handlersLogger)
	mainLogger.Info("Command handlers registered")

	cycleMonitor := app.NewCycleMonitor(repo, client, renderer, logger.Component("cycle_monitor"))
	fissureMonitor := app.NewFissureMonitor(repo, worldState, client, renderer, logger.Component("fissure_monitor"))
	marketMonitor := app.NewMarketMonitor(repo, marketClient, client, renderer, cfg.MarketRequestInterval, logger.Component("market_monitor"))

	monitors := scheduler.NewMonitorScheduler(logger.Component("scheduler"), cfg.Location)
	jobs := []struct {
		name    string
		spec    string
		timeout time.Duration
		job     scheduler.Job
	}{
		{"cycle", cfg.CycleMonitorSpec, cycleMonitorTimeout, cycleMonitor.Tick},
		{"fissure", cfg.FissureMonitorSpec, fissureMonitorTimeout, fissureMonitor.Tick},
		{"market", cfg.MarketMonitorSpec, marketMonitorTimeout, marketMonitor.Tick},
	}
	for _, j := range jobs {
		if _, err := monitors.Register(j.name, j.spec, j.timeout, j.job); err != nil {
			mainLogger.WithError(err).WithField("monitor", j.name).Fatal("Could not schedule monitor")
		}
	}
	monitors.Start()
	for _, j := range jobs {
		if next, ok := monitors.Next(j.name); ok {
			mainLogger.WithFields(logrus.Fields{"monitor": j.name, "next_run": next.Format(time.RFC3339)}).Info("Monitor scheduled")
		}
	}

	mainLogger.Info("Application setup complete. Bot and monitors are starting")
	go bot.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	mainLogger.WithField("signal", sig.String()).Info("Shutting down application")
	bot.Stop()
	cancel()
	monitors.Stop()
	mainLogger.Info("Application shut down gracefully")
}

// openStore builds the configured reminder repository. The returned *sql.DB
// is nil for the file backend.
func openStore(ctx context.Context, cfg *config.AppConfig) (reminder.Repository, *sql.DB, error) {
	if cfg.StoreBackend != config.StorePostgres {
		return storage.NewFileReminderRepository(cfg.StorePath, logger.Component("file_store")), nil, nil
	}

	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	repo := idb.NewPostgresReminderRepository(db, logger.Component("postgres_store"))
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return repo, db, nil
}
