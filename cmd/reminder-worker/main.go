// reminder-worker runs the due-date sweep and weekly summary as a
// standalone process, for deployments where the bot server and the
// scheduler are scaled separately. It runs one sweep on startup and then
// follows the configured schedule.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gastobot/internal/config"
	applog "gastobot/internal/log"
	"gastobot/internal/messaging"
	"gastobot/internal/services"
	"gastobot/internal/store/factory"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentScheduler,
	})
	applog.SetDefault(logger)

	logger.Info("Starting reminder-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	backend, err := factory.Open(cfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if backend.Cleanup != nil {
		defer backend.Cleanup()
	}

	var sender services.Sender
	if cfg.MessagingEnabled() {
		sender = messaging.NewTwilioClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
		logger.Info("Twilio messaging initialized", "from", cfg.TwilioFromNumber)
	} else {
		sender = messaging.LogSender{}
		logger.Warn("Twilio credentials not set, reminders will only be logged")
	}

	scheduler := services.NewScheduler(backend.Store, sender, services.SchedulerConfig{
		Location:     cfg.Location(),
		SweepHour:    cfg.ReminderHour,
		SummaryDay:   cfg.SummaryDay,
		SummaryHour:  cfg.SummaryHour,
		SummaryPhone: cfg.SummaryPhone,
	})

	// Run an initial sweep so a restart near the firing hour does not skip
	// the day.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	if sent, err := scheduler.RunDailySweep(startupCtx); err != nil {
		logger.Error("Initial due-date sweep failed", "error", err)
	} else {
		logger.Info("Initial due-date sweep complete", "reminders_sent", sent)
	}
	startupCancel()

	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	scheduler.Stop()
	logger.Info("Reminder-worker shutdown complete")
}
