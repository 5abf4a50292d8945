package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"gastobot/internal/ai"
	"gastobot/internal/config"
	apphttp "gastobot/internal/http"
	applog "gastobot/internal/log"
	"gastobot/internal/messaging"
	"gastobot/internal/rates"
	"gastobot/internal/services"
	"gastobot/internal/store/factory"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := factory.Open(cfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if backend.Cleanup != nil {
		defer backend.Cleanup()
	}

	// The classifier degrades to the heuristic parser when no API key is
	// configured.
	var model ai.Model
	if cfg.GeminiAPIKey != "" {
		model, err = ai.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("Failed to initialize Gemini model, falling back to heuristic parsing", "error", err)
			model = nil
		} else {
			logger.Info("Gemini classifier initialized", "model", cfg.GeminiModel)
		}
	} else {
		logger.Warn("GEMINI_API_KEY not set, using heuristic parsing only")
	}
	classifier := ai.NewClassifier(model, ai.WithTimeout(cfg.AITimeout))

	var sender services.Sender
	var media services.MediaFetcher
	if cfg.MessagingEnabled() {
		twilio := messaging.NewTwilioClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
		sender = twilio
		media = twilio
		logger.Info("Twilio messaging initialized", "from", cfg.TwilioFromNumber)
	} else {
		sender = messaging.LogSender{}
		media = unavailableMedia{}
		logger.Warn("Twilio credentials not set, outbound messaging disabled")
	}

	resolver := services.NewResolver(backend.Store)
	contexts := services.NewContextService(backend.Store)
	dispatcher := services.NewDispatcher(backend.Store, classifier, resolver, contexts, media)
	dueDates := services.NewDueDateService(backend.Store)

	scheduler := services.NewScheduler(backend.Store, sender, services.SchedulerConfig{
		Location:     cfg.Location(),
		SweepHour:    cfg.ReminderHour,
		SummaryDay:   cfg.SummaryDay,
		SummaryHour:  cfg.SummaryHour,
		SummaryPhone: cfg.SummaryPhone,
	})
	scheduler.Start()
	defer scheduler.Stop()

	ratesClient := rates.NewClient()

	srv := apphttp.NewServer(":"+cfg.Port, backend.Store, dispatcher, dueDates, ratesClient)
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting gastobot server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-gctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// unavailableMedia rejects media downloads when Twilio is not configured.
type unavailableMedia struct{}

func (unavailableMedia) DownloadMedia(context.Context, string) ([]byte, error) {
	return nil, errors.New("media download disabled: Twilio not configured")
}
