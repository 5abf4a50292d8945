package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gastobot/internal/core"
	"gastobot/internal/messaging"
	"gastobot/internal/store"
)

// Sender delivers an outbound message to a phone number.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// reminderOffsets are the day distances that trigger a notification:
// three days before, the due day and one day after.
var reminderOffsets = map[int]bool{3: true, 0: true, -1: true}

// SchedulerConfig sets the scheduler's firing times.
type SchedulerConfig struct {
	Location    *time.Location
	SweepHour   int
	SummaryDay  time.Weekday
	SummaryHour int

	// SummaryPhone receives the weekly summary. Empty means the summary is
	// only logged.
	SummaryPhone string
}

// Scheduler runs the daily due-date sweep and the weekly summary. Start and
// Stop are idempotent; each Scheduler owns its own goroutine and no global
// state.
type Scheduler struct {
	store  store.Store
	sender Sender
	cfg    SchedulerConfig
	now    func() time.Time

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func NewScheduler(s store.Store, sender Sender, cfg SchedulerConfig) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scheduler{
		store:  s,
		sender: sender,
		cfg:    cfg,
		now:    time.Now,
	}
}

// SetClock overrides the scheduler clock. Used by tests.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Start launches the scheduler loop. Calling Start on a running scheduler
// is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
	slog.Info("Reminder scheduler started",
		"sweep_hour", s.cfg.SweepHour,
		"summary_day", s.cfg.SummaryDay.String(),
		"summary_hour", s.cfg.SummaryHour,
		"timezone", s.cfg.Location.String())
}

// Stop halts the loop and waits for it to exit. Calling Stop on a stopped
// scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
	slog.Info("Reminder scheduler stopped")
}

func (s *Scheduler) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastSweepDay, lastSummaryDay string
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := s.now().In(s.cfg.Location)
			day := now.Format("2006-01-02")

			if now.Hour() == s.cfg.SweepHour && lastSweepDay != day {
				lastSweepDay = day
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if _, err := s.RunDailySweep(ctx); err != nil {
					slog.Error("Daily due-date sweep failed", "error", err)
				}
				cancel()
			}

			if now.Weekday() == s.cfg.SummaryDay && now.Hour() == s.cfg.SummaryHour && lastSummaryDay != day {
				lastSummaryDay = day
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if err := s.RunWeeklySummary(ctx); err != nil {
					slog.Error("Weekly summary failed", "error", err)
				}
				cancel()
			}
		}
	}
}

// RunDailySweep walks all pending due dates once. Obligations 3 days out,
// due today or 1 day overdue get a reminder; anything past its due date
// transitions to vencido whether or not it has a notify phone. A due date
// already reminded today is skipped, so repeated sweeps the same day do not
// duplicate sends. Failures on one due date never stop the sweep.
func (s *Scheduler) RunDailySweep(ctx context.Context) (int, error) {
	today := core.DateOf(s.now().In(s.cfg.Location))

	dueDates, err := s.store.ListDueDates(ctx, store.DueDateFilter{Status: core.Pendiente})
	if err != nil {
		return 0, fmt.Errorf("list pending due dates: %w", err)
	}

	slog.InfoContext(ctx, "Running due-date sweep",
		"pending", len(dueDates),
		"date", today.String())

	sent := 0
	for _, dd := range dueDates {
		if dd.DueDate.IsZero() {
			continue
		}
		if dd.LastRemindedOn.Equal(today) {
			continue
		}

		days := today.DaysUntil(dd.DueDate)

		if reminderOffsets[days] && dd.NotifyPhone != "" {
			msg := messaging.FormatReminder(dd.Concept, dd.Amount, days, dd.Tag)
			if err := s.sender.Send(ctx, dd.NotifyPhone, msg); err != nil {
				slog.ErrorContext(ctx, "Failed to send reminder",
					"due_date_id", dd.ID,
					"concept", dd.Concept,
					"error", err)
				continue
			}
			sent++

			watermark := today
			if _, err := s.store.UpdateDueDate(ctx, dd.ID, core.DueDatePatch{LastRemindedOn: &watermark}); err != nil {
				slog.ErrorContext(ctx, "Failed to record reminder watermark",
					"due_date_id", dd.ID,
					"error", err)
			}
			slog.InfoContext(ctx, "Reminder sent",
				"due_date_id", dd.ID,
				"concept", dd.Concept,
				"days_until", days)
		}

		if days < 0 {
			status := core.Vencido
			if _, err := s.store.UpdateDueDate(ctx, dd.ID, core.DueDatePatch{Status: &status}); err != nil {
				slog.ErrorContext(ctx, "Failed to mark due date overdue",
					"due_date_id", dd.ID,
					"error", err)
			}
		}
	}

	slog.InfoContext(ctx, "Due-date sweep complete", "reminders_sent", sent)
	return sent, nil
}

// RunWeeklySummary aggregates the trailing 7 days of transactions. The
// summary is always logged; it is also sent when a summary phone is
// configured.
func (s *Scheduler) RunWeeklySummary(ctx context.Context) error {
	today := core.DateOf(s.now().In(s.cfg.Location))
	weekAgo := core.DateOf(today.AddDate(0, 0, -7))

	txs, err := s.store.ListTransactions(ctx, store.TransactionFilter{
		From:  weekAgo,
		To:    today,
		Limit: 1000,
	})
	if err != nil {
		return fmt.Errorf("list transactions for summary: %w", err)
	}

	summary := core.BuildSummary(txs)
	msg := messaging.FormatSummary(summary, "esta semana")

	slog.InfoContext(ctx, "Weekly summary generated",
		"transactions", summary.TransactionCount,
		"income", summary.TotalIncome,
		"expenses", summary.TotalExpenses,
		"net_balance", summary.NetBalance)

	if s.cfg.SummaryPhone == "" {
		return nil
	}
	if err := s.sender.Send(ctx, s.cfg.SummaryPhone, msg); err != nil {
		return fmt.Errorf("send weekly summary: %w", err)
	}
	return nil
}
