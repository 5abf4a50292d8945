package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"gastobot/internal/core"
	"gastobot/internal/store/memory"
)

type recordingSender struct {
	mu    sync.Mutex
	sends []struct{ To, Body string }
}

func (r *recordingSender) Send(_ context.Context, to, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends = append(r.sends, struct{ To, Body string }{to, body})
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sends)
}

func testScheduler(st *memory.Store, sender Sender, phone string) *Scheduler {
	s := NewScheduler(st, sender, SchedulerConfig{
		Location:     time.UTC,
		SweepHour:    9,
		SummaryDay:   time.Sunday,
		SummaryHour:  10,
		SummaryPhone: phone,
	})
	s.SetClock(func() time.Time {
		return time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	})
	return s
}

func seedDueDate(t *testing.T, st *memory.Store, concept string, due core.Date, phone string) core.DueDate {
	t.Helper()
	dd, err := st.CreateDueDate(context.Background(), core.DueDate{
		Concept:     concept,
		Amount:      500,
		DueDate:     due,
		Frequency:   core.Mensual,
		NotifyPhone: phone,
		Status:      core.Pendiente,
	})
	if err != nil {
		t.Fatalf("seed due date: %v", err)
	}
	return dd
}

func TestScheduler_RunDailySweep(t *testing.T) {
	st := memory.New()
	sender := &recordingSender{}
	s := testScheduler(st, sender, "")
	ctx := context.Background()

	// Today is 2026-08-20.
	threeOut := seedDueDate(t, st, "Renta", core.NewDate(2026, 8, 23), "+521111")
	dueToday := seedDueDate(t, st, "Internet", core.NewDate(2026, 8, 20), "+521111")
	oneOver := seedDueDate(t, st, "Luz", core.NewDate(2026, 8, 19), "+521111")
	farOut := seedDueDate(t, st, "Seguro", core.NewDate(2026, 8, 25), "+521111")
	twoOverNoPhone := seedDueDate(t, st, "Agua", core.NewDate(2026, 8, 18), "")

	sent, err := s.RunDailySweep(ctx)
	if err != nil {
		t.Fatalf("RunDailySweep: %v", err)
	}
	if sent != 3 {
		t.Fatalf("sent = %d, want 3 (3 days out, due today, 1 day over)", sent)
	}

	bodies := make(map[string]string)
	for _, send := range sender.sends {
		switch {
		case strings.Contains(send.Body, "Renta"):
			bodies["renta"] = send.Body
		case strings.Contains(send.Body, "Internet"):
			bodies["internet"] = send.Body
		case strings.Contains(send.Body, "Luz"):
			bodies["luz"] = send.Body
		}
	}
	if !strings.Contains(bodies["renta"], "vence en 3 día(s)") {
		t.Errorf("upcoming reminder = %q", bodies["renta"])
	}
	if !strings.Contains(bodies["internet"], "HOY vence") {
		t.Errorf("due-today reminder = %q", bodies["internet"])
	}
	if !strings.Contains(bodies["luz"], "VENCIDO") {
		t.Errorf("overdue reminder = %q", bodies["luz"])
	}

	// Reminded due dates carry today's watermark.
	for _, id := range []string{threeOut.ID, dueToday.ID, oneOver.ID} {
		dd, _ := st.GetDueDate(ctx, id)
		if !dd.LastRemindedOn.Equal(core.NewDate(2026, 8, 20)) {
			t.Errorf("due date %s LastRemindedOn = %v, want today", dd.Concept, dd.LastRemindedOn)
		}
	}

	// Everything past its due date goes vencido, notify phone or not.
	for _, id := range []string{oneOver.ID, twoOverNoPhone.ID} {
		dd, _ := st.GetDueDate(ctx, id)
		if dd.Status != core.Vencido {
			t.Errorf("due date %s status = %q, want vencido", dd.Concept, dd.Status)
		}
	}
	if dd, _ := st.GetDueDate(ctx, farOut.ID); dd.Status != core.Pendiente {
		t.Errorf("far-out due date status = %q, want pendiente", dd.Status)
	}
}

func TestScheduler_SweepIsIdempotentWithinADay(t *testing.T) {
	st := memory.New()
	sender := &recordingSender{}
	s := testScheduler(st, sender, "")
	ctx := context.Background()

	seedDueDate(t, st, "Renta", core.NewDate(2026, 8, 23), "+521111")
	seedDueDate(t, st, "Internet", core.NewDate(2026, 8, 20), "+521111")

	if sent, _ := s.RunDailySweep(ctx); sent != 2 {
		t.Fatalf("first sweep sent = %d, want 2", sent)
	}
	if sent, _ := s.RunDailySweep(ctx); sent != 0 {
		t.Errorf("second sweep the same day sent = %d, want 0", sent)
	}
	if sender.count() != 2 {
		t.Errorf("total sends = %d, want 2", sender.count())
	}
}

func TestScheduler_SweepSkipsZeroDueDate(t *testing.T) {
	st := memory.New()
	sender := &recordingSender{}
	s := testScheduler(st, sender, "")

	seedDueDate(t, st, "Sin fecha", core.Date{}, "+521111")

	sent, err := s.RunDailySweep(context.Background())
	if err != nil || sent != 0 {
		t.Errorf("RunDailySweep = (%d, %v), want (0, nil)", sent, err)
	}
}

func TestScheduler_RunWeeklySummary(t *testing.T) {
	st := memory.New()
	st.SetClock(stepClock())
	ctx := context.Background()

	// Inside the trailing week.
	st.CreateTransaction(ctx, core.Transaction{
		Amount: 5000, Description: "Pago cliente", Category: "Freelance",
		Type: core.Ingreso, Date: core.NewDate(2026, 8, 18),
	})
	st.CreateTransaction(ctx, core.Transaction{
		Amount: 800, Description: "Super", Category: "Alimentación",
		Type: core.Gasto, Date: core.NewDate(2026, 8, 19), Tag: core.TagPersonal,
	})
	// Outside the window.
	st.CreateTransaction(ctx, core.Transaction{
		Amount: 9999, Description: "Compra vieja", Category: "Otros",
		Type: core.Gasto, Date: core.NewDate(2026, 8, 1),
	})

	t.Run("sends to the configured phone", func(t *testing.T) {
		sender := &recordingSender{}
		s := testScheduler(st, sender, "+5215559999")

		if err := s.RunWeeklySummary(context.Background()); err != nil {
			t.Fatalf("RunWeeklySummary: %v", err)
		}
		if sender.count() != 1 {
			t.Fatalf("sends = %d, want 1", sender.count())
		}

		body := sender.sends[0].Body
		if sender.sends[0].To != "+5215559999" {
			t.Errorf("recipient = %q", sender.sends[0].To)
		}
		if !strings.Contains(body, "Resumen esta semana") {
			t.Errorf("summary body = %q", body)
		}
		if !strings.Contains(body, "$5,000.00") || !strings.Contains(body, "$800.00") {
			t.Errorf("summary totals missing from %q", body)
		}
		if strings.Contains(body, "9,999") {
			t.Errorf("summary includes out-of-window transaction: %q", body)
		}
		if !strings.Contains(body, "#Personal") {
			t.Errorf("summary missing tag breakdown: %q", body)
		}
	})

	t.Run("no phone means log only", func(t *testing.T) {
		sender := &recordingSender{}
		s := testScheduler(st, sender, "")

		if err := s.RunWeeklySummary(context.Background()); err != nil {
			t.Fatalf("RunWeeklySummary: %v", err)
		}
		if sender.count() != 0 {
			t.Errorf("sends = %d, want 0", sender.count())
		}
	})
}

func TestScheduler_StartStopIdempotent(t *testing.T) {
	s := testScheduler(memory.New(), &recordingSender{}, "")

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()

	// A stopped scheduler can start again.
	s.Start()
	s.Stop()
}
