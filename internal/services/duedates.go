package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gastobot/internal/core"
	"gastobot/internal/store"
)

// AccountSourceBank is assumed for obligations settled through MarkPaid.
const AccountSourceBank = "Banco"

// DueDateService owns due-date lifecycle operations shared by the HTTP API
// and the reminder scheduler.
type DueDateService struct {
	store store.Store
	now   func() time.Time
}

func NewDueDateService(s store.Store) *DueDateService {
	return &DueDateService{store: s, now: time.Now}
}

// SetClock overrides "today". Used by tests.
func (d *DueDateService) SetClock(now func() time.Time) {
	d.now = now
}

func (d *DueDateService) Create(ctx context.Context, dd core.DueDate) (core.DueDate, error) {
	if dd.Concept == "" {
		return core.DueDate{}, fmt.Errorf("due date concept is required")
	}
	if dd.Amount <= 0 {
		return core.DueDate{}, core.ErrInvalidAmount
	}
	if dd.DueDate.IsZero() {
		return core.DueDate{}, fmt.Errorf("due date is required")
	}
	if dd.Frequency == "" {
		dd.Frequency = core.Mensual
	}
	return d.store.CreateDueDate(ctx, dd)
}

func (d *DueDateService) List(ctx context.Context, f store.DueDateFilter) ([]core.DueDate, error) {
	return d.store.ListDueDates(ctx, f)
}

// MarkPaid flips a due date to pagado and records the payment as a
// recurring bank transaction dated today. The status change is the source
// of truth; a failure creating the ledger entry is reported but does not
// roll the status back.
func (d *DueDateService) MarkPaid(ctx context.Context, id string) (core.DueDate, error) {
	status := core.Pagado
	dd, err := d.store.UpdateDueDate(ctx, id, core.DueDatePatch{Status: &status})
	if err != nil {
		return core.DueDate{}, fmt.Errorf("mark due date paid: %w", err)
	}

	category := dd.Category
	if category == "" {
		category = "Servicios"
	}
	tx := core.Transaction{
		Amount:        dd.Amount,
		Description:   dd.Concept,
		Category:      category,
		Type:          core.Gasto,
		Date:          core.DateOf(d.now()),
		Tag:           dd.Tag,
		AccountSource: AccountSourceBank,
		IsRecurring:   true,
		PaymentStatus: core.Pagado,
	}
	if _, err := d.store.CreateTransaction(ctx, tx); err != nil {
		slog.ErrorContext(ctx, "Failed to record payment transaction for due date",
			"due_date_id", dd.ID,
			"concept", dd.Concept,
			"error", err)
		return dd, fmt.Errorf("record payment transaction: %w", err)
	}

	slog.InfoContext(ctx, "Due date marked as paid",
		"due_date_id", dd.ID,
		"concept", dd.Concept,
		"amount", dd.Amount)
	return dd, nil
}

// SetStatus updates a due date to an arbitrary status without side effects.
func (d *DueDateService) SetStatus(ctx context.Context, id string, status core.PaymentStatus) (core.DueDate, error) {
	if status == core.Pagado {
		return d.MarkPaid(ctx, id)
	}
	return d.store.UpdateDueDate(ctx, id, core.DueDatePatch{Status: &status})
}
