// Package store defines the data-store boundary. The persisted relational
// store is an external collaborator; every backend (REST, SQLite, memory)
// implements the same Store port so the services never know which one is
// behind it.
package store

import (
	"context"
	"errors"

	"gastobot/internal/core"
)

// ErrNotFound is returned when a lookup by id matches nothing.
var ErrNotFound = errors.New("record not found")

// SearchLimit caps resolver result sets to bound response size; only the
// top-ranked record is authoritative for delete/update.
const SearchLimit = 5

// SearchQuery selects transactions either by exact amount or by
// case-insensitive substring on the description, optionally constrained to
// a single date. Results are ordered by transaction date descending, then
// creation time descending.
type SearchQuery struct {
	Term   string
	Amount *float64
	Date   core.Date
	Limit  int
}

// TransactionFilter is the generic filtered-read supported by the store.
type TransactionFilter struct {
	Tag      core.ProjectTag
	Category string
	Type     core.TransactionType
	Status   core.PaymentStatus
	From     core.Date
	To       core.Date
	Limit    int
	Offset   int
}

// DueDateFilter selects due dates by status, tag and due-date range.
type DueDateFilter struct {
	Status core.PaymentStatus
	Tag    core.ProjectTag
	From   core.Date
	To     core.Date
}

// Store is the full data-store port.
type Store interface {
	TransactionStore
	DueDateStore
	ContextStore
	MessageLog
}

// TransactionStore covers ledger reads and mutations.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, patch core.TransactionPatch) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
	SearchTransactions(ctx context.Context, q SearchQuery) ([]core.Transaction, error)
}

// DueDateStore covers the reminder scheduler's reads and status writes.
type DueDateStore interface {
	CreateDueDate(ctx context.Context, dd core.DueDate) (core.DueDate, error)
	GetDueDate(ctx context.Context, id string) (core.DueDate, error)
	ListDueDates(ctx context.Context, f DueDateFilter) ([]core.DueDate, error)
	UpdateDueDate(ctx context.Context, id string, patch core.DueDatePatch) (core.DueDate, error)
}

// ContextStore persists per-sender conversation state.
type ContextStore interface {
	GetContext(ctx context.Context, phone string) (core.ConversationContext, error)
	SaveContext(ctx context.Context, cc core.ConversationContext) error
}

// MessageLog records inbound messages.
type MessageLog interface {
	LogMessage(ctx context.Context, m core.InboundMessage) (int64, error)
	MarkMessageProcessed(ctx context.Context, id int64) error
}
