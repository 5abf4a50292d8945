// Package memory is the in-process Store backend used by tests and local
// development. It mirrors the REST backend's search and ordering contract
// exactly so dispatcher behavior does not depend on the chosen backend.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gastobot/internal/core"
	"gastobot/internal/store"
)

type Store struct {
	mu       sync.Mutex
	nextTxID int64
	nextMsg  int64
	txs      map[int64]core.Transaction
	dds      map[string]core.DueDate
	contexts map[string]core.ConversationContext
	messages map[int64]core.InboundMessage
	now      func() time.Time
}

func New() *Store {
	return &Store{
		nextTxID: 1,
		nextMsg:  1,
		txs:      make(map[int64]core.Transaction),
		dds:      make(map[string]core.DueDate),
		contexts: make(map[string]core.ConversationContext),
		messages: make(map[int64]core.InboundMessage),
		now:      time.Now,
	}
}

// SetClock overrides creation timestamps. Used by tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = s.nextTxID
	s.nextTxID++
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	s.txs[tx.ID] = tx
	return tx, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, store.ErrNotFound
	}
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, id int64, patch core.TransactionPatch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, store.ErrNotFound
	}
	if patch.Amount != nil {
		tx.Amount = *patch.Amount
	}
	if patch.Description != nil {
		tx.Description = *patch.Description
	}
	if patch.Category != nil {
		tx.Category = *patch.Category
	}
	if patch.Date != nil {
		tx.Date = *patch.Date
	}
	if patch.PaymentStatus != nil {
		tx.PaymentStatus = *patch.PaymentStatus
	}
	s.txs[id] = tx
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.txs {
		if f.Tag != "" && tx.Tag != f.Tag {
			continue
		}
		if f.Category != "" && tx.Category != f.Category {
			continue
		}
		if f.Type != "" && tx.Type != f.Type {
			continue
		}
		if f.Status != "" && tx.PaymentStatus != f.Status {
			continue
		}
		if !f.From.IsZero() && tx.Date.Before(f.From.Time) {
			continue
		}
		if !f.To.IsZero() && tx.Date.After(f.To.Time) {
			continue
		}
		out = append(out, tx)
	}
	sortByRecency(out)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) SearchTransactions(_ context.Context, q store.SearchQuery) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	limit := q.Limit
	if limit <= 0 {
		limit = store.SearchLimit
	}
	term := strings.ToLower(q.Term)
	var out []core.Transaction
	for _, tx := range s.txs {
		if q.Amount != nil {
			if tx.Amount != *q.Amount {
				continue
			}
		} else if !strings.Contains(strings.ToLower(tx.Description), term) {
			continue
		}
		if !q.Date.IsZero() && !tx.Date.Equal(q.Date) {
			continue
		}
		out = append(out, tx)
	}
	sortByRecency(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// sortByRecency orders by date descending, then creation time descending.
func sortByRecency(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date.Time)
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}

func (s *Store) CreateDueDate(_ context.Context, dd core.DueDate) (core.DueDate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dd.ID == "" {
		dd.ID = uuid.NewString()
	}
	if dd.Status == "" {
		dd.Status = core.Pendiente
	}
	if dd.CreatedAt.IsZero() {
		dd.CreatedAt = s.now()
	}
	s.dds[dd.ID] = dd
	return dd, nil
}

func (s *Store) GetDueDate(_ context.Context, id string) (core.DueDate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dd, ok := s.dds[id]
	if !ok {
		return core.DueDate{}, store.ErrNotFound
	}
	return dd, nil
}

func (s *Store) ListDueDates(_ context.Context, f store.DueDateFilter) ([]core.DueDate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.DueDate
	for _, dd := range s.dds {
		if f.Status != "" && dd.Status != f.Status {
			continue
		}
		if f.Tag != "" && dd.Tag != f.Tag {
			continue
		}
		if !f.From.IsZero() && dd.DueDate.Before(f.From.Time) {
			continue
		}
		if !f.To.IsZero() && dd.DueDate.After(f.To.Time) {
			continue
		}
		out = append(out, dd)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate.Time)
	})
	return out, nil
}

func (s *Store) UpdateDueDate(_ context.Context, id string, patch core.DueDatePatch) (core.DueDate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dd, ok := s.dds[id]
	if !ok {
		return core.DueDate{}, store.ErrNotFound
	}
	if patch.Status != nil {
		dd.Status = *patch.Status
	}
	if patch.LastRemindedOn != nil {
		dd.LastRemindedOn = *patch.LastRemindedOn
	}
	s.dds[id] = dd
	return dd, nil
}

func (s *Store) GetContext(_ context.Context, phone string) (core.ConversationContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cc, ok := s.contexts[phone]
	if !ok {
		return core.ConversationContext{}, store.ErrNotFound
	}
	return cc, nil
}

func (s *Store) SaveContext(_ context.Context, cc core.ConversationContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[cc.Phone] = cc
	return nil
}

func (s *Store) LogMessage(_ context.Context, m core.InboundMessage) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.nextMsg
	s.nextMsg++
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = s.now()
	}
	s.messages[m.ID] = m
	return m.ID, nil
}

func (s *Store) MarkMessageProcessed(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return store.ErrNotFound
	}
	m.IsProcessed = true
	s.messages[id] = m
	return nil
}
