package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gastobot/internal/store"
)

// ContextService tracks per-sender conversation state so a follow-up like
// "cambia el monto a 500" can find the transaction it refers to. A
// per-phone lock serializes the read-modify-write against the store.
type ContextService struct {
	store store.ContextStore
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewContextService(s store.ContextStore) *ContextService {
	return &ContextService{
		store: s,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

func (c *ContextService) lockFor(phone string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[phone]
	if !ok {
		l = &sync.Mutex{}
		c.locks[phone] = l
	}
	return l
}

// Record appends a message to the sender's history and repoints the last
// transaction reference.
func (c *ContextService) Record(ctx context.Context, phone, message string, transactionID int64) error {
	l := c.lockFor(phone)
	l.Lock()
	defer l.Unlock()

	cc, err := c.store.GetContext(ctx, phone)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("load context: %w", err)
	}
	cc.Phone = phone
	cc.Append(message, transactionID, c.now())

	if err := c.store.SaveContext(ctx, cc); err != nil {
		return fmt.Errorf("save context: %w", err)
	}
	return nil
}

// LastTransactionID returns the sender's most recent transaction, or false
// when the sender has no usable context.
func (c *ContextService) LastTransactionID(ctx context.Context, phone string) (int64, bool, error) {
	cc, err := c.store.GetContext(ctx, phone)
	if errors.Is(err, store.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load context: %w", err)
	}
	if cc.LastTransactionID == 0 {
		return 0, false, nil
	}
	return cc.LastTransactionID, true, nil
}
