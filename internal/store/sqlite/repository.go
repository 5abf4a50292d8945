// Package sqlite is the embedded Store backend. It keeps the full data
// model in a single database file and runs its schema migrations on open.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"gastobot/internal/core"
	"gastobot/internal/store"
)

type Repository struct {
	db *sql.DB
}

func New(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const txColumns = `id, amount, description, category, type, date, tag,
	account_source, is_recurring, payment_status, raw_message_id, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		tx        core.Transaction
		date      string
		createdAt string
		rawMsgID  sql.NullInt64
	)
	err := row.Scan(&tx.ID, &tx.Amount, &tx.Description, &tx.Category, &tx.Type,
		&date, &tx.Tag, &tx.AccountSource, &tx.IsRecurring, &tx.PaymentStatus,
		&rawMsgID, &createdAt)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Date, _ = core.ParseDate(date)
	tx.RawMessageID = rawMsgID.Int64
	tx.CreatedAt, _ = parseTimestamp(createdAt)
	return tx, nil
}

// parseTimestamp accepts the two layouts sqlite hands back depending on
// whether the value came from datetime('now') or a Go write.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (r *Repository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var rawMsgID any
	if tx.RawMessageID != 0 {
		rawMsgID = tx.RawMessageID
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions
			(amount, description, category, type, date, tag, account_source,
			 is_recurring, payment_status, raw_message_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.Amount, tx.Description, tx.Category, tx.Type, tx.Date.String(),
		tx.Tag, tx.AccountSource, tx.IsRecurring, tx.PaymentStatus,
		rawMsgID, createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	tx.ID = id
	tx.CreatedAt = createdAt
	return tx, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, id int64, patch core.TransactionPatch) (core.Transaction, error) {
	var (
		sets []string
		args []any
	)
	if patch.Amount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, *patch.Amount)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *patch.Category)
	}
	if patch.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, patch.Date.String())
	}
	if patch.PaymentStatus != nil {
		sets = append(sets, "payment_status = ?")
		args = append(args, *patch.PaymentStatus)
	}
	if len(sets) == 0 {
		return r.GetTransaction(ctx, id)
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Transaction{}, store.ErrNotFound
	}
	return r.GetTransaction(ctx, id)
}

func (r *Repository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.Tag != "" {
		where = append(where, "tag = ?")
		args = append(args, f.Tag)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.Status != "" {
		where = append(where, "payment_status = ?")
		args = append(args, f.Status)
	}
	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, f.To.String())
	}
	query := `SELECT ` + txColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` ORDER BY date DESC, created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	return r.queryTransactions(ctx, query, args...)
}

func (r *Repository) SearchTransactions(ctx context.Context, q store.SearchQuery) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if q.Amount != nil {
		where = append(where, "amount = ?")
		args = append(args, *q.Amount)
	} else {
		where = append(where, "description LIKE ? COLLATE NOCASE")
		args = append(args, "%"+q.Term+"%")
	}
	if !q.Date.IsZero() {
		where = append(where, "date = ?")
		args = append(args, q.Date.String())
	}
	limit := q.Limit
	if limit <= 0 {
		limit = store.SearchLimit
	}
	query := `SELECT ` + txColumns + ` FROM transactions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY date DESC, created_at DESC LIMIT ?`
	args = append(args, limit)

	return r.queryTransactions(ctx, query, args...)
}

func (r *Repository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

const ddColumns = `id, concept, amount, category, due_date, frequency, tag,
	notify_phone, status, last_reminded_on, created_at`

func scanDueDate(row interface{ Scan(...any) error }) (core.DueDate, error) {
	var (
		dd           core.DueDate
		dueDate      string
		lastReminded sql.NullString
		createdAt    string
	)
	err := row.Scan(&dd.ID, &dd.Concept, &dd.Amount, &dd.Category, &dueDate,
		&dd.Frequency, &dd.Tag, &dd.NotifyPhone, &dd.Status, &lastReminded, &createdAt)
	if err != nil {
		return core.DueDate{}, err
	}
	dd.DueDate, _ = core.ParseDate(dueDate)
	if lastReminded.Valid {
		dd.LastRemindedOn, _ = core.ParseDate(lastReminded.String)
	}
	dd.CreatedAt, _ = parseTimestamp(createdAt)
	return dd, nil
}

func (r *Repository) CreateDueDate(ctx context.Context, dd core.DueDate) (core.DueDate, error) {
	if dd.ID == "" {
		dd.ID = uuid.NewString()
	}
	if dd.Status == "" {
		dd.Status = core.Pendiente
	}
	if dd.CreatedAt.IsZero() {
		dd.CreatedAt = time.Now().UTC()
	}
	var lastReminded any
	if !dd.LastRemindedOn.IsZero() {
		lastReminded = dd.LastRemindedOn.String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO due_dates
			(id, concept, amount, category, due_date, frequency, tag,
			 notify_phone, status, last_reminded_on, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		dd.ID, dd.Concept, dd.Amount, dd.Category, dd.DueDate.String(),
		dd.Frequency, dd.Tag, dd.NotifyPhone, dd.Status, lastReminded,
		dd.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return core.DueDate{}, fmt.Errorf("create due date: %w", err)
	}
	return dd, nil
}

func (r *Repository) GetDueDate(ctx context.Context, id string) (core.DueDate, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ddColumns+` FROM due_dates WHERE id = ?`, id)
	dd, err := scanDueDate(row)
	if err == sql.ErrNoRows {
		return core.DueDate{}, store.ErrNotFound
	}
	if err != nil {
		return core.DueDate{}, fmt.Errorf("get due date: %w", err)
	}
	return dd, nil
}

func (r *Repository) ListDueDates(ctx context.Context, f store.DueDateFilter) ([]core.DueDate, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Tag != "" {
		where = append(where, "tag = ?")
		args = append(args, f.Tag)
	}
	if !f.From.IsZero() {
		where = append(where, "due_date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "due_date <= ?")
		args = append(args, f.To.String())
	}
	query := `SELECT ` + ddColumns + ` FROM due_dates`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY due_date ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list due dates: %w", err)
	}
	defer rows.Close()

	var out []core.DueDate
	for rows.Next() {
		dd, err := scanDueDate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due date: %w", err)
		}
		out = append(out, dd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due dates: %w", err)
	}
	return out, nil
}

func (r *Repository) UpdateDueDate(ctx context.Context, id string, patch core.DueDatePatch) (core.DueDate, error) {
	var (
		sets []string
		args []any
	)
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.LastRemindedOn != nil {
		sets = append(sets, "last_reminded_on = ?")
		args = append(args, patch.LastRemindedOn.String())
	}
	if len(sets) == 0 {
		return r.GetDueDate(ctx, id)
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		`UPDATE due_dates SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return core.DueDate{}, fmt.Errorf("update due date: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.DueDate{}, store.ErrNotFound
	}
	return r.GetDueDate(ctx, id)
}

func (r *Repository) GetContext(ctx context.Context, phone string) (core.ConversationContext, error) {
	var (
		cc      core.ConversationContext
		history string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT phone_number, last_transaction_id, message_history
		FROM conversation_context WHERE phone_number = ?`, phone).
		Scan(&cc.Phone, &cc.LastTransactionID, &history)
	if err == sql.ErrNoRows {
		return core.ConversationContext{}, store.ErrNotFound
	}
	if err != nil {
		return core.ConversationContext{}, fmt.Errorf("get context: %w", err)
	}
	if err := json.Unmarshal([]byte(history), &cc.History); err != nil {
		return core.ConversationContext{}, fmt.Errorf("decode context history: %w", err)
	}
	return cc, nil
}

func (r *Repository) SaveContext(ctx context.Context, cc core.ConversationContext) error {
	history, err := json.Marshal(cc.History)
	if err != nil {
		return fmt.Errorf("encode context history: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO conversation_context (phone_number, last_transaction_id, message_history, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT (phone_number) DO UPDATE SET
			last_transaction_id = excluded.last_transaction_id,
			message_history = excluded.message_history,
			updated_at = excluded.updated_at`,
		cc.Phone, cc.LastTransactionID, string(history))
	if err != nil {
		return fmt.Errorf("save context: %w", err)
	}
	return nil
}

func (r *Repository) LogMessage(ctx context.Context, m core.InboundMessage) (int64, error) {
	receivedAt := m.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO whatsapp_messages (sender, message_text, media_url, is_processed, received_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.Sender, m.Text, m.MediaURL, m.IsProcessed, receivedAt.Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("log message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("log message: %w", err)
	}
	return id, nil
}

func (r *Repository) MarkMessageProcessed(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE whatsapp_messages SET is_processed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark message processed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}
