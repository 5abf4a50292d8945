// Package rest is the Store backend for a PostgREST-style data service.
// Filters are encoded as column operators on the query string
// (amount=eq.150, description=ilike.*uber*) and mutations ask for
// return=representation so the mutated row comes back in one round trip.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gastobot/internal/core"
	"gastobot/internal/store"
)

const defaultTimeout = 30 * time.Second

// Client talks to a PostgREST-compatible data service.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a REST store client. baseURL is the service root; the
// PostgREST prefix ("/rest/v1") is appended here.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/rest/v1",
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// do performs one request against the data service. out may be nil for
// mutations whose response body is irrelevant.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out any, extraPrefer string) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	prefer := "return=representation"
	if extraPrefer != "" {
		prefer = extraPrefer + "," + prefer
	}
	req.Header.Set("Prefer", prefer)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, endpoint, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx.ID = 0
	var rows []core.Transaction
	if err := c.do(ctx, http.MethodPost, "transactions", tx, &rows, ""); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	if len(rows) == 0 {
		return core.Transaction{}, fmt.Errorf("create transaction: empty response")
	}
	return rows[0], nil
}

func (c *Client) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	var rows []core.Transaction
	endpoint := "transactions?id=eq." + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &rows, ""); err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	if len(rows) == 0 {
		return core.Transaction{}, store.ErrNotFound
	}
	return rows[0], nil
}

func (c *Client) UpdateTransaction(ctx context.Context, id int64, patch core.TransactionPatch) (core.Transaction, error) {
	if patch.IsEmpty() {
		return c.GetTransaction(ctx, id)
	}
	var rows []core.Transaction
	endpoint := "transactions?id=eq." + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodPatch, endpoint, patch, &rows, ""); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if len(rows) == 0 {
		// Some deployments strip the representation on PATCH; fetch it.
		return c.GetTransaction(ctx, id)
	}
	return rows[0], nil
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	endpoint := "transactions?id=eq." + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodDelete, endpoint, nil, nil, ""); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (c *Client) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	var filters []string
	if f.Tag != "" {
		filters = append(filters, "tag=eq."+url.QueryEscape(string(f.Tag)))
	}
	if f.Category != "" {
		filters = append(filters, "category=eq."+url.QueryEscape(f.Category))
	}
	if f.Type != "" {
		filters = append(filters, "type=eq."+string(f.Type))
	}
	if f.Status != "" {
		filters = append(filters, "payment_status=eq."+string(f.Status))
	}
	if !f.From.IsZero() {
		filters = append(filters, "date=gte."+f.From.String())
	}
	if !f.To.IsZero() {
		filters = append(filters, "date=lte."+f.To.String())
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	filters = append(filters,
		"order=date.desc,created_at.desc",
		"limit="+strconv.Itoa(limit),
		"offset="+strconv.Itoa(f.Offset),
	)

	var rows []core.Transaction
	endpoint := "transactions?" + strings.Join(filters, "&")
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &rows, ""); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return rows, nil
}

func (c *Client) SearchTransactions(ctx context.Context, q store.SearchQuery) ([]core.Transaction, error) {
	var filters []string
	if q.Amount != nil {
		filters = append(filters, "amount=eq."+strconv.FormatFloat(*q.Amount, 'f', -1, 64))
	} else {
		filters = append(filters, "description=ilike.*"+url.QueryEscape(q.Term)+"*")
	}
	if !q.Date.IsZero() {
		filters = append(filters, "date=eq."+q.Date.String())
	}
	limit := q.Limit
	if limit <= 0 {
		limit = store.SearchLimit
	}
	filters = append(filters, "order=date.desc,created_at.desc", "limit="+strconv.Itoa(limit))

	var rows []core.Transaction
	endpoint := "transactions?" + strings.Join(filters, "&")
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &rows, ""); err != nil {
		return nil, fmt.Errorf("search transactions: %w", err)
	}
	return rows, nil
}

func (c *Client) CreateDueDate(ctx context.Context, dd core.DueDate) (core.DueDate, error) {
	if dd.Status == "" {
		dd.Status = core.Pendiente
	}
	var rows []core.DueDate
	if err := c.do(ctx, http.MethodPost, "due_dates", dd, &rows, ""); err != nil {
		return core.DueDate{}, fmt.Errorf("create due date: %w", err)
	}
	if len(rows) == 0 {
		return core.DueDate{}, fmt.Errorf("create due date: empty response")
	}
	return rows[0], nil
}

func (c *Client) GetDueDate(ctx context.Context, id string) (core.DueDate, error) {
	var rows []core.DueDate
	endpoint := "due_dates?id=eq." + url.QueryEscape(id)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &rows, ""); err != nil {
		return core.DueDate{}, fmt.Errorf("get due date: %w", err)
	}
	if len(rows) == 0 {
		return core.DueDate{}, store.ErrNotFound
	}
	return rows[0], nil
}

func (c *Client) ListDueDates(ctx context.Context, f store.DueDateFilter) ([]core.DueDate, error) {
	var filters []string
	if f.Status != "" {
		filters = append(filters, "status=eq."+string(f.Status))
	}
	if f.Tag != "" {
		filters = append(filters, "tag=eq."+url.QueryEscape(string(f.Tag)))
	}
	if !f.From.IsZero() {
		filters = append(filters, "due_date=gte."+f.From.String())
	}
	if !f.To.IsZero() {
		filters = append(filters, "due_date=lte."+f.To.String())
	}
	filters = append(filters, "order=due_date.asc")

	var rows []core.DueDate
	endpoint := "due_dates?" + strings.Join(filters, "&")
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &rows, ""); err != nil {
		return nil, fmt.Errorf("list due dates: %w", err)
	}
	return rows, nil
}

func (c *Client) UpdateDueDate(ctx context.Context, id string, patch core.DueDatePatch) (core.DueDate, error) {
	var rows []core.DueDate
	endpoint := "due_dates?id=eq." + url.QueryEscape(id)
	if err := c.do(ctx, http.MethodPatch, endpoint, patch, &rows, ""); err != nil {
		return core.DueDate{}, fmt.Errorf("update due date: %w", err)
	}
	if len(rows) == 0 {
		return c.GetDueDate(ctx, id)
	}
	return rows[0], nil
}

func (c *Client) GetContext(ctx context.Context, phone string) (core.ConversationContext, error) {
	var rows []core.ConversationContext
	endpoint := "conversation_context?phone_number=eq." + url.QueryEscape(phone)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &rows, ""); err != nil {
		return core.ConversationContext{}, fmt.Errorf("get context: %w", err)
	}
	if len(rows) == 0 {
		return core.ConversationContext{}, store.ErrNotFound
	}
	return rows[0], nil
}

func (c *Client) SaveContext(ctx context.Context, cc core.ConversationContext) error {
	// Upsert keyed on phone_number; merge-duplicates avoids a read-check
	// race between concurrent senders.
	if err := c.do(ctx, http.MethodPost, "conversation_context", cc, nil, "resolution=merge-duplicates"); err != nil {
		return fmt.Errorf("save context: %w", err)
	}
	return nil
}

func (c *Client) LogMessage(ctx context.Context, m core.InboundMessage) (int64, error) {
	var rows []core.InboundMessage
	if err := c.do(ctx, http.MethodPost, "whatsapp_messages", m, &rows, ""); err != nil {
		return 0, fmt.Errorf("log message: %w", err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("log message: empty response")
	}
	return rows[0].ID, nil
}

func (c *Client) MarkMessageProcessed(ctx context.Context, id int64) error {
	endpoint := "whatsapp_messages?id=eq." + strconv.FormatInt(id, 10)
	body := map[string]bool{"is_processed": true}
	if err := c.do(ctx, http.MethodPatch, endpoint, body, nil, ""); err != nil {
		return fmt.Errorf("mark message processed: %w", err)
	}
	return nil
}
