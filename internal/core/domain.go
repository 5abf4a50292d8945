package core

import (
	"errors"
	"strings"
	"time"
)

// Transaction types. Direction of money is carried here, never by the sign
// of the amount.
const (
	Ingreso     TransactionType = "ingreso"
	Gasto       TransactionType = "gasto"
	Inversion   TransactionType = "inversion"
	Suscripcion TransactionType = "suscripcion"
)

// Payment / due-date statuses.
const (
	Pendiente PaymentStatus = "pendiente"
	Pagado    PaymentStatus = "pagado"
	Vencido   PaymentStatus = "vencido"
)

// Intent operations.
const (
	OpCreate Operation = "create"
	OpDelete Operation = "delete"
	OpUpdate Operation = "update"
)

// Due-date frequencies.
const (
	Mensual Frequency = "mensual"
	Anual   Frequency = "anual"
	Unico   Frequency = "unico"
)

// DefaultAccountSource is used for transactions entered by hand or by the
// heuristic parser.
const DefaultAccountSource = "Efectivo"

// ContextHistoryLimit caps the per-sender conversation history.
const ContextHistoryLimit = 10

type (
	TransactionType string
	PaymentStatus   string
	Operation       string
	Frequency       string

	// Date is a calendar day. The zero value means "unspecified".
	Date struct {
		time.Time
	}

	// Transaction is a ledger entry owned by the data store.
	Transaction struct {
		ID            int64           `json:"id,omitempty"`
		Amount        float64         `json:"amount"`
		Description   string          `json:"description"`
		Category      string          `json:"category"`
		Type          TransactionType `json:"type"`
		Date          Date            `json:"date"`
		Tag           ProjectTag      `json:"tag,omitempty"`
		AccountSource string          `json:"account_source,omitempty"`
		IsRecurring   bool            `json:"is_recurring"`
		PaymentStatus PaymentStatus   `json:"payment_status,omitempty"`
		CreatedAt     time.Time       `json:"created_at,omitzero"`
		RawMessageID  int64           `json:"raw_message_id,omitempty"`
	}

	// DueDate is a recurring obligation tracked by the reminder scheduler.
	// LastRemindedOn is the sweep watermark: a due date already reminded
	// today is skipped by later sweeps the same day.
	DueDate struct {
		ID             string        `json:"id,omitempty"`
		Concept        string        `json:"concept"`
		Amount         float64       `json:"amount"`
		Category       string        `json:"category,omitempty"`
		DueDate        Date          `json:"due_date"`
		Frequency      Frequency     `json:"frequency"`
		Tag            ProjectTag    `json:"tag,omitempty"`
		NotifyPhone    string        `json:"notify_phone,omitempty"`
		Status         PaymentStatus `json:"status"`
		LastRemindedOn Date          `json:"last_reminded_on,omitzero"`
		CreatedAt      time.Time     `json:"created_at,omitzero"`
	}

	// ParsedIntent is the structured interpretation of one free-text
	// message. It is transient and never persisted.
	ParsedIntent struct {
		Operation Operation

		// Create fields.
		Amount        float64
		Description   string
		Category      string
		Type          TransactionType
		Date          Date // zero = unspecified
		Tag           ProjectTag
		AccountSource string
		IsRecurring   bool
		PaymentStatus PaymentStatus

		// Delete / update fields.
		SearchTerm      string
		CorrectionField string
		CorrectionValue string

		IsCorrection bool
		RawText      string
	}

	// ContextEntry is one remembered message in a sender's history.
	ContextEntry struct {
		Message       string    `json:"message"`
		TransactionID int64     `json:"transaction_id"`
		Timestamp     time.Time `json:"timestamp"`
	}

	// ConversationContext keeps the per-sender state used by the
	// correction flow.
	ConversationContext struct {
		Phone             string         `json:"phone_number"`
		LastTransactionID int64          `json:"last_transaction_id"`
		History           []ContextEntry `json:"message_history"`
	}

	// InboundMessage is the persisted record of a received message.
	InboundMessage struct {
		ID          int64     `json:"id,omitempty"`
		Sender      string    `json:"sender"`
		Text        string    `json:"message_text,omitempty"`
		MediaURL    string    `json:"media_url,omitempty"`
		IsProcessed bool      `json:"is_processed"`
		ReceivedAt  time.Time `json:"received_at,omitzero"`
	}

	// TransactionPatch is the closed set of partial updates a transaction
	// accepts. Nil fields are left untouched; dynamic patch maps never
	// reach the data store.
	TransactionPatch struct {
		Amount        *float64       `json:"amount,omitempty"`
		Description   *string        `json:"description,omitempty"`
		Category      *string        `json:"category,omitempty"`
		Date          *Date          `json:"date,omitempty"`
		PaymentStatus *PaymentStatus `json:"payment_status,omitempty"`
	}

	// DueDatePatch is the closed set of partial updates a due date accepts.
	DueDatePatch struct {
		Status         *PaymentStatus `json:"status,omitempty"`
		LastRemindedOn *Date          `json:"last_reminded_on,omitempty"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidType      = errors.New("invalid transaction type")
)

// NewDate builds a Date at day precision in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to day precision.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO calendar day ("2006-01-02"). Empty input yields
// the zero Date without error.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return Date{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// DaysUntil returns other − d in whole days.
func (d Date) DaysUntil(other Date) int {
	if d.IsZero() || other.IsZero() {
		return 0
	}
	return int(other.Time.Sub(d.Time).Hours() / 24)
}

// Equal compares at day precision.
func (d Date) Equal(other Date) bool {
	if d.IsZero() || other.IsZero() {
		return d.IsZero() && other.IsZero()
	}
	return d.Year() == other.Year() && d.YearDay() == other.YearDay()
}

// MarshalJSON encodes the date as "YYYY-MM-DD", or null when unset.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD", full RFC 3339 timestamps, null and "".
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		*d = DateOf(t)
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*d = DateOf(t)
	return nil
}

// ParseTransactionType coerces an unknown token to Gasto. The classifier
// relies on this to keep malformed model output out of the store.
func ParseTransactionType(s string) TransactionType {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case Ingreso:
		return Ingreso
	case Gasto:
		return Gasto
	case Inversion:
		return Inversion
	case Suscripcion:
		return Suscripcion
	default:
		return Gasto
	}
}

func (t Transaction) Validate() error {
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	switch t.Type {
	case Ingreso, Gasto, Inversion, Suscripcion:
	default:
		return ErrInvalidType
	}
	return nil
}

func (p TransactionPatch) IsEmpty() bool {
	return p.Amount == nil && p.Description == nil && p.Category == nil &&
		p.Date == nil && p.PaymentStatus == nil
}

// Append records a new entry, updates the last transaction pointer and
// evicts the oldest entries beyond the history limit.
func (c *ConversationContext) Append(message string, transactionID int64, at time.Time) {
	c.LastTransactionID = transactionID
	c.History = append(c.History, ContextEntry{
		Message:       message,
		TransactionID: transactionID,
		Timestamp:     at,
	})
	if n := len(c.History); n > ContextHistoryLimit {
		c.History = append([]ContextEntry(nil), c.History[n-ContextHistoryLimit:]...)
	}
}
