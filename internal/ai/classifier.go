// Package ai wraps the Gemini classifier behind the intent pipeline's
// contract: text classification always produces a usable intent (degrading
// to the heuristic parser on any failure), while receipt OCR surfaces
// failures to the caller because no visual heuristic exists.
package ai

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"gastobot/internal/core"
	"gastobot/internal/parser"
)

// correctionKeywords flag a message as an amendment of the previous
// transaction rather than a fresh one.
var correctionKeywords = []string{
	"cambia", "cámbialo", "corrige", "corrígelo", "no fue", "no era",
	"mal", "error", "equivocado", "incorrecto", "sino", "eran",
	"ponlo", "debería ser", "actualiza", "modifica",
}

// intentPayload mirrors the JSON object the model is asked to emit.
// json.Number tolerates both quoted and bare numbers.
type intentPayload struct {
	Operation       string      `json:"operation"`
	Amount          json.Number `json:"amount"`
	Description     string      `json:"description"`
	Category        string      `json:"category"`
	Type            string      `json:"type"`
	PaymentStatus   string      `json:"payment_status"`
	Date            string      `json:"date"`
	Tag             string      `json:"tag"`
	AccountSource   string      `json:"account_source"`
	IsRecurring     bool        `json:"is_recurring"`
	SearchTerm      string      `json:"search_term"`
	CorrectionField string      `json:"correction_field"`
	CorrectionValue string      `json:"correction_value"`
	IsCorrection    bool        `json:"is_correction"`
}

// Classifier sends messages to the model and post-processes the result.
type Classifier struct {
	model    Model
	fallback *parser.Heuristic
	timeout  time.Duration
	now      func() time.Time
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithClock overrides the classifier's notion of "today". Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

// WithTimeout bounds each model call. Timeouts count as classifier
// failures and trigger the heuristic fallback.
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) { c.timeout = d }
}

// NewClassifier wraps model with the heuristic fallback. A nil model is
// allowed and degrades every text classification to the heuristic path.
func NewClassifier(model Model, opts ...Option) *Classifier {
	c := &Classifier{
		model:    model,
		fallback: parser.New(),
		timeout:  30 * time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsCorrection reports whether the message amends a previous transaction.
// The check runs before full classification and short-circuits to the
// correction flow.
func (c *Classifier) IsCorrection(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range correctionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ClassifyText parses a message into an intent. It never fails: malformed
// model output, transport errors and timeouts all degrade to the heuristic
// parser, which is invisible to the end user.
func (c *Classifier) ClassifyText(ctx context.Context, message string) core.ParsedIntent {
	today := core.DateOf(c.now())

	if c.model == nil {
		return c.fallback.Parse(message, today)
	}

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := textIntentPrompt + "\n\nFecha de hoy: " + today.String() + "\n\nMensaje del usuario:\n" + message
	raw, err := c.model.GenerateText(cctx, prompt)
	if err != nil {
		slog.WarnContext(ctx, "Classifier call failed, using heuristic fallback", "error", err)
		return c.fallback.Parse(message, today)
	}

	var payload intentPayload
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &payload); err != nil {
		slog.WarnContext(ctx, "Classifier returned malformed JSON, using heuristic fallback", "error", err)
		return c.fallback.Parse(message, today)
	}

	intent, err := c.toIntent(payload, message, today)
	if err != nil {
		slog.WarnContext(ctx, "Classifier payload rejected, using heuristic fallback", "error", err)
		return c.fallback.Parse(message, today)
	}
	return intent
}

// toIntent converts the wire payload and applies the post-processing
// invariants that hold regardless of where the intent came from.
func (c *Classifier) toIntent(p intentPayload, message string, today core.Date) (core.ParsedIntent, error) {
	op := core.Operation(strings.ToLower(strings.TrimSpace(p.Operation)))
	switch op {
	case core.OpCreate, core.OpDelete, core.OpUpdate:
	default:
		return core.ParsedIntent{}, errMissingOperation
	}

	amount, _ := p.Amount.Float64()

	date, err := core.ParseDate(p.Date)
	if err != nil {
		date = core.Date{}
	}
	// A missing date defaults to today only for create; delete/update keep
	// "no date filter" so search is not over-constrained.
	if date.IsZero() && op == core.OpCreate {
		date = today
	}

	tag, _ := core.NormalizeTag(p.Tag)
	if tag == "" {
		// The model routinely drops tags it was not asked about; re-scan
		// the original text with the same extraction the heuristic uses.
		tag, _ = core.ExtractTag(message)
	}

	status := core.PaymentStatus(strings.ToLower(strings.TrimSpace(p.PaymentStatus)))
	if status != core.Pendiente {
		status = core.Pagado
	}

	account := strings.TrimSpace(p.AccountSource)
	if account == "" {
		account = core.DefaultAccountSource
	}

	return core.ParsedIntent{
		Operation:       op,
		Amount:          amount,
		Description:     p.Description,
		Category:        p.Category,
		Type:            core.ParseTransactionType(p.Type),
		Date:            date,
		Tag:             tag,
		AccountSource:   account,
		IsRecurring:     p.IsRecurring,
		PaymentStatus:   status,
		SearchTerm:      strings.TrimSpace(p.SearchTerm),
		CorrectionField: strings.TrimSpace(p.CorrectionField),
		CorrectionValue: strings.TrimSpace(p.CorrectionValue),
		IsCorrection:    p.IsCorrection,
		RawText:         message,
	}, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk when the model
// ignores the strict-JSON instruction, keeping only the outermost object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
