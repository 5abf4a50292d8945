// Package parser implements the keyword/regex fallback parser for free-text
// transaction messages. It never fails: any text yields a fully populated
// create intent, so the pipeline can always degrade to it when the AI
// classifier is unavailable or returns garbage.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"gastobot/internal/core"
)

// Optional currency symbol, thousands separators, up to two decimals.
var amountPattern = regexp.MustCompile(`\$?(\d+(?:,\d{3})*(?:\.\d{1,2})?)`)

var incomeKeywords = []string{
	"ingreso", "ingresos", "cobré", "cobre", "recibí", "recibi",
	"me pagaron", "pagaron", "sueldo", "salario", "venta", "vendí",
}

var expenseKeywords = []string{
	"gasté", "gaste", "pagué", "pague", "compré", "compre",
	"gasto", "compra", "cuenta",
}

// Freelancers describe incoming payments as "pending" far more often than
// outgoing ones, so a deferred-payment cue next to client-project vocabulary
// reclassifies the text as income.
var freelanceKeywords = []string{
	"cliente", "proyecto", "web", "app", "logo", "design", "anticipo", "resto",
}

var pendingKeywords = []string{
	"pendiente", "debo", "pagar luego", "fiado", "crédito", "por cobrar",
}

const descriptionLimit = 100

// DefaultCategory is assigned by the heuristic path, which never guesses a
// category from text.
const DefaultCategory = "Otros"

// Heuristic extracts a create intent from raw text.
type Heuristic struct{}

func New() *Heuristic {
	return &Heuristic{}
}

// Parse always returns a create-shaped intent; delete/update detection is
// the classifier's job.
func (h *Heuristic) Parse(text string, today core.Date) core.ParsedIntent {
	lower := strings.ToLower(text)

	intent := core.ParsedIntent{
		Operation:     core.OpCreate,
		Amount:        ExtractAmount(text),
		Description:   truncate(text, descriptionLimit),
		Category:      DefaultCategory,
		Type:          core.Gasto,
		Date:          today,
		AccountSource: core.DefaultAccountSource,
		PaymentStatus: core.Pagado,
		RawText:       text,
	}

	if tag, ok := core.ExtractTag(text); ok {
		intent.Tag = tag
	}

	if containsAny(lower, incomeKeywords) {
		intent.Type = core.Ingreso
	} else if containsAny(lower, expenseKeywords) {
		intent.Type = core.Gasto
	}
	if strings.Contains(lower, "pendiente") && containsAny(lower, freelanceKeywords) {
		intent.Type = core.Ingreso
	}

	if containsAny(lower, pendingKeywords) {
		intent.PaymentStatus = core.Pendiente
	}

	return intent
}

// ExtractAmount returns the first numeric token in text, with the currency
// symbol and thousands separators stripped. Missing amount yields 0.
func ExtractAmount(text string) float64 {
	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
