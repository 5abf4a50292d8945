package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gastobot/internal/core"
)

// ErrReceiptUnreadable marks receipts the vision model could not extract.
// Unlike text, image classification has no heuristic substitute, so the
// error is surfaced to the caller instead of silently degrading.
var ErrReceiptUnreadable = errors.New("receipt unreadable")

var errMissingOperation = errors.New("missing or unknown operation")

// AccountSourceCard is assumed for receipt purchases.
const AccountSourceCard = "Tarjeta"

const receiptDescriptionLimit = 200

// receiptPayload mirrors the vision model's JSON output.
type receiptPayload struct {
	Merchant   string      `json:"merchant"`
	Amount     json.Number `json:"amount"`
	Date       string      `json:"date"`
	Items      []string    `json:"items"`
	Confidence string      `json:"confidence"`
}

// merchantCategories maps merchant-name keywords to spending categories.
// First matching category wins; unmatched merchants default to "Compras".
var merchantCategories = []struct {
	category string
	keywords []string
}{
	{"Alimentación", []string{
		"oxxo", "7-eleven", "walmart", "costco", "soriana", "chedraui",
		"restaurante", "tacos", "pizza", "café", "coffee", "starbucks",
		"mcdonald", "burger", "sushi", "comida",
	}},
	{"Transporte", []string{
		"uber", "didi", "cabify", "gasolinera", "pemex", "estacionamiento",
		"parking", "taxi", "bus",
	}},
	{"Entretenimiento", []string{
		"cine", "cinepolis", "cinemex", "netflix", "spotify",
		"steam", "playstation", "xbox", "teatro", "concierto",
	}},
	{"Servicios", []string{
		"telmex", "telcel", "cfe", "luz", "agua", "gas", "internet",
	}},
	{"Compras", []string{
		"amazon", "mercadolibre", "liverpool", "sears", "palacio", "zara",
		"h&m", "nike", "adidas",
	}},
	{"Salud", []string{
		"farmacia", "guadalajara", "benavides", "san pablo", "doctor",
		"hospital", "consultorio", "laboratorio",
	}},
	{"Hogar", []string{
		"home depot", "sodimac", "office depot", "ferretería", "muebles",
	}},
}

// ParseReceipt runs the vision model over a receipt image and builds a
// create intent from the extraction. Failures propagate; there is no
// fallback for images.
func (c *Classifier) ParseReceipt(ctx context.Context, image []byte, mimeType string, tag core.ProjectTag) (core.ParsedIntent, error) {
	if c.model == nil {
		return core.ParsedIntent{}, fmt.Errorf("parse receipt: %w", ErrReceiptUnreadable)
	}

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.model.GenerateFromImage(cctx, receiptPrompt, mimeType, image)
	if err != nil {
		return core.ParsedIntent{}, fmt.Errorf("parse receipt: %w", err)
	}

	var payload receiptPayload
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &payload); err != nil {
		return core.ParsedIntent{}, fmt.Errorf("parse receipt: %w: %v", ErrReceiptUnreadable, err)
	}

	amount, _ := payload.Amount.Float64()
	if amount <= 0 || strings.TrimSpace(payload.Merchant) == "" {
		return core.ParsedIntent{}, fmt.Errorf("parse receipt: %w", ErrReceiptUnreadable)
	}

	today := core.DateOf(c.now())
	date, err := core.ParseDate(payload.Date)
	if err != nil || date.IsZero() {
		date = today
	}

	return core.ParsedIntent{
		Operation:     core.OpCreate,
		Amount:        amount,
		Description:   buildReceiptDescription(payload.Merchant, payload.Items),
		Category:      CategoryForMerchant(payload.Merchant),
		Type:          core.Gasto,
		Date:          date,
		Tag:           tag,
		AccountSource: AccountSourceCard,
		IsRecurring:   false,
		PaymentStatus: core.Pagado,
	}, nil
}

// CategoryForMerchant guesses a spending category from the merchant name.
func CategoryForMerchant(merchant string) string {
	lower := strings.ToLower(merchant)
	for _, mc := range merchantCategories {
		for _, kw := range mc.keywords {
			if strings.Contains(lower, kw) {
				return mc.category
			}
		}
	}
	return "Compras"
}

// buildReceiptDescription joins merchant and up to three line items,
// truncated to the receipt description limit.
func buildReceiptDescription(merchant string, items []string) string {
	if len(items) > 3 {
		items = items[:3]
	}
	desc := merchant
	if len(items) > 0 {
		desc += " - " + strings.Join(items, ", ")
	}
	r := []rune(desc)
	if len(r) > receiptDescriptionLimit {
		desc = string(r[:receiptDescriptionLimit])
	}
	return desc
}
