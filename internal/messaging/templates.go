package messaging

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gastobot/internal/core"
)

// ErrorKind selects the user-facing error reply.
type ErrorKind string

const (
	ErrGeneral    ErrorKind = "general"
	ErrParse      ErrorKind = "parse"
	ErrReceipt    ErrorKind = "receipt"
	ErrCorrection ErrorKind = "correction"
)

const (
	// Greeting is sent for empty messages.
	Greeting = "👋 ¡Hola! Envíame un gasto como: 'Gasté 150 en Uber #Personal' o una foto de tu ticket."

	// OnlyImages is sent when media arrives that is not an image.
	OnlyImages = "❌ Solo puedo procesar imágenes. Envía una foto de tu ticket."

	// DeleteNeedsSearch asks for a search term on a bare delete.
	DeleteNeedsSearch = "❌ Para eliminar necesito que me digas qué buscar (ej: 'borra el Uber')."

	// UpdateNeedsSearch asks for a search term on a bare update.
	UpdateNeedsSearch = "❌ Para corregir necesito que me digas qué buscar (ej: 'cambia el Uber')."

	// UpdateNeedsField is sent when the field or value of an update is missing.
	UpdateNeedsField = "❌ No entendí qué quieres cambiar. Intenta: 'Cambia el monto a 500'."

	// AmountNotNumber rejects a non-numeric amount correction.
	AmountNotNumber = "❌ El nuevo monto debe ser un número."
)

var errorMessages = map[ErrorKind]string{
	ErrGeneral:    "❌ Hubo un error procesando tu mensaje. Por favor intenta de nuevo.",
	ErrParse:      "❌ No pude entender tu mensaje. Intenta con algo como: 'Gasté 150 en Uber #Personal'",
	ErrReceipt:    "❌ No pude leer el ticket. Intenta tomar una foto más clara.",
	ErrCorrection: "❌ No encontré una transacción reciente para corregir.",
}

// FormatMoney renders an amount as "$1,234.50".
func FormatMoney(amount float64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	s := strconv.FormatFloat(amount, 'f', 2, 64)
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "$" + b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

// FormatConfirmation builds the reply for a freshly created transaction.
func FormatConfirmation(amount float64, description, category string, tag core.ProjectTag) string {
	tagStr := ""
	if tag != "" {
		tagStr = " " + string(tag)
	}
	return fmt.Sprintf("✅ Registrado:\n💰 %s\n📝 %s\n📁 %s%s",
		FormatMoney(amount), description, category, tagStr)
}

// FormatCorrection builds the reply for a corrected field.
func FormatCorrection(field, oldValue, newValue string) string {
	return fmt.Sprintf("✅ Corregido:\n%s: %s → %s", titleCase(field), oldValue, newValue)
}

// FormatError maps an error kind to its user-facing reply.
func FormatError(kind ErrorKind) string {
	if msg, ok := errorMessages[kind]; ok {
		return msg
	}
	return errorMessages[ErrGeneral]
}

// FormatNotFound is sent when a delete/update search matched nothing.
func FormatNotFound(term string) string {
	return fmt.Sprintf("🔍 No encontré ninguna transacción que coincida con '%s'.", term)
}

// FormatDeleted confirms a deleted transaction.
func FormatDeleted(description string, amount float64, date core.Date) string {
	return fmt.Sprintf("🗑️ Eliminado: %s (%s) del %s.", description, FormatMoney(amount), date.String())
}

// FormatUpdated confirms an updated transaction.
func FormatUpdated(tx core.Transaction) string {
	return fmt.Sprintf("✅ Actualizado: %s - %s (%s).", tx.Description, FormatMoney(tx.Amount), tx.Date.String())
}

// FormatUnknownField rejects an update targeting an unsupported field.
func FormatUnknownField(field string) string {
	return fmt.Sprintf("❌ No sé cómo actualizar el campo '%s'.", field)
}

// FormatReminder builds the due-date reminder. The copy changes with the
// distance to the due date: upcoming, today and overdue.
func FormatReminder(concept string, amount float64, daysUntil int, tag core.ProjectTag) string {
	var msg string
	switch {
	case daysUntil > 0:
		msg = fmt.Sprintf("⏰ Recordatorio: %s vence en %d día(s)\n💰 %s",
			concept, daysUntil, FormatMoney(amount))
	case daysUntil == 0:
		msg = fmt.Sprintf("🔔 ¡HOY vence %s!\n💰 %s", concept, FormatMoney(amount))
	default:
		msg = fmt.Sprintf("⚠️ VENCIDO: %s venció hace %d día(s)\n💰 %s",
			concept, -daysUntil, FormatMoney(amount))
	}
	if tag != "" {
		msg += "\n🏷️ " + string(tag)
	}
	return msg
}

// FormatSummary builds a financial summary for a period ("esta semana",
// "este mes"), with an optional per-tag breakdown.
func FormatSummary(s core.Summary, period string) string {
	emoji := "📈"
	if s.NetBalance < 0 {
		emoji = "📉"
	}
	msg := fmt.Sprintf("📊 Resumen %s:\n💚 Ingresos: %s\n❤️ Gastos: %s\n%s Balance: %s",
		period,
		FormatMoney(s.TotalIncome),
		FormatMoney(s.TotalExpenses),
		emoji,
		FormatMoney(s.NetBalance))

	if len(s.ByTag) > 0 {
		msg += "\n\n📁 Por proyecto:"
		for _, tag := range sortedKeys(s.ByTag) {
			msg += fmt.Sprintf("\n  %s: %s", tag, FormatMoney(s.ByTag[tag]))
		}
	}
	return msg
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
