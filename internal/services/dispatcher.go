// Package services wires the intent pipeline: message dispatch, transaction
// resolution, conversation context and the reminder scheduler.
package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"gastobot/internal/core"
	"gastobot/internal/messaging"
	"gastobot/internal/parser"
	"gastobot/internal/store"
)

// IntentClassifier is the pipeline's view of the AI layer.
type IntentClassifier interface {
	IsCorrection(message string) bool
	ClassifyText(ctx context.Context, message string) core.ParsedIntent
	ParseReceipt(ctx context.Context, image []byte, mimeType string, tag core.ProjectTag) (core.ParsedIntent, error)
}

// MediaFetcher downloads inbound media referenced by a webhook payload.
type MediaFetcher interface {
	DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error)
}

// Inbound is one received WhatsApp message, already decoded from the
// webhook form.
type Inbound struct {
	Sender           string
	Text             string
	MediaURL         string
	MediaContentType string
}

// Dispatcher routes each inbound message through classification to the
// matching store operation and produces the user-facing reply. It never
// returns an error to the webhook: every failure maps to a Spanish error
// template so the sender always gets an answer.
type Dispatcher struct {
	store      store.Store
	classifier IntentClassifier
	resolver   *Resolver
	contexts   *ContextService
	media      MediaFetcher
}

func NewDispatcher(s store.Store, classifier IntentClassifier, resolver *Resolver, contexts *ContextService, media MediaFetcher) *Dispatcher {
	return &Dispatcher{
		store:      s,
		classifier: classifier,
		resolver:   resolver,
		contexts:   contexts,
		media:      media,
	}
}

// HandleMessage processes one inbound message and returns the reply text.
func (d *Dispatcher) HandleMessage(ctx context.Context, in Inbound) string {
	phone := strings.TrimPrefix(in.Sender, "whatsapp:")

	msgID, err := d.store.LogMessage(ctx, core.InboundMessage{
		Sender:   phone,
		Text:     in.Text,
		MediaURL: in.MediaURL,
	})
	if err != nil {
		slog.WarnContext(ctx, "Failed to log inbound message", "sender", phone, "error", err)
	}

	var reply string
	switch {
	case in.MediaURL != "":
		if strings.Contains(in.MediaContentType, "image") {
			reply = d.handleImage(ctx, phone, in, msgID)
		} else {
			reply = messaging.OnlyImages
		}
	case strings.TrimSpace(in.Text) == "":
		reply = messaging.Greeting
	case d.classifier.IsCorrection(in.Text):
		reply = d.handleCorrection(ctx, phone, in.Text)
	default:
		reply = d.handleText(ctx, phone, in.Text, msgID)
	}

	if msgID != 0 {
		if err := d.store.MarkMessageProcessed(ctx, msgID); err != nil {
			slog.WarnContext(ctx, "Failed to mark message processed", "message_id", msgID, "error", err)
		}
	}
	return reply
}

func (d *Dispatcher) handleText(ctx context.Context, phone, message string, msgID int64) string {
	intent := d.classifier.ClassifyText(ctx, message)

	switch intent.Operation {
	case core.OpDelete:
		return d.handleDelete(ctx, intent)
	case core.OpUpdate:
		return d.handleUpdate(ctx, phone, intent)
	}

	if intent.Amount <= 0 {
		return messaging.FormatError(messaging.ErrParse)
	}

	category := intent.Category
	if category == "" {
		category = parser.DefaultCategory
	}
	tx, err := d.store.CreateTransaction(ctx, core.Transaction{
		Amount:        intent.Amount,
		Description:   intent.Description,
		Category:      category,
		Type:          intent.Type,
		Date:          intent.Date,
		Tag:           intent.Tag,
		AccountSource: intent.AccountSource,
		IsRecurring:   intent.IsRecurring,
		PaymentStatus: intent.PaymentStatus,
		RawMessageID:  msgID,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to create transaction", "sender", phone, "error", err)
		return messaging.FormatError(messaging.ErrGeneral)
	}

	if err := d.contexts.Record(ctx, phone, message, tx.ID); err != nil {
		slog.WarnContext(ctx, "Failed to record conversation context", "sender", phone, "error", err)
	}

	return messaging.FormatConfirmation(tx.Amount, tx.Description, tx.Category, tx.Tag)
}

func (d *Dispatcher) handleDelete(ctx context.Context, intent core.ParsedIntent) string {
	if intent.SearchTerm == "" {
		return messaging.DeleteNeedsSearch
	}

	matches, err := d.resolver.Resolve(ctx, intent.SearchTerm, intent.Date)
	if err != nil {
		slog.ErrorContext(ctx, "Delete search failed", "term", intent.SearchTerm, "error", err)
		return messaging.FormatError(messaging.ErrGeneral)
	}
	if len(matches) == 0 {
		return messaging.FormatNotFound(intent.SearchTerm)
	}

	// Most recent match wins.
	target := matches[0]
	if err := d.store.DeleteTransaction(ctx, target.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to delete transaction", "id", target.ID, "error", err)
		return messaging.FormatError(messaging.ErrGeneral)
	}

	slog.InfoContext(ctx, "Transaction deleted",
		"id", target.ID,
		"description", target.Description,
		"candidates", len(matches))
	return messaging.FormatDeleted(target.Description, target.Amount, target.Date)
}

func (d *Dispatcher) handleUpdate(ctx context.Context, phone string, intent core.ParsedIntent) string {
	if intent.SearchTerm == "" {
		return messaging.UpdateNeedsSearch
	}

	matches, err := d.resolver.Resolve(ctx, intent.SearchTerm, intent.Date)
	if err != nil {
		slog.ErrorContext(ctx, "Update search failed", "term", intent.SearchTerm, "error", err)
		return messaging.FormatError(messaging.ErrGeneral)
	}
	if len(matches) == 0 {
		return messaging.FormatNotFound(intent.SearchTerm)
	}

	if intent.CorrectionField == "" || intent.CorrectionValue == "" {
		return messaging.UpdateNeedsField
	}
	canonical, known := core.NormalizeField(intent.CorrectionField)
	if !known {
		return messaging.FormatUnknownField(intent.CorrectionField)
	}
	patch, badValue := buildPatch(canonical, intent.CorrectionValue)
	if badValue != "" {
		return badValue
	}

	target := matches[0]
	updated, err := d.store.UpdateTransaction(ctx, target.ID, patch)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to update transaction", "id", target.ID, "error", err)
		return messaging.FormatError(messaging.ErrGeneral)
	}

	if err := d.contexts.Record(ctx, phone, intent.RawText, updated.ID); err != nil {
		slog.WarnContext(ctx, "Failed to record conversation context", "sender", phone, "error", err)
	}

	return messaging.FormatUpdated(updated)
}

// handleCorrection amends the sender's most recent transaction without a
// search: "cambia el monto a 500" right after logging an expense.
func (d *Dispatcher) handleCorrection(ctx context.Context, phone, message string) string {
	lastID, ok, err := d.contexts.LastTransactionID(ctx, phone)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load conversation context", "sender", phone, "error", err)
		return messaging.FormatError(messaging.ErrGeneral)
	}
	if !ok {
		return messaging.FormatError(messaging.ErrCorrection)
	}

	last, err := d.store.GetTransaction(ctx, lastID)
	if errors.Is(err, store.ErrNotFound) {
		return messaging.FormatError(messaging.ErrCorrection)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load last transaction", "id", lastID, "error", err)
		return messaging.FormatError(messaging.ErrGeneral)
	}

	intent := d.classifier.ClassifyText(ctx, message)

	field := intent.CorrectionField
	value := intent.CorrectionValue
	if !intent.IsCorrection || field == "" || value == "" {
		// Unstructured correction: take the first number in the message as
		// the new amount.
		amount := parser.ExtractAmount(message)
		if amount <= 0 {
			return messaging.FormatError(messaging.ErrCorrection)
		}
		field = string(core.FieldAmount)
		value = strconv.FormatFloat(amount, 'f', -1, 64)
	}

	canonical, known := core.NormalizeField(field)
	if !known {
		return messaging.FormatUnknownField(field)
	}

	oldValue := fieldValue(last, canonical)
	patch, badValue := buildPatch(canonical, value)
	if badValue != "" {
		return badValue
	}

	updated, err := d.store.UpdateTransaction(ctx, last.ID, patch)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to apply correction", "id", last.ID, "error", err)
		return messaging.FormatError(messaging.ErrGeneral)
	}

	slog.InfoContext(ctx, "Correction applied",
		"id", updated.ID,
		"field", string(canonical),
		"old", oldValue)
	return messaging.FormatCorrection(fieldLabel(canonical), oldValue, fieldValue(updated, canonical))
}

func (d *Dispatcher) handleImage(ctx context.Context, phone string, in Inbound, msgID int64) string {
	image, err := d.media.DownloadMedia(ctx, in.MediaURL)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to download receipt media", "sender", phone, "error", err)
		return messaging.FormatError(messaging.ErrReceipt)
	}

	// The caption can carry the project tag for the receipt.
	tag, _ := core.ExtractTag(in.Text)

	intent, err := d.classifier.ParseReceipt(ctx, image, in.MediaContentType, tag)
	if err != nil {
		slog.WarnContext(ctx, "Receipt extraction failed", "sender", phone, "error", err)
		return messaging.FormatError(messaging.ErrReceipt)
	}

	tx, err := d.store.CreateTransaction(ctx, core.Transaction{
		Amount:        intent.Amount,
		Description:   intent.Description,
		Category:      intent.Category,
		Type:          intent.Type,
		Date:          intent.Date,
		Tag:           intent.Tag,
		AccountSource: intent.AccountSource,
		PaymentStatus: intent.PaymentStatus,
		RawMessageID:  msgID,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to create transaction from receipt", "sender", phone, "error", err)
		return messaging.FormatError(messaging.ErrGeneral)
	}

	if err := d.contexts.Record(ctx, phone, "[RECEIPT] "+tx.Description, tx.ID); err != nil {
		slog.WarnContext(ctx, "Failed to record conversation context", "sender", phone, "error", err)
	}

	return messaging.FormatConfirmation(tx.Amount, tx.Description, tx.Category, tx.Tag)
}

// buildPatch maps a canonical field/value pair to a typed patch. The
// second return is a non-empty user-facing rejection when the value does
// not fit the field.
func buildPatch(field core.UpdatableField, value string) (core.TransactionPatch, string) {
	var patch core.TransactionPatch
	switch field {
	case core.FieldAmount:
		amount, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimPrefix(value, "$"), ",", ""), 64)
		if err != nil || amount <= 0 {
			return core.TransactionPatch{}, messaging.AmountNotNumber
		}
		patch.Amount = &amount
	case core.FieldDescription:
		patch.Description = &value
	case core.FieldCategory:
		patch.Category = &value
	case core.FieldDate:
		date, err := core.ParseDate(value)
		if err != nil || date.IsZero() {
			return core.TransactionPatch{}, messaging.FormatError(messaging.ErrParse)
		}
		patch.Date = &date
	}
	return patch, ""
}

func fieldValue(tx core.Transaction, field core.UpdatableField) string {
	switch field {
	case core.FieldAmount:
		return messaging.FormatMoney(tx.Amount)
	case core.FieldDescription:
		return tx.Description
	case core.FieldCategory:
		return tx.Category
	case core.FieldDate:
		return tx.Date.String()
	}
	return ""
}

func fieldLabel(field core.UpdatableField) string {
	switch field {
	case core.FieldAmount:
		return "monto"
	case core.FieldDescription:
		return "descripción"
	case core.FieldCategory:
		return "categoría"
	case core.FieldDate:
		return "fecha"
	}
	return string(field)
}
