package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"gastobot/internal/core"
	"gastobot/internal/store"
)

// listResponse is the standard collection envelope.
type listResponse struct {
	Data  any `json:"data"`
	Count int `json:"count"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.TransactionFilter{
		Category: q.Get("category"),
		Type:     core.TransactionType(q.Get("type")),
		Status:   core.PaymentStatus(q.Get("status")),
	}
	if tag, ok := core.NormalizeTag(q.Get("tag")); ok {
		filter.Tag = tag
	}
	if from, err := core.ParseDate(q.Get("start_date")); err == nil {
		filter.From = from
	}
	if to, err := core.ParseDate(q.Get("end_date")); err == nil {
		filter.To = to
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	txs, err := s.store.ListTransactions(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "List transactions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: txs, Count: len(txs)})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if tx.Date.IsZero() {
		writeError(w, http.StatusUnprocessableEntity, "date is required")
		return
	}
	if tx.AccountSource == "" {
		tx.AccountSource = core.DefaultAccountSource
	}
	if tx.PaymentStatus == "" {
		tx.PaymentStatus = core.Pagado
	}
	if err := tx.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.store.CreateTransaction(r.Context(), tx)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create transaction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create transaction")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) transactionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := s.transactionID(w, r)
	if !ok {
		return
	}
	tx, err := s.store.GetTransaction(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Get transaction failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get transaction")
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := s.transactionID(w, r)
	if !ok {
		return
	}
	var patch core.TransactionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if patch.IsEmpty() {
		writeError(w, http.StatusUnprocessableEntity, "no updatable fields in request")
		return
	}
	if patch.Amount != nil && *patch.Amount <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "amount must be positive")
		return
	}

	updated, err := s.store.UpdateTransaction(r.Context(), id, patch)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Update transaction failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update transaction")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := s.transactionID(w, r)
	if !ok {
		return
	}
	err := s.store.DeleteTransaction(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete transaction failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "transaction " + strconv.FormatInt(id, 10) + " deleted",
	})
}
