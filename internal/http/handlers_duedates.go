package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"gastobot/internal/core"
	"gastobot/internal/store"
)

func (s *Server) handleListDueDates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.DueDateFilter{
		Status: core.PaymentStatus(q.Get("status")),
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

	dds, err := s.dueDates.List(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "List due dates failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list due dates")
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: dds, Count: len(dds)})
}

func (s *Server) handleCreateDueDate(w http.ResponseWriter, r *http.Request) {
	var dd core.DueDate
	if err := json.NewDecoder(r.Body).Decode(&dd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.dueDates.Create(r.Context(), dd)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleUpdateDueDate changes a due date's status. Marking one pagado also
// records the payment in the ledger.
func (s *Server) handleUpdateDueDate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid due date id")
		return
	}

	var body struct {
		Status core.PaymentStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch body.Status {
	case core.Pendiente, core.Pagado, core.Vencido:
	default:
		writeError(w, http.StatusUnprocessableEntity, "invalid status")
		return
	}

	updated, err := s.dueDates.SetStatus(r.Context(), id, body.Status)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "due date not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Update due date failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update due date")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
