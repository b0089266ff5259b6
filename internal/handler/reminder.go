package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/clausedesk/internal/auth"
	"github.com/dukerupert/clausedesk/internal/reminder"
)

type ReminderHandler struct {
	svc    *reminder.Service
	logger *slog.Logger
}

func NewReminderHandler(svc *reminder.Service, logger *slog.Logger) *ReminderHandler {
	return &ReminderHandler{svc: svc, logger: logger}
}

func (h *ReminderHandler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, reminder.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, reminder.ErrNotFound):
		writeError(w, http.StatusNotFound, "reminder not found")
	default:
		h.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}

// Create handles POST /api/reminders
func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req reminder.AddInput
	if !decodeJSON(w, r, &req) {
		return
	}
	rem, err := h.svc.Add(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		h.fail(w, "create reminder", err)
		return
	}
	writeJSON(w, http.StatusCreated, rem)
}

// List handles GET /api/reminders
func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	upcoming, err := h.svc.Upcoming(auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, "list reminders", err)
		return
	}
	if upcoming == nil {
		upcoming = []reminder.Upcoming{}
	}
	writeJSON(w, http.StatusOK, upcoming)
}

// Calendar handles GET /api/reminders/calendar
func (h *ReminderHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	months, err := h.svc.Calendar(auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, "load calendar", err)
		return
	}
	if months == nil {
		months = []reminder.Month{}
	}
	writeJSON(w, http.StatusOK, months)
}

// Complete handles POST /api/reminders/{id}/complete
func (h *ReminderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.svc.Complete(auth.UserID(r.Context()), id); err != nil {
		h.fail(w, "complete reminder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type snoozeRequest struct {
	Days int `json:"days"`
}

// Snooze handles POST /api/reminders/{id}/snooze
func (h *ReminderHandler) Snooze(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req snoozeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rem, err := h.svc.Snooze(auth.UserID(r.Context()), id, req.Days)
	if err != nil {
		h.fail(w, "snooze reminder", err)
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

// Delete handles DELETE /api/reminders/{id}
func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.svc.Delete(auth.UserID(r.Context()), id); err != nil {
		h.fail(w, "delete reminder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
