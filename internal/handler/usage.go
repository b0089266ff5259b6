package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/clausedesk/internal/account"
	"github.com/dukerupert/clausedesk/internal/auth"
	"github.com/dukerupert/clausedesk/internal/model"
	"github.com/dukerupert/clausedesk/internal/usage"
)

type UsageHandler struct {
	tracker  *usage.Tracker
	accounts *account.Service
	logger   *slog.Logger
}

func NewUsageHandler(tracker *usage.Tracker, accounts *account.Service, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{tracker: tracker, accounts: accounts, logger: logger}
}

// Status handles GET /api/usage
func (h *UsageHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Status(auth.Session(r.Context())))
}

// Dismiss handles POST /api/usage/dismiss
func (h *UsageHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	sess := auth.Session(r.Context())
	h.tracker.DismissUpgradePrompt(sess)
	writeJSON(w, http.StatusOK, h.tracker.Status(sess))
}

// History handles GET /api/usage/history?days=N
func (h *UsageHandler) History(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive number")
			return
		}
		days = n
	}
	days = min(days, 365)

	today, err := time.Parse("2006-01-02", h.tracker.Today())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	since := today.AddDate(0, 0, -(days - 1)).Format("2006-01-02")

	history, err := h.accounts.History(r.Context(), auth.UserID(r.Context()), since)
	if err != nil {
		h.logger.Error("usage history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load usage history")
		return
	}
	if history == nil {
		history = []model.UsageDay{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"since": since, "days": history})
}
