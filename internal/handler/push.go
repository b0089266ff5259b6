package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/clausedesk/internal/auth"
	"github.com/dukerupert/clausedesk/internal/model"
	"github.com/dukerupert/clausedesk/internal/push"
	"github.com/dukerupert/clausedesk/internal/store"
)

type NotificationHandler struct {
	notify  *store.NotificationStore
	service *push.Service
	logger  *slog.Logger
}

func NewNotificationHandler(ns *store.NotificationStore, svc *push.Service, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notify: ns, service: svc, logger: logger}
}

// Settings handles GET /api/notifications/settings
func (h *NotificationHandler) Settings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.notify.Settings(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get notification settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type settingsRequest struct {
	EmailEnabled bool   `json:"email_enabled"`
	PushEnabled  bool   `json:"push_enabled"`
	PhoneNumber  string `json:"phone_number"`
}

// SaveSettings handles PUT /api/notifications/settings
func (h *NotificationHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	saved, err := h.notify.SaveSettings(model.NotificationSettings{
		UserID:       auth.UserID(r.Context()),
		EmailEnabled: req.EmailEnabled,
		PushEnabled:  req.PushEnabled,
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
	})
	if err != nil {
		h.logger.Error("save notification settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

type subscribeRequest struct {
	Endpoint   string `json:"endpoint"`
	P256dh     string `json:"p256dh"`
	Auth       string `json:"auth"`
	DeviceName string `json:"device_name"`
}

// Subscribe handles POST /api/push/subscribe
func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		writeError(w, http.StatusBadRequest, "endpoint, p256dh, and auth are required")
		return
	}

	sub, err := h.notify.Subscribe(auth.UserID(r.Context()), req.Endpoint, req.P256dh, req.Auth, req.DeviceName)
	if err != nil {
		h.logger.Error("create push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// Unsubscribe handles POST /api/push/unsubscribe
func (h *NotificationHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.notify.Unsubscribe(auth.UserID(r.Context()), req.Endpoint); err != nil {
		h.logger.Error("delete push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VAPIDKey handles GET /api/push/vapid-key
func (h *NotificationHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.service == nil || !h.service.Configured() {
		writeError(w, http.StatusServiceUnavailable, "push notifications are not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

// Test handles POST /api/push/test
func (h *NotificationHandler) Test(w http.ResponseWriter, r *http.Request) {
	if h.service == nil || !h.service.Configured() {
		writeError(w, http.StatusServiceUnavailable, "push notifications are not configured")
		return
	}
	subs, err := h.notify.Subscriptions(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}

	payload := push.Payload{
		Title: "Test Notification",
		Body:  "Push notifications are working!",
		URL:   "/reminders",
		Tag:   "test",
	}
	sent := 0
	for i := range subs {
		if err := h.service.Send(r.Context(), &subs[i], payload); err != nil {
			h.logger.Warn("test push send", "error", err)
			continue
		}
		sent++
	}
	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}
