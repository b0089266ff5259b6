package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/clausedesk/internal/account"
	"github.com/dukerupert/clausedesk/internal/auth"
	"github.com/dukerupert/clausedesk/internal/middleware"
)

type AuthHandler struct {
	accounts     *account.Service
	issuer       *auth.Issuer
	cookieSecure bool
	logger       *slog.Logger
}

func NewAuthHandler(accounts *account.Service, issuer *auth.Issuer, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, issuer: issuer, cookieSecure: cookieSecure, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req account.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	l, err := h.accounts.Register(r.Context(), req)
	switch {
	case errors.Is(err, account.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, account.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email already registered")
		return
	case err != nil:
		h.logger.Error("register", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	h.respondWithSession(w, http.StatusCreated, l)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	l, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, account.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		h.logger.Error("login", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	h.respondWithSession(w, http.StatusOK, l)
}

func (h *AuthHandler) respondWithSession(w http.ResponseWriter, status int, l *account.Login) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    l.Token,
		Path:     "/",
		Expires:  l.Expires,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	resp := map[string]any{"user": l.User}
	if h.issuer != nil {
		bearer, err := h.issuer.Issue(l.Token, l.User.ID)
		if err != nil {
			h.logger.Error("issue bearer token", "error", err)
		} else {
			resp["token"] = bearer
		}
	}
	writeJSON(w, status, resp)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := h.accounts.Logout(r.Context(), ac.Token); err != nil {
		h.logger.Error("logout", "error", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.User(r.Context(), auth.UserID(r.Context()))
	if err != nil || user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	user.SubscriptionType = h.accounts.TierFor(r.Context(), user.ID)
	writeJSON(w, http.StatusOK, user)
}
