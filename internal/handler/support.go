package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/clausedesk/internal/auth"
	"github.com/dukerupert/clausedesk/internal/model"
	"github.com/dukerupert/clausedesk/internal/store"
)

type SupportHandler struct {
	support *store.SupportStore
	logger  *slog.Logger
}

func NewSupportHandler(ss *store.SupportStore, logger *slog.Logger) *SupportHandler {
	return &SupportHandler{support: ss, logger: logger}
}

type ticketRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// CreateTicket handles POST /api/support/tickets
func (h *SupportHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req ticketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Subject = strings.TrimSpace(req.Subject)
	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	if req.Category == "" {
		req.Category = "general"
	}
	if req.Subject == "" || req.Description == "" {
		writeError(w, http.StatusBadRequest, "subject and description are required")
		return
	}
	if !model.TicketCategories[req.Category] {
		writeError(w, http.StatusBadRequest, "category must be technical, billing, feature, or general")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	ticket, err := h.support.CreateTicket(ac.UserID, ac.Email, req.Subject, req.Description, req.Category)
	if err != nil {
		h.logger.Error("create ticket", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to submit ticket")
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

// ListTickets handles GET /api/support/tickets
func (h *SupportHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.support.Tickets(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list tickets", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tickets")
		return
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

type reviewRequest struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// CreateReview handles POST /api/support/reviews
func (h *SupportHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	review, err := h.support.CreateReview(ac.UserID, ac.Email, req.Rating, strings.TrimSpace(req.Text))
	if err != nil {
		h.logger.Error("create review", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to submit review")
		return
	}
	writeJSON(w, http.StatusCreated, review)
}
