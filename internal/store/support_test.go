package store

import (
	"testing"

	"github.com/dukerupert/clausedesk/internal/model"
)

func TestSupportTickets(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSupportStore(db)
	createTestUser(t, db, "u1", "alice@example.com")

	tk, err := ss.CreateTicket("u1", "alice@example.com", "Login", "Cannot log in", "technical")
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if tk.ID == "" {
		t.Error("expected ticket id")
	}
	if tk.Status != model.TicketStatusOpen {
		t.Errorf("status = %q, want open", tk.Status)
	}

	list, err := ss.Tickets("u1")
	if err != nil {
		t.Fatalf("tickets: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("len = %d, want 1", len(list))
	}
}

func TestSupportReviewRatingBounds(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSupportStore(db)
	createTestUser(t, db, "u1", "alice@example.com")

	r, err := ss.CreateReview("u1", "alice@example.com", 5, "Great")
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	if r.Rating != 5 {
		t.Errorf("rating = %d, want 5", r.Rating)
	}

	if _, err := ss.CreateReview("u1", "alice@example.com", 6, "Too high"); err == nil {
		t.Error("expected check constraint failure for rating 6")
	}
}
