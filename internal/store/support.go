package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukerupert/clausedesk/internal/model"
)

type SupportStore struct {
	db *sql.DB
}

func NewSupportStore(db *sql.DB) *SupportStore {
	return &SupportStore{db: db}
}

const ticketCols = `id, user_id, email, subject, description, category, status, created_at`

func (s *SupportStore) CreateTicket(userID, email, subject, description, category string) (*model.Ticket, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO support_tickets (id, user_id, email, subject, description, category, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, userID, email, subject, description, category, model.TicketStatusOpen,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}

	var t model.Ticket
	err = s.db.QueryRow(`SELECT `+ticketCols+` FROM support_tickets WHERE id = ?`, id).
		Scan(&t.ID, &t.UserID, &t.Email, &t.Subject, &t.Description, &t.Category, &t.Status, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return &t, nil
}

func (s *SupportStore) Tickets(userID string) ([]model.Ticket, error) {
	rows, err := s.db.Query(
		`SELECT `+ticketCols+` FROM support_tickets WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []model.Ticket
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.UserID, &t.Email, &t.Subject, &t.Description, &t.Category, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (s *SupportStore) CreateReview(userID, email string, rating int, text string) (*model.Review, error) {
	result, err := s.db.Exec(
		`INSERT INTO reviews (user_id, email, rating, text) VALUES (?, ?, ?, ?)`,
		userID, email, rating, text,
	)
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	var r model.Review
	err = s.db.QueryRow(`SELECT id, user_id, email, rating, text, created_at FROM reviews WHERE id = ?`, id).
		Scan(&r.ID, &r.UserID, &r.Email, &r.Rating, &r.Text, &r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return &r, nil
}
