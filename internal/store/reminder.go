package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/clausedesk/internal/model"
)

type ReminderStore struct {
	db *sql.DB
}

func NewReminderStore(db *sql.DB) *ReminderStore {
	return &ReminderStore{db: db}
}

func scanReminder(scanner interface{ Scan(...any) error }) (*model.Reminder, error) {
	var (
		r        model.Reminder
		notified sql.NullString
	)
	err := scanner.Scan(&r.ID, &r.UserID, &r.ContractName, &r.Type, &r.DueDate, &r.Description,
		&r.Status, &notified, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if notified.Valid {
		r.NotifiedOn = &notified.String
	}
	return &r, nil
}

const reminderCols = `id, user_id, contract_name, type, due_date, description, status, notified_on, created_at, updated_at`

func (s *ReminderStore) Create(userID, contractName, typ, dueDate, description string) (*model.Reminder, error) {
	result, err := s.db.Exec(
		`INSERT INTO reminders (user_id, contract_name, type, due_date, description, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, contractName, typ, dueDate, description, model.ReminderStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id, userID)
}

// GetByID returns the reminder if it belongs to userID, or nil.
func (s *ReminderStore) GetByID(id int64, userID string) (*model.Reminder, error) {
	row := s.db.QueryRow(`SELECT `+reminderCols+` FROM reminders WHERE id = ? AND user_id = ?`, id, userID)
	r, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	return r, nil
}

// List returns the user's reminders, optionally filtered by status, ordered by due date.
func (s *ReminderStore) List(userID, status string) ([]model.Reminder, error) {
	query := `SELECT ` + reminderCols + ` FROM reminders WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY due_date, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// DueBetween returns pending reminders due in [from, to] that have not been
// notified on day.
func (s *ReminderStore) DueBetween(from, to, day string) ([]model.Reminder, error) {
	rows, err := s.db.Query(
		`SELECT `+reminderCols+` FROM reminders
		 WHERE status = ? AND due_date >= ? AND due_date <= ?
		   AND (notified_on IS NULL OR notified_on <> ?)
		 ORDER BY due_date, id`,
		model.ReminderStatusPending, from, to, day,
	)
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

func scanReminders(rows *sql.Rows) ([]model.Reminder, error) {
	var reminders []model.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		reminders = append(reminders, *r)
	}
	return reminders, rows.Err()
}

// SetStatus reports whether a row owned by userID was updated.
func (s *ReminderStore) SetStatus(id int64, userID, status string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE reminders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?`,
		status, id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("set reminder status: %w", err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// SetDueDate moves the reminder and clears its notification mark.
func (s *ReminderStore) SetDueDate(id int64, userID, dueDate string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE reminders SET due_date = ?, notified_on = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		dueDate, id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("set reminder due date: %w", err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

func (s *ReminderStore) MarkNotified(id int64, day string) error {
	_, err := s.db.Exec(`UPDATE reminders SET notified_on = ? WHERE id = ?`, day, id)
	if err != nil {
		return fmt.Errorf("mark reminder notified: %w", err)
	}
	return nil
}

func (s *ReminderStore) Delete(id int64, userID string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM reminders WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete reminder: %w", err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}
