package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/clausedesk/internal/model"
)

// UsageStore is the durable per-user, per-day counter ledger.
type UsageStore struct {
	db *sql.DB
}

func NewUsageStore(db *sql.DB) *UsageStore {
	return &UsageStore{db: db}
}

// Increment adds one to the user's counter for action on day.
func (s *UsageStore) Increment(userID, day, action string) error {
	_, err := s.db.Exec(
		`INSERT INTO usage_counters (user_id, day, action, count) VALUES (?, ?, ?, 1)
		 ON CONFLICT(user_id, day, action) DO UPDATE SET count = count + 1`,
		userID, day, action,
	)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

// ForDay returns action → count for the user's day. Missing actions are absent.
func (s *UsageStore) ForDay(userID, day string) (map[string]int, error) {
	rows, err := s.db.Query(
		`SELECT action, count FROM usage_counters WHERE user_id = ? AND day = ?`,
		userID, day,
	)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			action string
			n      int
		)
		if err := rows.Scan(&action, &n); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		counts[action] = n
	}
	return counts, rows.Err()
}

// History returns counters from since (inclusive) onward, newest day first.
func (s *UsageStore) History(userID, since string) ([]model.UsageDay, error) {
	rows, err := s.db.Query(
		`SELECT day, action, count FROM usage_counters
		 WHERE user_id = ? AND day >= ? ORDER BY day DESC, action`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("query usage history: %w", err)
	}
	defer rows.Close()

	var days []model.UsageDay
	for rows.Next() {
		var d model.UsageDay
		if err := rows.Scan(&d.Day, &d.Action, &d.Count); err != nil {
			return nil, fmt.Errorf("scan usage history: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// DeleteBefore prunes counters older than day.
func (s *UsageStore) DeleteBefore(day string) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM usage_counters WHERE day < ?`, day)
	if err != nil {
		return 0, fmt.Errorf("prune usage: %w", err)
	}
	return result.RowsAffected()
}
