package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/clausedesk/internal/model"
)

// NotificationStore holds per-user delivery settings and Web Push endpoints.
type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// Settings returns the user's settings, or the defaults when none are stored.
func (s *NotificationStore) Settings(userID string) (*model.NotificationSettings, error) {
	ns := model.NotificationSettings{UserID: userID, EmailEnabled: true}
	err := s.db.QueryRow(
		`SELECT email_enabled, push_enabled, phone_number, updated_at
		 FROM notification_settings WHERE user_id = ?`, userID,
	).Scan(&ns.EmailEnabled, &ns.PushEnabled, &ns.PhoneNumber, &ns.UpdatedAt)
	if err == sql.ErrNoRows {
		return &ns, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification settings: %w", err)
	}
	return &ns, nil
}

func (s *NotificationStore) SaveSettings(ns model.NotificationSettings) (*model.NotificationSettings, error) {
	_, err := s.db.Exec(
		`INSERT INTO notification_settings (user_id, email_enabled, push_enabled, phone_number)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   email_enabled = excluded.email_enabled,
		   push_enabled = excluded.push_enabled,
		   phone_number = excluded.phone_number,
		   updated_at = CURRENT_TIMESTAMP`,
		ns.UserID, ns.EmailEnabled, ns.PushEnabled, ns.PhoneNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("save notification settings: %w", err)
	}
	return s.Settings(ns.UserID)
}

const pushCols = `id, user_id, endpoint, p256dh_key, auth_key, device_name, created_at`

func scanSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := scanner.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Subscribe stores an endpoint for userID, refreshing keys when it already exists.
func (s *NotificationStore) Subscribe(userID, endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error) {
	_, err := s.db.Exec(
		`INSERT INTO push_subscriptions (user_id, endpoint, p256dh_key, auth_key, device_name)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET user_id = excluded.user_id, p256dh_key = excluded.p256dh_key,
		   auth_key = excluded.auth_key, device_name = excluded.device_name`,
		userID, endpoint, p256dh, auth, deviceName,
	)
	if err != nil {
		return nil, fmt.Errorf("create push subscription: %w", err)
	}

	// LastInsertId is unreliable on conflict update; re-query by endpoint
	row := s.db.QueryRow(`SELECT `+pushCols+` FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return sub, nil
}

func (s *NotificationStore) Subscriptions(userID string) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT `+pushCols+` FROM push_subscriptions WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (s *NotificationStore) Unsubscribe(userID, endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE user_id = ? AND endpoint = ?`, userID, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

// DeleteByEndpoint removes a subscription the push service reported as gone.
func (s *NotificationStore) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription by endpoint: %w", err)
	}
	return nil
}
