package model

import "time"

const (
	ReminderStatusPending   = "pending"
	ReminderStatusCompleted = "completed"
)

var ReminderTypes = map[string]bool{
	"renewal":  true,
	"payment":  true,
	"deadline": true,
	"review":   true,
	"other":    true,
}

type Reminder struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	ContractName string    `json:"contract_name"`
	Type         string    `json:"type"`
	DueDate      string    `json:"due_date"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	NotifiedOn   *string   `json:"notified_on,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type NotificationSettings struct {
	UserID       string    `json:"user_id"`
	EmailEnabled bool      `json:"email_enabled"`
	PushEnabled  bool      `json:"push_enabled"`
	PhoneNumber  string    `json:"phone_number"`
	UpdatedAt    time.Time `json:"updated_at"`
}
