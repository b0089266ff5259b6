package model

import "time"

const (
	ReportStatusGenerated = "generated"
	ReportStatusArchived  = "archived"
	ReportStatusFailed    = "failed"
)

type Report struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Filename  string    `json:"filename"`
	ObjectKey *string   `json:"-"`
	Size      int64     `json:"size"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
