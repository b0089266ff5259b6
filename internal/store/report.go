package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/clausedesk/internal/model"
)

type ReportStore struct {
	db *sql.DB
}

func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

func scanReport(scanner interface{ Scan(...any) error }) (*model.Report, error) {
	var (
		r   model.Report
		key sql.NullString
	)
	err := scanner.Scan(&r.ID, &r.UserID, &r.Filename, &key, &r.Size, &r.Status, &r.Error, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if key.Valid {
		r.ObjectKey = &key.String
	}
	return &r, nil
}

const reportCols = `id, user_id, filename, object_key, size, status, error, created_at`

func (s *ReportStore) Create(userID, filename string, size int64) (*model.Report, error) {
	result, err := s.db.Exec(
		`INSERT INTO reports (user_id, filename, size, status) VALUES (?, ?, ?, ?)`,
		userID, filename, size, model.ReportStatusGenerated,
	)
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id, userID)
}

func (s *ReportStore) GetByID(id int64, userID string) (*model.Report, error) {
	row := s.db.QueryRow(`SELECT `+reportCols+` FROM reports WHERE id = ? AND user_id = ?`, id, userID)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return r, nil
}

func (s *ReportStore) List(userID string) ([]model.Report, error) {
	rows, err := s.db.Query(
		`SELECT `+reportCols+` FROM reports WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

func (s *ReportStore) MarkArchived(id int64, objectKey string) error {
	_, err := s.db.Exec(
		`UPDATE reports SET object_key = ?, status = ?, error = '' WHERE id = ?`,
		objectKey, model.ReportStatusArchived, id,
	)
	if err != nil {
		return fmt.Errorf("mark report archived: %w", err)
	}
	return nil
}

func (s *ReportStore) MarkFailed(id int64, msg string) error {
	_, err := s.db.Exec(
		`UPDATE reports SET status = ?, error = ? WHERE id = ?`,
		model.ReportStatusFailed, msg, id,
	)
	if err != nil {
		return fmt.Errorf("mark report failed: %w", err)
	}
	return nil
}
