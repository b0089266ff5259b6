package store

import (
	"testing"

	"github.com/dukerupert/clausedesk/internal/model"
)

func TestReportLifecycle(t *testing.T) {
	db := setupTestDB(t)
	rs := NewReportStore(db)
	createTestUser(t, db, "u1", "alice@example.com")

	r, err := rs.Create("u1", "contract_report.pdf", 2048)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Status != model.ReportStatusGenerated {
		t.Errorf("status = %q, want generated", r.Status)
	}

	if err := rs.MarkArchived(r.ID, "reports/u1/1.pdf.enc"); err != nil {
		t.Fatalf("mark archived: %v", err)
	}
	got, _ := rs.GetByID(r.ID, "u1")
	if got.Status != model.ReportStatusArchived || got.ObjectKey == nil {
		t.Errorf("got %+v, want archived with key", got)
	}

	other, _ := rs.Create("u1", "second.pdf", 10)
	if err := rs.MarkFailed(other.ID, "upload failed"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	list, _ := rs.List("u1")
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if got, _ := rs.GetByID(r.ID, "u2"); got != nil {
		t.Error("report should not be visible to another user")
	}
}
