package store

import (
	"testing"

	"github.com/dukerupert/clausedesk/internal/model"
)

func TestReminderCreateAndList(t *testing.T) {
	db := setupTestDB(t)
	rs := NewReminderStore(db)
	createTestUser(t, db, "u1", "alice@example.com")
	createTestUser(t, db, "u2", "bob@example.com")

	if _, err := rs.Create("u1", "Lease", "renewal", "2026-04-01", "Renew office lease"); err != nil {
		t.Fatalf("create: %v", err)
	}
	r, err := rs.Create("u1", "NDA", "review", "2026-03-15", "Review NDA terms")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Status != model.ReminderStatusPending {
		t.Errorf("status = %q, want pending", r.Status)
	}
	if _, err := rs.Create("u2", "Other", "other", "2026-03-12", "Not alice's"); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := rs.List("u1", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].ContractName != "NDA" {
		t.Errorf("first = %q, want earliest due first", list[0].ContractName)
	}

	if got, _ := rs.GetByID(r.ID, "u2"); got != nil {
		t.Error("reminder should not be visible to another user")
	}
}

func TestReminderStatusAndDelete(t *testing.T) {
	db := setupTestDB(t)
	rs := NewReminderStore(db)
	createTestUser(t, db, "u1", "alice@example.com")

	r, _ := rs.Create("u1", "Lease", "renewal", "2026-04-01", "Renew")

	ok, err := rs.SetStatus(r.ID, "u2", model.ReminderStatusCompleted)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if ok {
		t.Error("other user must not update reminder")
	}

	ok, err = rs.SetStatus(r.ID, "u1", model.ReminderStatusCompleted)
	if err != nil || !ok {
		t.Fatalf("set status: ok=%v err=%v", ok, err)
	}
	pending, _ := rs.List("u1", model.ReminderStatusPending)
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}

	ok, err = rs.Delete(r.ID, "u1")
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	ok, _ = rs.Delete(r.ID, "u1")
	if ok {
		t.Error("second delete should report nothing removed")
	}
}

func TestReminderDueBetween(t *testing.T) {
	db := setupTestDB(t)
	rs := NewReminderStore(db)
	createTestUser(t, db, "u1", "alice@example.com")

	today, _ := rs.Create("u1", "A", "payment", "2026-03-10", "due today")
	tomorrow, _ := rs.Create("u1", "B", "payment", "2026-03-11", "due tomorrow")
	_, _ = rs.Create("u1", "C", "payment", "2026-03-20", "later")
	done, _ := rs.Create("u1", "D", "payment", "2026-03-10", "done")
	_, _ = rs.SetStatus(done.ID, "u1", model.ReminderStatusCompleted)

	due, err := rs.DueBetween("2026-03-10", "2026-03-11", "2026-03-10")
	if err != nil {
		t.Fatalf("due between: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("len = %d, want 2", len(due))
	}

	if err := rs.MarkNotified(today.ID, "2026-03-10"); err != nil {
		t.Fatalf("mark notified: %v", err)
	}
	due, _ = rs.DueBetween("2026-03-10", "2026-03-11", "2026-03-10")
	if len(due) != 1 || due[0].ID != tomorrow.ID {
		t.Fatalf("got %+v, want only tomorrow's reminder", due)
	}

	// Snoozing clears the notification mark.
	if _, err := rs.SetDueDate(today.ID, "u1", "2026-03-11"); err != nil {
		t.Fatalf("set due date: %v", err)
	}
	got, _ := rs.GetByID(today.ID, "u1")
	if got.NotifiedOn != nil {
		t.Error("expected notified_on cleared")
	}
}
