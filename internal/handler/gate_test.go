package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/clausedesk/internal/auth"
	"github.com/dukerupert/clausedesk/internal/model"
	"github.com/dukerupert/clausedesk/internal/usage"
	"github.com/dukerupert/clausedesk/internal/websocket"
)

type recordedUse struct {
	userID string
	action usage.Action
	day    string
}

type fakeRecorder struct {
	mu   sync.Mutex
	uses []recordedUse
}

func (f *fakeRecorder) Record(_ context.Context, userID string, a usage.Action, day string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uses = append(f.uses, recordedUse{userID, a, day})
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePublisher) SendToUser(_ string, msg websocket.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, msg.Type)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGate(t *testing.T, limits usage.Limits) (*Gate, *usage.Tracker, *fakeRecorder, *fakePublisher) {
	t.Helper()
	tracker, err := usage.NewTracker(limits)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	rec := &fakeRecorder{}
	pub := &fakePublisher{}
	return NewGate(tracker, rec, pub, testLogger()), tracker, rec, pub
}

func gatedRequest(sess *usage.Session) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/analysis", nil)
	if sess == nil {
		return r
	}
	return r.WithContext(auth.WithAuth(r.Context(), auth.AuthContext{UserID: "u1", Token: "tok", Session: sess}))
}

func TestGateConsumesUntilLimit(t *testing.T) {
	limits := usage.DefaultLimits()
	limits[usage.ActionReports] = 2
	gate, tracker, rec, pub := newTestGate(t, limits)
	sess := tracker.NewSession()

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		if !gate.Allow(w, gatedRequest(sess), usage.ActionReports) {
			t.Fatalf("request %d denied: %d %s", i+1, w.Code, w.Body.String())
		}
	}

	w := httptest.NewRecorder()
	if gate.Allow(w, gatedRequest(sess), usage.ActionReports) {
		t.Fatal("third request should be denied")
	}
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", w.Code)
	}

	var body struct {
		Error   string       `json:"error"`
		Upgrade bool         `json:"upgrade"`
		Usage   usage.Status `json:"usage"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Upgrade || !body.Usage.UpgradePrompt {
		t.Errorf("body = %+v, want upgrade prompt", body)
	}

	if len(rec.uses) != 2 {
		t.Fatalf("recorded %d uses, want 2", len(rec.uses))
	}
	if rec.uses[0].day != tracker.Today() || rec.uses[0].action != usage.ActionReports {
		t.Errorf("recorded %+v", rec.uses[0])
	}
	want := []string{websocket.EventUsageUpdated, websocket.EventUsageUpdated, websocket.EventUpgradePrompt}
	if len(pub.events) != len(want) {
		t.Fatalf("events = %v, want %v", pub.events, want)
	}
	for i := range want {
		if pub.events[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, pub.events[i], want[i])
		}
	}
}

func TestGatePaidIsUnlimitedAndUnrecorded(t *testing.T) {
	limits := usage.DefaultLimits()
	limits[usage.ActionGeneration] = 0
	gate, tracker, rec, _ := newTestGate(t, limits)
	sess := tracker.NewSession()
	tracker.Upgrade(sess)

	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		if !gate.Allow(w, gatedRequest(sess), usage.ActionGeneration) {
			t.Fatalf("paid request %d denied", i+1)
		}
	}
	if len(rec.uses) != 0 {
		t.Errorf("paid usage recorded %d times", len(rec.uses))
	}
	if st := tracker.Status(sess); st.Tier != model.TierPaid {
		t.Errorf("tier = %q", st.Tier)
	}
}

func TestGateRecordsChargedDayAcrossMidnight(t *testing.T) {
	before := time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC)
	after := before.Add(2 * time.Second)

	// Every clock read after the first pre-midnight one lands on the next day.
	var mu sync.Mutex
	pending := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		if pending > 0 {
			pending--
			return before
		}
		return after
	}
	tracker, err := usage.NewTracker(usage.DefaultLimits(), usage.WithClock(clock), usage.WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	rec := &fakeRecorder{}
	gate := NewGate(tracker, rec, &fakePublisher{}, testLogger())

	mu.Lock()
	pending = 1
	mu.Unlock()
	sess := tracker.NewSession()
	mu.Lock()
	pending = 1
	mu.Unlock()

	w := httptest.NewRecorder()
	if !gate.Allow(w, gatedRequest(sess), usage.ActionQueries) {
		t.Fatalf("denied: %d", w.Code)
	}
	if len(rec.uses) != 1 {
		t.Fatalf("recorded %d uses, want 1", len(rec.uses))
	}
	if rec.uses[0].day != "2026-03-10" {
		t.Errorf("recorded day = %q, want the day the unit was charged", rec.uses[0].day)
	}
}

func TestGateRejections(t *testing.T) {
	gate, tracker, _, _ := newTestGate(t, usage.DefaultLimits())

	t.Run("no session", func(t *testing.T) {
		w := httptest.NewRecorder()
		if gate.Allow(w, gatedRequest(nil), usage.ActionQueries) {
			t.Fatal("allowed without session")
		}
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		w := httptest.NewRecorder()
		if gate.Allow(w, gatedRequest(tracker.NewSession()), usage.Action("uploads")) {
			t.Fatal("allowed unknown action")
		}
		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
	})
}
