package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/clausedesk/internal/auth"
	"github.com/dukerupert/clausedesk/internal/model"
	"github.com/dukerupert/clausedesk/internal/usage"
	"github.com/dukerupert/clausedesk/internal/websocket"
)

// UsageRecorder persists consumed quota so it survives restarts.
type UsageRecorder interface {
	Record(ctx context.Context, userID string, a usage.Action, day string) error
}

// Publisher fans live events out to a user's open clients.
type Publisher interface {
	SendToUser(userID string, msg websocket.Message)
}

// Gate checks metered actions against the caller's daily quota.
type Gate struct {
	tracker   *usage.Tracker
	recorder  UsageRecorder
	publisher Publisher
	logger    *slog.Logger
}

func NewGate(tracker *usage.Tracker, recorder UsageRecorder, publisher Publisher, logger *slog.Logger) *Gate {
	return &Gate{tracker: tracker, recorder: recorder, publisher: publisher, logger: logger}
}

// Allow consumes one unit of a for the request's session. When it returns
// false a response has already been written.
func (g *Gate) Allow(w http.ResponseWriter, r *http.Request, a usage.Action) bool {
	ac, ok := auth.FromContext(r.Context())
	if !ok || ac.Session == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return false
	}

	status, allowed, err := g.tracker.Consume(ac.Session, a)
	if err != nil {
		if errors.Is(err, usage.ErrUnknownAction) {
			g.logger.Error("metered route uses unknown action", "action", a, "path", r.URL.Path)
		} else {
			g.logger.Error("check usage", "action", a, "error", err)
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return false
	}

	if !allowed {
		g.publish(ac.UserID, websocket.EventUpgradePrompt, status)
		g.logger.Info("usage limit reached", "user_id", ac.UserID, "action", a)
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":   "usage limit reached",
			"upgrade": true,
			"usage":   status,
		})
		return false
	}

	// status.Date is the day the unit was charged to.
	if status.Tier != model.TierPaid {
		if err := g.recorder.Record(r.Context(), ac.UserID, a, status.Date); err != nil {
			g.logger.Warn("persist usage", "user_id", ac.UserID, "action", a, "error", err)
		}
	}
	g.publish(ac.UserID, websocket.EventUsageUpdated, status)
	return true
}

func (g *Gate) publish(userID, event string, status usage.Status) {
	if g.publisher != nil {
		g.publisher.SendToUser(userID, websocket.NewMessage(event, status))
	}
}
