package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/clausedesk/internal/model"
	"github.com/dukerupert/clausedesk/internal/push"
	"github.com/dukerupert/clausedesk/internal/store"
	"github.com/dukerupert/clausedesk/internal/websocket"
)

// Scheduler periodically delivers notices for reminders due today or
// tomorrow. Each reminder is notified at most once per day.
type Scheduler struct {
	mu        sync.RWMutex
	svc       *Service
	notify    *store.NotificationStore
	pusher    Pusher
	publisher Publisher
	interval  time.Duration
	logger    *slog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewScheduler(svc *Service, notify *store.NotificationStore, pusher Pusher, publisher Publisher,
	interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		svc:       svc,
		notify:    notify,
		pusher:    pusher,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
	}
}

// Start runs one check immediately, then one per interval.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.Tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Tick performs a single pass and returns how many reminders were notified.
func (s *Scheduler) Tick(ctx context.Context) int {
	today := s.svc.today()
	day := today.Format(dateLayout)
	tomorrow := today.AddDate(0, 0, 1).Format(dateLayout)

	due, err := s.svc.reminders.DueBetween(day, tomorrow, day)
	if err != nil {
		s.logger.Error("list due reminders", "error", err)
		return 0
	}

	n := 0
	for _, r := range due {
		if ctx.Err() != nil {
			return n
		}
		daysLeft := s.svc.daysUntil(today, r.DueDate)
		if !s.deliver(ctx, r, daysLeft) {
			continue
		}
		if err := s.svc.reminders.MarkNotified(r.ID, day); err != nil {
			s.logger.Error("mark reminder notified", "reminder_id", r.ID, "error", err)
			continue
		}
		if s.publisher != nil {
			s.publisher.SendToUser(r.UserID, websocket.NewMessage(websocket.EventReminderDue, map[string]any{
				"reminder":  r,
				"days_left": daysLeft,
			}))
		}
		n++
	}
	if n > 0 {
		s.logger.Info("reminders notified", "count", n)
	}
	return n
}

// deliver sends the notice over the owner's enabled channels. It reports
// whether the reminder is done for the day: at least one channel succeeded,
// or there was no channel to try. Otherwise a later pass retries.
func (s *Scheduler) deliver(ctx context.Context, r model.Reminder, daysLeft int) bool {
	settings, err := s.notify.Settings(r.UserID)
	if err != nil {
		s.logger.Error("load notification settings", "user_id", r.UserID, "error", err)
		return false
	}

	attempted, delivered := false, false

	if settings.EmailEnabled && s.svc.mailer != nil && s.svc.mailer.Configured() {
		u, err := s.svc.users.GetByID(r.UserID)
		switch {
		case err != nil:
			attempted = true
			s.logger.Error("load reminder owner", "user_id", r.UserID, "error", err)
		case u != nil:
			attempted = true
			if err := s.svc.mailer.SendReminder(ctx, u.Email, r, daysLeft); err != nil {
				s.logger.Warn("send reminder email", "reminder_id", r.ID, "error", err)
			} else {
				delivered = true
			}
		}
	}

	if settings.PushEnabled && s.pusher != nil && s.pusher.Configured() {
		tried, sent := s.sendPush(ctx, r, daysLeft)
		attempted = attempted || tried
		delivered = delivered || sent > 0
	}

	return delivered || !attempted
}

// sendPush pushes to every live subscription of the owner. It reports
// whether any send was tried and how many succeeded; expired subscriptions
// are removed and do not count as tries.
func (s *Scheduler) sendPush(ctx context.Context, r model.Reminder, daysLeft int) (bool, int) {
	subs, err := s.notify.Subscriptions(r.UserID)
	if err != nil {
		s.logger.Error("list push subscriptions", "user_id", r.UserID, "error", err)
		return true, 0
	}

	body := fmt.Sprintf("%s is due today", r.ContractName)
	if daysLeft == 1 {
		body = fmt.Sprintf("%s is due tomorrow", r.ContractName)
	}
	payload := push.Payload{
		Title: "Contract reminder",
		Body:  body,
		URL:   "/reminders",
		Tag:   fmt.Sprintf("reminder-%d", r.ID),
	}

	tried, sent := false, 0
	for _, sub := range subs {
		err := s.pusher.Send(ctx, &sub, payload)
		switch {
		case err == nil:
			tried = true
			sent++
		case errors.Is(err, push.ErrExpired):
			if err := s.notify.DeleteByEndpoint(sub.Endpoint); err != nil {
				s.logger.Error("delete expired push subscription", "error", err)
			}
		default:
			tried = true
			s.logger.Warn("send reminder push", "reminder_id", r.ID, "error", err)
		}
	}
	return tried, sent
}
