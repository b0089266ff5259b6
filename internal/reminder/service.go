// Package reminder manages contract reminders and delivers due notices.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dukerupert/clausedesk/internal/model"
	"github.com/dukerupert/clausedesk/internal/push"
	"github.com/dukerupert/clausedesk/internal/store"
	"github.com/dukerupert/clausedesk/internal/websocket"
)

const dateLayout = "2006-01-02"

var (
	ErrNotFound = errors.New("reminder not found")
	ErrInvalid  = errors.New("invalid reminder")
)

// Mailer sends reminder emails.
type Mailer interface {
	Configured() bool
	SendReminder(ctx context.Context, toEmail string, r model.Reminder, daysLeft int) error
	SendReminderConfirmation(ctx context.Context, toEmail string, r model.Reminder) error
}

// Pusher delivers Web Push notifications.
type Pusher interface {
	Configured() bool
	Send(ctx context.Context, sub *model.PushSubscription, payload push.Payload) error
}

// Publisher fans live events out to a user's open clients.
type Publisher interface {
	SendToUser(userID string, msg websocket.Message)
}

type Service struct {
	reminders *store.ReminderStore
	users     *store.UserStore
	notify    *store.NotificationStore
	mailer    Mailer
	now       func() time.Time
	loc       *time.Location
	logger    *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewService(reminders *store.ReminderStore, users *store.UserStore, notify *store.NotificationStore,
	mailer Mailer, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		reminders: reminders,
		users:     users,
		notify:    notify,
		mailer:    mailer,
		now:       time.Now,
		loc:       time.Local,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() time.Time {
	n := s.now().In(s.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.loc)
}

type AddInput struct {
	ContractName string `json:"contract_name"`
	Type         string `json:"type"`
	DueDate      string `json:"due_date"`
	Description  string `json:"description"`
}

// Add validates and stores a reminder, then sends a confirmation email when
// the owner has email notifications enabled.
func (s *Service) Add(ctx context.Context, userID string, in AddInput) (*model.Reminder, error) {
	in.ContractName = strings.TrimSpace(in.ContractName)
	in.Description = strings.TrimSpace(in.Description)
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	if in.Type == "" {
		in.Type = "other"
	}

	if in.ContractName == "" || in.Description == "" {
		return nil, fmt.Errorf("%w: contract name and description are required", ErrInvalid)
	}
	if !model.ReminderTypes[in.Type] {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalid, in.Type)
	}
	due, err := time.ParseInLocation(dateLayout, in.DueDate, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: due date must be YYYY-MM-DD", ErrInvalid)
	}
	if due.Before(s.today()) {
		return nil, fmt.Errorf("%w: due date is in the past", ErrInvalid)
	}

	r, err := s.reminders.Create(userID, in.ContractName, in.Type, due.Format(dateLayout), in.Description)
	if err != nil {
		return nil, err
	}

	s.sendConfirmation(ctx, userID, *r)
	return r, nil
}

func (s *Service) sendConfirmation(ctx context.Context, userID string, r model.Reminder) {
	if s.mailer == nil || !s.mailer.Configured() {
		return
	}
	settings, err := s.notify.Settings(userID)
	if err != nil || !settings.EmailEnabled {
		return
	}
	u, err := s.users.GetByID(userID)
	if err != nil || u == nil {
		return
	}
	if err := s.mailer.SendReminderConfirmation(ctx, u.Email, r); err != nil {
		s.logger.Warn("reminder confirmation email", "reminder_id", r.ID, "error", err)
	}
}

func (s *Service) Complete(userID string, id int64) error {
	ok, err := s.reminders.SetStatus(id, userID, model.ReminderStatusCompleted)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Snooze pushes the due date back by days (1..30).
func (s *Service) Snooze(userID string, id int64, days int) (*model.Reminder, error) {
	if days < 1 || days > 30 {
		return nil, fmt.Errorf("%w: snooze must be between 1 and 30 days", ErrInvalid)
	}
	r, err := s.reminders.GetByID(id, userID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrNotFound
	}
	due, err := time.ParseInLocation(dateLayout, r.DueDate, s.loc)
	if err != nil {
		return nil, fmt.Errorf("parse stored due date: %w", err)
	}
	if _, err := s.reminders.SetDueDate(id, userID, due.AddDate(0, 0, days).Format(dateLayout)); err != nil {
		return nil, err
	}
	return s.reminders.GetByID(id, userID)
}

func (s *Service) Delete(userID string, id int64) error {
	ok, err := s.reminders.Delete(id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Upcoming is a pending reminder annotated with days until due. Negative
// values are overdue.
type Upcoming struct {
	model.Reminder
	DaysRemaining int `json:"days_remaining"`
}

func (s *Service) Upcoming(userID string) ([]Upcoming, error) {
	reminders, err := s.reminders.List(userID, model.ReminderStatusPending)
	if err != nil {
		return nil, err
	}
	today := s.today()
	out := make([]Upcoming, 0, len(reminders))
	for _, r := range reminders {
		out = append(out, Upcoming{Reminder: r, DaysRemaining: s.daysUntil(today, r.DueDate)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate < out[j].DueDate })
	return out, nil
}

// Month groups pending reminders for one calendar month.
type Month struct {
	Month     string           `json:"month"`
	Reminders []model.Reminder `json:"reminders"`
}

// Calendar groups pending reminders by due month (YYYY-MM), oldest first.
func (s *Service) Calendar(userID string) ([]Month, error) {
	reminders, err := s.reminders.List(userID, model.ReminderStatusPending)
	if err != nil {
		return nil, err
	}
	var months []Month
	for _, r := range reminders {
		key := r.DueDate
		if len(key) >= 7 {
			key = key[:7]
		}
		if n := len(months); n > 0 && months[n-1].Month == key {
			months[n-1].Reminders = append(months[n-1].Reminders, r)
			continue
		}
		months = append(months, Month{Month: key, Reminders: []model.Reminder{r}})
	}
	return months, nil
}

func (s *Service) daysUntil(today time.Time, dueDate string) int {
	due, err := time.ParseInLocation(dateLayout, dueDate, s.loc)
	if err != nil {
		return 0
	}
	return int(math.Round(due.Sub(today).Hours() / 24))
}
