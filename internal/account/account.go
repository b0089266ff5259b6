// Package account owns identity and subscription state: it registers and
// authenticates users, resolves auth tokens to live usage sessions, and
// applies tier changes to every open session of a user.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/clausedesk/internal/auth"
	"github.com/dukerupert/clausedesk/internal/model"
	"github.com/dukerupert/clausedesk/internal/store"
	"github.com/dukerupert/clausedesk/internal/usage"
	"github.com/dukerupert/clausedesk/internal/websocket"
)

const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "Demo@123"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid input")
)

type Mailer interface {
	Configured() bool
	SendWelcome(ctx context.Context, toEmail, name string) error
}

type Publisher interface {
	SendToUser(userID string, msg websocket.Message)
}

type Service struct {
	users      *store.UserStore
	sessions   *store.SessionStore
	usage      *store.UsageStore
	tracker    *usage.Tracker
	registry   *usage.Registry
	mailer     Mailer
	publisher  Publisher
	logger     *slog.Logger
	sessionTTL time.Duration
	now        func() time.Time
}

type Option func(*Service)

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) { s.sessionTTL = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(users *store.UserStore, sessions *store.SessionStore, usageStore *store.UsageStore,
	tracker *usage.Tracker, registry *usage.Registry, mailer Mailer, publisher Publisher,
	logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		users:      users,
		sessions:   sessions,
		usage:      usageStore,
		tracker:    tracker,
		registry:   registry,
		mailer:     mailer,
		publisher:  publisher,
		logger:     logger,
		sessionTTL: 30 * 24 * time.Hour,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Company  string `json:"company"`
}

// Login is the result of a successful register or login.
type Login struct {
	User    *model.User
	Token   string
	Session *usage.Session
	Expires time.Time
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Login, error) {
	email := auth.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := auth.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	existing, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Create(&model.User{
		ID:               uuid.NewString(),
		Email:            email,
		Name:             name,
		Company:          strings.TrimSpace(in.Company),
		PasswordHash:     hash,
		SubscriptionType: model.TierFree,
	})
	if err != nil {
		return nil, err
	}

	if s.mailer != nil && s.mailer.Configured() {
		go func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			if err := s.mailer.SendWelcome(ctx, user.Email, user.Name); err != nil {
				s.logger.Warn("welcome email failed", "user_id", user.ID, "error", err)
			}
		}()
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return s.startSession(user)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Login, error) {
	user, err := s.users.GetByEmail(auth.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if err := s.users.TouchLastLogin(user.ID, s.now()); err != nil {
		s.logger.Warn("record last login", "user_id", user.ID, "error", err)
	}
	return s.startSession(user)
}

// EnsureDemo creates the demo account if it does not exist yet.
func (s *Service) EnsureDemo(ctx context.Context) error {
	existing, err := s.users.GetByEmail(DemoEmail)
	if err != nil {
		return fmt.Errorf("check demo user: %w", err)
	}
	if existing != nil {
		return nil
	}
	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return err
	}
	_, err = s.users.Create(&model.User{
		ID:               uuid.NewString(),
		Email:            DemoEmail,
		Name:             "Demo User",
		Company:          "Demo Company",
		PasswordHash:     hash,
		SubscriptionType: model.TierFree,
	})
	if err != nil {
		return fmt.Errorf("create demo user: %w", err)
	}
	s.logger.Info("demo account created", "email", DemoEmail)
	return nil
}

func (s *Service) startSession(user *model.User) (*Login, error) {
	as, err := s.sessions.Create(user.ID, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	sess := s.registry.Add(as.Token, s.newUsageSession(user), as.ExpiresAt)
	// The user may already have a live session from another device; bring
	// its tier in line with the stored one.
	s.applyTier(sess, s.TierFor(context.Background(), user.ID))
	return &Login{User: user, Token: as.Token, Session: sess, Expires: as.ExpiresAt}, nil
}

// newUsageSession builds a logged-in session hydrated from today's
// persisted counters.
func (s *Service) newUsageSession(user *model.User) *usage.Session {
	sess := s.tracker.NewSession()
	u := *user
	u.SubscriptionType = s.TierFor(context.Background(), user.ID)
	s.tracker.Login(sess, u)

	day := s.tracker.Today()
	stored, err := s.usage.ForDay(user.ID, day)
	if err != nil {
		s.logger.Warn("load usage counters", "user_id", user.ID, "error", err)
		return sess
	}
	counts := make(map[usage.Action]int, len(stored))
	for name, n := range stored {
		a, err := usage.ParseAction(name)
		if err != nil {
			continue
		}
		counts[a] = n
	}
	s.tracker.Restore(sess, day, counts)
	return sess
}

// Resolve maps an auth token to its user and live session. It returns
// nil, nil, nil when the token is unknown or expired. Every token of a user
// resolves to the same session, so quota is shared across devices.
func (s *Service) Resolve(ctx context.Context, token string) (*model.User, *usage.Session, error) {
	if token == "" {
		return nil, nil, nil
	}
	if sess := s.registry.Get(token); sess != nil {
		snap := sess.Snapshot()
		if snap.User != nil {
			return snap.User, sess, nil
		}
	}

	as, err := s.sessions.GetByToken(token)
	if err != nil {
		return nil, nil, fmt.Errorf("load auth session: %w", err)
	}
	if as == nil {
		s.registry.Delete(token)
		return nil, nil, nil
	}
	user, err := s.users.GetByID(as.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, nil, nil
	}

	sess := s.registry.Add(token, s.newUsageSession(user), as.ExpiresAt)
	return user, sess, nil
}

// Logout revokes token. The user's usage session stays live for any other
// device still logged in, and today's counters remain persisted.
func (s *Service) Logout(ctx context.Context, token string) error {
	s.registry.Delete(token)
	if err := s.sessions.DeleteByToken(token); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (s *Service) Upgrade(ctx context.Context, userID string) error {
	return s.setTier(userID, model.TierPaid)
}

func (s *Service) Downgrade(ctx context.Context, userID string) error {
	return s.setTier(userID, model.TierFree)
}

func (s *Service) setTier(userID string, tier model.Tier) error {
	if err := s.users.SetTier(userID, tier); err != nil {
		return err
	}
	for _, sess := range s.registry.ForUser(userID) {
		s.applyTier(sess, tier)
	}
	if s.publisher != nil {
		s.publisher.SendToUser(userID, websocket.NewMessage(websocket.EventSubscriptionChanged, map[string]any{
			"subscription_type": tier,
		}))
	}
	s.logger.Info("subscription changed", "user_id", userID, "tier", tier)
	return nil
}

func (s *Service) applyTier(sess *usage.Session, tier model.Tier) {
	if tier == model.TierPaid {
		s.tracker.Upgrade(sess)
	} else {
		s.tracker.Downgrade(sess)
	}
}

// TierFor returns the user's stored tier. Lookup failures fall back to free.
func (s *Service) TierFor(ctx context.Context, userID string) model.Tier {
	tier, err := s.users.Tier(userID)
	if err != nil {
		s.logger.Warn("tier lookup failed, using free", "user_id", userID, "error", err)
		return model.TierFree
	}
	return model.ParseTier(string(tier))
}

// Record persists one consumed unit of a for the user's day.
func (s *Service) Record(ctx context.Context, userID string, a usage.Action, day string) error {
	if err := s.usage.Increment(userID, day, string(a)); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// History returns persisted usage since the given day.
func (s *Service) History(ctx context.Context, userID, since string) ([]model.UsageDay, error) {
	return s.usage.History(userID, since)
}

// User loads a user by ID.
func (s *Service) User(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(userID)
}
