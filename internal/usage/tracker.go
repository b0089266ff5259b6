package usage

import (
	"fmt"
	"time"

	"github.com/dukerupert/clausedesk/internal/model"
)

const dayLayout = "2006-01-02"

// Tracker decides whether an action is permitted and records consumption.
// It performs no I/O; persistence is the caller's concern.
type Tracker struct {
	limits Limits
	now    func() time.Time
	loc    *time.Location
}

type Option func(*Tracker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithLocation sets the zone whose midnight starts a new usage day.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		if loc != nil {
			t.loc = loc
		}
	}
}

func NewTracker(limits Limits, opts ...Option) (*Tracker, error) {
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("invalid usage limits: %w", err)
	}
	t := &Tracker{
		limits: limits.clone(),
		now:    time.Now,
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Limit returns the daily cap for a.
func (t *Tracker) Limit(a Action) (int, error) {
	n, ok := t.limits[a]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAction, a)
	}
	return n, nil
}

// Today returns the current usage day as YYYY-MM-DD.
func (t *Tracker) Today() string {
	return t.today().Format(dayLayout)
}

func (t *Tracker) today() time.Time {
	n := t.now().In(t.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, t.loc)
}

// NewSession returns an anonymous free-tier session stamped with today.
func (t *Tracker) NewSession() *Session {
	return &Session{
		tier:      model.TierFree,
		counts:    zeroCounts(),
		lastReset: t.today(),
	}
}

// ResetIfNewDay zeroes all counters when the session's reset date is not
// today. It reports whether a reset happened.
func (t *Tracker) ResetIfNewDay(s *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.resetLocked(s)
}

func (t *Tracker) resetLocked(s *Session) bool {
	today := t.today()
	if s.lastReset.Equal(today) {
		return false
	}
	s.counts = zeroCounts()
	s.lastReset = today
	return true
}

// CheckAndConsume reports whether a may run now and, for free-tier sessions,
// consumes one unit of today's quota. A denial is a normal result, not an
// error; it also raises the session's upgrade prompt. Unknown actions fail
// with ErrUnknownAction regardless of tier.
func (t *Tracker) CheckAndConsume(s *Session, a Action) (bool, error) {
	_, allowed, err := t.Consume(s, a)
	return allowed, err
}

// Consume is CheckAndConsume that also returns the session's status as of
// the decision. Status.Date is the day the unit was charged to, even if the
// day rolls over before the caller persists it.
func (t *Tracker) Consume(s *Session, a Action) (Status, bool, error) {
	limit, err := t.Limit(a)
	if err != nil {
		return Status{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t.resetLocked(s)

	if s.tier == model.TierPaid {
		return t.statusLocked(s), true, nil
	}
	if s.counts[a] >= limit {
		s.upgradePrompt = true
		return t.statusLocked(s), false, nil
	}
	s.counts[a]++
	return t.statusLocked(s), true, nil
}

// Upgrade moves the session to the paid tier. Counters are kept for display.
func (t *Tracker) Upgrade(s *Session) {
	s.mu.Lock()
	s.tier = model.TierPaid
	s.upgradePrompt = false
	s.mu.Unlock()
}

// Downgrade moves the session to the free tier. Today's counters still apply.
func (t *Tracker) Downgrade(s *Session) {
	s.mu.Lock()
	s.tier = model.TierFree
	s.mu.Unlock()
}

// Login attaches a user and adopts the user's subscription tier.
func (t *Tracker) Login(s *Session, user model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = true
	s.user = &user
	s.tier = model.ParseTier(string(user.SubscriptionType))
}

// Logout detaches the user and drops to the free tier. Counters are left
// alone: they belong to the user's day, not to the login.
func (t *Tracker) Logout(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = false
	s.user = nil
	s.tier = model.TierFree
	s.upgradePrompt = false
}

// Restore merges persisted counters for day into the session. Counters for
// any other day are stale and ignored. Existing in-memory counts win when
// they are higher.
func (t *Tracker) Restore(s *Session, day string, counts map[Action]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.resetLocked(s)
	if day != s.lastReset.Format(dayLayout) {
		return
	}
	for a, n := range counts {
		if _, ok := t.limits[a]; !ok {
			continue
		}
		if n > s.counts[a] {
			s.counts[a] = n
		}
	}
}

// DismissUpgradePrompt clears the upgrade prompt flag.
func (t *Tracker) DismissUpgradePrompt(s *Session) {
	s.mu.Lock()
	s.upgradePrompt = false
	s.mu.Unlock()
}

// ActionUsage is one row of a usage status. Limit and Remaining are -1 when
// the action is unlimited.
type ActionUsage struct {
	Action    Action `json:"action"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}

type Status struct {
	Tier          model.Tier    `json:"subscription_type"`
	Date          string        `json:"date"`
	Usage         []ActionUsage `json:"usage"`
	UpgradePrompt bool          `json:"upgrade_prompt"`
}

// Status reports today's consumption for display.
func (t *Tracker) Status(s *Session) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.resetLocked(s)
	return t.statusLocked(s)
}

func (t *Tracker) statusLocked(s *Session) Status {
	st := Status{
		Tier:          s.tier,
		Date:          s.lastReset.Format(dayLayout),
		UpgradePrompt: s.upgradePrompt,
		Usage:         make([]ActionUsage, 0, len(Actions)),
	}
	for _, a := range Actions {
		u := ActionUsage{Action: a, Used: s.counts[a], Limit: -1, Remaining: -1}
		if s.tier != model.TierPaid {
			u.Limit = t.limits[a]
			u.Remaining = max(u.Limit-u.Used, 0)
		}
		st.Usage = append(st.Usage, u)
	}
	return st
}
