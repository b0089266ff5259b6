package usage

import (
	"sync"
	"time"

	"github.com/dukerupert/clausedesk/internal/model"
)

// Session is the per-visit usage state. All fields are guarded by mu and are
// only changed through Tracker methods.
type Session struct {
	mu            sync.Mutex
	authenticated bool
	user          *model.User
	tier          model.Tier
	counts        map[Action]int
	lastReset     time.Time
	upgradePrompt bool
}

// Snapshot is a point-in-time copy of a Session.
type Snapshot struct {
	Authenticated bool
	User          *model.User
	Tier          model.Tier
	Counts        map[Action]int
	LastReset     time.Time
	UpgradePrompt bool
}

// Snapshot returns a copy that is safe to read without holding the lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Authenticated: s.authenticated,
		Tier:          s.tier,
		Counts:        make(map[Action]int, len(s.counts)),
		LastReset:     s.lastReset,
		UpgradePrompt: s.upgradePrompt,
	}
	for a, n := range s.counts {
		snap.Counts[a] = n
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// UserID returns the logged-in user's ID, or "" for an anonymous session.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

func zeroCounts() map[Action]int {
	counts := make(map[Action]int, len(Actions))
	for _, a := range Actions {
		counts[a] = 0
	}
	return counts
}
