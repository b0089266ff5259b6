package usage

import (
	"sync"
	"time"
)

// Registry maps auth tokens to live sessions. All tokens of one user share a
// single session, so a user's quota is counted once however many devices
// are logged in.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

type entry struct {
	sess     *Session
	userID   string
	expires  time.Time
	lastSeen time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Get returns the session for token, or nil when the token is unknown or
// past its expiry. Expired tokens are dropped.
func (r *Registry) Get(token string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[token]
	if !ok {
		return nil
	}
	now := r.now()
	if e.expired(now) {
		delete(r.entries, token)
		return nil
	}
	e.lastSeen = now
	return e.sess
}

// Add registers token until expires (zero means no expiry) and returns the
// session it ends up bound to: the token's existing session, else the live
// session of the same user, else s.
func (r *Registry) Add(token string, s *Session, expires time.Time) *Session {
	userID := s.UserID()

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if e, ok := r.entries[token]; ok && !e.expired(now) {
		e.lastSeen = now
		return e.sess
	}
	if userID != "" {
		for _, e := range r.entries {
			if e.userID == userID && !e.expired(now) {
				s = e.sess
				break
			}
		}
	}
	r.entries[token] = &entry{sess: s, userID: userID, expires: expires, lastSeen: now}
	return s
}

// Delete forgets token. The session stays live for the user's other tokens.
func (r *Registry) Delete(token string) {
	r.mu.Lock()
	delete(r.entries, token)
	r.mu.Unlock()
}

// ForUser returns the distinct live sessions of userID.
func (r *Registry) ForUser(userID string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Session
	seen := make(map[*Session]bool)
	for _, e := range r.entries {
		if e.userID == userID && !seen[e.sess] {
			seen[e.sess] = true
			out = append(out, e.sess)
		}
	}
	return out
}

// Sweep drops tokens that are expired or idle for longer than idle and
// returns how many were removed. Sessions are rebuilt from the store on the
// next request with a still-valid token.
func (r *Registry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	n := 0
	for token, e := range r.entries {
		if e.expired(now) || now.Sub(e.lastSeen) > idle {
			delete(r.entries, token)
			n++
		}
	}
	return n
}

// Len returns the number of registered tokens.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
