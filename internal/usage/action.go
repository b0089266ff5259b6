// Package usage meters feature invocations against per-day free-tier quotas.
//
// A Session carries one visitor's tier and today's counters. The Tracker is
// the only thing that mutates counters; it holds the session's lock for the
// whole reset-check-increment step so concurrent requests on one session can
// never overshoot a cap.
package usage

import (
	"errors"
	"fmt"
)

// Action is a metered feature.
type Action string

const (
	ActionReports    Action = "reports"
	ActionQueries    Action = "queries"
	ActionAnalysis   Action = "analysis"
	ActionGeneration Action = "generation"
)

// Actions lists every metered action in display order.
var Actions = []Action{ActionReports, ActionQueries, ActionAnalysis, ActionGeneration}

// ErrUnknownAction is returned when a caller meters an action that has no
// configured limit. It always indicates an integration bug.
var ErrUnknownAction = errors.New("unknown usage action")

// ParseAction validates s against the known actions.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Limits maps each action to its daily cap for the free tier.
type Limits map[Action]int

// DefaultLimits returns the stock free-tier caps.
func DefaultLimits() Limits {
	return Limits{
		ActionReports:    3,
		ActionQueries:    10,
		ActionAnalysis:   5,
		ActionGeneration: 2,
	}
}

// Validate checks that every known action has a non-negative cap and that no
// unknown action is configured.
func (l Limits) Validate() error {
	for _, a := range Actions {
		n, ok := l[a]
		if !ok {
			return fmt.Errorf("missing limit for %q", a)
		}
		if n < 0 {
			return fmt.Errorf("negative limit for %q: %d", a, n)
		}
	}
	for a := range l {
		if _, err := ParseAction(string(a)); err != nil {
			return fmt.Errorf("limits: %w", err)
		}
	}
	return nil
}

func (l Limits) clone() Limits {
	out := make(Limits, len(l))
	for a, n := range l {
		out[a] = n
	}
	return out
}
