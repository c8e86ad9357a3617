package moderation

import (
	"fmt"
	"time"
)

// ActionKind is the punishment chosen for a violation.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionRestrict
	ActionBan
)

func (k ActionKind) String() string {
	switch k {
	case ActionRestrict:
		return "restrict"
	case ActionBan:
		return "ban"
	default:
		return "none"
	}
}

// Action is a punishment. Duration is set only for ActionRestrict.
type Action struct {
	Kind     ActionKind
	Duration time.Duration
}

func (a Action) String() string {
	if a.Kind == ActionRestrict {
		return fmt.Sprintf("restrict(%s)", a.Duration)
	}
	return a.Kind.String()
}

// Permanent reports whether the action has no expiry.
func (a Action) Permanent() bool {
	return a.Kind == ActionBan
}

// Policy maps the daily violation count to an action.
type Policy struct {
	ladder       []time.Duration
	banThreshold int
}

// NewPolicy validates the ladder: non-empty, positive and non-decreasing.
func NewPolicy(ladder []time.Duration, banThreshold int) (*Policy, error) {
	if len(ladder) == 0 {
		return nil, fmt.Errorf("punishment ladder is empty")
	}
	for i, d := range ladder {
		if d <= 0 {
			return nil, fmt.Errorf("punishment ladder step %d is not positive", i+1)
		}
		if i > 0 && d < ladder[i-1] {
			return nil, fmt.Errorf("punishment ladder must be non-decreasing")
		}
	}
	if banThreshold <= 0 {
		return nil, fmt.Errorf("ban threshold must be positive")
	}

	steps := make([]time.Duration, len(ladder))
	copy(steps, ladder)
	return &Policy{ladder: steps, banThreshold: banThreshold}, nil
}

// Decide returns Ban at or above the threshold, the ladder step for counts the
// ladder covers and None otherwise.
func (p *Policy) Decide(dailyCount int) Action {
	if dailyCount >= p.banThreshold {
		return Action{Kind: ActionBan}
	}
	if dailyCount >= 1 && dailyCount <= len(p.ladder) {
		return Action{Kind: ActionRestrict, Duration: p.ladder[dailyCount-1]}
	}
	return Action{Kind: ActionNone}
}

// BanThreshold returns the daily count that triggers a ban.
func (p *Policy) BanThreshold() int {
	return p.banThreshold
}
