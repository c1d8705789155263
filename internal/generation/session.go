package generation

import "time"

type State int

const (
	StateIdle State = iota
	StateValidating
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session is one generation attempt. Result is set only when Succeeded and
// Err only when Failed.
type Session struct {
	ID         string    `json:"id,omitempty"`
	State      State     `json:"state"`
	StartedAt  time.Time `json:"startedAt,omitempty"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
	Progress   float64   `json:"progress"`
	Result     string    `json:"result,omitempty"`
	Err        error     `json:"-"`
}

func (s Session) Terminal() bool {
	return s.State == StateSucceeded || s.State == StateFailed
}

// Percent is the progress rounded for display.
func (s Session) Percent() int {
	return int(s.Progress*100 + 0.5)
}
