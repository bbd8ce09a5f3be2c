package model

import (
	"time"
)

type UrgeSession struct {
	ID            string     `db:"id" json:"id"`
	UserID        string     `db:"user_id" json:"userId"`
	ImpulseTypeID string     `db:"impulse_type_id" json:"impulseTypeId"`
	TimerMinutes  int        `db:"timer_minutes" json:"timerMinutes"`
	StartedAt     time.Time  `db:"started_at" json:"startedAt"`
	CompletedAt   *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	Outcome       *Outcome   `db:"outcome" json:"outcome,omitempty"`
	Summary       *string    `db:"summary" json:"summary,omitempty"`
	DeletedAt     *time.Time `db:"deleted_at" json:"-"`
}

// Terminal reports whether an outcome has been recorded. Terminal sessions
// accept no further messages and no second outcome.
func (s *UrgeSession) Terminal() bool {
	return s.Outcome != nil
}

func (s *UrgeSession) State() SessionState {
	switch {
	case s.Outcome == nil:
		return SessionStateActive
	case *s.Outcome == OutcomeAbandoned:
		return SessionStateAbandoned
	default:
		return SessionStateCompleted
	}
}

type CreateUrgeSessionParams struct {
	UserID        string
	ImpulseTypeID string
	TimerMinutes  int
}
