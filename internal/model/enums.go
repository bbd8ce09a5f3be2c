package model

// Outcome is the terminal classification of an urge session. A session has
// no outcome while it is still active; once set it never changes.
type Outcome string

const (
	OutcomeSuccess   Outcome = "SUCCESS"
	OutcomeRelapse   Outcome = "RELAPSE"
	OutcomeAbandoned Outcome = "ABANDONED"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeRelapse, OutcomeAbandoned:
		return true
	}
	return false
}

// CountsForStreak reports whether the outcome feeds into streak accounting.
// Abandoned sessions are recorded but never touch the streak.
func (o Outcome) CountsForStreak() bool {
	return o == OutcomeSuccess || o == OutcomeRelapse
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type SessionState string

const (
	SessionStateActive    SessionState = "active"
	SessionStateCompleted SessionState = "completed"
	SessionStateAbandoned SessionState = "abandoned"
)
