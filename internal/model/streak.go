package model

import (
	"time"
)

// Streak is one per user and outlives any individual session. Dates are
// calendar-day granularity; the time component is always midnight UTC.
type Streak struct {
	UserID          string     `db:"user_id" json:"userId"`
	CurrentStreak   int        `db:"current_streak" json:"currentStreak"`
	LongestStreak   int        `db:"longest_streak" json:"longestStreak"`
	LastSuccessDate *time.Time `db:"last_success_date" json:"lastSuccessDate,omitempty"`
	LastRelapseDate *time.Time `db:"last_relapse_date" json:"lastRelapseDate,omitempty"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

type UpsertStreakParams struct {
	UserID          string
	CurrentStreak   int
	LongestStreak   int
	LastSuccessDate *time.Time
	LastRelapseDate *time.Time
}
