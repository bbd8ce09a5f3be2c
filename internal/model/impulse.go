package model

import (
	"time"
)

// ImpulseType is a catalog entry for the categories of urges a session can
// be opened against (e.g. "Online shopping", "Doomscrolling").
type ImpulseType struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Description *string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	DeletedAt   *time.Time `db:"deleted_at" json:"-"`
}
