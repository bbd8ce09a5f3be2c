package model

import (
	"time"
)

type User struct {
	ID              string    `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"`
	APITokenHash    string    `db:"api_token_hash" json:"-"`
	RateLimitPerMin int       `db:"rate_limit_per_min" json:"rateLimitPerMin"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}
