package model

import (
	"time"
)

type SessionMessage struct {
	ID        string      `db:"id" json:"id"`
	SessionID string      `db:"session_id" json:"sessionId"`
	Role      MessageRole `db:"role" json:"role"`
	Content   string      `db:"content" json:"content"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

type CreateSessionMessageParams struct {
	SessionID string
	Role      MessageRole
	Content   string
}
