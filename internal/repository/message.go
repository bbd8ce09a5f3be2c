package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/pausely/pause-server-go/internal/model"
)

type SessionMessageRepository interface {
	Create(ctx context.Context, params model.CreateSessionMessageParams) (*model.SessionMessage, error)
	FindBySessionID(ctx context.Context, sessionID string) ([]model.SessionMessage, error)
	CountBySessionID(ctx context.Context, sessionID string) (int, error)
}

type sessionMessageRepo struct {
	db *sqlx.DB
}

func NewSessionMessageRepository(db *sqlx.DB) SessionMessageRepository {
	return &sessionMessageRepo{db: db}
}

func (r *sessionMessageRepo) Create(ctx context.Context, params model.CreateSessionMessageParams) (*model.SessionMessage, error) {
	var msg model.SessionMessage
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO session_messages (session_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.SessionID, params.Role, params.Content)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *sessionMessageRepo) FindBySessionID(ctx context.Context, sessionID string) ([]model.SessionMessage, error) {
	var msgs []model.SessionMessage
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM session_messages
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
	`, sessionID)
	return msgs, err
}

func (r *sessionMessageRepo) CountBySessionID(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM session_messages WHERE session_id = $1
	`, sessionID)
	return count, err
}
