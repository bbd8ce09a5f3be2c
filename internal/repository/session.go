package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pausely/pause-server-go/internal/model"
)

type UrgeSessionRepository interface {
	Create(ctx context.Context, params model.CreateUrgeSessionParams) (*model.UrgeSession, error)
	FindByID(ctx context.Context, id string) (*model.UrgeSession, error)
	FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.UrgeSession, error)
	FindHistoryByUserID(ctx context.Context, userID string, limit, offset int) ([]model.UrgeSession, error)
	RecordOutcome(ctx context.Context, id string, outcome model.Outcome, completedAt time.Time) (bool, error)
	SetSummary(ctx context.Context, id, summary string) error
	AbandonStale(ctx context.Context, startedBefore time.Time) ([]string, error)
}

type urgeSessionRepo struct {
	db *sqlx.DB
}

func NewUrgeSessionRepository(db *sqlx.DB) UrgeSessionRepository {
	return &urgeSessionRepo{db: db}
}

func (r *urgeSessionRepo) Create(ctx context.Context, params model.CreateUrgeSessionParams) (*model.UrgeSession, error) {
	var sess model.UrgeSession
	err := r.db.GetContext(ctx, &sess, `
		INSERT INTO urge_sessions (user_id, impulse_type_id, timer_minutes)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.UserID, params.ImpulseTypeID, params.TimerMinutes)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *urgeSessionRepo) FindByID(ctx context.Context, id string) (*model.UrgeSession, error) {
	var sess model.UrgeSession
	err := r.db.GetContext(ctx, &sess, `
		SELECT * FROM urge_sessions WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return HandleNotFound(&sess, err)
}

func (r *urgeSessionRepo) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.UrgeSession, error) {
	var sessions []model.UrgeSession
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM urge_sessions
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return sessions, err
}

func (r *urgeSessionRepo) FindHistoryByUserID(ctx context.Context, userID string, limit, offset int) ([]model.UrgeSession, error) {
	var sessions []model.UrgeSession
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM urge_sessions
		WHERE user_id = $1
		  AND deleted_at IS NULL
		  AND outcome IN ('SUCCESS', 'RELAPSE')
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return sessions, err
}

// RecordOutcome sets the terminal outcome. The WHERE clause makes the
// terminal transition happen at most once even across processes: a second
// call matches zero rows and returns false.
func (r *urgeSessionRepo) RecordOutcome(ctx context.Context, id string, outcome model.Outcome, completedAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE urge_sessions SET
			outcome = $2,
			completed_at = $3
		WHERE id = $1 AND outcome IS NULL AND deleted_at IS NULL
	`, id, outcome, completedAt)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *urgeSessionRepo) SetSummary(ctx context.Context, id, summary string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE urge_sessions SET summary = $2
		WHERE id = $1 AND summary IS NULL
	`, id, summary)
	return err
}

// AbandonStale closes out active sessions whose timer is long past due,
// recording ABANDONED so they never feed into streak accounting. The
// affected ids are returned so the caller can tear down any countdowns
// still registered for them.
func (r *urgeSessionRepo) AbandonStale(ctx context.Context, startedBefore time.Time) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		UPDATE urge_sessions SET
			outcome = 'ABANDONED',
			completed_at = NOW()
		WHERE outcome IS NULL AND deleted_at IS NULL AND started_at < $1
		RETURNING id
	`, startedBefore)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
