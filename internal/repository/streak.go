package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/pausely/pause-server-go/internal/model"
)

type StreakRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.Streak, error)
	Upsert(ctx context.Context, params model.UpsertStreakParams) (*model.Streak, error)
}

type streakRepo struct {
	db *sqlx.DB
}

func NewStreakRepository(db *sqlx.DB) StreakRepository {
	return &streakRepo{db: db}
}

func (r *streakRepo) FindByUserID(ctx context.Context, userID string) (*model.Streak, error) {
	var streak model.Streak
	err := r.db.GetContext(ctx, &streak, `
		SELECT * FROM streaks WHERE user_id = $1
	`, userID)
	return HandleNotFound(&streak, err)
}

// Upsert writes the full streak state in one statement so concurrent
// completions for the same user cannot interleave a partial write.
func (r *streakRepo) Upsert(ctx context.Context, params model.UpsertStreakParams) (*model.Streak, error) {
	var streak model.Streak
	err := r.db.GetContext(ctx, &streak, `
		INSERT INTO streaks (user_id, current_streak, longest_streak, last_success_date, last_relapse_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			last_success_date = EXCLUDED.last_success_date,
			last_relapse_date = EXCLUDED.last_relapse_date,
			updated_at = NOW()
		RETURNING *
	`, params.UserID, params.CurrentStreak, params.LongestStreak,
		params.LastSuccessDate, params.LastRelapseDate)
	if err != nil {
		return nil, err
	}
	return &streak, nil
}
