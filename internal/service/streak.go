package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/pausely/pause-server-go/internal/errors"
	"github.com/pausely/pause-server-go/internal/model"
	"github.com/pausely/pause-server-go/internal/repository"
	"github.com/pausely/pause-server-go/internal/timer"
)

// streakGraceDays is the number of missed days after which a success still
// extends the current streak instead of resetting it. The gentle window is
// a product decision: missing a couple of days must not erase progress.
const streakGraceDays = 3

type StreakUpdateResult struct {
	CurrentStreak int  `json:"currentStreak"`
	LongestStreak int  `json:"longestStreak"`
	Updated       bool `json:"updated"`
}

// StreakUpdater folds a session outcome into a user's streak state.
type StreakUpdater interface {
	Update(ctx context.Context, userID string, outcome model.Outcome) (*StreakUpdateResult, error)
}

type StreakService struct {
	streakRepo repository.StreakRepository
	clock      timer.Clock

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

func NewStreakService(streakRepo repository.StreakRepository, clock timer.Clock) *StreakService {
	if clock == nil {
		clock = timer.SystemClock()
	}
	return &StreakService{
		streakRepo: streakRepo,
		clock:      clock,
		userLocks:  make(map[string]*sync.Mutex),
	}
}

// Update applies one SUCCESS or RELAPSE outcome to the user's streak.
//
// Precondition: ABANDONED outcomes never reach this method; the session
// service filters them out before calling.
//
// The policy is deliberately lenient:
//   - a success on a consecutive day, or after a gap of up to
//     streakGraceDays days, increments the streak;
//   - a success after a longer gap resets the streak to 1;
//   - a second success on the same calendar day changes nothing;
//   - a relapse never reduces the streak, it only records the date.
func (s *StreakService) Update(ctx context.Context, userID string, outcome model.Outcome) (*StreakUpdateResult, error) {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	streak, err := s.streakRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	today := dateOnly(s.clock.Now())

	if streak == nil {
		params := model.UpsertStreakParams{UserID: userID}
		if outcome == model.OutcomeSuccess {
			params.CurrentStreak = 1
			params.LongestStreak = 1
			params.LastSuccessDate = &today
		} else {
			params.LastRelapseDate = &today
		}

		created, err := s.streakRepo.Upsert(ctx, params)
		if err != nil {
			return nil, apperrors.Database(err)
		}

		log.Info().
			Str("userId", userID).
			Str("outcome", string(outcome)).
			Int("currentStreak", created.CurrentStreak).
			Msg("streak initialized")

		return &StreakUpdateResult{
			CurrentStreak: created.CurrentStreak,
			LongestStreak: created.LongestStreak,
			Updated:       true,
		}, nil
	}

	params := model.UpsertStreakParams{
		UserID:          userID,
		CurrentStreak:   streak.CurrentStreak,
		LongestStreak:   streak.LongestStreak,
		LastSuccessDate: streak.LastSuccessDate,
		LastRelapseDate: streak.LastRelapseDate,
	}

	switch outcome {
	case model.OutcomeSuccess:
		days := -1
		if streak.LastSuccessDate != nil {
			days = daysBetween(*streak.LastSuccessDate, today)
		}

		switch {
		case days == 0:
			// Already counted a success today.
			return &StreakUpdateResult{
				CurrentStreak: streak.CurrentStreak,
				LongestStreak: streak.LongestStreak,
				Updated:       false,
			}, nil
		case days >= 1 && days <= streakGraceDays:
			// Consecutive day, or a gap inside the grace window: the
			// streak extends either way.
			params.CurrentStreak = streak.CurrentStreak + 1
		default:
			// No prior success, or the grace window was exceeded.
			params.CurrentStreak = 1
		}

		if params.CurrentStreak > params.LongestStreak {
			params.LongestStreak = params.CurrentStreak
		}
		params.LastSuccessDate = &today

	case model.OutcomeRelapse:
		// A relapse never reduces the streak; only the date is recorded.
		params.LastRelapseDate = &today
	}

	updated, err := s.streakRepo.Upsert(ctx, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("userId", userID).
		Str("outcome", string(outcome)).
		Int("currentStreak", updated.CurrentStreak).
		Int("longestStreak", updated.LongestStreak).
		Msg("streak updated")

	return &StreakUpdateResult{
		CurrentStreak: updated.CurrentStreak,
		LongestStreak: updated.LongestStreak,
		Updated:       true,
	}, nil
}

// Current returns the user's streak, creating the default zero state on
// first access.
func (s *StreakService) Current(ctx context.Context, userID string) (*model.Streak, error) {
	streak, err := s.streakRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if streak != nil {
		return streak, nil
	}

	created, err := s.streakRepo.Upsert(ctx, model.UpsertStreakParams{UserID: userID})
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return created, nil
}

func (s *StreakService) lockFor(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}

// dateOnly truncates a timestamp to its UTC calendar day.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole calendar days from one date to another.
func daysBetween(from, to time.Time) int {
	return int(dateOnly(to).Sub(dateOnly(from)).Hours() / 24)
}
