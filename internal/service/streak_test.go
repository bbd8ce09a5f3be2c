package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pausely/pause-server-go/internal/model"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func streakFromParams(params model.UpsertStreakParams) *model.Streak {
	return &model.Streak{
		UserID:          params.UserID,
		CurrentStreak:   params.CurrentStreak,
		LongestStreak:   params.LongestStreak,
		LastSuccessDate: params.LastSuccessDate,
		LastRelapseDate: params.LastRelapseDate,
		UpdatedAt:       time.Now(),
	}
}

// echoUpsert makes the mock repository return whatever state the service
// wrote, the way the real ON CONFLICT upsert does.
func echoUpsert(repo *mockStreakRepository) {
	repo.On("Upsert", mock.Anything, mock.AnythingOfType("model.UpsertStreakParams")).
		Return(nil, nil).
		Run(func(args mock.Arguments) {
			params := args.Get(1).(model.UpsertStreakParams)
			call := repo.ExpectedCalls[len(repo.ExpectedCalls)-1]
			call.ReturnArguments = mock.Arguments{streakFromParams(params), nil}
		})
}

func TestStreakUpdate_FirstSuccess(t *testing.T) {
	repo := new(mockStreakRepository)
	clock := newFakeClock(time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC))
	svc := NewStreakService(repo, clock)

	repo.On("FindByUserID", mock.Anything, "user-1").Return(nil, nil)
	echoUpsert(repo)

	result, err := svc.Update(context.Background(), "user-1", model.OutcomeSuccess)
	require.NoError(t, err)

	assert.Equal(t, 1, result.CurrentStreak)
	assert.Equal(t, 1, result.LongestStreak)
	assert.True(t, result.Updated)

	params := repo.Calls[1].Arguments.Get(1).(model.UpsertStreakParams)
	require.NotNil(t, params.LastSuccessDate)
	assert.Equal(t, date(2026, 3, 10), *params.LastSuccessDate)
	assert.Nil(t, params.LastRelapseDate)
}

func TestStreakUpdate_ConsecutiveDay(t *testing.T) {
	repo := new(mockStreakRepository)
	clock := newFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := NewStreakService(repo, clock)

	yesterday := date(2026, 3, 9)
	repo.On("FindByUserID", mock.Anything, "user-1").Return(&model.Streak{
		UserID:          "user-1",
		CurrentStreak:   5,
		LongestStreak:   8,
		LastSuccessDate: &yesterday,
	}, nil)
	echoUpsert(repo)

	result, err := svc.Update(context.Background(), "user-1", model.OutcomeSuccess)
	require.NoError(t, err)

	assert.Equal(t, 6, result.CurrentStreak)
	assert.Equal(t, 8, result.LongestStreak)
	assert.True(t, result.Updated)
}

func TestStreakUpdate_GraceWindowExtends(t *testing.T) {
	// Three missed days is the edge of the grace window: the streak still
	// extends rather than resetting.
	repo := new(mockStreakRepository)
	clock := newFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := NewStreakService(repo, clock)

	threeDaysAgo := date(2026, 3, 7)
	repo.On("FindByUserID", mock.Anything, "user-1").Return(&model.Streak{
		UserID:          "user-1",
		CurrentStreak:   5,
		LongestStreak:   5,
		LastSuccessDate: &threeDaysAgo,
	}, nil)
	echoUpsert(repo)

	result, err := svc.Update(context.Background(), "user-1", model.OutcomeSuccess)
	require.NoError(t, err)

	assert.Equal(t, 6, result.CurrentStreak)
	assert.Equal(t, 6, result.LongestStreak, "longest follows current past its old high")
	assert.True(t, result.Updated)
}

func TestStreakUpdate_GapBeyondGraceResets(t *testing.T) {
	repo := new(mockStreakRepository)
	clock := newFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := NewStreakService(repo, clock)

	fourDaysAgo := date(2026, 3, 6)
	repo.On("FindByUserID", mock.Anything, "user-1").Return(&model.Streak{
		UserID:          "user-1",
		CurrentStreak:   12,
		LongestStreak:   12,
		LastSuccessDate: &fourDaysAgo,
	}, nil)
	echoUpsert(repo)

	result, err := svc.Update(context.Background(), "user-1", model.OutcomeSuccess)
	require.NoError(t, err)

	assert.Equal(t, 1, result.CurrentStreak)
	assert.Equal(t, 12, result.LongestStreak, "longest streak survives the reset")
	assert.True(t, result.Updated)
}

func TestStreakUpdate_SameDayIsNoOp(t *testing.T) {
	repo := new(mockStreakRepository)
	clock := newFakeClock(time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC))
	svc := NewStreakService(repo, clock)

	today := date(2026, 3, 10)
	repo.On("FindByUserID", mock.Anything, "user-1").Return(&model.Streak{
		UserID:          "user-1",
		CurrentStreak:   5,
		LongestStreak:   8,
		LastSuccessDate: &today,
	}, nil)

	result, err := svc.Update(context.Background(), "user-1", model.OutcomeSuccess)
	require.NoError(t, err)

	assert.Equal(t, 5, result.CurrentStreak)
	assert.Equal(t, 8, result.LongestStreak)
	assert.False(t, result.Updated)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestStreakUpdate_SameDayBoundary(t *testing.T) {
	// A success just before midnight followed by one just after counts as a
	// one-day gap, not same-day.
	repo := new(mockStreakRepository)
	clock := newFakeClock(time.Date(2026, 3, 11, 0, 0, 5, 0, time.UTC))
	svc := NewStreakService(repo, clock)

	yesterday := date(2026, 3, 10)
	repo.On("FindByUserID", mock.Anything, "user-1").Return(&model.Streak{
		UserID:          "user-1",
		CurrentStreak:   3,
		LongestStreak:   3,
		LastSuccessDate: &yesterday,
	}, nil)
	echoUpsert(repo)

	result, err := svc.Update(context.Background(), "user-1", model.OutcomeSuccess)
	require.NoError(t, err)

	assert.Equal(t, 4, result.CurrentStreak)
	assert.True(t, result.Updated)
}

func TestStreakUpdate_RelapseNeverDecrements(t *testing.T) {
	repo := new(mockStreakRepository)
	clock := newFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := NewStreakService(repo, clock)

	lastSuccess := date(2026, 3, 9)
	repo.On("FindByUserID", mock.Anything, "user-1").Return(&model.Streak{
		UserID:          "user-1",
		CurrentStreak:   5,
		LongestStreak:   8,
		LastSuccessDate: &lastSuccess,
	}, nil)
	echoUpsert(repo)

	result, err := svc.Update(context.Background(), "user-1", model.OutcomeRelapse)
	require.NoError(t, err)

	assert.Equal(t, 5, result.CurrentStreak, "relapse keeps the current streak")
	assert.Equal(t, 8, result.LongestStreak)
	assert.True(t, result.Updated)

	params := repo.Calls[1].Arguments.Get(1).(model.UpsertStreakParams)
	require.NotNil(t, params.LastRelapseDate)
	assert.Equal(t, date(2026, 3, 10), *params.LastRelapseDate)
	require.NotNil(t, params.LastSuccessDate)
	assert.Equal(t, lastSuccess, *params.LastSuccessDate, "success date untouched by relapse")
}

func TestStreakUpdate_FirstOutcomeIsRelapse(t *testing.T) {
	repo := new(mockStreakRepository)
	clock := newFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := NewStreakService(repo, clock)

	repo.On("FindByUserID", mock.Anything, "user-1").Return(nil, nil)
	echoUpsert(repo)

	result, err := svc.Update(context.Background(), "user-1", model.OutcomeRelapse)
	require.NoError(t, err)

	assert.Equal(t, 0, result.CurrentStreak)
	assert.Equal(t, 0, result.LongestStreak)

	params := repo.Calls[1].Arguments.Get(1).(model.UpsertStreakParams)
	assert.Nil(t, params.LastSuccessDate)
	require.NotNil(t, params.LastRelapseDate)
	assert.Equal(t, date(2026, 3, 10), *params.LastRelapseDate)
}

func TestStreakCurrent_CreatesDefaultState(t *testing.T) {
	repo := new(mockStreakRepository)
	svc := NewStreakService(repo, nil)

	repo.On("FindByUserID", mock.Anything, "user-1").Return(nil, nil)
	repo.On("Upsert", mock.Anything, model.UpsertStreakParams{UserID: "user-1"}).
		Return(&model.Streak{UserID: "user-1"}, nil)

	streak, err := svc.Current(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "user-1", streak.UserID)
	assert.Equal(t, 0, streak.CurrentStreak)
	assert.Equal(t, 0, streak.LongestStreak)
	repo.AssertExpectations(t)
}

func TestStreakCurrent_ReturnsExisting(t *testing.T) {
	repo := new(mockStreakRepository)
	svc := NewStreakService(repo, nil)

	repo.On("FindByUserID", mock.Anything, "user-1").Return(&model.Streak{
		UserID:        "user-1",
		CurrentStreak: 4,
		LongestStreak: 9,
	}, nil)

	streak, err := svc.Current(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 4, streak.CurrentStreak)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}
