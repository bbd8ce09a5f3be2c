package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pausely/pause-server-go/internal/model"
)

// fakeClock is a manually advanced Clock for deterministic tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockStreakRepository struct {
	mock.Mock
}

func (m *mockStreakRepository) FindByUserID(ctx context.Context, userID string) (*model.Streak, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Streak), args.Error(1)
}

func (m *mockStreakRepository) Upsert(ctx context.Context, params model.UpsertStreakParams) (*model.Streak, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Streak), args.Error(1)
}

type mockSessionRepository struct {
	mock.Mock
}

func (m *mockSessionRepository) Create(ctx context.Context, params model.CreateUrgeSessionParams) (*model.UrgeSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UrgeSession), args.Error(1)
}

func (m *mockSessionRepository) FindByID(ctx context.Context, id string) (*model.UrgeSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UrgeSession), args.Error(1)
}

func (m *mockSessionRepository) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.UrgeSession, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UrgeSession), args.Error(1)
}

func (m *mockSessionRepository) FindHistoryByUserID(ctx context.Context, userID string, limit, offset int) ([]model.UrgeSession, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UrgeSession), args.Error(1)
}

func (m *mockSessionRepository) RecordOutcome(ctx context.Context, id string, outcome model.Outcome, completedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, outcome, completedAt)
	return args.Bool(0), args.Error(1)
}

func (m *mockSessionRepository) SetSummary(ctx context.Context, id, summary string) error {
	args := m.Called(ctx, id, summary)
	return args.Error(0)
}

func (m *mockSessionRepository) AbandonStale(ctx context.Context, startedBefore time.Time) ([]string, error) {
	args := m.Called(ctx, startedBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockMessageRepository struct {
	mock.Mock
}

func (m *mockMessageRepository) Create(ctx context.Context, params model.CreateSessionMessageParams) (*model.SessionMessage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SessionMessage), args.Error(1)
}

func (m *mockMessageRepository) FindBySessionID(ctx context.Context, sessionID string) ([]model.SessionMessage, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SessionMessage), args.Error(1)
}

func (m *mockMessageRepository) CountBySessionID(ctx context.Context, sessionID string) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

type mockImpulseRepository struct {
	mock.Mock
}

func (m *mockImpulseRepository) List(ctx context.Context) ([]model.ImpulseType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ImpulseType), args.Error(1)
}

func (m *mockImpulseRepository) FindByID(ctx context.Context, id string) (*model.ImpulseType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ImpulseType), args.Error(1)
}

type mockStreakUpdater struct {
	mock.Mock
}

func (m *mockStreakUpdater) Update(ctx context.Context, userID string, outcome model.Outcome) (*StreakUpdateResult, error) {
	args := m.Called(ctx, userID, outcome)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*StreakUpdateResult), args.Error(1)
}

type mockCoachClient struct {
	mock.Mock
}

func (m *mockCoachClient) GenerateReply(ctx context.Context, userMessage string, history []model.SessionMessage, impulseType string) (string, error) {
	args := m.Called(ctx, userMessage, history, impulseType)
	return args.String(0), args.Error(1)
}

func (m *mockCoachClient) GenerateSummary(ctx context.Context, history []model.SessionMessage) (string, error) {
	args := m.Called(ctx, history)
	return args.String(0), args.Error(1)
}

type mockScheduler struct {
	mock.Mock
}

func (m *mockScheduler) Schedule(ctx context.Context, userID string, after time.Duration, title, body string) error {
	args := m.Called(ctx, userID, after, title, body)
	return args.Error(0)
}
