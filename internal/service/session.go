package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pausely/pause-server-go/internal/config"
	apperrors "github.com/pausely/pause-server-go/internal/errors"
	"github.com/pausely/pause-server-go/internal/model"
	"github.com/pausely/pause-server-go/internal/repository"
	"github.com/pausely/pause-server-go/internal/sse"
	"github.com/pausely/pause-server-go/internal/timer"
)

const publishTimeout = 5 * time.Second

// SessionSnapshot is the session state returned to callers: the stored row
// plus the live remaining seconds and the message history.
type SessionSnapshot struct {
	model.UrgeSession
	State            model.SessionState     `json:"state"`
	ImpulseType      *model.ImpulseType     `json:"impulseType,omitempty"`
	Messages         []model.SessionMessage `json:"messages"`
	RemainingSeconds int                    `json:"remainingSeconds"`
}

type AppendMessageResult struct {
	UserMessage      *model.SessionMessage `json:"userMessage"`
	AssistantMessage *model.SessionMessage `json:"assistantMessage,omitempty"`
}

type SessionOptions struct {
	TimerTick           time.Duration
	CoachTimeout        time.Duration
	SummaryTimeout      time.Duration
	DefaultTimerMinutes int
}

// SessionService owns the lifecycle of urge sessions: creation with a
// running countdown, message exchange while active, and the one-time
// terminal transition that feeds the streak accountant.
//
// Mutating operations on the same session are serialized through a
// per-session mutex, so a message append and an outcome transition can
// never interleave. Operations on different sessions run in parallel.
type SessionService struct {
	sessionRepo repository.UrgeSessionRepository
	messageRepo repository.SessionMessageRepository
	impulseRepo repository.ImpulseTypeRepository
	streaks     StreakUpdater
	coach       CoachClient
	scheduler   Scheduler
	broker      *sse.Broker
	clock       timer.Clock
	opts        SessionOptions

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	timers map[string]*timer.Countdown
}

func NewSessionService(
	sessionRepo repository.UrgeSessionRepository,
	messageRepo repository.SessionMessageRepository,
	impulseRepo repository.ImpulseTypeRepository,
	streaks StreakUpdater,
	coach CoachClient,
	scheduler Scheduler,
	broker *sse.Broker,
	clock timer.Clock,
	opts SessionOptions,
) *SessionService {
	if clock == nil {
		clock = timer.SystemClock()
	}
	if opts.TimerTick <= 0 {
		opts.TimerTick = timer.DefaultTick
	}
	if opts.DefaultTimerMinutes <= 0 {
		opts.DefaultTimerMinutes = 10
	}
	return &SessionService{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		impulseRepo: impulseRepo,
		streaks:     streaks,
		coach:       coach,
		scheduler:   scheduler,
		broker:      broker,
		clock:       clock,
		opts:        opts,
		locks:       make(map[string]*sync.Mutex),
		timers:      make(map[string]*timer.Countdown),
	}
}

// Create opens a session in the active state and starts its countdown.
// A zero duration falls back to the configured default; anything outside
// [MinTimerMinutes, MaxTimerMinutes] is rejected.
func (s *SessionService) Create(ctx context.Context, userID, impulseTypeID string, timerMinutes int) (*SessionSnapshot, error) {
	if impulseTypeID == "" {
		return nil, apperrors.MissingRequired("impulseTypeId")
	}
	if timerMinutes == 0 {
		timerMinutes = s.opts.DefaultTimerMinutes
	}
	if timerMinutes < config.MinTimerMinutes || timerMinutes > config.MaxTimerMinutes {
		return nil, apperrors.InvalidDuration(config.MinTimerMinutes, config.MaxTimerMinutes)
	}

	impulseType, err := s.impulseRepo.FindByID(ctx, impulseTypeID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if impulseType == nil {
		return nil, apperrors.NotFound("Impulse type")
	}

	sess, err := s.sessionRepo.Create(ctx, model.CreateUrgeSessionParams{
		UserID:        userID,
		ImpulseTypeID: impulseTypeID,
		TimerMinutes:  timerMinutes,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	countdown := timer.New(s.clock, s.opts.TimerTick)
	if err := countdown.Start(time.Duration(timerMinutes) * time.Minute); err != nil {
		// A freshly built countdown cannot be running; treat as internal.
		return nil, apperrors.Internal("failed to start session timer").WithCause(err)
	}

	s.mu.Lock()
	s.timers[sess.ID] = countdown
	s.mu.Unlock()

	go s.watchTimer(sess.ID, userID, countdown.Events())

	log.Info().
		Str("sessionId", sess.ID).
		Str("userId", userID).
		Int("timerMinutes", timerMinutes).
		Str("impulseType", impulseType.Name).
		Msg("urge session started")

	return &SessionSnapshot{
		UrgeSession:      *sess,
		State:            sess.State(),
		ImpulseType:      impulseType,
		Messages:         []model.SessionMessage{},
		RemainingSeconds: timerMinutes * 60,
	}, nil
}

// AppendMessage records a user message and, best-effort, a coach reply.
// Messaging does not require the timer to be running; it only requires the
// session to not be terminal.
func (s *SessionService) AppendMessage(ctx context.Context, sessionID, userID, content string) (*AppendMessageResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.EmptyContent()
	}

	lock := s.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.loadOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sess.Terminal() {
		return nil, apperrors.SessionAlreadyTerminal()
	}

	history, err := s.messageRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	userMsg, err := s.messageRepo.Create(ctx, model.CreateSessionMessageParams{
		SessionID: sessionID,
		Role:      model.RoleUser,
		Content:   content,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	result := &AppendMessageResult{UserMessage: userMsg}

	reply, err := s.generateReply(ctx, sess, content, history)
	if err != nil {
		// Coaching is best-effort: the user message is already recorded.
		log.Warn().Err(err).Str("sessionId", sessionID).Msg("coach reply unavailable")
		return result, nil
	}

	assistantMsg, err := s.messageRepo.Create(ctx, model.CreateSessionMessageParams{
		SessionID: sessionID,
		Role:      model.RoleAssistant,
		Content:   reply,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}
	result.AssistantMessage = assistantMsg

	return result, nil
}

// RecordOutcome performs the one-time terminal transition. The outcome is
// committed first; streak accounting follows for SUCCESS and RELAPSE; the
// summary is generated in the background and never blocks or fails the
// transition.
func (s *SessionService) RecordOutcome(ctx context.Context, sessionID, userID string, outcome model.Outcome) (*SessionSnapshot, error) {
	if !outcome.Valid() {
		return nil, apperrors.InvalidInput("outcome", "must be SUCCESS, RELAPSE or ABANDONED")
	}

	lock := s.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.loadOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sess.Terminal() {
		return nil, apperrors.SessionAlreadyTerminal()
	}

	completedAt := s.clock.Now()
	committed, err := s.sessionRepo.RecordOutcome(ctx, sessionID, outcome, completedAt)
	if err != nil {
		// The write failed, so the session is still active: the countdown
		// keeps running and keeps publishing ticks.
		return nil, apperrors.Database(err)
	}

	// The session is terminal now, whoever committed it.
	s.stopTimer(sessionID)

	if !committed {
		// Another writer won the terminal transition.
		return nil, apperrors.SessionAlreadyTerminal()
	}

	sess.Outcome = &outcome
	sess.CompletedAt = &completedAt

	if outcome.CountsForStreak() {
		if _, err := s.streaks.Update(ctx, sess.UserID, outcome); err != nil {
			log.Error().Err(err).Str("sessionId", sessionID).Msg("streak update failed")
			return nil, err
		}
	}

	messages, err := s.messageRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	if len(messages) > 0 && sess.Summary == nil {
		go s.generateSummary(sessionID, messages)
	}

	log.Info().
		Str("sessionId", sessionID).
		Str("userId", sess.UserID).
		Str("outcome", string(outcome)).
		Int("messages", len(messages)).
		Msg("urge session closed")

	return s.snapshot(ctx, sess, messages)
}

// Get returns the session snapshot including live remaining seconds.
func (s *SessionService) Get(ctx context.Context, sessionID, userID string) (*SessionSnapshot, error) {
	sess, err := s.loadOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	return s.snapshot(ctx, sess, messages)
}

// List returns the user's sessions, newest first.
func (s *SessionService) List(ctx context.Context, userID string, limit, offset int) ([]model.UrgeSession, error) {
	sessions, err := s.sessionRepo.FindByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return sessions, nil
}

// History returns the user's resolved sessions (SUCCESS or RELAPSE only).
func (s *SessionService) History(ctx context.Context, userID string, limit, offset int) ([]model.UrgeSession, error) {
	sessions, err := s.sessionRepo.FindHistoryByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return sessions, nil
}

// AbandonStale records ABANDONED on every active session that started
// before the cutoff and stops any countdowns still registered for them.
// Abandoned sessions never feed into streak accounting.
func (s *SessionService) AbandonStale(ctx context.Context, startedBefore time.Time) (int64, error) {
	ids, err := s.sessionRepo.AbandonStale(ctx, startedBefore)
	if err != nil {
		return 0, apperrors.Database(err)
	}

	for _, id := range ids {
		s.stopTimer(id)
	}

	return int64(len(ids)), nil
}

// PauseTimer freezes the session's countdown.
func (s *SessionService) PauseTimer(ctx context.Context, sessionID, userID string) (*SessionSnapshot, error) {
	return s.withTimer(ctx, sessionID, userID, func(cd *timer.Countdown) error {
		return cd.Pause()
	})
}

// ResumeTimer continues a paused countdown.
func (s *SessionService) ResumeTimer(ctx context.Context, sessionID, userID string) (*SessionSnapshot, error) {
	return s.withTimer(ctx, sessionID, userID, func(cd *timer.Countdown) error {
		return cd.Resume()
	})
}

func (s *SessionService) withTimer(ctx context.Context, sessionID, userID string, fn func(*timer.Countdown) error) (*SessionSnapshot, error) {
	lock := s.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.loadOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sess.Terminal() {
		return nil, apperrors.SessionAlreadyTerminal()
	}

	s.mu.Lock()
	countdown := s.timers[sessionID]
	s.mu.Unlock()
	if countdown == nil {
		return nil, apperrors.TimerNotRunning()
	}

	if err := fn(countdown); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return s.snapshot(ctx, sess, messages)
}

// loadOwned fetches a session and verifies ownership.
func (s *SessionService) loadOwned(ctx context.Context, sessionID, userID string) (*model.UrgeSession, error) {
	sess, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if sess == nil {
		return nil, apperrors.SessionNotFound()
	}
	if sess.Terminal() {
		// The outcome may have been recorded out of band (the cleanup job
		// or another process); a leftover countdown must not outlive it.
		s.stopTimer(sess.ID)
	}
	if userID != "" && sess.UserID != userID {
		return nil, apperrors.Forbidden("Session belongs to another user")
	}
	return sess, nil
}

func (s *SessionService) snapshot(ctx context.Context, sess *model.UrgeSession, messages []model.SessionMessage) (*SessionSnapshot, error) {
	impulseType, err := s.impulseRepo.FindByID(ctx, sess.ImpulseTypeID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if messages == nil {
		messages = []model.SessionMessage{}
	}
	return &SessionSnapshot{
		UrgeSession:      *sess,
		State:            sess.State(),
		ImpulseType:      impulseType,
		Messages:         messages,
		RemainingSeconds: s.remainingFor(sess),
	}, nil
}

func (s *SessionService) remainingFor(sess *model.UrgeSession) int {
	s.mu.Lock()
	countdown := s.timers[sess.ID]
	s.mu.Unlock()

	if countdown != nil {
		return countdown.Remaining()
	}
	if sess.Terminal() {
		return 0
	}

	// No live countdown (e.g. after a restart): derive from wall clock.
	elapsed := int(s.clock.Now().Sub(sess.StartedAt) / time.Second)
	remaining := sess.TimerMinutes*60 - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s *SessionService) generateReply(ctx context.Context, sess *model.UrgeSession, content string, history []model.SessionMessage) (string, error) {
	impulseType, err := s.impulseRepo.FindByID(ctx, sess.ImpulseTypeID)
	if err != nil {
		return "", err
	}
	categoryName := sess.ImpulseTypeID
	if impulseType != nil {
		categoryName = impulseType.Name
	}

	replyCtx := ctx
	if s.opts.CoachTimeout > 0 {
		var cancel context.CancelFunc
		replyCtx, cancel = context.WithTimeout(ctx, s.opts.CoachTimeout)
		defer cancel()
	}
	return s.coach.GenerateReply(replyCtx, content, history, categoryName)
}

// generateSummary runs detached from the request: summary generation is a
// best-effort enhancement and must not delay or fail the terminal
// transition it follows.
func (s *SessionService) generateSummary(sessionID string, history []model.SessionMessage) {
	timeout := s.opts.SummaryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	summary, err := s.coach.GenerateSummary(ctx, history)
	if err != nil {
		log.Warn().Err(err).Str("sessionId", sessionID).Msg("summary generation failed")
		return
	}

	if err := s.sessionRepo.SetSummary(ctx, sessionID, summary); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("failed to store session summary")
	}
}

type timerEventData struct {
	SessionID string `json:"sessionId"`
	Remaining int    `json:"remaining"`
}

// watchTimer forwards countdown progress to the event broker and schedules
// the completion notification. It exits when the countdown stops or
// completes, which closes the event channel.
func (s *SessionService) watchTimer(sessionID, userID string, events <-chan timer.Event) {
	for ev := range events {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)

		if ev.Completed {
			s.publish(ctx, userID, sse.NewEvent(sse.EventTimerCompleted, timerEventData{SessionID: sessionID}))
			if s.scheduler != nil {
				err := s.scheduler.Schedule(ctx, userID, 0,
					"Time's up",
					"You made it through the wait. How do you want to close this session?")
				if err != nil {
					log.Warn().Err(err).Str("sessionId", sessionID).Msg("failed to schedule completion notification")
				}
			}
			cancel()
			break
		}

		s.publish(ctx, userID, sse.NewEvent(sse.EventTimerTick, timerEventData{SessionID: sessionID, Remaining: ev.Remaining}))
		cancel()
	}

	s.mu.Lock()
	delete(s.timers, sessionID)
	s.mu.Unlock()
}

func (s *SessionService) publish(ctx context.Context, userID string, event sse.Event) {
	if s.broker == nil {
		return
	}
	if err := s.broker.Publish(ctx, userID, event); err != nil {
		log.Debug().Err(err).Str("userId", userID).Str("eventType", event.Type).Msg("event publish failed")
	}
}

func (s *SessionService) stopTimer(sessionID string) {
	s.mu.Lock()
	countdown := s.timers[sessionID]
	delete(s.timers, sessionID)
	s.mu.Unlock()

	if countdown != nil {
		countdown.Stop()
	}
}

func (s *SessionService) lockFor(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}
