package timer

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/pausely/pause-server-go/internal/errors"
)

const (
	// DefaultTick is how often progress events are produced while running.
	DefaultTick = time.Second

	eventBuffer = 64
)

// Clock supplies the current time. All elapsed-time accounting in Countdown
// is derived from it, so tests can substitute a fake and never sleep.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }

// Event is a single progress notification. Remaining is whole seconds,
// floored, never negative. Exactly one event per run has Completed set.
type Event struct {
	Remaining int  `json:"remaining"`
	Completed bool `json:"completed"`
}

type state int

const (
	stateIdle state = iota
	stateRunning
	statePaused
)

// Countdown is a pausable wall-clock countdown. Remaining time is always
// recomputed from the start instant plus the accumulated paused duration,
// never from a tick counter, so a missed or late tick cannot introduce
// drift. The invariant: remaining = max(0, duration - (now - startedAt -
// pausedTotal)).
type Countdown struct {
	clock Clock
	tick  time.Duration

	mu          sync.Mutex
	state       state
	completed   bool
	duration    time.Duration
	startedAt   time.Time
	pausedAt    time.Time
	pausedTotal time.Duration
	events      chan Event
	stop        chan struct{}
}

func New(clock Clock, tick time.Duration) *Countdown {
	if clock == nil {
		clock = SystemClock()
	}
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Countdown{clock: clock, tick: tick}
}

// Events returns the progress channel for the current run. The sequence is
// not replayable: events are dropped if the consumer falls behind. The
// channel is closed when the countdown stops or completes.
func (c *Countdown) Events() <-chan Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

// Start begins counting down from d. It fails with TIMER_ALREADY_RUNNING if
// the countdown is running or paused.
func (c *Countdown) Start(d time.Duration) error {
	c.mu.Lock()
	if c.state != stateIdle {
		c.mu.Unlock()
		return apperrors.TimerAlreadyRunning()
	}
	if d < 0 {
		d = 0
	}

	c.duration = d
	c.startedAt = c.clock.Now()
	c.pausedAt = time.Time{}
	c.pausedTotal = 0
	c.completed = false
	c.events = make(chan Event, eventBuffer)
	c.stop = make(chan struct{})
	c.state = stateRunning

	events, stop := c.events, c.stop
	c.mu.Unlock()

	go c.run(events, stop)
	return nil
}

// Pause freezes elapsed-time accounting at the pause instant. The instant is
// taken from the clock here, not from the next tick, so scheduling delay
// cannot leak into the accounting.
func (c *Countdown) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateRunning {
		return apperrors.TimerNotRunning()
	}
	c.pausedAt = c.clock.Now()
	c.state = statePaused
	return nil
}

// Resume continues from the previously paused elapsed time.
func (c *Countdown) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != statePaused {
		return apperrors.TimerNotPaused()
	}
	c.pausedTotal += c.clock.Now().Sub(c.pausedAt)
	c.pausedAt = time.Time{}
	c.state = stateRunning
	return nil
}

// Stop unconditionally halts the countdown and resets accounting to the
// unstarted state. Idempotent. No tick or completion event is delivered
// after Stop returns.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.resetLocked()
}

// Remaining returns the current remaining whole seconds. While paused the
// value is frozen at the pause instant; paused time never counts as elapsed.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case stateRunning:
		return c.remainingLocked(c.clock.Now())
	case statePaused:
		return c.remainingLocked(c.pausedAt)
	default:
		return 0
	}
}

// Running reports whether the countdown is actively ticking (not paused).
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateRunning
}

// Paused reports whether the countdown is paused.
func (c *Countdown) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == statePaused
}

func (c *Countdown) run(events chan Event, stop chan struct{}) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	defer close(events)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if c.observe(events) {
				return
			}
		}
	}
}

// observe emits one progress event under the lock, so no event can be
// delivered once Stop has reset the state. Returns true when the run is
// finished.
func (c *Countdown) observe(events chan Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == statePaused {
		return false
	}
	if c.state != stateRunning {
		return true
	}

	remaining := c.remainingLocked(c.clock.Now())
	if remaining > 0 {
		trySend(events, Event{Remaining: remaining})
		return false
	}

	// Completion fires exactly once, then the countdown auto-stops.
	if !c.completed {
		c.completed = true
		trySend(events, Event{Remaining: 0, Completed: true})
	}
	c.stop = nil
	c.resetLocked()
	return true
}

func (c *Countdown) remainingLocked(ref time.Time) int {
	elapsed := ref.Sub(c.startedAt) - c.pausedTotal
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := int(c.duration/time.Second) - int(elapsed/time.Second)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (c *Countdown) resetLocked() {
	c.state = stateIdle
	c.duration = 0
	c.startedAt = time.Time{}
	c.pausedAt = time.Time{}
	c.pausedTotal = 0
}

func trySend(events chan Event, ev Event) {
	select {
	case events <- ev:
	default:
		log.Warn().Int("remaining", ev.Remaining).Msg("countdown event buffer full, dropping event")
	}
}
