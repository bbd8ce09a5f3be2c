package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StaleAbandoner closes out sessions whose timer expired long ago without
// an outcome, including tearing down any countdowns still running for them.
type StaleAbandoner interface {
	AbandonStale(ctx context.Context, startedBefore time.Time) (int64, error)
}

// CleanupJob periodically abandons stale sessions. A session whose timer
// expired long ago and never received an outcome is recorded as ABANDONED,
// which keeps it out of streak accounting and out of the history feed.
type CleanupJob struct {
	sessions StaleAbandoner
	maxAge   time.Duration
	interval time.Duration
	done     chan struct{}
}

func NewCleanupJob(sessions StaleAbandoner, maxAge, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		sessions: sessions,
		maxAge:   maxAge,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Dur("maxAge", j.maxAge).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-j.maxAge)
	count, err := j.sessions.AbandonStale(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("failed to abandon stale sessions")
	} else if count > 0 {
		log.Info().Int64("count", count).Msg("abandoned stale sessions")
	}
}
