package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DueDeliverer drains notifications whose scheduled time has passed.
type DueDeliverer interface {
	DeliverDue(ctx context.Context) (int64, error)
}

// NotificationJob polls the scheduled notification queue and delivers
// anything that has come due.
type NotificationJob struct {
	deliverer DueDeliverer
	interval  time.Duration
	done      chan struct{}
}

func NewNotificationJob(deliverer DueDeliverer, interval time.Duration) *NotificationJob {
	return &NotificationJob{
		deliverer: deliverer,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

func (j *NotificationJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("notification job started")
}

func (j *NotificationJob) Stop() {
	close(j.done)
	log.Info().Msg("notification job stopped")
}

func (j *NotificationJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.deliver()
		}
	}
}

func (j *NotificationJob) deliver() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := j.deliverer.DeliverDue(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to deliver due notifications")
	} else if count > 0 {
		log.Info().Int64("count", count).Msg("delivered due notifications")
	}
}
