package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisclient "github.com/pausely/pause-server-go/internal/redis"
	"github.com/pausely/pause-server-go/internal/sse"
	"github.com/pausely/pause-server-go/internal/timer"
)

// Scheduler queues a notification for later delivery. Fire-and-forget: the
// core never consumes a response.
type Scheduler interface {
	Schedule(ctx context.Context, userID string, after time.Duration, title, body string) error
}

type scheduledNotification struct {
	UserID string `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	DueAt  int64  `json:"dueAt"`
	Nonce  int64  `json:"nonce"`
}

// NotificationService stores scheduled notifications in a Redis sorted set
// scored by due time. A background job drains due entries and pushes them
// to connected clients over the SSE broker.
type NotificationService struct {
	redis  *redisclient.Client
	broker *sse.Broker
	clock  timer.Clock
}

func NewNotificationService(redisClient *redisclient.Client, broker *sse.Broker, clock timer.Clock) *NotificationService {
	if clock == nil {
		clock = timer.SystemClock()
	}
	return &NotificationService{
		redis:  redisClient,
		broker: broker,
		clock:  clock,
	}
}

func (s *NotificationService) Schedule(ctx context.Context, userID string, after time.Duration, title, body string) error {
	due := s.clock.Now().Add(after)

	payload, err := json.Marshal(scheduledNotification{
		UserID: userID,
		Title:  title,
		Body:   body,
		DueAt:  due.Unix(),
		Nonce:  time.Now().UnixNano(),
	})
	if err != nil {
		return err
	}

	member := redis.Z{Score: float64(due.Unix()), Member: string(payload)}
	if err := s.redis.ZAdd(ctx, redisclient.NotificationQueueKey, member).Err(); err != nil {
		return err
	}

	log.Debug().
		Str("userId", userID).
		Time("dueAt", due).
		Str("title", title).
		Msg("notification scheduled")
	return nil
}

// DeliverDue publishes every notification whose due time has passed and
// removes it from the queue. Per-item failures are logged and skipped.
func (s *NotificationService) DeliverDue(ctx context.Context) (int64, error) {
	now := s.clock.Now().Unix()

	members, err := s.redis.ZRangeByScore(ctx, redisclient.NotificationQueueKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now, 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	var delivered int64
	for _, member := range members {
		var n scheduledNotification
		if err := json.Unmarshal([]byte(member), &n); err != nil {
			log.Error().Err(err).Msg("malformed scheduled notification, dropping")
			s.redis.ZRem(ctx, redisclient.NotificationQueueKey, member)
			continue
		}

		event := sse.NewEvent(sse.EventNotification, map[string]string{
			"title": n.Title,
			"body":  n.Body,
		})
		if err := s.broker.Publish(ctx, n.UserID, event); err != nil {
			log.Warn().Err(err).Str("userId", n.UserID).Msg("failed to publish notification")
			continue
		}

		if err := s.redis.ZRem(ctx, redisclient.NotificationQueueKey, member).Err(); err != nil {
			log.Warn().Err(err).Msg("failed to dequeue delivered notification")
			continue
		}
		delivered++
	}

	return delivered, nil
}
