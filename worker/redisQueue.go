package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"meriawaaz-be/metrics"
)

// RedisQueue is a Dispatcher backed by a Redis list, so tasks queued on one
// instance can be consumed by another.
type RedisQueue struct {
	client  redis.UniversalClient
	key     string
	block   time.Duration
	metrics metrics.Recorder
	log     *zap.SugaredLogger
}

func NewRedisQueue(client redis.UniversalClient, key string, rec metrics.Recorder, log *zap.SugaredLogger) *RedisQueue {
	if rec == nil {
		rec = metrics.Nop
	}
	return &RedisQueue{client: client, key: key, block: time.Second, metrics: rec, log: log}
}

func (q *RedisQueue) Dispatch(ctx context.Context, issueID string) error {
	if err := q.client.LPush(ctx, q.key, issueID).Err(); err != nil {
		q.metrics.RecordDispatch("error")
		return fmt.Errorf("push task %s: %w", issueID, err)
	}
	q.metrics.RecordDispatch("queued")
	return nil
}

// Len returns the number of tasks waiting in Redis.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Consume pops tasks and submits them to sink until ctx is done. A task
// that cannot be submitted is logged and dropped.
func (q *RedisQueue) Consume(ctx context.Context, sink Submitter) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		res, err := q.client.BRPop(ctx, q.block, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			q.log.Errorw("failed to pop task", "key", q.key, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(q.block):
			}
			continue
		}

		// BRPOP returns [key, value].
		issueID := res[1]
		if err := sink.Submit(ctx, issueID); err != nil {
			q.log.Errorw("failed to submit task", "issue_id", issueID, "error", err)
		}
	}
}
