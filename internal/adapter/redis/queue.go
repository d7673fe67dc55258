package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/couchcryptid/census-map-service/internal/domain"
)

// Queue is a FIFO job list: LPUSH to enqueue, BRPOP to dequeue.
// It implements pipeline.Queue.
type Queue struct {
	client      *goredis.Client
	key         string
	pollTimeout time.Duration
}

// NewQueue creates a queue stored under a key derived from name.
func NewQueue(client *goredis.Client, name string) *Queue {
	return &Queue{
		client:      client,
		key:         keyPrefix + "queue:" + name,
		pollTimeout: time.Second,
	}
}

func (q *Queue) Enqueue(ctx context.Context, job domain.RenderJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("serialize job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("push job %s: %w", job.ID, err)
	}
	return nil
}

// Dequeue polls with BRPOP so a cancelled ctx is noticed within pollTimeout.
func (q *Queue) Dequeue(ctx context.Context) (domain.RenderJob, error) {
	for {
		res, err := q.client.BRPop(ctx, q.pollTimeout, q.key).Result()
		if ctx.Err() != nil {
			return domain.RenderJob{}, ctx.Err()
		}
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return domain.RenderJob{}, fmt.Errorf("pop job: %w", err)
		}

		// BRPOP answers [key, value].
		var job domain.RenderJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return domain.RenderJob{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}

// Len reports the number of pending jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// CheckReadiness pings the server.
func (q *Queue) CheckReadiness(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}
