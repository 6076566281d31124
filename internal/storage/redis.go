package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ShiftThrottle counts order admissions per shift in rolling 5-minute windows
// backed by Redis. Counters live in Redis rather than process memory so the
// limit holds across replicas.
type ShiftThrottle struct {
	client *redis.Client
	window time.Duration
}

// NewRedisClient connects to Redis, failing fast on an unreachable server.
func NewRedisClient(addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

func NewShiftThrottle(client *redis.Client) *ShiftThrottle {
	return &ShiftThrottle{client: client, window: 5 * time.Minute}
}

// Admit increments the shift's counter for the current window and reports
// whether the order is within the limit. A limit of zero or below disables
// throttling.
func (t *ShiftThrottle) Admit(ctx context.Context, shiftID int64, limit int, now time.Time) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	bucket := now.Unix() / int64(t.window.Seconds())
	key := fmt.Sprintf("shift:%d:orders:%d", shiftID, bucket)

	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("incrementing throttle counter: %w", err)
	}
	if count == 1 {
		// Keep the key one extra window so a clock-edge read never misses it.
		t.client.Expire(ctx, key, 2*t.window)
	}
	return count <= int64(limit), nil
}

// WindowCount returns the number of admissions recorded in the current window.
func (t *ShiftThrottle) WindowCount(ctx context.Context, shiftID int64, now time.Time) (int64, error) {
	bucket := now.Unix() / int64(t.window.Seconds())
	key := fmt.Sprintf("shift:%d:orders:%d", shiftID, bucket)
	count, err := t.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading throttle counter: %w", err)
	}
	return count, nil
}
