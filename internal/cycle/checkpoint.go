package cycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const checkpointKey = "botfarm:controller:state"

// Checkpoint is the controller's durable state record, written on every
// transition and tick and read back on startup.
type Checkpoint struct {
	IsRunning     bool      `json:"is_running"`
	IntervalSecs  int       `json:"interval_secs"`
	CountdownSecs int       `json:"countdown_secs"`
	CheckpointAt  time.Time `json:"checkpoint_at"`
}

// CheckpointStore persists the controller checkpoint.
type CheckpointStore interface {
	Load(ctx context.Context) (*Checkpoint, error) // (nil, nil) when absent
	Save(ctx context.Context, cp *Checkpoint) error
}

// RedisCheckpoints stores the checkpoint as a single redis key.
type RedisCheckpoints struct {
	rdb *redis.Client
}

// NewRedisCheckpoints creates a redis-backed checkpoint store.
func NewRedisCheckpoints(rdb *redis.Client) *RedisCheckpoints {
	return &RedisCheckpoints{rdb: rdb}
}

// Load reads the checkpoint, returning (nil, nil) when none exists.
func (r *RedisCheckpoints) Load(ctx context.Context) (*Checkpoint, error) {
	data, err := r.rdb.Get(ctx, checkpointKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &cp, nil
}

// Save writes the checkpoint.
func (r *RedisCheckpoints) Save(ctx context.Context, cp *Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := r.rdb.Set(ctx, checkpointKey, data, 0).Err(); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// RemainingCountdown recomputes how many seconds of a saved countdown are
// left after the gap since the checkpoint was written. A restart therefore
// resumes where it left off instead of resetting to a full interval.
func RemainingCountdown(cp *Checkpoint, now time.Time) int {
	elapsed := int(now.Sub(cp.CheckpointAt).Seconds())
	remaining := cp.CountdownSecs - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
