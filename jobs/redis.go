package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jleboube/RSVP-Speed-Reading/types"
)

const (
	jobKeyPrefix    = "rsvp:job:"
	cancelKeyPrefix = "rsvp:cancel:"
	expiryIndexKey  = "rsvp:jobs:expiry"

	// cancelFlagTTL bounds how long an orphaned cancel flag can linger.
	cancelFlagTTL = 24 * time.Hour
)

// RedisStore keeps one JSON record per job plus a sorted-set expiry index
// the reaper sweeps. It is the store shared between the API process and
// the worker fleet.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects a store to the given Redis instance.
func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Ping verifies connectivity at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Create(ctx context.Context, job *types.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	if err := s.client.Set(ctx, jobKeyPrefix+job.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	return s.indexExpiry(ctx, job)
}

// Save writes with XX semantics: the record must already exist. A delete
// that raced the write wins, the record stays gone.
func (s *RedisStore) Save(ctx context.Context, job *types.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	set, err := s.client.SetXX(ctx, jobKeyPrefix+job.ID, data, 0).Result()
	if err != nil {
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	if !set {
		return &types.NotFoundError{JobID: job.ID}
	}
	return s.indexExpiry(ctx, job)
}

func (s *RedisStore) indexExpiry(ctx context.Context, job *types.Job) error {
	if job.ExpiresAt.IsZero() {
		return nil
	}
	err := s.client.ZAdd(ctx, expiryIndexKey, redis.Z{
		Score:  float64(job.ExpiresAt.Unix()),
		Member: job.ID,
	}).Err()
	if err != nil {
		return fmt.Errorf("index job %s expiry: %w", job.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*types.Job, error) {
	data, err := s.client.Get(ctx, jobKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &types.NotFoundError{JobID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	var job types.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

// Delete removes the record but not the cancel flag: an in-flight worker
// still needs to observe the flag after the record is gone. The flag is
// cleared by the worker or expires with cancelFlagTTL.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, jobKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	if err := s.client.ZRem(ctx, expiryIndexKey, id).Err(); err != nil {
		return fmt.Errorf("unindex job %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) RequestCancel(ctx context.Context, id string) error {
	return s.client.Set(ctx, cancelKeyPrefix+id, "1", cancelFlagTTL).Err()
}

func (s *RedisStore) CancelRequested(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, cancelKeyPrefix+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) ClearCancel(ctx context.Context, id string) error {
	return s.client.Del(ctx, cancelKeyPrefix+id).Err()
}

func (s *RedisStore) ExpiredIDs(ctx context.Context, now time.Time) ([]string, error) {
	return s.client.ZRangeByScore(ctx, expiryIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
}
