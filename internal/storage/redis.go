package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"file-converter/internal/logger"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisStore keeps one JSON blob per job plus a sorted set indexed by
// creation time, so several server processes sharing one output root also
// share retention bookkeeping.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		Client: client,
		Prefix: prefix,
	}
}

func (s *RedisStore) Save(ctx context.Context, rec JobRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.jobKey(rec.ID), data, 0)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{
			Score:  float64(rec.CreatedAt.UnixMilli()),
			Member: rec.ID,
		})
		return nil
	})
	return err
}

func (s *RedisStore) Get(ctx context.Context, id string) (*JobRecord, error) {
	data, err := s.Client.Get(ctx, s.jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.jobKey(id))
		pipe.ZRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return err
	}
	if del.Val() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *RedisStore) CreatedBefore(ctx context.Context, cutoff time.Time) ([]JobRecord, error) {
	ids, err := s.Client.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, err
	}

	out := make([]JobRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if errors.Is(err, ErrJobNotFound) {
			// index entry outlived its blob
			if err := s.Client.ZRem(ctx, s.indexKey(), id).Err(); err != nil {
				logger.WithFields(logrus.Fields{
					"jobId": id,
					"error": err.Error(),
				}).Warn("Failed to drop stale job index entry")
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (s *RedisStore) jobKey(id string) string {
	return fmt.Sprintf("%s:job:%s", s.Prefix, id)
}

func (s *RedisStore) indexKey() string {
	return fmt.Sprintf("%s:jobs:created", s.Prefix)
}
