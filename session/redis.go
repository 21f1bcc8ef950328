package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// RedisStore keeps each record as a JSON value and indexes ids by update
// time in a sorted set.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

// WithRedisTTL expires records that are not written for ttl.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func NewRedisStore(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: "intake:session:"}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) key(id string) string {
	return s.prefix + strings.TrimSpace(id)
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "index"
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Record, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("redis store not configured")
	}
	rec, err := s.get(ctx, s.client, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, notFound(id)
	}
	return rec, nil
}

// SaveIfVersion compares and writes inside a WATCH transaction, so a
// concurrent writer on the same key makes it fail with a conflict.
func (s *RedisStore) SaveIfVersion(ctx context.Context, rec *Record, expectedVersion int) (int, error) {
	if s == nil || s.client == nil {
		return 0, errors.New("redis store not configured")
	}
	next := cloneRecord(rec)
	if next == nil {
		return 0, errRecordRequired
	}
	key := s.key(next.ID)
	var version int
	txf := func(tx *backend.Tx) error {
		current, err := s.get(ctx, tx, next.ID)
		if err != nil {
			return err
		}
		version, err = applyVersionedUpdate(next, current, expectedVersion)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			pipe.ZAdd(ctx, s.indexKey(), backend.Z{
				Score:  float64(next.UpdatedAt.UnixMilli()),
				Member: next.ID,
			})
			return nil
		})
		return err
	}
	if err := s.client.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, backend.TxFailedErr) {
			return 0, conflict(next.ID, expectedVersion)
		}
		return 0, err
	}
	return version, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.client == nil {
		return errors.New("redis store not configured")
	}
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), strings.TrimSpace(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if del.Val() == 0 {
		return notFound(id)
	}
	return nil
}

// ListIdle reads the index up to cutoff. Index entries whose value already
// expired are pruned and not returned.
func (s *RedisStore) ListIdle(ctx context.Context, cutoff time.Time) ([]string, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("redis store not configured")
	}
	ids, err := s.client.ZRangeByScore(ctx, s.indexKey(), &backend.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list idle sessions: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	exists := make([]*backend.IntCmd, len(ids))
	for i, id := range ids {
		exists[i] = pipe.Exists(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("list idle sessions: %w", err)
	}

	live := make([]string, 0, len(ids))
	var stale []any
	for i, id := range ids {
		if exists[i].Val() > 0 {
			live = append(live, id)
		} else {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, s.indexKey(), stale...).Err(); err != nil {
			return nil, fmt.Errorf("prune session index: %w", err)
		}
	}
	return live, nil
}

func (s *RedisStore) get(ctx context.Context, c backend.Cmdable, id string) (*Record, error) {
	val, err := c.Get(ctx, s.key(id)).Result()
	if errors.Is(err, backend.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &rec, nil
}
