package drawstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cheese-draw/pkg/drawdto"
)

const (
	keyPrefix  = "draw:session:"
	indexKey   = "draw:sessions"
	defaultTTL = 24 * time.Hour
)

var (
	ErrNotFound      = errors.New("snapshot not found")
	ErrStaleSnapshot = errors.New("snapshot older than stored state")
)

// RedisStore keeps session snapshots as JSON with a TTL.
type RedisStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore connects and pings the server at redisURL.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration, logger *zap.Logger) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, errors.New("REDIS_URL required for snapshot store")
	}
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(rdb, ttl, logger), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{rdb: rdb, ttl: ttl, logger: logger}
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

// Save writes st unless the stored snapshot already has more moves. The
// check and the write run in one WATCH transaction.
func (s *RedisStore) Save(ctx context.Context, st drawdto.GameState) error {
	if strings.TrimSpace(st.ID) == "" {
		return errors.New("snapshot without id")
	}
	key := sessionKey(st.ID)
	raw, err := json.Marshal(&st)
	if err != nil {
		return err
	}
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		prev, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var cur drawdto.GameState
			if jerr := json.Unmarshal(prev, &cur); jerr == nil && moreAdvanced(cur, st) {
				return ErrStaleSnapshot
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, s.ttl)
			pipe.SAdd(ctx, indexKey, st.ID)
			pipe.Expire(ctx, indexKey, s.ttl)
			return nil
		})
		return err
	}, key)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("%w: concurrent write", ErrStaleSnapshot)
		}
		return err
	}
	s.logger.Debug("draw_snapshot_save", zap.String("session_id", st.ID), zap.Int("moves", len(st.MovesUCI)), zap.String("status", st.Status))
	return nil
}

// moreAdvanced: the stored game has more moves, or the same moves but has
// already ended while the incoming one has not.
func moreAdvanced(stored, incoming drawdto.GameState) bool {
	if len(stored.MovesUCI) != len(incoming.MovesUCI) {
		return len(stored.MovesUCI) > len(incoming.MovesUCI)
	}
	return stored.Result != nil && incoming.Result == nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*drawdto.GameState, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var st drawdto.GameState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return &st, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(id))
		pipe.SRem(ctx, indexKey, strings.TrimSpace(id))
		return nil
	})
	return err
}

// IDs lists sessions with a live snapshot. Index entries whose snapshot has
// expired are pruned.
func (s *RedisStore) IDs(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}
	live := ids[:0]
	for _, id := range ids {
		n, err := s.rdb.Exists(ctx, sessionKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			_ = s.rdb.SRem(ctx, indexKey, id).Err()
			continue
		}
		live = append(live, id)
	}
	return live, nil
}

func sessionKey(id string) string { return keyPrefix + strings.TrimSpace(id) }

// ParseRedisURL accepts redis:// and rediss:// URLs with an optional /db path.
func ParseRedisURL(raw string) (*redis.Options, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "redis://") && !strings.HasPrefix(raw, "rediss://") {
		return nil, fmt.Errorf("unsupported redis url: %q", raw)
	}
	return redis.ParseURL(raw)
}
