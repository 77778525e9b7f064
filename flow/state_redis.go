package flow

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flowsmith-ai/flowsmith/types"
)

// RedisState is a Redis-backed State implementation for runs whose state must
// outlive the process or be shared between workers. Each entry lives under
// its own key below the configured prefix; list entries use native Redis
// lists and counters use INCRBYFLOAT, so compound operations are atomic on
// the server side without a client lock.
type RedisState struct {
	client    redis.UniversalClient
	prefix    string
	opTimeout time.Duration
	logger    *zap.Logger
}

// NewRedisState creates a Redis-backed state store. All keys are namespaced
// under prefix (default "flowsmith:state").
func NewRedisState(client redis.UniversalClient, prefix string, logger *zap.Logger) *RedisState {
	if prefix == "" {
		prefix = "flowsmith:state"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisState{
		client:    client,
		prefix:    prefix,
		opTimeout: 5 * time.Second,
		logger:    logger.With(zap.String("component", "redis_state")),
	}
}

// Ping checks connectivity to the Redis server.
func (s *RedisState) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisState) key(field string) string {
	return s.prefix + ":" + field
}

func (s *RedisState) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opTimeout)
}

// Set stores a value under key, replacing any previous value or list.
func (s *RedisState) Set(key string, value any) {
	ctx, cancel := s.opCtx()
	defer cancel()
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("set: value not serializable", zap.String("key", key), zap.Error(err))
		return
	}
	// A plain SET over a list key would fail with WRONGTYPE; Set replaces.
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(key))
	pipe.Set(ctx, s.key(key), data, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("set failed", zap.String("key", key), zap.Error(err))
	}
}

// Get returns the value under key, or def when absent or unreadable.
func (s *RedisState) Get(key string, def any) any {
	ctx, cancel := s.opCtx()
	defer cancel()
	v, ok := s.read(ctx, key)
	if !ok {
		return def
	}
	return v
}

// Has reports whether key is present.
func (s *RedisState) Has(key string) bool {
	ctx, cancel := s.opCtx()
	defer cancel()
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	return err == nil && n > 0
}

// Append pushes value onto the Redis list under key. RPUSH creates the list
// when absent; pushing onto a non-list value maps WRONGTYPE to STATE_TYPE.
func (s *RedisState) Append(key string, value any) error {
	ctx, cancel := s.opCtx()
	defer cancel()
	data, err := json.Marshal(value)
	if err != nil {
		return types.Errorf(types.ErrStateType, "append value not serializable under %q", key).WithCause(err)
	}
	if err := s.client.RPush(ctx, s.key(key), data).Err(); err != nil {
		if isWrongType(err) {
			return types.Errorf(types.ErrStateType, "append to non-list value under %q", key)
		}
		return err
	}
	return nil
}

// Increment adds delta to the counter under key, seeding it with def on first
// use, and returns the new value. INCRBYFLOAT keeps the read-modify-write on
// the server, so concurrent branches never lose updates.
func (s *RedisState) Increment(key string, delta float64, def float64) (float64, error) {
	ctx, cancel := s.opCtx()
	defer cancel()
	if def != 0 {
		seed := strconv.FormatFloat(def, 'f', -1, 64)
		if err := s.client.SetNX(ctx, s.key(key), seed, 0).Err(); err != nil {
			return 0, err
		}
	}
	next, err := s.client.IncrByFloat(ctx, s.key(key), delta).Result()
	if err != nil {
		if isWrongType(err) || strings.Contains(err.Error(), "not a valid float") {
			return 0, types.Errorf(types.ErrStateType, "increment of non-numeric value under %q", key)
		}
		return 0, err
	}
	return next, nil
}

// Clear removes every key under the store's prefix.
func (s *RedisState) Clear() {
	ctx, cancel := s.opCtx()
	defer cancel()
	keys, err := s.scanKeys(ctx)
	if err != nil {
		s.logger.Warn("clear: scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("clear failed", zap.Error(err))
	}
}

// Snapshot reads every entry under the prefix into a plain map.
func (s *RedisState) Snapshot() map[string]any {
	ctx, cancel := s.opCtx()
	defer cancel()
	out := make(map[string]any)
	keys, err := s.scanKeys(ctx)
	if err != nil {
		s.logger.Warn("snapshot: scan failed", zap.Error(err))
		return out
	}
	for _, full := range keys {
		field := strings.TrimPrefix(full, s.prefix+":")
		if v, ok := s.read(ctx, field); ok {
			out[field] = v
		}
	}
	return out
}

// read fetches one entry, handling both plain values and lists.
func (s *RedisState) read(ctx context.Context, field string) (any, bool) {
	kind, err := s.client.Type(ctx, s.key(field)).Result()
	if err != nil {
		return nil, false
	}
	switch kind {
	case "list":
		items, err := s.client.LRange(ctx, s.key(field), 0, -1).Result()
		if err != nil {
			return nil, false
		}
		list := make([]any, 0, len(items))
		for _, item := range items {
			list = append(list, decodeEntry(item))
		}
		return list, true
	case "string":
		raw, err := s.client.Get(ctx, s.key(field)).Result()
		if err != nil {
			return nil, false
		}
		return decodeEntry(raw), true
	default:
		return nil, false
	}
}

func (s *RedisState) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

// decodeEntry unmarshals a stored value; raw INCRBYFLOAT output such as
// "5.5" is valid JSON, so counters decode as float64. Unparseable payloads
// are returned as raw strings.
func decodeEntry(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func isWrongType(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "WRONGTYPE")
}
