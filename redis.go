package rewind

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type (
	// RedisSerializer persists histories to Redis or Valkey, one
	// document per identifier, guarded against stale overwrites
	RedisSerializer struct {
		client     *redis.Client
		prefix     string
		consumer   string
		saveLua    *redis.Script
		consumeLua *redis.Script
		config     RedisConfig
	}

	RedisConfig struct {
		Addr      string
		Password  string
		Prefix    string
		Consumer  string
		DB        int
		Archiving bool
	}
)

const (
	RedisConnectTimeout = 5 * time.Second

	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisPrefix   = "rewind"

	historySuffix    = ":history"
	historySeqSuffix = ":history:seq"
	archiveSuffix    = ":archive"
)

// ErrStaleHistory indicates a Save carried an older newest-snapshot
// sequence than the one already persisted and was refused
var ErrStaleHistory = errors.New("refusing to overwrite newer history")

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:   DefaultRedisEndpoint,
		Prefix: DefaultRedisPrefix,
	}
}

func NewRedisSerializer(
	ctx context.Context, cfg RedisConfig,
) (*RedisSerializer, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, RedisConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, err
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	consumer := cfg.Consumer
	if consumer == "" {
		consumer = "rewind-" + uuid.NewString()
	}

	return &RedisSerializer{
		client:     client,
		prefix:     prefix,
		consumer:   consumer,
		saveLua:    redis.NewScript(luaSaveHistory),
		consumeLua: redis.NewScript(luaConsumeArchive),
		config:     cfg,
	}, nil
}

func (rs *RedisSerializer) Close() error {
	return rs.client.Close()
}

// Save writes the history unless Redis already holds one whose newest
// sequence is greater, which can happen when an asynchronous save races
// an explicit Checkpoint
func (rs *RedisSerializer) Save(
	ctx context.Context, id StackID, h History,
) error {
	data, err := encodeHistory(h)
	if err != nil {
		return err
	}

	newSeq := int64(-1)
	if len(h) > 0 {
		newSeq = h[len(h)-1].Sequence
	}

	keys := []string{
		rs.buildKey(id, historySuffix),
		rs.buildKey(id, historySeqSuffix),
	}
	result, err := rs.saveLua.Run(
		ctx, rs.client, keys, string(data), newSeq,
	).Result()
	if err != nil {
		return err
	}
	if result.(int64) == 0 {
		return ErrStaleHistory
	}
	return nil
}

func (rs *RedisSerializer) Load(
	ctx context.Context, id StackID,
) (History, error) {
	key := rs.buildKey(id, historySuffix)
	data, err := rs.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrHistoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeHistory([]byte(data))
}

// Delete removes the persisted history for an identifier
func (rs *RedisSerializer) Delete(ctx context.Context, id StackID) error {
	return rs.client.Del(
		ctx,
		rs.buildKey(id, historySuffix),
		rs.buildKey(id, historySeqSuffix),
	).Err()
}

// List returns the identifiers of all persisted histories under the
// given StackID prefix
func (rs *RedisSerializer) List(
	ctx context.Context, prefix StackID,
) ([]StackID, error) {
	pattern := rs.prefix + ":" + prefix.Join(":") + "*" + historySuffix

	keys, err := rs.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, err
	}

	var ids []StackID
	for _, key := range keys {
		trimmed := strings.TrimPrefix(key, rs.prefix+":")
		idStr := strings.TrimSuffix(trimmed, historySuffix)
		ids = append(ids, ParseKey(idStr))
	}

	return ids, nil
}

func (rs *RedisSerializer) buildKey(id StackID, suffix string) string {
	return rs.prefix + ":" + JoinKey(id) + suffix
}
