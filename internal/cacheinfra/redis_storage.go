package cacheinfra

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// redisEnvelope is the msgpack value stored under each key.
type redisEnvelope struct {
	Data      []byte `msgpack:"d"`
	CreatedAt int64  `msgpack:"c"`
}

// RedisStorage stores entries in Redis under <prefix><key>.
type RedisStorage struct {
	client  redis.Cmdable
	closer  func() error
	prefix  string
	timeout time.Duration
	policy  TTLPolicy
	now     func() time.Time
	logger  *zap.Logger
}

// NewRedisStorage dials the configured server and verifies it answers.
func NewRedisStorage(ctx context.Context, cfg RedisConfig, opts Options) (*RedisStorage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, invalidConfig(err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	s := NewRedisStorageWithClient(client, cfg, opts)
	s.closer = client.Close

	pingCtx, cancel := s.queryCtx(ctx)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, NewStorageUnavailableError(BackendRedis, err)
	}

	return s, nil
}

// NewRedisStorageWithClient wraps an existing client. The caller keeps
// ownership of the client; Close does not close it.
func NewRedisStorageWithClient(client redis.Cmdable, cfg RedisConfig, opts Options) *RedisStorage {
	opts = opts.withDefaults()
	return &RedisStorage{
		client:  client,
		closer:  func() error { return nil },
		prefix:  cfg.Prefix,
		timeout: cfg.Timeout,
		policy:  opts.policy(),
		now:     opts.Now,
		logger:  opts.Logger.With(zap.String("backend", BackendRedis)),
	}
}

// Get returns the entry or nil when missing or older than ttl.
func (s *RedisStorage) Get(ctx context.Context, funcName string, keyData any, ttl time.Duration) (*Entry, error) {
	key, err := DeriveKey(funcName, keyData)
	if err != nil {
		return nil, err
	}

	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	raw, err := s.client.Get(qctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, NewStorageOperationError(BackendRedis, "get", err)
	}

	var env redisEnvelope
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		return nil, NewCorruptEntryError(key, err)
	}
	createdAt := time.Unix(0, env.CreatedAt)

	if s.policy.IsExpired(createdAt, ttl) {
		s.logger.Debug("evicting expired entry", zap.String("function", funcName), zap.String("key", key))
		if err := s.client.Del(qctx, s.prefix+key).Err(); err != nil {
			return nil, NewStorageOperationError(BackendRedis, "delete", err)
		}
		return nil, nil
	}

	return &Entry{Key: key, Data: env.Data, CreatedAt: createdAt}, nil
}

// Put stores the canonical payload without a Redis expiry; staleness is
// decided per read by the ttl the caller passes.
func (s *RedisStorage) Put(ctx context.Context, funcName string, keyData any, value any) error {
	key, err := DeriveKey(funcName, keyData)
	if err != nil {
		return err
	}
	data, err := Canonicalize(value)
	if err != nil {
		return err
	}

	raw, err := msgpack.Marshal(&redisEnvelope{Data: data, CreatedAt: s.now().UnixNano()})
	if err != nil {
		return NewStorageOperationError(BackendRedis, "put", err)
	}

	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	if err := s.client.Set(qctx, s.prefix+key, raw, 0).Err(); err != nil {
		return NewStorageOperationError(BackendRedis, "put", err)
	}
	return nil
}

// Delete removes the key. Missing keys are ignored.
func (s *RedisStorage) Delete(ctx context.Context, funcName string, keyData any) error {
	key, err := DeriveKey(funcName, keyData)
	if err != nil {
		return err
	}

	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	if err := s.client.Del(qctx, s.prefix+key).Err(); err != nil {
		return NewStorageOperationError(BackendRedis, "delete", err)
	}
	return nil
}

// Close closes the client when this storage created it.
func (s *RedisStorage) Close() error {
	return s.closer()
}

func (s *RedisStorage) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
