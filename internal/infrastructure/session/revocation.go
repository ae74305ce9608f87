// Package session keeps the list of signed-out access tokens so a token
// that was revoked locally is refused even while the identity provider
// still accepts it.
package session

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/chefgpt/server/internal/infrastructure/config"
	"github.com/chefgpt/server/internal/ports/outbound"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// DefaultKeyPrefix namespaces revocation keys
const DefaultKeyPrefix = "chefgpt:revoked:"

// RedisRevocationStore records revoked tokens in Redis. Keys hold the
// blake2b-256 digest of the token, never the token itself.
type RedisRevocationStore struct {
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
}

// NewRedisClient builds a go-redis client from configuration and checks
// that the server answers.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (redis.UniversalClient, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Password:     cfg.Password,
		DB:           cfg.Database,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis client initialized",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Int("db", cfg.Database),
	)

	return client, nil
}

// NewRedisRevocationStore creates a revocation store on top of client
func NewRedisRevocationStore(client redis.UniversalClient, prefix string, logger *zap.Logger) outbound.TokenRevocationStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisRevocationStore{
		client: client,
		prefix: prefix,
		logger: logger.Named("revocation-store"),
	}
}

// Revoke marks the token revoked until ttl elapses
func (s *RedisRevocationStore) Revoke(ctx context.Context, accessToken string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Second
	}

	if err := s.client.Set(ctx, s.key(accessToken), "revoked", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	s.logger.Debug("Token revoked", zap.Duration("ttl", ttl))
	return nil
}

// IsRevoked reports whether the token was revoked
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, accessToken string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(accessToken)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// Key returns the Redis key used for accessToken
func (s *RedisRevocationStore) Key(accessToken string) string {
	return s.key(accessToken)
}

func (s *RedisRevocationStore) key(accessToken string) string {
	sum := blake2b.Sum256([]byte(accessToken))
	return s.prefix + hex.EncodeToString(sum[:])
}

// NoopRevocationStore is used when Redis is disabled
type NoopRevocationStore struct{}

// NewNoopRevocationStore returns a store that remembers nothing
func NewNoopRevocationStore() outbound.TokenRevocationStore {
	return NoopRevocationStore{}
}

// Revoke does nothing
func (NoopRevocationStore) Revoke(context.Context, string, time.Duration) error { return nil }

// IsRevoked always reports false
func (NoopRevocationStore) IsRevoked(context.Context, string) (bool, error) { return false, nil }
