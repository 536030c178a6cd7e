package sync

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// TokenSource supplies the bearer token the external auth flow obtained.
// An empty token with a nil error means "not logged in yet" and makes the
// orchestrator skip the run silently.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token, used in tests and single-operator setups.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// RedisTokenSource reads the token the auth flow stored in Redis.
type RedisTokenSource struct {
	client *redis.Client
	key    string
}

// NewRedisTokenSource constructs the source for the given key.
func NewRedisTokenSource(client *redis.Client, key string) *RedisTokenSource {
	return &RedisTokenSource{client: client, key: key}
}

func (s *RedisTokenSource) Token(ctx context.Context) (string, error) {
	if s == nil || s.client == nil {
		return "", nil
	}
	val, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}
