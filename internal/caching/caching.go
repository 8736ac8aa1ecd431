package caching

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// CachingService is a small read-through cache surface. Callers treat every
// failure as a miss; caching is never load-bearing.
type CachingService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type RedisCachingService struct {
	client *redis.Client
}

func NewRedisCachingService(client *redis.Client) *RedisCachingService {
	return &RedisCachingService{client: client}
}

func (s *RedisCachingService) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (s *RedisCachingService) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisCachingService) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// NullCachingService is used when no Redis instance is configured.
type NullCachingService struct{}

func NewNullCachingService() *NullCachingService {
	return &NullCachingService{}
}

func (s *NullCachingService) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, ErrCacheMiss
}

func (s *NullCachingService) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (s *NullCachingService) Delete(ctx context.Context, key string) error {
	return nil
}
