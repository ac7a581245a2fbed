package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClaimStore — опциональное lease-хранилище для сужения окна гонки
// между чтением и записью metadata.processed. Корректность обработки
// от него не зависит: это оптимизация, а не механизм консистентности.
type ClaimStore interface {
	// TryClaim пытается захватить lease на обработку сессии.
	// false без ошибки означает, что lease держит параллельный вызов.
	TryClaim(ctx context.Context, checkoutID string) (bool, error)

	// Release освобождает lease после завершения обработки.
	Release(ctx context.Context, checkoutID string) error
}

// NoopClaimStore — заглушка при выключенном Redis: всегда разрешает claim.
type NoopClaimStore struct{}

func (NoopClaimStore) TryClaim(context.Context, string) (bool, error) { return true, nil }
func (NoopClaimStore) Release(context.Context, string) error          { return nil }

// claimKeyPrefix — префикс ключей lease в Redis.
const claimKeyPrefix = "fulfillment:claim:"

// RedisClaimStore — lease поверх Redis SETNX с TTL.
// TTL страхует от вечного lease при падении обработчика.
type RedisClaimStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClaimStore создаёт lease-хранилище поверх Redis.
func NewRedisClaimStore(client *redis.Client, ttl time.Duration) *RedisClaimStore {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisClaimStore{client: client, ttl: ttl}
}

// TryClaim захватывает lease через SETNX.
func (s *RedisClaimStore) TryClaim(ctx context.Context, checkoutID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, claimKeyPrefix+checkoutID, "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("ошибка захвата lease: %w", err)
	}
	return ok, nil
}

// Release удаляет ключ lease.
func (s *RedisClaimStore) Release(ctx context.Context, checkoutID string) error {
	if err := s.client.Del(ctx, claimKeyPrefix+checkoutID).Err(); err != nil {
		return fmt.Errorf("ошибка освобождения lease: %w", err)
	}
	return nil
}
