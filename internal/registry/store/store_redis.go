package store

import (
	"context"
	"fmt"
	"time"

	platformredis "zkcomply/internal/platform/redis"
	"zkcomply/internal/sentinel"
)

// RedisUsedProofStore is the distributed replay guard. SETNX is the atomic
// check-and-insert: the first registry node to see a fingerprint wins, every
// later attempt (any node) observes the existing key.
//
// Keys carry a TTL of twice the validity period. A proof older than that can
// no longer produce an active record, so keeping its fingerprint buys
// nothing.
type RedisUsedProofStore struct {
	client *platformredis.Client
	ttl    time.Duration
}

func NewRedisUsedProofStore(client *platformredis.Client, validityPeriod time.Duration) *RedisUsedProofStore {
	return &RedisUsedProofStore{client: client, ttl: 2 * validityPeriod}
}

func (s *RedisUsedProofStore) MarkUsed(ctx context.Context, fingerprint string) error {
	ok, err := s.client.SetNX(ctx, "zkcomply:used_proof:"+fingerprint, 1, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("mark proof used: %w", err)
	}
	if !ok {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}
