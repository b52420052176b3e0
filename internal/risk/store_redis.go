package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/riskgate/riskgate/internal/common/database"
)

const stepUpKeyPrefix = "stepup:session:"

// RedisStepUpStore shares step-up sessions across service replicas. Keys
// carry a TTL comfortably past the trust window as a safety net; the
// authoritative expiry check stays the lazy wall-clock comparison in the
// StepUpManager.
type RedisStepUpStore struct {
	redis *database.RedisClient
	ttl   time.Duration
}

// NewRedisStepUpStore creates a RedisStepUpStore. trustTTL should match the
// manager's trust window.
func NewRedisStepUpStore(rdb *database.RedisClient, trustTTL time.Duration) *RedisStepUpStore {
	if trustTTL <= 0 {
		trustTTL = 5 * time.Minute
	}
	return &RedisStepUpStore{
		redis: rdb,
		ttl:   2 * trustTTL,
	}
}

// Get loads a step-up session, or (nil, nil) when absent.
func (s *RedisStepUpStore) Get(ctx context.Context, sessionID string) (*StepUpSession, error) {
	data, err := s.redis.Client.Get(ctx, stepUpKeyPrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get step-up session: %w", err)
	}

	var session StepUpSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("corrupted step-up session %s: %w", sessionID, err)
	}
	return &session, nil
}

// Put stores a step-up session.
func (s *RedisStepUpStore) Put(ctx context.Context, session *StepUpSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal step-up session: %w", err)
	}
	if err := s.redis.Client.Set(ctx, stepUpKeyPrefix+session.SessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store step-up session: %w", err)
	}
	return nil
}

// Delete removes a step-up session.
func (s *RedisStepUpStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Client.Del(ctx, stepUpKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete step-up session: %w", err)
	}
	return nil
}
