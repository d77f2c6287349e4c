package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/barista-agent-poc/server/internal/agent/model"
	errx "github.com/barista-agent-poc/server/internal/core/error"
	logx "github.com/barista-agent-poc/server/pkg/logger"
)

// RedisSessionRepository stores each session as one JSON blob with a TTL that
// is extended on every touch, so idle conversations expire instead of piling
// up forever.
type RedisSessionRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisSessionRepository(rdb redis.Cmdable, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisSessionRepository) sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s:state", sessionID)
}

func (r *RedisSessionRepository) GetOrCreate(ctx context.Context, sessionID string) (*model.SessionState, bool, error) {
	state, err := r.Get(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	if state != nil {
		return state, false, nil
	}

	now := time.Now().UTC()
	state = &model.SessionState{
		ID:        sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.Save(ctx, state); err != nil {
		return nil, false, err
	}
	return state, true, nil
}

func (r *RedisSessionRepository) Get(ctx context.Context, sessionID string) (*model.SessionState, error) {
	key := r.sessionKey(sessionID)

	raw, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load session from redis")
		return nil, errx.WrapRedis(err)
	}

	var state model.SessionState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		logx.Error().Err(err).Str("sessionID", sessionID).Msg("failed to unmarshal session state")
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}

	// extend TTL on touch
	if r.ttl > 0 {
		if err := r.rdb.Expire(ctx, key, r.ttl).Err(); err != nil {
			logx.Warn().Err(err).Str("key", key).Msg("failed to refresh session TTL")
		}
	}

	return &state, nil
}

func (r *RedisSessionRepository) Save(ctx context.Context, state *model.SessionState) error {
	state.UpdatedAt = time.Now().UTC()

	b, err := json.Marshal(state)
	if err != nil {
		logx.Error().Err(err).Str("sessionID", state.ID).Msg("failed to marshal session state")
		return fmt.Errorf("marshal session state: %w", err)
	}

	key := r.sessionKey(state.ID)
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to store session in redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.SessionRepository = (*RedisSessionRepository)(nil)
