package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/epcr-service/internal/domain"
)

// redisKV is the subset of the go-redis client the caches use.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

type cachedAssignmentRepository struct {
	AssignmentRepository
	cache  redisKV
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedAssignmentRepository caches Exists lookups in Redis. Writes through the
// returned repository invalidate the affected key. A nil client or a zero ttl disables
// caching. Redis failures fall back to the wrapped repository.
func NewCachedAssignmentRepository(inner AssignmentRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) AssignmentRepository {
	if client == nil || ttl <= 0 {
		return inner
	}
	return newCachedAssignmentRepository(inner, client, ttl, logger)
}

func newCachedAssignmentRepository(inner AssignmentRepository, cache redisKV, ttl time.Duration, logger *zap.Logger) *cachedAssignmentRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cachedAssignmentRepository{AssignmentRepository: inner, cache: cache, ttl: ttl, logger: logger}
}

// Cached values live under a per-pair generation. Invalidation bumps the generation
// instead of deleting, so a lookup that read the database before a revoke can only
// fill a key no later reader consults.
func assignmentGenKey(eventID, userID string) string {
	return "assignment:gen:" + eventID + ":" + userID
}

func assignmentKey(eventID, userID, gen string) string {
	return "assignment:" + eventID + ":" + userID + ":" + gen
}

func (r *cachedAssignmentRepository) generation(ctx context.Context, eventID, userID string) (string, error) {
	gen, err := r.cache.Get(ctx, assignmentGenKey(eventID, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

func (r *cachedAssignmentRepository) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	gen, err := r.generation(ctx, eventID, userID)
	if err != nil {
		r.logger.Warn("assignment cache read failed", zap.String("key", assignmentGenKey(eventID, userID)), zap.Error(err))
		return r.AssignmentRepository.Exists(ctx, eventID, userID)
	}

	key := assignmentKey(eventID, userID, gen)
	val, err := r.cache.Get(ctx, key).Result()
	switch {
	case err == nil:
		return val == "1", nil
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("assignment cache read failed", zap.String("key", key), zap.Error(err))
	}

	exists, err := r.AssignmentRepository.Exists(ctx, eventID, userID)
	if err != nil {
		return false, err
	}
	cached := "0"
	if exists {
		cached = "1"
	}
	if err := r.cache.Set(ctx, key, cached, r.ttl).Err(); err != nil {
		r.logger.Warn("assignment cache write failed", zap.String("key", key), zap.Error(err))
	}
	return exists, nil
}

func (r *cachedAssignmentRepository) Create(ctx context.Context, assignment *domain.StaffAssignment) error {
	if err := r.AssignmentRepository.Create(ctx, assignment); err != nil {
		return err
	}
	r.invalidate(ctx, assignment.EventID, assignment.UserID)
	return nil
}

func (r *cachedAssignmentRepository) Delete(ctx context.Context, eventID, userID string) error {
	err := r.AssignmentRepository.Delete(ctx, eventID, userID)
	r.invalidate(ctx, eventID, userID)
	return err
}

// invalidate bumps the pair's generation. The generation key outlives every value
// written under an older generation.
func (r *cachedAssignmentRepository) invalidate(ctx context.Context, eventID, userID string) {
	key := assignmentGenKey(eventID, userID)
	if err := r.cache.Incr(ctx, key).Err(); err != nil {
		r.logger.Warn("assignment cache invalidation failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.cache.Expire(ctx, key, 2*r.ttl).Err(); err != nil {
		r.logger.Warn("assignment cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}
