package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCodeNotFound is returned when no pending sign-in code exists for an email.
var ErrCodeNotFound = errors.New("sign-in code not found")

// SignInCodeStore keeps hashed one-time sign-in codes until they expire or are used.
type SignInCodeStore interface {
	// Save stores a fresh code and resets the failure count.
	Save(ctx context.Context, email, codeHash string, ttl time.Duration) error
	Get(ctx context.Context, email string) (string, error)
	// RecordFailure counts a wrong guess and returns the count so far. The counter
	// expires after ttl.
	RecordFailure(ctx context.Context, email string, ttl time.Duration) (int64, error)
	// Delete drops the code and its failure count.
	Delete(ctx context.Context, email string) error
}

type redisSignInCodeStore struct {
	client redisKV
}

// NewSignInCodeStore returns a Redis-backed store.
func NewSignInCodeStore(client *redis.Client) SignInCodeStore {
	return &redisSignInCodeStore{client: client}
}

func signInKey(email string) string {
	return "signin:" + strings.ToLower(strings.TrimSpace(email))
}

func signInAttemptsKey(email string) string {
	return "signin:attempts:" + strings.ToLower(strings.TrimSpace(email))
}

func (s *redisSignInCodeStore) Save(ctx context.Context, email, codeHash string, ttl time.Duration) error {
	if err := s.client.Del(ctx, signInAttemptsKey(email)).Err(); err != nil {
		return err
	}
	return s.client.Set(ctx, signInKey(email), codeHash, ttl).Err()
}

func (s *redisSignInCodeStore) Get(ctx context.Context, email string) (string, error) {
	val, err := s.client.Get(ctx, signInKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCodeNotFound
	}
	return val, err
}

func (s *redisSignInCodeStore) RecordFailure(ctx context.Context, email string, ttl time.Duration) (int64, error) {
	key := signInAttemptsKey(email)
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (s *redisSignInCodeStore) Delete(ctx context.Context, email string) error {
	return s.client.Del(ctx, signInKey(email), signInAttemptsKey(email)).Err()
}
