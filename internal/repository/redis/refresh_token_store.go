package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"storefront-hub/internal/repository"
)

// refreshTokenStore maps opaque refresh tokens to user ids with a TTL. A
// per-user set tracks live tokens so logout-everywhere can revoke them all.
type refreshTokenStore struct {
	client *redis.Client
}

func NewRefreshTokenStore(client *redis.Client) repository.RefreshTokenStore {
	return &refreshTokenStore{client: client}
}

var _ repository.RefreshTokenStore = (*refreshTokenStore)(nil)

func tokenKey(token string) string {
	return "refresh:" + token
}

func userTokensKey(userID uuid.UUID) string {
	return "refresh:user:" + userID.String()
}

func (s *refreshTokenStore) Save(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, tokenKey(token), userID.String(), ttl)
	pipe.SAdd(ctx, userTokensKey(userID), token)
	pipe.Expire(ctx, userTokensKey(userID), ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *refreshTokenStore) Lookup(ctx context.Context, token string) (uuid.UUID, error) {
	value, err := s.client.Get(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, repository.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(value)
}

func (s *refreshTokenStore) Revoke(ctx context.Context, token string) error {
	value, err := s.client.Get(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, tokenKey(token))
	if userID, parseErr := uuid.Parse(value); parseErr == nil {
		pipe.SRem(ctx, userTokensKey(userID), token)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *refreshTokenStore) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	tokens, err := s.client.SMembers(ctx, userTokensKey(userID)).Result()
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	for _, token := range tokens {
		pipe.Del(ctx, tokenKey(token))
	}
	pipe.Del(ctx, userTokensKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}
