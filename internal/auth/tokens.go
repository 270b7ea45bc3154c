package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// TokenManager issues and resolves opaque bearer tokens backed by Redis.
// Tokens carry no claims of their own; the identity is rebuilt from storage
// on every request so revocation and role changes take effect immediately.
type TokenManager struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenManager constructs a TokenManager.
func NewTokenManager(client *redis.Client, ttl time.Duration) *TokenManager {
	return &TokenManager{client: client, ttl: ttl}
}

func tokenKey(token string) string {
	return "auth:token:" + token
}

// Issue creates a token for the user and stores it with the configured TTL.
func (tm *TokenManager) Issue(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	if err := tm.client.Set(ctx, tokenKey(token), strconv.FormatInt(userID, 10), tm.ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: store token: %w", err)
	}
	return token, nil
}

// Resolve maps a token back to a user id, refreshing the TTL on use.
func (tm *TokenManager) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, shared.ErrInvalidCredentials
	}
	raw, err := tm.client.Get(ctx, tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, shared.ErrInvalidCredentials
		}
		return 0, err
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, shared.ErrInvalidCredentials
	}
	_ = tm.client.Expire(ctx, tokenKey(token), tm.ttl).Err()
	return userID, nil
}

// Revoke deletes a token.
func (tm *TokenManager) Revoke(ctx context.Context, token string) error {
	return tm.client.Del(ctx, tokenKey(token)).Err()
}
