package upstream

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt"
)

const (
	accessTokenKey  = "upstream:access_token"
	refreshTokenKey = "upstream:refresh_token"
)

// TokenStore keeps the upstream API token pair in the shared auth Redis DB so
// every wizard instance reads the same credentials.
type TokenStore struct {
	rdb *redis.Client
}

// NewTokenStore wraps the given Redis client.
func NewTokenStore(rdb *redis.Client) *TokenStore {
	return &TokenStore{rdb: rdb}
}

// Access returns the stored access token, or empty when none is set.
func (s *TokenStore) Access(ctx context.Context) string {
	v, err := s.rdb.Get(ctx, accessTokenKey).Result()
	if err != nil {
		return ""
	}
	return v
}

// Refresh returns the stored refresh token, or empty when none is set.
func (s *TokenStore) Refresh(ctx context.Context) string {
	v, err := s.rdb.Get(ctx, refreshTokenKey).Result()
	if err != nil {
		return ""
	}
	return v
}

// Save stores a token pair. Tokens carry their own expiry; the keys get a
// generous TTL so stale pairs do not outlive a dead upstream account.
func (s *TokenStore) Save(ctx context.Context, access, refresh string) error {
	if err := s.rdb.Set(ctx, accessTokenKey, access, 24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	if refresh != "" {
		if err := s.rdb.Set(ctx, refreshTokenKey, refresh, 7*24*time.Hour).Err(); err != nil {
			return fmt.Errorf("failed to store refresh token: %w", err)
		}
	}
	return nil
}

// Clear drops both tokens (forced logout).
func (s *TokenStore) Clear(ctx context.Context) {
	s.rdb.Del(ctx, accessTokenKey, refreshTokenKey)
}

// Expired inspects the JWT exp claim without verifying the signature; the
// upstream verifies, we only decide whether a refresh is worth attempting
// before spending a request. Unparseable tokens count as expired.
func Expired(token string) bool {
	if token == "" {
		return true
	}
	claims := jwt.MapClaims{}
	parser := &jwt.Parser{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return true
	}
	// Small skew so a token about to die is refreshed proactively.
	return time.Now().Add(30 * time.Second).After(time.Unix(int64(exp), 0))
}
