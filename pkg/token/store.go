// Package token stores per-character OAuth tokens in Redis and exposes
// the opaque access-token surface the compliance client consumes. The
// refresh flow itself lives with the SSO integration; this package only
// hands out credentials that are still comfortably valid.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Redis key patterns for token storage.
const (
	keyAccessToken  = "token:%d:access"
	keyRefreshToken = "token:%d:refresh"
	keyTokenExpiry  = "token:%d:expiry"
)

// RefreshMargin is the safety window before expiry within which a stored
// access token is no longer handed out.
const RefreshMargin = 5 * time.Minute

var (
	// ErrNoToken indicates no token is stored for the character.
	ErrNoToken = errors.New("no token stored")

	// ErrTokenExpired indicates the stored access token is expired or
	// inside the refresh margin and must be refreshed before use.
	ErrTokenExpired = errors.New("access token expired")
)

// Provider supplies valid access tokens for authenticated upstream calls.
// Callers treat the token as an opaque bearer credential.
type Provider interface {
	AccessToken(ctx context.Context, characterID int64) (string, error)
}

// Store keeps OAuth tokens in Redis, shared across process instances.
type Store struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewStore creates a token store on the given Redis client.
func NewStore(redisClient *redis.Client, logger zerolog.Logger) *Store {
	return &Store{
		redis:  redisClient,
		logger: logger,
	}
}

// Save stores a character's token set. The access token carries a Redis
// TTL matching its lifetime; the refresh token and expiry persist until
// overwritten.
func (s *Store) Save(ctx context.Context, characterID int64, accessToken, refreshToken string, expiresIn time.Duration) error {
	expiry := time.Now().Add(expiresIn)

	pipe := s.redis.Pipeline()
	pipe.Set(ctx, fmt.Sprintf(keyAccessToken, characterID), accessToken, expiresIn)
	pipe.Set(ctx, fmt.Sprintf(keyRefreshToken, characterID), refreshToken, 0)
	pipe.Set(ctx, fmt.Sprintf(keyTokenExpiry, characterID), expiry.Unix(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store tokens for character %d: %w", characterID, err)
	}

	s.logger.Debug().
		Int64("character_id", characterID).
		Time("expires_at", expiry).
		Msg("Stored token set")

	return nil
}

// AccessToken returns the stored access token while it has more than
// RefreshMargin of lifetime left. Inside the margin it returns
// ErrTokenExpired so the refresh flow can run before the credential goes
// stale mid-request.
func (s *Store) AccessToken(ctx context.Context, characterID int64) (string, error) {
	accessToken, err := s.redis.Get(ctx, fmt.Sprintf(keyAccessToken, characterID)).Result()
	if err == redis.Nil {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("get access token for character %d: %w", characterID, err)
	}

	expiryUnix, err := s.redis.Get(ctx, fmt.Sprintf(keyTokenExpiry, characterID)).Int64()
	if err != nil && err != redis.Nil {
		return "", fmt.Errorf("get token expiry for character %d: %w", characterID, err)
	}
	if err == nil {
		expiry := time.Unix(expiryUnix, 0)
		if time.Now().Add(RefreshMargin).After(expiry) {
			s.logger.Debug().
				Int64("character_id", characterID).
				Time("expires_at", expiry).
				Msg("Access token inside refresh margin")
			return "", ErrTokenExpired
		}
	}

	return accessToken, nil
}

// RefreshToken returns the stored refresh token for the component that
// owns the refresh flow.
func (s *Store) RefreshToken(ctx context.Context, characterID int64) (string, error) {
	refreshToken, err := s.redis.Get(ctx, fmt.Sprintf(keyRefreshToken, characterID)).Result()
	if err == redis.Nil {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("get refresh token for character %d: %w", characterID, err)
	}
	return refreshToken, nil
}

// Delete removes a character's token set.
func (s *Store) Delete(ctx context.Context, characterID int64) error {
	keys := []string{
		fmt.Sprintf(keyAccessToken, characterID),
		fmt.Sprintf(keyRefreshToken, characterID),
		fmt.Sprintf(keyTokenExpiry, characterID),
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete tokens for character %d: %w", characterID, err)
	}
	return nil
}
