package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"skillswap-service/internal/logger"
)

const cacheKeyPrefix = "identity:token:"

// CachedVerifier memoizes successful verifications in Redis. Redis failures
// fall through to the wrapped verifier.
type CachedVerifier struct {
	next Verifier
	rdb  redis.UniversalClient
	ttl  time.Duration
}

func NewCachedVerifier(next Verifier, rdb redis.UniversalClient, ttl time.Duration) *CachedVerifier {
	return &CachedVerifier{next: next, rdb: rdb, ttl: ttl}
}

func (v *CachedVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	key := cacheKey(token)

	raw, err := v.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var id Identity
		if jsonErr := json.Unmarshal(raw, &id); jsonErr == nil && id.UserID > 0 {
			return id, nil
		}
	case !errors.Is(err, redis.Nil):
		logger.Get().Warn().Err(err).Msg("identity cache read failed")
	}

	id, err := v.next.Verify(ctx, token)
	if err != nil {
		return Identity{}, err
	}

	if payload, err := json.Marshal(id); err == nil {
		if err := v.rdb.Set(ctx, key, payload, v.ttl).Err(); err != nil {
			logger.Get().Warn().Err(err).Msg("identity cache write failed")
		}
	}
	return id, nil
}

// cacheKey hashes the token so raw credentials never land in Redis.
func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
