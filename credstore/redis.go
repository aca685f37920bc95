package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldAccess  = "access"
	fieldRefresh = "refresh"
	fieldUser    = "user"
)

// Redis shares one session across processes through a Redis hash. A refresh
// performed by one process is visible to every other client loading the same
// realm, which is how logout and token rotation propagate beyond a single
// process.
type Redis struct {
	redis  redis.UniversalClient
	prefix string
	realm  string
	ttl    time.Duration
}

// NewRedis creates a Redis-backed store. realm isolates independent sessions
// (typically the account email or a device ID) under the same prefix; ttl
// bounds how long an untouched session survives.
func NewRedis(client redis.UniversalClient, prefix, realm string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "vk"
	}
	return &Redis{
		redis:  client,
		prefix: prefix,
		realm:  realm,
		ttl:    ttl,
	}
}

func (r *Redis) key() string {
	return r.prefix + ":cred:" + r.realm
}

func (r *Redis) Load(ctx context.Context) (Snapshot, error) {
	vals, err := r.redis.HGetAll(ctx, r.key()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(vals) == 0 {
		return Snapshot{}, nil
	}

	return Snapshot{
		AccessToken:  vals[fieldAccess],
		RefreshToken: vals[fieldRefresh],
		User:         []byte(vals[fieldUser]),
	}, nil
}

func (r *Redis) Save(ctx context.Context, snap Snapshot) error {
	pipe := r.redis.TxPipeline()
	pipe.HSet(ctx, r.key(), map[string]any{
		fieldAccess:  snap.AccessToken,
		fieldRefresh: snap.RefreshToken,
		fieldUser:    string(snap.User),
	})
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key(), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.redis.Del(ctx, r.key()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
