package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldToken      = "token"
	fieldRole       = "role"
	fieldPathPrefix = "path:"
)

const clearPathsScript = `
local fields = redis.call("HKEYS", KEYS[1])
local removed = 0
for _, f in ipairs(fields) do
  if string.sub(f, 1, string.len(ARGV[1])) == ARGV[1] then
    redis.call("HDEL", KEYS[1], f)
    removed = removed + 1
  end
end
return removed
`

var clearPathsLua = redis.NewScript(clearPathsScript)

// Redis stores the credential record of one device as a Redis hash at
// "<prefix>:<device>". Fields are "token", "role" and "path:<role>".
type Redis struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewRedis returns a Redis-backed store. When ttl is positive the hash
// expiry is refreshed on every token write so an abandoned device record
// eventually disappears.
func NewRedis(client redis.UniversalClient, prefix, device string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "tcred"
	}
	if device == "" {
		device = "default"
	}
	return &Redis{
		client: client,
		key:    prefix + ":" + device,
		ttl:    ttl,
	}
}

// Key returns the Redis key holding the record.
func (r *Redis) Key() string {
	return r.key
}

// Token reads the token field. A missing key or field is "", not an error.
func (r *Redis) Token(ctx context.Context) (string, error) {
	return r.get(ctx, fieldToken)
}

// SetToken writes the token field and, when a TTL is configured, refreshes
// the key expiry in the same transaction. No other write touches the TTL.
func (r *Redis) SetToken(ctx context.Context, token string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key, fieldToken, token)
		if r.ttl > 0 {
			pipe.Expire(ctx, r.key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// ClearToken deletes the token field and leaves the key expiry as is.
func (r *Redis) ClearToken(ctx context.Context) error {
	return r.del(ctx, fieldToken)
}

// LastRole reads the role field.
func (r *Redis) LastRole(ctx context.Context) (string, error) {
	return r.get(ctx, fieldRole)
}

// SetLastRole writes the role field without refreshing the TTL.
func (r *Redis) SetLastRole(ctx context.Context, role string) error {
	return r.set(ctx, fieldRole, role)
}

// LastVisitedPath reads the "path:<role>" field.
func (r *Redis) LastVisitedPath(ctx context.Context, role string) (string, error) {
	return r.get(ctx, fieldPathPrefix+role)
}

// SetLastVisitedPath writes the "path:<role>" field without refreshing the TTL.
func (r *Redis) SetLastVisitedPath(ctx context.Context, role, path string) error {
	return r.set(ctx, fieldPathPrefix+role, path)
}

// ClearAllLastVisitedPaths deletes every "path:" field atomically via a Lua script.
func (r *Redis) ClearAllLastVisitedPaths(ctx context.Context) error {
	if err := clearPathsLua.Run(ctx, r.client, []string{r.key}, fieldPathPrefix).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Clear deletes the whole hash.
func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) get(ctx context.Context, field string) (string, error) {
	v, err := r.client.HGet(ctx, r.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, nil
}

func (r *Redis) set(ctx context.Context, field, value string) error {
	if err := r.client.HSet(ctx, r.key, field, value).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) del(ctx context.Context, field string) error {
	if err := r.client.HDel(ctx, r.key, field).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
