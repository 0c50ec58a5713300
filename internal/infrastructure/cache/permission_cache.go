package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
	"github.com/oksasatya/school-rbac-api/pkg/helpers"
)

const keyPrefix = "permissions:"

// Key returns the cache key of one role's permission set.
func Key(schoolID string, role entity.Role) string {
	return keyPrefix + schoolID + ":" + role
}

// SchoolPattern matches every permission key of a school.
func SchoolPattern(schoolID string) string {
	return keyPrefix + schoolID + ":*"
}

// GenerationKey holds the school's invalidation counter. Every Delete and
// DeleteSchool bumps it; Fill only writes while it is unchanged.
func GenerationKey(schoolID string) string {
	return keyPrefix + "gen:" + schoolID
}

// fillScript sets KEYS[2] only when KEYS[1] still holds the generation ARGV[1].
var fillScript = redis.NewScript(`
local gen = redis.call("GET", KEYS[1]) or "0"
if gen ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

// deleteScript bumps the generation and drops one role's entry.
var deleteScript = redis.NewScript(`
redis.call("INCR", KEYS[1])
return redis.call("DEL", KEYS[2])
`)

// PermissionCache stores role permission sets in Redis as JSON string arrays.
// Every call is bounded by the configured timeout.
type PermissionCache struct {
	rdb     *redis.Client
	ttl     time.Duration
	timeout time.Duration
}

func NewPermissionCache(rdb *redis.Client, ttl, timeout time.Duration) *PermissionCache {
	return &PermissionCache{rdb: rdb, ttl: ttl, timeout: timeout}
}

// Get reports (nil, false, nil) on a miss.
func (c *PermissionCache) Get(ctx context.Context, schoolID string, role entity.Role) ([]entity.Permission, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	var raw []string
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, Key(schoolID, role), &raw)
	if err != nil || !ok {
		return nil, false, err
	}
	perms := make([]entity.Permission, len(raw))
	for i, p := range raw {
		perms[i] = entity.Permission(p)
	}
	return perms, true, nil
}

// Generation returns the school's invalidation counter, 0 when never invalidated.
// Read it before loading from the store and pass it to Fill.
func (c *PermissionCache) Generation(ctx context.Context, schoolID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	gen, err := c.rdb.Get(ctx, GenerationKey(schoolID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Fill caches perms unless the school was invalidated since gen was read.
// It reports whether the entry was written.
func (c *PermissionCache) Fill(ctx context.Context, schoolID string, role entity.Role, perms []entity.Permission, gen int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	raw, err := json.Marshal(entity.PermissionStrings(perms))
	if err != nil {
		return false, err
	}
	n, err := fillScript.Run(ctx, c.rdb,
		[]string{GenerationKey(schoolID), Key(schoolID, role)},
		gen, raw, c.ttl.Milliseconds(),
	).Int()
	return n == 1, err
}

// Delete drops one role's entry and bumps the school generation so in-flight fills are discarded.
func (c *PermissionCache) Delete(ctx context.Context, schoolID string, role entity.Role) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return deleteScript.Run(ctx, c.rdb, []string{GenerationKey(schoolID), Key(schoolID, role)}).Err()
}

// DeleteSchool bumps the school generation, then removes every cached role of the school.
func (c *PermissionCache) DeleteSchool(ctx context.Context, schoolID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.rdb.Incr(ctx, GenerationKey(schoolID)).Err(); err != nil {
		return 0, err
	}
	return helpers.RedisDelByPattern(ctx, c.rdb, SchoolPattern(schoolID))
}

func (c *PermissionCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

func (c *PermissionCache) Close() error {
	return c.rdb.Close()
}
