package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient implementa Client sobre go-redis.
// Los sets de miembros usan ZSET con score = vencimiento en unix ms.
type RedisClient struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// swapMemberScript: verifica old vigente, lo quita, purga vencidos, agrega new
// y extiende la expiración de la key. Retorna 1 si rotó, 0 si old no estaba.
var swapMemberScript = redis.NewScript(`
local score = redis.call('ZSCORE', KEYS[1], ARGV[1])
if not score or tonumber(score) <= tonumber(ARGV[3]) then
  return 0
end
redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[3])
redis.call('ZADD', KEYS[1], ARGV[4], ARGV[2])
redis.call('PEXPIREAT', KEYS[1], ARGV[4])
return 1
`)

// NewRedis conecta y verifica con PING.
func NewRedis(ctx context.Context, cfg Config) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}
	return NewRedisWithClient(rdb, cfg.Prefix, nil), nil
}

// NewRedisWithClient envuelve un cliente existente (tests usan miniredis).
// now == nil usa time.Now.
func NewRedisWithClient(client redis.UniversalClient, prefix string, now func() time.Time) *RedisClient {
	if now == nil {
		now = time.Now
	}
	return &RedisClient{client: client, prefix: prefix, now: now}
}

// Redis expone el cliente subyacente (rate limiter, readiness).
func (c *RedisClient) Redis() redis.UniversalClient { return c.client }

func (c *RedisClient) key(k string) string { return prefixed(c.prefix, k) }

func (c *RedisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("cache: get: %w", err)
	}
	return val, nil
}

func (c *RedisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set: %w", err)
	}
	return nil
}

func (c *RedisClient) Take(ctx context.Context, key string) (string, error) {
	val, err := c.client.GetDel(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("cache: getdel: %w", err)
	}
	return val, nil
}

func (c *RedisClient) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("cache: del: %w", err)
	}
	return nil
}

func (c *RedisClient) AddMember(ctx context.Context, key, member string, expiresAt time.Time) error {
	k := c.key(key)
	now := strconv.FormatInt(toMillis(c.now()), 10)

	pipe := c.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "-inf", now)
	pipe.ZAdd(ctx, k, redis.Z{Score: float64(toMillis(expiresAt)), Member: member})
	pipe.PExpireAt(ctx, k, expiresAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: zadd: %w", err)
	}
	return nil
}

func (c *RedisClient) HasMember(ctx context.Context, key, member string) (bool, error) {
	score, err := c.client.ZScore(ctx, c.key(key), member).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: zscore: %w", err)
	}
	return int64(score) > toMillis(c.now()), nil
}

func (c *RedisClient) SwapMember(ctx context.Context, key, oldMember, newMember string, expiresAt time.Time) error {
	res, err := swapMemberScript.Run(ctx, c.client, []string{c.key(key)},
		oldMember, newMember, toMillis(c.now()), toMillis(expiresAt)).Int()
	if err != nil {
		return fmt.Errorf("cache: swap member: %w", err)
	}
	if res == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *RedisClient) RemoveMember(ctx context.Context, key, member string) (bool, error) {
	n, err := c.client.ZRem(ctx, c.key(key), member).Result()
	if err != nil {
		return false, fmt.Errorf("cache: zrem: %w", err)
	}
	return n > 0, nil
}

func (c *RedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisClient) Close() error {
	return c.client.Close()
}
