// Package rate implementa un rate limiter fixed-window sobre Redis.
package rate

import (
	"context"
	"strconv"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Result es la decisión para un request.
type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
	// Reset es el fin de la ventana actual.
	Reset time.Time
}

// Limiter decide si subject puede pasar dentro de scope. Cada scope
// ("login", "token") lleva sus propios contadores.
type Limiter interface {
	Allow(ctx context.Context, scope, subject string) (Result, error)
}

// RedisLimiter: ventana fija por (scope, subject, inicio de ventana).
// INCR y EXPIRE NX viajan en una sola transacción, así que la clave nunca
// queda sin TTL aunque el proceso muera entre comandos.
type RedisLimiter struct {
	client rdb.UniversalClient
	prefix string
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client rdb.UniversalClient, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

func (l *RedisLimiter) key(scope, subject string, winStart time.Time) string {
	var b strings.Builder
	b.WriteString(l.prefix)
	b.WriteString(scope)
	b.WriteByte(':')
	b.WriteString(strings.ReplaceAll(subject, " ", "_"))
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(winStart.Unix(), 10))
	return b.String()
}

func (l *RedisLimiter) Allow(ctx context.Context, scope, subject string) (Result, error) {
	winStart := l.now().UTC().Truncate(l.window)
	reset := winStart.Add(l.window)
	k := l.key(scope, subject, winStart)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	hits := incr.Val()
	res := Result{
		Allowed:   hits <= l.max,
		Remaining: max(l.max-hits, 0),
		Reset:     reset,
	}
	if !res.Allowed {
		res.RetryAfter = max(reset.Sub(l.now()), time.Second)
	}
	return res, nil
}
