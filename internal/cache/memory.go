package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryClient implementa Client in-process sobre go-cache.
// Útil para desarrollo y testing; no se comparte entre réplicas.
type MemoryClient struct {
	prefix string
	store  *gocache.Cache
	// mu serializa las operaciones compuestas (Take, *Member).
	mu  sync.Mutex
	now func() time.Time
}

// memberSet: member -> vencimiento.
type memberSet map[string]time.Time

// NewMemory crea un cliente en memoria con limpieza periódica de expirados.
func NewMemory(prefix string) *MemoryClient {
	return &MemoryClient{
		prefix: prefix,
		store:  gocache.New(gocache.NoExpiration, time.Minute),
		now:    time.Now,
	}
}

func (c *MemoryClient) key(k string) string { return prefixed(c.prefix, k) }

func ttlOrNoExpiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

func (c *MemoryClient) Get(_ context.Context, key string) (string, error) {
	v, ok := c.store.Get(c.key(key))
	if !ok {
		return "", ErrNotFound
	}
	s, ok := v.(string)
	if !ok {
		return "", ErrNotFound
	}
	return s, nil
}

func (c *MemoryClient) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Set(c.key(key), value, ttlOrNoExpiration(ttl))
	return nil
}

func (c *MemoryClient) Take(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := c.key(key)
	v, ok := c.store.Get(k)
	if !ok {
		return "", ErrNotFound
	}
	c.store.Delete(k)
	s, ok := v.(string)
	if !ok {
		return "", ErrNotFound
	}
	return s, nil
}

func (c *MemoryClient) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Delete(c.key(key))
	return nil
}

// loadSet devuelve una copia del set sin los miembros vencidos. Requiere mu.
func (c *MemoryClient) loadSet(k string, now time.Time) memberSet {
	out := memberSet{}
	if v, ok := c.store.Get(k); ok {
		if set, ok := v.(memberSet); ok {
			for m, exp := range set {
				if exp.After(now) {
					out[m] = exp
				}
			}
		}
	}
	return out
}

// saveSet guarda el set con expiración igual a su miembro más tardío. Requiere mu.
func (c *MemoryClient) saveSet(k string, set memberSet, now time.Time) {
	if len(set) == 0 {
		c.store.Delete(k)
		return
	}
	var last time.Time
	for _, exp := range set {
		if exp.After(last) {
			last = exp
		}
	}
	if !last.After(now) {
		c.store.Delete(k)
		return
	}
	c.store.Set(k, set, last.Sub(now))
}

func (c *MemoryClient) AddMember(_ context.Context, key, member string, expiresAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	k, now := c.key(key), c.now()
	set := c.loadSet(k, now)
	set[member] = expiresAt
	c.saveSet(k, set, now)
	return nil
}

func (c *MemoryClient) HasMember(_ context.Context, key, member string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.loadSet(c.key(key), c.now())[member]
	return ok, nil
}

func (c *MemoryClient) SwapMember(_ context.Context, key, oldMember, newMember string, expiresAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	k, now := c.key(key), c.now()
	set := c.loadSet(k, now)
	if _, ok := set[oldMember]; !ok {
		return ErrNotFound
	}
	delete(set, oldMember)
	set[newMember] = expiresAt
	c.saveSet(k, set, now)
	return nil
}

func (c *MemoryClient) RemoveMember(_ context.Context, key, member string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k, now := c.key(key), c.now()
	set := c.loadSet(k, now)
	_, ok := set[member]
	if ok {
		delete(set, member)
		c.saveSet(k, set, now)
	}
	return ok, nil
}

func (c *MemoryClient) Ping(context.Context) error { return nil }

func (c *MemoryClient) Close() error {
	c.store.Flush()
	return nil
}
