package cooldown

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v2"
)

// Memory keeps cooldowns in process. Fine for a single instance.
type Memory struct {
	mu     sync.Mutex
	cache  *ttlcache.Cache
	window time.Duration
	now    func() time.Time
}

func NewMemory(window time.Duration) *Memory {
	c := ttlcache.NewCache()
	// Reads must not push the window forward
	c.SkipTTLExtensionOnHit(true)

	return &Memory{
		cache:  c,
		window: window,
		now:    time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	if m.window <= 0 {
		return true, 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	v, err := m.cache.Get(key)
	switch {
	case err == nil:
		if until, ok := v.(time.Time); ok && now.Before(until) {
			return false, until.Sub(now), nil
		}
	case !errors.Is(err, ttlcache.ErrNotFound):
		return false, 0, err
	}

	if err := m.cache.SetWithTTL(key, now.Add(m.window), m.window); err != nil {
		return false, 0, err
	}

	return true, 0, nil
}

func (m *Memory) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.cache.Remove(key); err != nil && !errors.Is(err, ttlcache.ErrNotFound) {
		return err
	}

	return nil
}

func (m *Memory) Close() error {
	return m.cache.Close()
}
