package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

var _ Store = (*Memory)(nil)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Store for single-instance deployments and tests.
type Memory struct {
	lock    sync.Mutex
	entries map[string]entry
	nowTime func() time.Time
}

type MemoryOption func(*Memory)

func WithNowTime(nowTime func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.nowTime = nowTime
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		nowTime: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	e, ok := m.live(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.nowTime().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Memory) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := m.nowTime()
	e, ok := m.live(key)
	if !ok {
		e = entry{value: []byte("0"), expiresAt: now.Add(window)}
	}
	if e.expiresAt.IsZero() {
		e.expiresAt = now.Add(window)
	}
	count, err := strconv.ParseInt(string(e.value), 10, 64)
	if err != nil {
		return 0, 0, err
	}
	count++
	e.value = []byte(strconv.FormatInt(count, 10))
	m.entries[key] = e

	return count, e.expiresAt.Sub(now), nil
}

func (m *Memory) Ping(context.Context) error {
	return nil
}

func (m *Memory) Close() {}

// live returns the entry at key, dropping it if expired. Caller holds the lock.
func (m *Memory) live(key string) (entry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !m.nowTime().Before(e.expiresAt) {
		delete(m.entries, key)
		return entry{}, false
	}
	return e, true
}
