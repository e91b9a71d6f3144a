// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultLimit  = 10
	DefaultWindow = 60 * time.Second
)

// Limiter bounds vote submissions per voter identifier.
// Allow consumes one attempt and reports whether it is within the limit.
type Limiter interface {
	Allow(ctx context.Context, id string) (bool, error)
}

type entry struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a fixed-window limiter local to this process.
// Expiry is checked lazily on access; call Sweep periodically to evict
// entries of voters that never come back.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[id]
	if !ok || now.After(e.resetAt) {
		m.entries[id] = &entry{count: 1, resetAt: now.Add(m.window)}
		return true, nil
	}

	if e.count >= m.limit {
		return false, nil
	}

	e.count++
	return true, nil
}

// Sweep drops expired windows and returns how many were removed
func (m *MemoryLimiter) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, e := range m.entries {
		if now.After(e.resetAt) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// Len reports how many identifiers are currently tracked
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
