// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import "sync"

// matchLocks hands out one mutex per match ID. Entries are reference
// counted and dropped once no goroutine holds or waits on them.
type matchLocks struct {
	mu    sync.Mutex
	locks map[string]*matchLock
}

type matchLock struct {
	mu   sync.Mutex
	refs int
}

func newMatchLocks() *matchLocks {
	return &matchLocks{locks: make(map[string]*matchLock)}
}

// lock blocks until the caller owns matchID and returns the release func
func (l *matchLocks) lock(matchID string) func() {
	l.mu.Lock()
	ml, ok := l.locks[matchID]
	if !ok {
		ml = &matchLock{}
		l.locks[matchID] = ml
	}
	ml.refs++
	l.mu.Unlock()

	ml.mu.Lock()

	return func() {
		ml.mu.Unlock()

		l.mu.Lock()
		ml.refs--
		if ml.refs == 0 {
			delete(l.locks, matchID)
		}
		l.mu.Unlock()
	}
}

func (l *matchLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
