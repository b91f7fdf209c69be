package service

import (
	"sort"
	"sync"
)

// accountLocks serializes passes over the same (user, account). Locks are
// taken in key order so two passes sharing accounts cannot deadlock.
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[string]*refLock)}
}

func lockKey(userID, accountID string) string {
	return userID + "\x00" + accountID
}

// Lock acquires every account of userID and returns the release func.
func (l *accountLocks) Lock(userID string, accounts []string) func() {
	keys := make([]string, 0, len(accounts))
	seen := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		k := lockKey(userID, a)
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	sort.Strings(keys)

	held := make([]*refLock, 0, len(keys))
	for _, k := range keys {
		rl := l.acquire(k)
		rl.Lock()
		held = append(held, rl)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			l.release(keys[i])
		}
	}
}

func (l *accountLocks) acquire(key string) *refLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	rl, ok := l.locks[key]
	if !ok {
		rl = &refLock{}
		l.locks[key] = rl
	}
	rl.refs++
	return rl
}

func (l *accountLocks) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rl := l.locks[key]
	rl.refs--
	if rl.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *accountLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
