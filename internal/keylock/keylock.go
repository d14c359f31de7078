// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

// Package keylock provides mutual exclusion keyed by an arbitrary string,
// typically an asset id. Locks for distinct keys never contend, and the
// internal key table is reference-counted so entries for idle keys are
// removed as soon as the last holder or waiter releases.
package keylock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned by AcquireOrErr when the lock could not be acquired
// within the deadline.
var ErrTimeout = errors.New("keylock: acquisition timed out")

// KeyedLock dispenses one mutex per active key. The zero value is not usable;
// construct with New. Instances are independent, so tests and composition
// roots each own their lock table rather than sharing process-global state.
type KeyedLock struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	// sem is a one-slot semaphore. Holding the token means holding the lock.
	sem  chan struct{}
	refs int
}

// New creates an empty keyed lock table.
func New() *KeyedLock {
	return &KeyedLock{entries: make(map[string]*lockEntry)}
}

// Acquire attempts to take the lock for key, waiting at most timeout (a
// non-positive timeout means wait only on ctx). On success it returns
// acquired=true and a release function that is safe to call exactly once per
// acquisition; calling it again is a no-op. On timeout or context
// cancellation it returns acquired=false and a no-op release, without error:
// the caller decides whether to proceed unguarded or abort.
func (l *KeyedLock) Acquire(ctx context.Context, key string, timeout time.Duration) (release func(), acquired bool) {
	entry := l.retain(key)

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case entry.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-entry.sem
				l.releaseRef(key)
			})
		}, true
	case <-timer:
	case <-ctx.Done():
	}

	l.releaseRef(key)
	return func() {}, false
}

// AcquireOrErr behaves like Acquire but converts a failed acquisition into an
// error, for callers that must not proceed without exclusivity.
func (l *KeyedLock) AcquireOrErr(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	release, acquired := l.Acquire(ctx, key, timeout)
	if !acquired {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrTimeout
	}
	return release, nil
}

// Len returns the number of keys currently held or contended. Memory use is
// bounded by this count, not by the total number of keys ever locked.
func (l *KeyedLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *KeyedLock) retain(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (l *KeyedLock) releaseRef(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(l.entries, key)
	}
}
