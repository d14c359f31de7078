// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package keylock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	l := New()
	ctx := context.Background()

	release, acquired := l.Acquire(ctx, "a", time.Second)
	if !acquired {
		t.Fatal("expected to acquire uncontended lock")
	}
	if l.Len() != 1 {
		t.Errorf("expected 1 active key, got %d", l.Len())
	}

	release()
	if l.Len() != 0 {
		t.Errorf("expected key table to be pruned, got %d entries", l.Len())
	}
}

func TestTimeoutReturnsNotAcquired(t *testing.T) {
	l := New()
	ctx := context.Background()

	release, acquired := l.Acquire(ctx, "a", time.Second)
	if !acquired {
		t.Fatal("setup: could not take lock")
	}
	defer release()

	second, acquired := l.Acquire(ctx, "a", 20*time.Millisecond)
	if acquired {
		t.Fatal("second acquisition must time out")
	}
	// The returned release must be safe to call even though nothing was acquired.
	second()
}

func TestAcquireOrErr(t *testing.T) {
	l := New()
	ctx := context.Background()

	release, err := l.AcquireOrErr(ctx, "a", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer release()

	if _, err := l.AcquireOrErr(ctx, "a", 20*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestContextCancellation(t *testing.T) {
	l := New()

	release, _ := l.Acquire(context.Background(), "a", time.Second)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() {
		_, acquired := l.Acquire(ctx, "a", 0)
		done <- acquired
	}()

	cancel()
	select {
	case acquired := <-done:
		if acquired {
			t.Error("cancelled acquisition must not report success")
		}
	case <-time.After(time.Second):
		t.Fatal("acquisition did not observe cancellation")
	}

	if _, err := l.AcquireOrErr(ctx, "a", 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestIndependentKeysNeverContend(t *testing.T) {
	l := New()
	ctx := context.Background()

	releaseA, acquired := l.Acquire(ctx, "a", time.Second)
	if !acquired {
		t.Fatal("could not take lock for key a")
	}
	defer releaseA()

	// Key b must be acquirable immediately despite a being held.
	releaseB, acquired := l.Acquire(ctx, "b", 10*time.Millisecond)
	if !acquired {
		t.Fatal("lock for key b contended with key a")
	}
	releaseB()
}

func TestMutualExclusionUnderContention(t *testing.T) {
	l := New()
	ctx := context.Background()

	const workers = 32
	var inCritical int32
	var violations int32
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, acquired := l.Acquire(ctx, "shared", 5*time.Second)
			if !acquired {
				atomic.AddInt32(&violations, 1)
				return
			}
			if atomic.AddInt32(&inCritical, 1) != 1 {
				atomic.AddInt32(&violations, 1)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inCritical, -1)
			release()
		}()
	}
	wg.Wait()

	if violations != 0 {
		t.Errorf("observed %d mutual-exclusion violations", violations)
	}
	if l.Len() != 0 {
		t.Errorf("expected pruned table, got %d entries", l.Len())
	}
}

func TestDoubleReleaseIsNoOp(t *testing.T) {
	l := New()
	ctx := context.Background()

	release, _ := l.Acquire(ctx, "a", time.Second)
	release()
	release() // must not panic or corrupt the table

	if _, acquired := l.Acquire(ctx, "a", time.Second); !acquired {
		t.Error("lock unusable after double release")
	}
}
