// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package status

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/dlcs/protagonist-sub009/internal/assets"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, time.Minute)
}

func TestGet_AbsentReadsAsNotOrchestrated(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Get(context.Background(), assets.AssetID{Customer: 1, Space: 1, Name: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != assets.StatusNotOrchestrated {
		t.Errorf("got %s, want %s", got, assets.StatusNotOrchestrated)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := assets.AssetID{Customer: 99, Space: 1, Name: "foo"}

	if err := s.Set(ctx, id, assets.StatusOrchestrated); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != assets.StatusOrchestrated {
		t.Errorf("got %s, want %s", got, assets.StatusOrchestrated)
	}
}

func TestCompareAndSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := assets.AssetID{Customer: 1, Space: 2, Name: "img"}

	swapped, observed, err := s.CompareAndSet(ctx, id, assets.StatusNotOrchestrated, assets.StatusOrchestrating)
	if err != nil {
		t.Fatalf("cas: %v", err)
	}
	if !swapped {
		t.Fatalf("expected swap from absent record, observed %s", observed)
	}

	// Wrong expectation must not overwrite.
	swapped, observed, err = s.CompareAndSet(ctx, id, assets.StatusNotOrchestrated, assets.StatusOrchestrated)
	if err != nil {
		t.Fatalf("cas: %v", err)
	}
	if swapped {
		t.Error("expected cas to fail against stale expectation")
	}
	if observed != assets.StatusOrchestrating {
		t.Errorf("observed %s, want %s", observed, assets.StatusOrchestrating)
	}
}

func TestCompareAndSet_OnlyOneWinnerUnderRace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := assets.AssetID{Customer: 5, Space: 5, Name: "contended"}

	const racers = 16
	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			swapped, _, err := s.CompareAndSet(ctx, id, assets.StatusNotOrchestrated, assets.StatusOrchestrating)
			if err != nil {
				t.Errorf("cas: %v", err)
				return
			}
			if swapped {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("expected exactly one winner, got %d", winners)
	}
}

func TestReset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := assets.AssetID{Customer: 1, Space: 1, Name: "resync"}

	if err := s.Set(ctx, id, assets.StatusOrchestrated); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Reset(ctx, id); err != nil {
		t.Fatalf("reset: %v", err)
	}
	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != assets.StatusNotOrchestrated {
		t.Errorf("got %s after reset, want %s", got, assets.StatusNotOrchestrated)
	}

	// Resetting an absent record is a no-op.
	if err := s.Reset(ctx, assets.AssetID{Customer: 9, Space: 9, Name: "absent"}); err != nil {
		t.Errorf("reset absent: %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	id := assets.AssetID{Customer: 1, Space: 1, Name: "x"}
	if _, err := s.Get(ctx, id); err == nil {
		t.Error("expected error from cancelled context")
	}
	if _, _, err := s.CompareAndSet(ctx, id, assets.StatusNotOrchestrated, assets.StatusOrchestrating); err == nil {
		t.Error("expected error from cancelled context")
	}
}
