// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

// Package orchestrator warms asset binaries from slow origin storage into
// the local fast cache. The copy path is double-checked: a process-local
// keyed lock stops redundant work inside one process, while the shared
// status store is the cross-process source of truth. Only the holder of a
// successful NotOrchestrated->Orchestrating compare-and-set may write the
// fast-storage path for an asset.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dlcs/protagonist-sub009/internal/assets"
	"github.com/dlcs/protagonist-sub009/internal/keylock"
	"github.com/dlcs/protagonist-sub009/internal/logging"
	"github.com/dlcs/protagonist-sub009/internal/metrics"
	"github.com/dlcs/protagonist-sub009/internal/origin"
)

// ErrNoOriginLocation marks a metadata gap: the asset is tracked but
// carries no origin location to copy from. A re-sync from the upstream
// system is required; retrying the copy cannot help.
var ErrNoOriginLocation = errors.New("orchestrator: asset has no origin location")

// DefaultLockTimeout bounds how long a request waits for another copy of
// the same asset already running in this process.
const DefaultLockTimeout = 10 * time.Second

// StatusStore is the shared orchestration flag per asset.
type StatusStore interface {
	Get(ctx context.Context, id assets.AssetID) (assets.Status, error)
	Set(ctx context.Context, id assets.AssetID, st assets.Status) error
	CompareAndSet(ctx context.Context, id assets.AssetID, expect, next assets.Status) (swapped bool, observed assets.Status, err error)
}

// FastStorage is the local cache the orchestrator copies into.
type FastStorage interface {
	Exists(id assets.AssetID) bool
	Write(ctx context.Context, id assets.AssetID, r io.Reader, length int64) (int64, error)
	Remove(id assets.AssetID) error
}

// ImageOrchestrator copies image binaries into fast storage at most once
// per asset.
type ImageOrchestrator struct {
	status      StatusStore
	locks       *keylock.KeyedLock
	origin      origin.Reader
	fast        FastStorage
	lockTimeout time.Duration
}

// New constructs an orchestrator. lockTimeout <= 0 uses DefaultLockTimeout.
func New(status StatusStore, locks *keylock.KeyedLock, originReader origin.Reader, fast FastStorage, lockTimeout time.Duration) *ImageOrchestrator {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &ImageOrchestrator{
		status:      status,
		locks:       locks,
		origin:      originReader,
		fast:        fast,
		lockTimeout: lockTimeout,
	}
}

// OrchestrateImage ensures the asset's binary is present in fast storage.
//
// The call returns nil both when the asset is already warm and when it
// lost the warming race to another holder; callers re-read status through
// the routing layer rather than relying on this call blocking. Errors are
// returned only for actual copy failures and for the ErrNoOriginLocation
// metadata gap.
func (o *ImageOrchestrator) OrchestrateImage(ctx context.Context, img *assets.OrchestrationImage) error {
	id := img.ID
	lg := logging.Ctx(ctx).With().Str("asset", id.String()).Logger()

	// Fast path: the overwhelmingly common case is an already-warm asset,
	// served by a single status read with no lock taken.
	st, err := o.status.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("read orchestration status %s: %w", id, err)
	}
	if st == assets.StatusOrchestrated {
		img.Status = assets.StatusOrchestrated
		metrics.RecordOrchestrationOutcome("already_warm")
		return nil
	}

	release, acquired := o.locks.Acquire(ctx, id.String(), o.lockTimeout)
	if !acquired {
		// Serving correctness is handled by the routing layer; blocking
		// the request beyond the timeout buys nothing.
		lg.Warn().Dur("timeout", o.lockTimeout).Msg("keyed lock not acquired, proceeding without orchestration")
		metrics.RecordOrchestrationOutcome("lock_timeout")
		return nil
	}
	defer release()

	// Double check under the lock. Another process may have finished (or
	// be mid-copy); only a successful swap licenses us to write.
	swapped, observed, err := o.status.CompareAndSet(ctx, id, assets.StatusNotOrchestrated, assets.StatusOrchestrating)
	if err != nil {
		return fmt.Errorf("claim orchestration %s: %w", id, err)
	}
	if !swapped {
		if observed == assets.StatusOrchestrated {
			img.Status = assets.StatusOrchestrated
		}
		lg.Debug().Str("observed", string(observed)).Msg("orchestration race lost")
		metrics.RecordOrchestrationOutcome("race_lost")
		return nil
	}

	if img.OriginLocation == "" {
		o.revert(ctx, id)
		metrics.RecordOrchestrationOutcome("failed")
		return fmt.Errorf("%s: %w", id, ErrNoOriginLocation)
	}

	start := time.Now()
	rc, length, err := o.origin.LoadFromOrigin(ctx, img.OriginLocation)
	if err != nil {
		o.revert(ctx, id)
		metrics.RecordOrchestrationOutcome("failed")
		return fmt.Errorf("load origin %s: %w", img.OriginLocation, err)
	}
	defer rc.Close()

	written, err := o.fast.Write(ctx, id, rc, length)
	if err != nil {
		o.revert(ctx, id)
		metrics.RecordOrchestrationOutcome("failed")
		return fmt.Errorf("copy %s to fast storage: %w", id, err)
	}

	if err := o.status.Set(ctx, id, assets.StatusOrchestrated); err != nil {
		// The copy landed but the flag did not. Remove the file so a
		// retry starts from a clean slate instead of trusting an
		// unflagged binary.
		if rmErr := o.fast.Remove(id); rmErr != nil {
			lg.Error().Err(rmErr).Msg("failed to remove fast-storage file after status write failure")
		}
		o.revert(ctx, id)
		metrics.RecordOrchestrationOutcome("failed")
		return fmt.Errorf("mark orchestrated %s: %w", id, err)
	}

	img.Status = assets.StatusOrchestrated
	elapsed := time.Since(start)
	metrics.RecordOrchestration(written, elapsed)
	lg.Info().Int64("bytes", written).Dur("elapsed", elapsed).Msg("asset orchestrated")
	return nil
}

// IsWarm reports whether the asset is orchestrated and present on disk.
func (o *ImageOrchestrator) IsWarm(ctx context.Context, id assets.AssetID) (bool, error) {
	st, err := o.status.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return st == assets.StatusOrchestrated && o.fast.Exists(id), nil
}

// revert returns the asset to NotOrchestrated so a later request can
// retry. It must succeed even when ctx is already canceled, otherwise a
// canceled copy wedges the asset in Orchestrating until the TTL clears it.
func (o *ImageOrchestrator) revert(ctx context.Context, id assets.AssetID) {
	rctx := context.WithoutCancel(ctx)
	if err := o.status.Set(rctx, id, assets.StatusNotOrchestrated); err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Str("asset", id.String()).
			Msg("failed to revert orchestration status")
	}
}
