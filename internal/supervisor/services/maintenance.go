// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package services

import (
	"context"
	"errors"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/dlcs/protagonist-sub009/internal/logging"
)

// TickerService runs a named maintenance function on a fixed interval
// until its context is canceled. Errors from the function are logged
// and do not stop the service.
type TickerService struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
}

// NewTickerService builds a periodic service. interval must be positive.
func NewTickerService(name string, interval time.Duration, run func(ctx context.Context) error) *TickerService {
	return &TickerService{name: name, interval: interval, run: run}
}

// Serve implements suture.Service.
func (t *TickerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := t.run(ctx); err != nil {
				logging.Ctx(ctx).Warn().
					Err(err).
					Str("service", t.name).
					Msg("maintenance run failed")
			}
		}
	}
}

func (t *TickerService) String() string { return t.name }

// NewBadgerGCService reclaims badger value-log space periodically.
// RunValueLogGC returns ErrNoRewrite when there is nothing to collect,
// which is not a failure.
func NewBadgerGCService(db *badger.DB, interval time.Duration) *TickerService {
	return NewTickerService("badger-gc", interval, func(ctx context.Context) error {
		for {
			err := db.RunValueLogGC(0.5)
			if errors.Is(err, badger.ErrNoRewrite) {
				return nil
			}
			if err != nil {
				return err
			}
		}
	})
}

// SessionCleaner removes expired sessions.
type SessionCleaner interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// NewSessionCleanupService sweeps expired auth sessions periodically.
func NewSessionCleanupService(store SessionCleaner, interval time.Duration) *TickerService {
	return NewTickerService("session-cleanup", interval, func(ctx context.Context) error {
		removed, err := store.CleanupExpired(ctx)
		if err != nil {
			return err
		}
		if removed > 0 {
			logging.Ctx(ctx).Debug().Int("removed", removed).Msg("expired sessions removed")
		}
		return nil
	})
}

// Pruner drops expired entries from an in-memory cache.
type Pruner interface {
	Prune() int
}

// NewCachePruneService evicts expired cache entries periodically.
func NewCachePruneService(name string, cache Pruner, interval time.Duration) *TickerService {
	return NewTickerService(name, interval, func(ctx context.Context) error {
		cache.Prune()
		return nil
	})
}
