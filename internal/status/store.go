// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

// Package status persists the per-asset orchestration status in BadgerDB.
//
// The status store is the cross-process source of truth for whether an
// asset's binary is present in fast storage. The in-process KeyedLock bounds
// duplicate work within one orchestrator node; this store is what keeps
// multiple nodes from clobbering a completed copy, via CompareAndSet.
package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/dlcs/protagonist-sub009/internal/assets"
)

const keyPrefix = "orchestration:"

// casRetries bounds CompareAndSet retries under transaction conflicts.
const casRetries = 5

// Store reads and writes orchestration status records.
type Store struct {
	db *badger.DB

	// orchestratingTTL expires an Orchestrating entry that was never
	// completed or reverted, so a crashed copier cannot wedge an asset.
	orchestratingTTL time.Duration
}

type record struct {
	Status    assets.Status `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewStore creates a status store over db. orchestratingTTL guards against
// abandoned in-flight markers; zero disables the guard.
func NewStore(db *badger.DB, orchestratingTTL time.Duration) *Store {
	return &Store{db: db, orchestratingTTL: orchestratingTTL}
}

// Get returns the current status for id. An absent record reads as
// NotOrchestrated.
func (s *Store) Get(ctx context.Context, id assets.AssetID) (assets.Status, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	current := assets.StatusNotOrchestrated
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get status: %w", err)
		}
		return item.Value(func(val []byte) error {
			var rec record
			if err := json.Unmarshal(val, &rec); err != nil {
				return fmt.Errorf("unmarshal status: %w", err)
			}
			current = rec.Status
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return current, nil
}

// Set unconditionally writes the status for id.
func (s *Store) Set(ctx context.Context, id assets.AssetID, st assets.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return s.write(txn, id, st)
	})
}

// CompareAndSet transitions id from expect to next atomically. It returns
// swapped=false, with the status actually observed, when another writer got
// there first. The read and write happen in one Badger transaction; a
// conflicting concurrent commit is retried a bounded number of times.
func (s *Store) CompareAndSet(ctx context.Context, id assets.AssetID, expect, next assets.Status) (bool, assets.Status, error) {
	var observed assets.Status

	for attempt := 0; attempt < casRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, "", err
		}

		swapped := false
		err := s.db.Update(func(txn *badger.Txn) error {
			observed = assets.StatusNotOrchestrated

			item, err := txn.Get(key(id))
			if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("read status: %w", err)
			}
			if err == nil {
				if err := item.Value(func(val []byte) error {
					var rec record
					if err := json.Unmarshal(val, &rec); err != nil {
						return fmt.Errorf("unmarshal status: %w", err)
					}
					observed = rec.Status
					return nil
				}); err != nil {
					return err
				}
			}

			if observed != expect {
				return nil
			}

			swapped = true
			return s.write(txn, id, next)
		})

		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return false, "", err
		}
		return swapped, observed, nil
	}

	return false, observed, fmt.Errorf("compare-and-set %s: %w", id, badger.ErrConflict)
}

// Reset removes the status record for id, returning it to NotOrchestrated.
// Used by the external re-sync path when an asset's binary is replaced.
func (s *Store) Reset(ctx context.Context, id assets.AssetID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

func (s *Store) write(txn *badger.Txn, id assets.AssetID, st assets.Status) error {
	data, err := json.Marshal(record{Status: st, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	e := badger.NewEntry(key(id), data)
	if st == assets.StatusOrchestrating && s.orchestratingTTL > 0 {
		e = e.WithTTL(s.orchestratingTTL)
	}
	return txn.SetEntry(e)
}

func key(id assets.AssetID) []byte {
	return []byte(keyPrefix + id.String())
}
