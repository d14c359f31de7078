// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

// Package faststorage manages the local disk cache the downstream image
// server reads from. Writes land in a temporary ".part" file and are renamed
// into place only when complete, so a half-written binary is never visible at
// the asset's final path.
package faststorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dlcs/protagonist-sub009/internal/assets"
)

// copyBufferSize is the chunk size for incremental copies.
const copyBufferSize = 1 << 20 // 1MiB

// ErrLengthMismatch is returned when the origin declared a content length and
// the copied byte count differs.
var ErrLengthMismatch = errors.New("faststorage: copied bytes differ from declared length")

// Store lays out asset binaries under root as customer/space/name.
type Store struct {
	root string

	// flushEvery syncs the file to disk after this many bytes during long
	// copies; zero disables periodic flushing.
	flushEvery int64
}

// New creates the store, ensuring root exists.
func New(root string, flushEvery int64) (*Store, error) {
	if root == "" {
		return nil, errors.New("faststorage: root path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create fast storage root: %w", err)
	}
	return &Store{root: root, flushEvery: flushEvery}, nil
}

// PathFor returns the final on-disk path for id.
func (s *Store) PathFor(id assets.AssetID) string {
	return filepath.Join(s.root,
		strconv.Itoa(id.Customer), strconv.Itoa(id.Space), filepath.FromSlash(id.Name))
}

// Exists reports whether a completed binary is present for id. Partial files
// never live at the final path, so presence means a finished copy.
func (s *Store) Exists(id assets.AssetID) bool {
	info, err := os.Stat(s.PathFor(id))
	return err == nil && !info.IsDir()
}

// Write streams r to the asset's path, returning the byte count. When length
// is non-negative the count is verified against it. On any failure, including
// cancellation mid-copy, the partial file is removed so a retry's existence
// check treats the asset as absent.
func (s *Store) Write(ctx context.Context, id assets.AssetID, r io.Reader, length int64) (int64, error) {
	final := s.PathFor(id)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return 0, fmt.Errorf("create asset directory: %w", err)
	}

	partial := final + ".part"
	f, err := os.OpenFile(partial, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create partial file: %w", err)
	}

	written, err := s.copy(ctx, f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && length >= 0 && written != length {
		err = fmt.Errorf("%w: got %d, declared %d", ErrLengthMismatch, written, length)
	}
	if err != nil {
		_ = os.Remove(partial)
		return written, err
	}

	if err := os.Rename(partial, final); err != nil {
		_ = os.Remove(partial)
		return written, fmt.Errorf("finalize %s: %w", final, err)
	}
	return written, nil
}

// Remove deletes the binary for id. Absent files are not an error.
func (s *Store) Remove(id assets.AssetID) error {
	err := os.Remove(s.PathFor(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	return nil
}

func (s *Store) copy(ctx context.Context, dst *os.File, src io.Reader) (int64, error) {
	buf := make([]byte, copyBufferSize)
	var written, sinceFlush int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("write fast storage: %w", err)
			}
			written += int64(n)
			sinceFlush += int64(n)
			if s.flushEvery > 0 && sinceFlush >= s.flushEvery {
				if err := dst.Sync(); err != nil {
					return written, fmt.Errorf("flush fast storage: %w", err)
				}
				sinceFlush = 0
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("read origin stream: %w", readErr)
		}
	}
}
