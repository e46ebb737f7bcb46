// Package konserve implements an embedded key-value store backed by
// LMDB, exposing a rich "wrapped" API (records carry per-entry metadata)
// and, in the sibling raw package, a "direct" API over naked values.
package konserve

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/replikativ/konserve-lmdb/codec"
	"github.com/replikativ/konserve-lmdb/errs"
	"github.com/replikativ/konserve-lmdb/format"
	"github.com/replikativ/konserve-lmdb/internal/lmdbenv"
	"github.com/replikativ/konserve-lmdb/internal/options"
	"github.com/replikativ/konserve-lmdb/internal/pool"
)

// Store is an opaque handle over one LMDB environment (spec.md §3): the
// environment, its default database, a per-store buffer pool, an
// optional type-handler registry, and a write-hooks table. The zero
// value is not usable; construct with Connect or Create.
type Store struct {
	env         *lmdbenv.Env
	pool        *pool.Pool
	registry    *codec.Registry
	hooks       *HookTable
	compression format.CompressionType

	closed atomic.Bool
}

// Connect opens an existing store directory. It fails with
// errs.ErrStoreMissing if path does not exist.
func Connect(path string, opts ...Option) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errs.ErrStoreMissing, path)
		}

		return nil, err
	}

	return open(path, opts)
}

// Create opens a new store directory, creating it first. It fails with
// errs.ErrStoreExists if path already exists.
func Create(path string, opts ...Option) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrStoreExists, path)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("konserve: creating store directory: %w", err)
	}

	return open(path, opts)
}

// Delete removes a closed store's directory and all its contents
// (spec.md §3 lifecycle). Only valid once the store has been Released;
// it is a package function, not a Store method, precisely because the
// handle it would operate on must already be gone.
func Delete(path string) error {
	return os.RemoveAll(path)
}

func open(path string, opts []Option) (*Store, error) {
	cfg := newStoreConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	var envOpts []lmdbenv.Option
	if cfg.envFlags != 0 {
		envOpts = append(envOpts, lmdbenv.WithFlags(cfg.envFlags))
	}
	if cfg.mapSize != 0 {
		envOpts = append(envOpts, lmdbenv.WithMapSize(cfg.mapSize))
	}
	if cfg.libraryPath != "" {
		envOpts = append(envOpts, lmdbenv.WithLibraryPath(cfg.libraryPath))
	}

	env, err := lmdbenv.Open(path, envOpts...)
	if err != nil {
		return nil, err
	}

	if cfg.maxDepth > 0 && cfg.maxDepth != codec.MaxDepth {
		if cfg.registry == nil {
			cfg.registry, _ = codec.New(nil)
		}
		cfg.registry.WithMaxDepth(cfg.maxDepth)
	}

	return &Store{
		env:         env,
		pool:        pool.New(),
		registry:    cfg.registry,
		hooks:       newHookTable(),
		compression: cfg.compression,
	}, nil
}

// Release closes the LMDB environment and moves the store to the closed
// state. Subsequent operations fail with errs.ErrClosed.
func (s *Store) Release() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.pool.Clear()

	return s.env.Close()
}

// checkOpen is called at the start of every public operation.
func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return errs.ErrClosed
	}

	return nil
}

func (s *Store) encode(v any) ([]byte, error) {
	return codec.EncodeWithPool(v, s.registry, s.pool)
}
