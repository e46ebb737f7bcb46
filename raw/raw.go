// Package raw implements the store's "direct" API (spec.md §4.C6 Raw
// API): the same tagged codec and LMDB environment as the wrapped
// konserve package, but writing the naked user value with no {meta,
// value} envelope. A raw store and a wrapped store must never share a
// key space: reading a raw record through the wrapped API surfaces the
// cross-API error spec.md §7 defines, while reading a wrapped record
// through this package returns its plain {meta, value} map.
package raw

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/bmatsuo/lmdb-go/lmdb"

	"github.com/replikativ/konserve-lmdb/codec"
	"github.com/replikativ/konserve-lmdb/compress"
	"github.com/replikativ/konserve-lmdb/errs"
	"github.com/replikativ/konserve-lmdb/format"
	"github.com/replikativ/konserve-lmdb/internal/lmdbenv"
	"github.com/replikativ/konserve-lmdb/internal/options"
	"github.com/replikativ/konserve-lmdb/internal/pool"
	"github.com/replikativ/konserve-lmdb/internal/txn"
)

// Store is a direct-value handle over one LMDB environment, structurally
// identical in lifecycle to konserve.Store but without the metadata
// envelope.
type Store struct {
	env         *lmdbenv.Env
	pool        *pool.Pool
	registry    *codec.Registry
	compression format.CompressionType

	closed atomic.Bool
}

type config struct {
	envFlags    lmdbenv.Flag
	mapSize     int64
	libraryPath string
	registry    *codec.Registry
	compression format.CompressionType
}

// Option configures a Store at Connect/Create time.
type Option = options.Option[*config]

// WithEnvFlags bit-ors extra LMDB environment flags onto the defaults.
func WithEnvFlags(f lmdbenv.Flag) Option {
	return options.NoError(func(c *config) { c.envFlags |= f })
}

// WithMapSize overrides the default LMDB map size.
func WithMapSize(n int64) Option {
	return options.NoError(func(c *config) { c.mapSize = n })
}

// WithLibraryPath sets the configurable-property tier of liblmdb discovery.
func WithLibraryPath(path string) Option {
	return options.NoError(func(c *config) { c.libraryPath = path })
}

// WithRegistry installs a type-handler registry.
func WithRegistry(reg *codec.Registry) Option {
	return options.NoError(func(c *config) { c.registry = reg })
}

// WithBlobCompression enables compression of []byte values before they
// are handed to the codec's bytes tag (SPEC_FULL §2), mirroring
// konserve.WithBlobCompression for the wrapped API's BAssoc. Values of
// any other type are encoded uncompressed; compression is a transform
// on the raw byte payload, not on the codec's structured fields.
func WithBlobCompression(ct format.CompressionType) Option {
	return options.NoError(func(c *config) { c.compression = ct })
}

// Connect opens an existing raw store directory.
func Connect(path string, opts ...Option) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errs.ErrStoreMissing, path)
		}

		return nil, err
	}

	return open(path, opts)
}

// Create creates and opens a new raw store directory.
func Create(path string, opts ...Option) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrStoreExists, path)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("raw: creating store directory: %w", err)
	}

	return open(path, opts)
}

// Delete removes a closed store's directory and all its contents.
func Delete(path string) error {
	return os.RemoveAll(path)
}

func open(path string, opts []Option) (*Store, error) {
	cfg := &config{compression: format.CompressionNone}
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

	return &Store{env: env, pool: pool.New(), registry: cfg.registry, compression: cfg.compression}, nil
}

// Release closes the LMDB environment.
func (s *Store) Release() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.pool.Clear()

	return s.env.Close()
}

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return errs.ErrClosed
	}

	return nil
}

func (s *Store) encode(v any) ([]byte, error) {
	return codec.EncodeWithPool(v, s.registry, s.pool)
}

func (s *Store) decode(data []byte) (any, error) {
	return codec.DecodeWithRegistry(data, s.registry)
}

// compressValue applies the store's configured blob compression to value
// when it is a []byte, leaving every other type untouched.
func (s *Store) compressValue(value any) (any, error) {
	raw, ok := value.([]byte)
	if !ok || s.compression == format.CompressionNone {
		return value, nil
	}

	codecImpl, err := compress.GetCodec(s.compression)
	if err != nil {
		return nil, err
	}

	compressed, err := codecImpl.Compress(raw)
	if err != nil {
		return nil, err
	}

	return compressed, nil
}

// decompressValue reverses compressValue after a decode.
func (s *Store) decompressValue(value any) (any, error) {
	raw, ok := value.([]byte)
	if !ok || s.compression == format.CompressionNone {
		return value, nil
	}

	codecImpl, err := compress.GetCodec(s.compression)
	if err != nil {
		return nil, err
	}

	return codecImpl.Decompress(raw)
}

// Put writes the naked value under key, overwriting any existing value.
// A []byte value is compressed first if the store was opened with
// WithBlobCompression.
func (s *Store) Put(key, value any) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	k, err := s.encode(key)
	if err != nil {
		return err
	}

	value, err = s.compressValue(value)
	if err != nil {
		return err
	}

	v, err := s.encode(value)
	if err != nil {
		return err
	}

	return txn.Update(s.env, func(t *lmdb.Txn) error {
		return s.env.PutStaged(t, k, v)
	})
}

// Get reads key's naked value, reporting found=false if absent. A []byte
// value is decompressed if the store was opened with WithBlobCompression.
func (s *Store) Get(key any) (value any, found bool, err error) {
	if err := s.checkOpen(); err != nil {
		return nil, false, err
	}

	k, err := s.encode(key)
	if err != nil {
		return nil, false, err
	}

	err = txn.View(s.env, func(t *lmdb.Txn) error {
		data, f, err := s.env.Get(t, k)
		if err != nil || !f {
			found = f

			return err
		}

		value, err = s.decode(data)
		if err != nil {
			return err
		}

		value, err = s.decompressValue(value)
		found = err == nil

		return err
	})

	return value, found, err
}

// Del deletes key's naked value, reporting whether it existed.
func (s *Store) Del(key any) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	k, err := s.encode(key)
	if err != nil {
		return false, err
	}

	var existed bool
	err = txn.Update(s.env, func(t *lmdb.Txn) error {
		var err error
		existed, err = s.env.Delete(t, k)

		return err
	})

	return existed, err
}

// MultiGet reads every present key in a single read transaction,
// omitting missing keys.
func (s *Store) MultiGet(keys []any) (map[any]any, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	out := make(map[any]any, len(keys))

	err := txn.View(s.env, func(t *lmdb.Txn) error {
		for _, key := range keys {
			k, err := s.encode(key)
			if err != nil {
				return err
			}

			data, found, err := s.env.Get(t, k)
			if err != nil {
				return err
			}
			if !found {
				continue
			}

			v, err := s.decode(data)
			if err != nil {
				return err
			}

			v, err = s.decompressValue(v)
			if err != nil {
				return err
			}

			out[key] = v
		}

		return nil
	})

	return out, err
}

// MultiPut writes every entry of kvs in a single write transaction.
func (s *Store) MultiPut(kvs map[any]any) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	return txn.Update(s.env, func(t *lmdb.Txn) error {
		for key, val := range kvs {
			k, err := s.encode(key)
			if err != nil {
				return err
			}

			val, err = s.compressValue(val)
			if err != nil {
				return err
			}

			v, err := s.encode(val)
			if err != nil {
				return err
			}

			if err := s.env.PutStaged(t, k, v); err != nil {
				return err
			}
		}

		return nil
	})
}
