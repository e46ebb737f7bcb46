package konserve

import (
	"github.com/replikativ/konserve-lmdb/codec"
	"github.com/replikativ/konserve-lmdb/format"
	"github.com/replikativ/konserve-lmdb/internal/lmdbenv"
	"github.com/replikativ/konserve-lmdb/internal/options"
)

// storeConfig collects what Connect/Create need before the environment
// is opened.
type storeConfig struct {
	envFlags    lmdbenv.Flag
	mapSize     int64
	libraryPath string
	registry    *codec.Registry
	compression format.CompressionType
	maxDepth    int
}

func newStoreConfig() *storeConfig {
	return &storeConfig{compression: format.CompressionNone, maxDepth: codec.MaxDepth}
}

// Option configures a Store at Connect/Create time.
type Option = options.Option[*storeConfig]

// WithEnvFlags bit-ors extra LMDB environment flags onto the defaults
// (spec.md §6: MDB_NOSUBDIR, MDB_NOSYNC, MDB_WRITEMAP, MDB_MAPASYNC,
// MDB_NOTLS, MDB_NORDAHEAD; MDB_RDONLY for a read-only store).
func WithEnvFlags(f lmdbenv.Flag) Option {
	return options.NoError(func(c *storeConfig) { c.envFlags |= f })
}

// WithMapSize overrides the default 1 GiB LMDB map size.
func WithMapSize(n int64) Option {
	return options.NoError(func(c *storeConfig) { c.mapSize = n })
}

// WithLibraryPath sets the configurable-property tier of the liblmdb
// discovery order (spec.md §6).
func WithLibraryPath(path string) Option {
	return options.NoError(func(c *storeConfig) { c.libraryPath = path })
}

// WithRegistry installs a type-handler registry (spec.md §4.C3). Every
// subsequent read and write on the store uses it; reopening the same
// directory with a different registry is the caller's responsibility.
func WithRegistry(reg *codec.Registry) Option {
	return options.NoError(func(c *storeConfig) { c.registry = reg })
}

// WithBlobCompression enables compression of bassoc/raw-Put byte payloads
// before they are handed to the codec's bytes tag (SPEC_FULL §2: additive,
// value-level only, never applies to structured fields).
func WithBlobCompression(ct format.CompressionType) Option {
	return options.NoError(func(c *storeConfig) { c.compression = ct })
}

// WithMaxDepth overrides the codec's recursion-depth guard (default
// codec.MaxDepth).
func WithMaxDepth(depth int) Option {
	return options.NoError(func(c *storeConfig) { c.maxDepth = depth })
}
