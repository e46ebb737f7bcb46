// Package lmdbenv wraps github.com/bmatsuo/lmdb-go/lmdb with the
// store's environment lifecycle, descriptor pool, native-library
// discovery and error translation (spec.md §4.C4).
package lmdbenv

import (
	"github.com/bmatsuo/lmdb-go/lmdb"

	"github.com/replikativ/konserve-lmdb/internal/options"
)

// Flag is one of the environment-open bits spec.md §6 names. It is a
// distinct type from lmdb.Readonly/etc's raw uint so callers build
// environment configuration through Option rather than poking at the
// underlying binding's flag constants directly.
type Flag uint

const (
	// Readonly opens the environment without write permission.
	Readonly Flag = Flag(lmdb.Readonly)
	// NoSubdir treats the store path as a file, not a directory.
	NoSubdir Flag = Flag(lmdb.NoSubdir)
	// NoSync disables fsync after commit.
	NoSync Flag = Flag(lmdb.NoSync)
	// WriteMap uses a writable memory map instead of write(2) for writes.
	WriteMap Flag = Flag(lmdb.WriteMap)
	// MapAsync flushes asynchronously when WriteMap is also set.
	MapAsync Flag = Flag(lmdb.MapAsync)
	// NoTLS ties reader locktable slots to the transaction instead of the OS thread.
	NoTLS Flag = Flag(lmdb.NoTLS)
	// NoReadahead disables the OS readahead hint.
	NoReadahead Flag = Flag(lmdb.NoRdAhead)
)

// DefaultMapSize is the map size (spec.md §6 Defaults) used when no
// WithMapSize option is given.
const DefaultMapSize = 1 << 30 // 1 GiB

// Config is the mutable environment configuration an Option applies
// before Open/Create reads it.
type Config struct {
	Flags       Flag
	MapSize     int64
	LibraryPath string
}

func newConfig() *Config {
	return &Config{MapSize: DefaultMapSize}
}

// Option configures environment flags, map size, or the liblmdb discovery
// override (spec.md §6) at Open/Create time.
type Option = options.Option[*Config]

// WithFlags bit-ors extra environment flags onto the default set.
func WithFlags(f Flag) Option {
	return options.NoError(func(c *Config) { c.Flags |= f })
}

// WithMapSize overrides the default 1 GiB map size.
func WithMapSize(n int64) Option {
	return options.NoError(func(c *Config) { c.MapSize = n })
}

// WithLibraryPath sets the second tier of the native-library discovery
// order (spec.md §6), below the KONSERVE_LMDB_LIB environment variable
// and above the fixed conventional paths.
func WithLibraryPath(path string) Option {
	return options.NoError(func(c *Config) { c.LibraryPath = path })
}

func (c *Config) lmdbFlags() uint {
	return uint(c.Flags)
}
