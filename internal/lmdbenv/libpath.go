package lmdbenv

import (
	"fmt"
	"os"
	"runtime"

	"github.com/replikativ/konserve-lmdb/errs"
)

// libraryEnvVar is the environment variable spec.md §6 names as the first
// tier of liblmdb discovery.
const libraryEnvVar = "KONSERVE_LMDB_LIB"

// conventionalPaths returns the fixed, per-OS paths checked after the
// environment variable and the configured Option property.
func conventionalPaths() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/opt/homebrew/lib/liblmdb.dylib",
			"/usr/local/lib/liblmdb.dylib",
			"/usr/lib/liblmdb.dylib",
		}
	case "linux":
		return []string{
			"/usr/lib/liblmdb.so",
			"/usr/lib/x86_64-linux-gnu/liblmdb.so",
			"/usr/local/lib/liblmdb.so",
		}
	default:
		return nil
	}
}

// resolveLibrary walks the discovery order spec.md §6 defines: the
// KONSERVE_LMDB_LIB environment variable, then cfg.LibraryPath, then the
// fixed conventional paths, then a bare library name for the OS loader.
// Only the first three tiers are probed (as existing files); the bare name
// is never probed and appears only in the error's list of attempts.
//
// github.com/bmatsuo/lmdb-go links LMDB's C sources directly into the Go
// binary via cgo rather than dlopen-ing a shared object at runtime, so
// there is no call here that actually loads the bytes this function
// finds. This is a deliberate deviation from spec.md §6's literal
// "failure to load must raise a clear error identifying the attempted
// path": resolveLibrary is a best-effort preflight diagnostic run before
// Open, surfacing the same ErrLibraryLoad a true dynamic loader would
// raise, rather than a load step the bound package performs (see
// DESIGN.md).
func resolveLibrary(cfg *Config) (string, error) {
	tried := make([]string, 0, 4)

	if p := os.Getenv(libraryEnvVar); p != "" {
		tried = append(tried, p)
		if fileExists(p) {
			return p, nil
		}
	}

	if cfg.LibraryPath != "" {
		tried = append(tried, cfg.LibraryPath)
		if fileExists(cfg.LibraryPath) {
			return cfg.LibraryPath, nil
		}
	}

	for _, p := range conventionalPaths() {
		tried = append(tried, p)
		if fileExists(p) {
			return p, nil
		}
	}

	const bareName = "liblmdb"
	tried = append(tried, bareName)

	return "", fmt.Errorf("%w: tried %v", errs.ErrLibraryLoad, tried)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}
