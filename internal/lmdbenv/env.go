package lmdbenv

import (
	"fmt"
	"log"
	"os"

	"github.com/bmatsuo/lmdb-go/lmdb"

	"github.com/replikativ/konserve-lmdb/internal/options"
)

// Env owns one LMDB environment, its default database handle, and the
// per-environment descriptor pool spec.md §3 scopes to it.
type Env struct {
	env  *lmdb.Env
	dbi  lmdb.DBI
	path string

	Descriptors *DescriptorPool
}

// Open opens an existing environment at path. It fails if the directory
// does not exist; callers implementing store connect/create semantics
// check that before calling Open or Create.
func Open(path string, opts ...Option) (*Env, error) {
	return open(path, false, opts)
}

// Create opens path, creating the directory (and the database within it)
// if absent.
func Create(path string, opts ...Option) (*Env, error) {
	return open(path, true, opts)
}

func open(path string, create bool, opts []Option) (*Env, error) {
	cfg := newConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	if p, err := resolveLibrary(cfg); err != nil {
		log.Printf("konserve-lmdb: liblmdb preflight: %v (continuing: lmdb-go links LMDB statically)", err)
	} else {
		_ = p // resolved path is informational only; see resolveLibrary's doc comment
	}

	env, err := lmdb.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("lmdbenv: new environment: %w", err)
	}

	if err := env.SetMapSize(cfg.MapSize); err != nil {
		return nil, fmt.Errorf("lmdbenv: set map size: %w", err)
	}
	if err := env.SetMaxDBs(1); err != nil {
		return nil, fmt.Errorf("lmdbenv: set max dbs: %w", err)
	}

	flags := cfg.lmdbFlags()
	if create {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("lmdbenv: create directory: %w", err)
		}
	}

	if err := env.Open(path, flags, 0o644); err != nil {
		return nil, fmt.Errorf("lmdbenv: open %q: %w", path, err)
	}

	e := &Env{env: env, path: path, Descriptors: NewDescriptorPool()}

	dbiFlags := uint(0)
	if cfg.Flags&Readonly == 0 {
		dbiFlags = lmdb.Create
	}

	openRoot := func(txn *lmdb.Txn) error {
		dbi, err := txn.OpenRoot(dbiFlags)
		if err != nil {
			return err
		}
		e.dbi = dbi

		return nil
	}

	if cfg.Flags&Readonly != 0 {
		err = env.View(openRoot)
	} else {
		err = env.Update(openRoot)
	}
	if err != nil {
		_ = env.Close()

		return nil, fmt.Errorf("lmdbenv: open root database: %w", err)
	}

	return e, nil
}

// DBI returns the default database handle.
func (e *Env) DBI() lmdb.DBI { return e.dbi }

// Raw returns the underlying *lmdb.Env, for the transaction facade.
func (e *Env) Raw() *lmdb.Env { return e.env }

// Path returns the directory the environment was opened against.
func (e *Env) Path() string { return e.path }

// Close closes the LMDB environment. Descriptors borrowed from this
// Env's pool become unreachable afterward; spec.md §3 relies on that to
// make per-environment descriptor scoping structural rather than advisory.
func (e *Env) Close() error {
	return e.env.Close()
}

// Get reads key inside txn. A missing key reports found=false with a nil
// error rather than propagating MDB_NOTFOUND (spec.md §7.1). The returned
// slice is a zero-copy view into the LMDB page cache valid only for the
// lifetime of txn.
func (e *Env) Get(txn *lmdb.Txn, key []byte) (val []byte, found bool, err error) {
	val, err = txn.Get(e.dbi, key)
	found, err = translateErr("get", err)

	if !found {
		return nil, false, err
	}

	return val, true, nil
}

// Put writes key/val inside txn, overwriting any existing value.
func (e *Env) Put(txn *lmdb.Txn, key, val []byte) error {
	_, err := translateErr("put", txn.Put(e.dbi, key, val, 0))

	return err
}

// PutStaged is Put, but first copies key and val into scratch buffers
// borrowed from the environment's descriptor pool (spec.md §4.C4's
// scratch-arena discipline) instead of handing the caller's freshly
// encoded slices straight across the cgo boundary. Both descriptors are
// returned to the pool before PutStaged returns, on every path.
func (e *Env) PutStaged(txn *lmdb.Txn, key, val []byte) error {
	kd := e.Descriptors.Acquire(len(key))
	kd.Data = append(kd.Data, key...)
	defer e.Descriptors.Release(kd)

	vd := e.Descriptors.Acquire(len(val))
	vd.Data = append(vd.Data, val...)
	defer e.Descriptors.Release(vd)

	return e.Put(txn, kd.Data, vd.Data)
}

// Delete removes key inside txn. found reports whether the key was
// present; deleting an absent key is not an error.
func (e *Env) Delete(txn *lmdb.Txn, key []byte) (found bool, err error) {
	err = txn.Del(e.dbi, key, nil)

	return translateErr("del", err)
}

// Cursor opens a cursor over the default database inside txn. Callers
// must Close it before txn ends.
func (e *Env) Cursor(txn *lmdb.Txn) (*lmdb.Cursor, error) {
	cur, err := txn.OpenCursor(e.dbi)
	if err != nil {
		return nil, fmt.Errorf("lmdbenv: open cursor: %w", err)
	}

	return cur, nil
}
