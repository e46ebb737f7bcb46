// Package txn implements the store's transaction facade (spec.md §4.C5):
// scoped read/write transactions over an internal/lmdbenv.Env, and the
// atomic read-modify-write helper assoc-in/update-in/bassoc share.
package txn

import (
	"github.com/bmatsuo/lmdb-go/lmdb"

	"github.com/replikativ/konserve-lmdb/internal/lmdbenv"
)

// View runs fn inside a read-only transaction. The transaction is always
// aborted at scope exit (never committed, per spec.md §4.C5's documented
// discipline for read-only transactions) regardless of whether fn
// returns an error. Any zero-copy byte slice fn hands back through its
// closure must not be read after View returns.
func View(env *lmdbenv.Env, fn func(txn *lmdb.Txn) error) error {
	return env.Raw().View(fn)
}

// Update runs fn inside a single read-write transaction. The transaction
// commits if fn returns nil and aborts (discarding every write fn made)
// if fn returns an error. LMDB allows at most one live write transaction
// per environment; concurrent Update calls block until the current
// holder commits or aborts.
func Update(env *lmdbenv.Env, fn func(txn *lmdb.Txn) error) error {
	return env.Raw().Update(fn)
}

// ReadModifyWrite runs read inside the same write transaction as write,
// giving read's result to write unchanged. Because LMDB serializes
// writers, no interleaving transaction can change what read observed
// before write runs, so composite operations built on this helper
// (assoc-in, update-in, bassoc) are atomic without any user-space
// locking. Multi-assoc gets the same guarantee by reading and writing
// every key inside one Update call.
func ReadModifyWrite[T any](env *lmdbenv.Env, read func(txn *lmdb.Txn) (T, error), write func(txn *lmdb.Txn, old T) error) error {
	return Update(env, func(t *lmdb.Txn) error {
		old, err := read(t)
		if err != nil {
			return err
		}

		return write(t, old)
	})
}
