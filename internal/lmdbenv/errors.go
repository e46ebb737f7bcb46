package lmdbenv

import (
	"errors"

	"github.com/bmatsuo/lmdb-go/lmdb"

	"github.com/replikativ/konserve-lmdb/errs"
)

// translateErr converts an error returned by the lmdb package into the
// store's error vocabulary (spec.md §7). MDB_NOTFOUND is reported as a
// miss (found=false, err=nil), never as an error, matching spec.md §7.1.
func translateErr(op string, err error) (found bool, out error) {
	if err == nil {
		return true, nil
	}
	if lmdb.IsNotFound(err) {
		return false, nil
	}

	var opErr *lmdb.OpError
	if errors.As(err, &opErr) {
		return false, &errs.LMDBError{Op: op, Code: int(opErr.Errno), Msg: opErr.Errno.Error()}
	}

	return false, &errs.LMDBError{Op: op, Code: -1, Msg: err.Error()}
}
