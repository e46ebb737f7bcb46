package konserve

import (
	"github.com/replikativ/konserve-lmdb/codec"
	"github.com/replikativ/konserve-lmdb/errs"
)

// ErrPathNotFound is re-exported from errs for callers that only import
// the root package.
var ErrPathNotFound = errs.ErrPathNotFound

// navigate walks v through keys, returning the nested value found (or
// nil and false if any step is missing). A *codec.Map step looks
// keys up by Get; a []any step indexes by an int64 key; any other
// concrete value ends the walk early as a miss.
func navigate(v any, keys []any) (any, bool) {
	for _, k := range keys {
		switch node := v.(type) {
		case *codec.Map:
			val, ok := node.Get(k)
			if !ok {
				return nil, false
			}
			v = val

		case []any:
			idx, ok := k.(int64)
			if !ok || idx < 0 || int(idx) >= len(node) {
				return nil, false
			}
			v = node[idx]

		default:
			return nil, false
		}
	}

	return v, true
}

// assocIn returns a new tree equal to v except that the value reached by
// walking keys has been replaced by newVal, copy-on-write at every step
// the path touches (spec.md §2 assoc-in). Missing intermediate maps are
// created as needed; missing intermediate slice indices are not, since a
// sequence has no sparse-append semantics here.
func assocIn(v any, keys []any, newVal any) (any, error) {
	if len(keys) == 0 {
		return newVal, nil
	}

	head, rest := keys[0], keys[1:]

	switch node := v.(type) {
	case *codec.Map:
		child, _ := node.Get(head)
		updated, err := assocIn(child, rest, newVal)
		if err != nil {
			return nil, err
		}

		return node.Clone().Set(head, updated), nil

	case []any:
		idx, ok := head.(int64)
		if !ok || idx < 0 || int(idx) >= len(node) {
			return nil, ErrPathNotFound
		}

		child := node[idx]
		updated, err := assocIn(child, rest, newVal)
		if err != nil {
			return nil, err
		}

		out := make([]any, len(node))
		copy(out, node)
		out[idx] = updated

		return out, nil

	case nil:
		m := codec.NewMap(1)
		updated, err := assocIn(nil, rest, newVal)
		if err != nil {
			return nil, err
		}

		return m.Set(head, updated), nil

	default:
		return nil, ErrPathNotFound
	}
}
