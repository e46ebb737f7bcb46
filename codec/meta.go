package codec

import (
	"github.com/replikativ/konserve-lmdb/errs"
	"github.com/replikativ/konserve-lmdb/format"
)

// DecodeMeta decodes only the leading "meta" field of a wrapped record
// (spec.md §4.C2), skipping the value payload that follows it entirely.
// Wrapped records are always encoded as a Map whose first entry key is
// the string "meta" (see Map's doc comment in value.go); when that does
// not hold, DecodeMeta reports ok=false so the caller can decide whether
// that is a cross-API record or simply a non-wrapped value.
func DecodeMeta(data []byte) (meta any, ok bool, err error) {
	if len(data) < 1 {
		return nil, false, errs.ErrTruncated
	}
	if format.Tag(data[0]) != format.TagMap {
		return nil, false, nil
	}

	body := data[1:]

	count, n, err := readUint32(body)
	if err != nil {
		return nil, false, err
	}
	if count == 0 {
		return nil, false, nil
	}

	key, kn, err := decodeValue(body[n:], nil, 0)
	if err != nil {
		return nil, false, err
	}

	if s, isString := key.(string); !isString || s != "meta" {
		return nil, false, nil
	}

	val, _, err := decodeValue(body[n+kn:], nil, 0)
	if err != nil {
		return nil, false, err
	}

	return val, true, nil
}

// FieldNames decodes a wrapped or raw record just far enough to report
// the top-level key names, for errs.CrossAPIError's diagnostic. It
// returns nil without error if data is not a Map.
func FieldNames(data []byte) ([]string, error) {
	if len(data) < 1 {
		return nil, errs.ErrTruncated
	}
	if format.Tag(data[0]) != format.TagMap {
		return nil, nil
	}

	v, _, err := decodeValue(data, nil, 0)
	if err != nil {
		return nil, err
	}

	m, ok := v.(*Map)
	if !ok {
		return nil, nil
	}

	names := make([]string, 0, m.Len())
	m.Range(func(k, _ any) bool {
		if s, isString := k.(string); isString {
			names = append(names, s)
		}

		return true
	})

	return names, nil
}
