package konserve

import (
	"fmt"
	"time"

	"github.com/replikativ/konserve-lmdb/codec"
	"github.com/replikativ/konserve-lmdb/errs"
)

// Metadata field names spec.md §3 fixes for wrapped records.
const (
	metaType        = "type"
	metaLastWrite   = "last-write"
	metaKey         = "key"
	metaCompression = "compression"
)

// Record field names (spec.md §3, §6): meta always precedes value.
const (
	fieldMeta  = "meta"
	fieldValue = "value"
)

// Metadata type tags (spec.md §3).
const (
	TypeEDN    = "edn"
	TypeBinary = "binary"
)

// newMeta builds the default metadata map a fresh wrapped write attaches:
// a symbolic type tag, the write timestamp, and the user key.
func newMeta(key any, typeTag string) *codec.Map {
	return codec.NewMap(3).
		Set(metaType, codec.Keyword{Name: typeTag}).
		Set(metaLastWrite, time.Now()).
		Set(metaKey, key)
}

// wrapRecord builds the two-field {meta, value} record spec.md §3 and §6
// fix the layout of: meta always precedes value.
func wrapRecord(meta *codec.Map, value any) *codec.Map {
	return codec.NewMap(2).Set(fieldMeta, meta).Set(fieldValue, value)
}

// encodeRecord encodes a wrapped record using the store's registry and
// buffer pool (spec.md §4.C1: every write path must go through the pool).
func (s *Store) encodeRecord(meta *codec.Map, value any) ([]byte, error) {
	return s.encode(wrapRecord(meta, value))
}

// decodeRecord decodes a wrapped record and splits it into its meta and
// value fields. It returns a *errs.CrossAPIError when data does not carry
// a meta field, i.e. it was written through the raw API (spec.md §7.6).
func (s *Store) decodeRecord(key any, data []byte) (meta *codec.Map, value any, err error) {
	v, err := codec.DecodeWithRegistry(data, s.registry)
	if err != nil {
		return nil, nil, err
	}

	m, ok := v.(*codec.Map)
	if !ok {
		return nil, nil, s.crossAPIError(key, data)
	}

	metaVal, hasMeta := m.Get(fieldMeta)
	if !hasMeta {
		return nil, nil, s.crossAPIError(key, data)
	}

	value, _ = m.Get(fieldValue)
	if metaVal == nil {
		return nil, value, nil
	}

	meta, ok = metaVal.(*codec.Map)
	if !ok {
		return nil, nil, s.crossAPIError(key, data)
	}

	return meta, value, nil
}

// decodeMeta runs the metadata-only projection (spec.md §4.C2) over a
// wrapped record, never touching the value field.
func (s *Store) decodeMeta(key any, data []byte) (*codec.Map, error) {
	v, ok, err := codec.DecodeMeta(data)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.crossAPIError(key, data)
	}
	if v == nil {
		return nil, nil
	}

	meta, ok := v.(*codec.Map)
	if !ok {
		return nil, s.crossAPIError(key, data)
	}

	return meta, nil
}

func (s *Store) crossAPIError(key any, data []byte) error {
	names, _ := codec.FieldNames(data)

	return &errs.CrossAPIError{Key: key, Fields: names}
}

func (s *Store) encodeKey(key any) ([]byte, error) {
	b, err := s.encode(key)
	if err != nil {
		return nil, fmt.Errorf("konserve: encoding key: %w", err)
	}

	return b, nil
}

func (s *Store) decodeKey(data []byte) (any, error) {
	return codec.DecodeWithRegistry(data, s.registry)
}
