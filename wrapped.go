package konserve

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/bmatsuo/lmdb-go/lmdb"
	"github.com/google/uuid"

	"github.com/replikativ/konserve-lmdb/codec"
	"github.com/replikativ/konserve-lmdb/compress"
	"github.com/replikativ/konserve-lmdb/errs"
	"github.com/replikativ/konserve-lmdb/format"
	"github.com/replikativ/konserve-lmdb/internal/txn"
)

// typeAppendLog is the reserved metadata type tag keys-enum filters out
// by default (spec.md §4.C6 keys-enum), owned by an external append-log
// subsystem this store does not itself implement.
const typeAppendLog = "append-log"

func timeNow() time.Time { return time.Now() }

func isUUIDKey(key any) bool {
	_, ok := key.(uuid.UUID)

	return ok
}

// Exists reports whether key is present, under a read-only transaction.
func (s *Store) Exists(key any) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	k, err := s.encodeKey(key)
	if err != nil {
		return false, err
	}

	var found bool
	err = txn.View(s.env, func(t *lmdb.Txn) error {
		_, f, err := s.env.Get(t, k)
		found = f

		return err
	})

	return found, err
}

// GetIn reads the store value under keys[0] and walks keys[1:] into its
// decoded value, returning defaultVal if the record or any path segment
// is missing (spec.md §4.C6 get-in).
func (s *Store) GetIn(keys []any, defaultVal any) (any, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return defaultVal, nil
	}

	key, rest := keys[0], keys[1:]

	k, err := s.encodeKey(key)
	if err != nil {
		return nil, err
	}

	var result any = defaultVal
	err = txn.View(s.env, func(t *lmdb.Txn) error {
		data, found, err := s.env.Get(t, k)
		if err != nil || !found {
			return err
		}

		_, value, err := s.decodeRecord(key, data)
		if err != nil {
			return err
		}

		if v, ok := navigate(value, rest); ok {
			result = v
		}

		return nil
	})

	return result, err
}

// GetMeta runs the metadata-only projection over key's record without
// ever decoding its value (spec.md §4.C6 get-meta).
func (s *Store) GetMeta(key any) (*codec.Map, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	k, err := s.encodeKey(key)
	if err != nil {
		return nil, err
	}

	var meta *codec.Map
	err = txn.View(s.env, func(t *lmdb.Txn) error {
		data, found, err := s.env.Get(t, k)
		if err != nil || !found {
			return err
		}

		meta, err = s.decodeMeta(key, data)

		return err
	})

	return meta, err
}

// MetaUpdater transforms a record's metadata on a read-modify-write; old
// is nil if the record did not previously exist.
type MetaUpdater func(old *codec.Map) *codec.Map

func applyMetaUpdater(key any, typeTag string, old *codec.Map, updater MetaUpdater) *codec.Map {
	if updater != nil {
		return updater(old)
	}
	if old != nil {
		return old.Clone().Set(metaLastWrite, timeNow())
	}

	return newMeta(key, typeTag)
}

// AssocIn atomically reads the record under keys[0], replaces the value
// reached by walking keys[1:] with val, and writes the record back
// (spec.md §4.C6 assoc-in). When keys has exactly one element the whole
// stored value is replaced. Returns the old and new top-level values.
func (s *Store) AssocIn(keys []any, updater MetaUpdater, val any) (oldVal, newVal any, err error) {
	if err := s.checkOpen(); err != nil {
		return nil, nil, err
	}
	if len(keys) == 0 {
		return nil, nil, errs.ErrPathNotFound
	}

	key, rest := keys[0], keys[1:]

	k, err := s.encodeKey(key)
	if err != nil {
		return nil, nil, err
	}

	err = txn.ReadModifyWrite(s.env,
		func(t *lmdb.Txn) (readResult, error) {
			return s.readRecord(t, key, k)
		},
		func(t *lmdb.Txn, old readResult) error {
			if old.err != nil {
				return old.err
			}

			oldVal = old.value

			newVal, err = assocIn(old.value, rest, val)
			if err != nil {
				return err
			}

			meta := applyMetaUpdater(key, TypeEDN, old.meta, updater)
			data, err := s.encodeRecord(meta, newVal)
			if err != nil {
				return err
			}

			return s.env.PutStaged(t, k, data)
		},
	)

	return oldVal, newVal, err
}

// UpdateIn is AssocIn but the replacement sub-value is fn applied to the
// current sub-value (nil if absent), matching spec.md §4.C6 update-in.
func (s *Store) UpdateIn(keys []any, updater MetaUpdater, fn func(old any) any) (oldVal, newVal any, err error) {
	if err := s.checkOpen(); err != nil {
		return nil, nil, err
	}
	if len(keys) == 0 {
		return nil, nil, errs.ErrPathNotFound
	}

	key, rest := keys[0], keys[1:]

	k, err := s.encodeKey(key)
	if err != nil {
		return nil, nil, err
	}

	err = txn.ReadModifyWrite(s.env,
		func(t *lmdb.Txn) (readResult, error) {
			return s.readRecord(t, key, k)
		},
		func(t *lmdb.Txn, old readResult) error {
			if old.err != nil {
				return old.err
			}

			oldVal = old.value

			current, _ := navigate(old.value, rest)
			replacement := fn(current)

			newVal, err = assocIn(old.value, rest, replacement)
			if err != nil {
				return err
			}

			meta := applyMetaUpdater(key, TypeEDN, old.meta, updater)
			data, err := s.encodeRecord(meta, newVal)
			if err != nil {
				return err
			}

			return s.env.PutStaged(t, k, data)
		},
	)

	return oldVal, newVal, err
}

// Dissoc deletes key's record, reporting whether it existed.
func (s *Store) Dissoc(key any) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	k, err := s.encodeKey(key)
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
// omitting any that are missing, and returns only each record's value
// field (spec.md §4.C6 multi-get).
func (s *Store) MultiGet(keys []any) (map[any]any, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	out := make(map[any]any, len(keys))

	err := txn.View(s.env, func(t *lmdb.Txn) error {
		for _, key := range keys {
			k, err := s.encodeKey(key)
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

			_, value, err := s.decodeRecord(key, data)
			if err != nil {
				return err
			}

			out[key] = value
		}

		return nil
	})

	return out, err
}

// MultiAssocMetaUpdater receives the key, the record's logical type tag,
// and its old metadata (nil if the record is new) — an asymmetric
// signature from MetaUpdater because multi-assoc writes many distinct
// keys in the one transaction and needs to tell them apart
// (SPEC_FULL §4, spec.md §9 Open Questions).
type MultiAssocMetaUpdater func(key any, typeTag string, old *codec.Map) *codec.Map

// MultiAssoc writes every entry of kvs in a single write transaction,
// applying updater to each key's old metadata (spec.md §4.C6
// multi-assoc). Returns true for every key, since a write transaction
// either commits all of them or none.
func (s *Store) MultiAssoc(kvs map[any]any, updater MultiAssocMetaUpdater) (map[any]bool, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	out := make(map[any]bool, len(kvs))

	err := txn.Update(s.env, func(t *lmdb.Txn) error {
		for key, val := range kvs {
			k, err := s.encodeKey(key)
			if err != nil {
				return err
			}

			old, err := s.readRecord(t, key, k)
			if err != nil {
				return err
			}
			if old.err != nil {
				return old.err
			}

			var meta *codec.Map
			if updater != nil {
				meta = updater(key, TypeEDN, old.meta)
			} else {
				meta = applyMetaUpdater(key, TypeEDN, old.meta, nil)
			}

			data, err := s.encodeRecord(meta, val)
			if err != nil {
				return err
			}

			if err := s.env.PutStaged(t, k, data); err != nil {
				return err
			}

			out[key] = true
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// MultiDissoc deletes every key in a single write transaction, reporting
// per key whether it existed.
func (s *Store) MultiDissoc(keys []any) (map[any]bool, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	out := make(map[any]bool, len(keys))

	err := txn.Update(s.env, func(t *lmdb.Txn) error {
		for _, key := range keys {
			k, err := s.encodeKey(key)
			if err != nil {
				return err
			}

			existed, err := s.env.Delete(t, k)
			if err != nil {
				return err
			}

			out[key] = existed
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// KeysEnumEntry is one row of a KeysEnum walk.
type KeysEnumEntry struct {
	Key       any
	Type      string
	LastWrite any
}

// KeysEnum walks every key with a cursor, running the metadata-only
// projection on each (spec.md §4.C6 keys-enum). By default it filters
// out UUID keys whose metadata type is append-log, reserved for an
// external append-log subsystem; set includeAppendLog to see them too
// (spec.md §9 Open Questions, resolved opt-in in SPEC_FULL §4).
func (s *Store) KeysEnum(includeAppendLog bool) ([]KeysEnumEntry, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var entries []KeysEnumEntry

	err := txn.View(s.env, func(t *lmdb.Txn) error {
		cur, err := s.env.Cursor(t)
		if err != nil {
			return err
		}
		defer cur.Close()

		for {
			kBytes, vBytes, err := cur.Get(nil, nil, lmdb.Next)
			if lmdb.IsNotFound(err) {
				break
			}
			if err != nil {
				return err
			}

			key, err := s.decodeKey(kBytes)
			if err != nil {
				return err
			}

			meta, err := s.decodeMeta(key, vBytes)
			if err != nil {
				var crossAPI *errs.CrossAPIError
				if errors.As(err, &crossAPI) {
					continue
				}

				return err
			}

			typeTag := ""
			if tv, ok := meta.Get(metaType); ok {
				if kw, ok := tv.(codec.Keyword); ok {
					typeTag = kw.Name
				}
			}

			if !includeAppendLog && typeTag == typeAppendLog && isUUIDKey(key) {
				continue
			}

			lastWrite, _ := meta.Get(metaLastWrite)

			entries = append(entries, KeysEnumEntry{Key: key, Type: typeTag, LastWrite: lastWrite})
		}

		return nil
	})

	return entries, err
}

// BGet reads key's record, requires its value to be raw bytes (optionally
// reversing bassoc's compression), and invokes sink with the decoded
// bytes (spec.md §4.C6 bget).
func (s *Store) BGet(key any, sink func(data []byte)) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	k, err := s.encodeKey(key)
	if err != nil {
		return err
	}

	return txn.View(s.env, func(t *lmdb.Txn) error {
		data, found, err := s.env.Get(t, k)
		if err != nil || !found {
			return err
		}

		meta, value, err := s.decodeRecord(key, data)
		if err != nil {
			return err
		}

		raw, ok := value.([]byte)
		if !ok {
			return errs.ErrUnsupportedBinaryInput
		}

		if ct, ok := meta.Get(metaCompression); ok {
			codecImpl, err := compress.GetCodec(format.CompressionType(ct.(int64)))
			if err != nil {
				return err
			}

			raw, err = codecImpl.Decompress(raw)
			if err != nil {
				return err
			}
		}

		sink(raw)

		return nil
	})
}

// BAssoc coerces value to bytes (accepted shapes: []byte, string,
// io.Reader, or a filesystem path string read whole) and stores
// {meta, bytes} atomically, optionally compressing the payload with the
// store's configured compression (spec.md §4.C6 bassoc).
func (s *Store) BAssoc(key any, updater MetaUpdater, value any) (oldVal, newBytes any, err error) {
	if err := s.checkOpen(); err != nil {
		return nil, nil, err
	}

	raw, err := coerceBytes(value)
	if err != nil {
		return nil, nil, err
	}

	stored := raw
	if s.compression != format.CompressionNone {
		codecImpl, err := compress.GetCodec(s.compression)
		if err != nil {
			return nil, nil, err
		}

		stored, err = codecImpl.Compress(raw)
		if err != nil {
			return nil, nil, err
		}
	}

	k, err := s.encodeKey(key)
	if err != nil {
		return nil, nil, err
	}

	err = txn.ReadModifyWrite(s.env,
		func(t *lmdb.Txn) (readResult, error) {
			return s.readRecord(t, key, k)
		},
		func(t *lmdb.Txn, old readResult) error {
			if old.err != nil {
				return old.err
			}

			oldVal = old.value

			meta := applyMetaUpdater(key, TypeBinary, old.meta, updater)
			if s.compression != format.CompressionNone {
				meta = meta.Clone().Set(metaCompression, int64(s.compression))
			}

			data, err := s.encodeRecord(meta, stored)
			if err != nil {
				return err
			}

			newBytes = stored

			return s.env.PutStaged(t, k, data)
		},
	)

	return oldVal, newBytes, err
}

// coerceBytes implements bassoc's documented input coercion: raw bytes
// pass through, a string is treated as a filesystem path if it names an
// existing file and otherwise as UTF-8 text, and an io.Reader is drained.
func coerceBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		if info, err := os.Stat(v); err == nil && !info.IsDir() {
			return os.ReadFile(v)
		}

		return []byte(v), nil
	case io.Reader:
		return io.ReadAll(v)
	default:
		return nil, errs.ErrUnsupportedBinaryInput
	}
}

// readResult is the shape ReadModifyWrite's read phase hands to its
// write phase for the composite wrapped operations.
type readResult struct {
	meta  *codec.Map
	value any
	err   error
}

// readRecord reads key's current record, if any, tolerating a missing
// key as a zero readResult rather than an error.
func (s *Store) readRecord(t *lmdb.Txn, key any, encodedKey []byte) (readResult, error) {
	data, found, err := s.env.Get(t, encodedKey)
	if err != nil {
		return readResult{}, err
	}
	if !found {
		return readResult{}, nil
	}

	meta, value, err := s.decodeRecord(key, data)
	if err != nil {
		return readResult{err: err}, nil
	}

	return readResult{meta: meta, value: value}, nil
}
