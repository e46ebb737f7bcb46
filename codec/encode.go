package codec

import (
	"errors"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/replikativ/konserve-lmdb/endian"
	"github.com/replikativ/konserve-lmdb/errs"
	"github.com/replikativ/konserve-lmdb/format"
	"github.com/replikativ/konserve-lmdb/internal/pool"
)

// MaxDepth bounds how deeply Encode and Decode will follow nested
// sequences, maps and sets before giving up (spec.md §9 supplement: the
// source had no such guard, which let a pathologically nested value
// recurse the process into a stack overflow instead of a clean error).
const MaxDepth = 64

// maxEncodedSize is the hard ceiling the size-budgeted encode driver
// enforces (spec.md §4.C2, §8).
const maxEncodedSize = 256 * 1024 * 1024

var bigEndian = endian.GetBigEndianEngine()

// Encode writes v's tagged wire representation, growing the working
// buffer by 10x on overflow starting from pool.DefaultSize, and failing
// with errs.ErrEncodeOverflow once maxEncodedSize is exceeded. Each call
// allocates its own working buffer; EncodeWithPool is the pooled
// equivalent a Store uses on its write path.
func Encode(v any) ([]byte, error) {
	return EncodeWithRegistry(v, nil)
}

// EncodeWithRegistry is Encode, additionally consulting reg for any value
// that has no built-in case.
func EncodeWithRegistry(v any, reg *Registry) ([]byte, error) {
	return encodeSized(v, reg,
		func(n int) *pool.Buffer { return &pool.Buffer{B: make([]byte, 0, n)} },
		func(*pool.Buffer) {},
	)
}

// EncodeWithPool is EncodeWithRegistry, drawing its working buffer from p
// (spec.md §4.C1) instead of allocating fresh each call, and returning it
// to p on every exit path, including encode overflow.
func EncodeWithPool(v any, reg *Registry, p *pool.Pool) ([]byte, error) {
	return encodeSized(v, reg, p.Acquire, p.Release)
}

func encodeSized(v any, reg *Registry, acquire func(int) *pool.Buffer, release func(*pool.Buffer)) ([]byte, error) {
	size := pool.DefaultSize

	for {
		buf := acquire(size)

		err := encodeValue(buf, v, reg, 0)
		if err == nil {
			out := make([]byte, buf.Len())
			copy(out, buf.Bytes())
			release(buf)

			return out, nil
		}

		release(buf)

		if !errors.Is(err, errs.ErrEncodeOverflow) {
			return nil, err
		}
		if size >= maxEncodedSize {
			return nil, err
		}

		size *= 10
		if size > maxEncodedSize {
			size = maxEncodedSize
		}
	}
}

func encodeValue(buf *pool.Buffer, v any, reg *Registry, depth int) error {
	if depth > depthLimit(reg) {
		return errs.ErrMaxDepthExceeded
	}

	switch val := v.(type) {
	case nil:
		return tagByte(buf, format.TagNil)
	case bool:
		if val {
			return tagByte(buf, format.TagTrue)
		}

		return tagByte(buf, format.TagFalse)
	case int:
		return encodeInt64(buf, int64(val))
	case int64:
		return encodeInt64(buf, val)
	case int32:
		return encodeInt32(buf, val)
	case int16:
		return encodeInt16(buf, val)
	case int8:
		return encodeInt8(buf, val)
	case float64:
		return encodeFloat64(buf, val)
	case float32:
		return encodeFloat32(buf, val)
	case string:
		return encodeBlob(buf, format.TagString, []byte(val))
	case []byte:
		return encodeBlob(buf, format.TagBytes, val)
	case Keyword:
		return encodeNamespaced(buf, format.TagKeyword, val.Namespace, val.Name)
	case Symbol:
		return encodeNamespaced(buf, format.TagSymbol, val.Namespace, val.Name)
	case Char:
		if err := tagByte(buf, format.TagChar); err != nil {
			return err
		}

		return overflowIf(tryAppendUint16(buf, uint16(val)))
	case uuid.UUID:
		if err := tagByte(buf, format.TagUUID); err != nil {
			return err
		}

		return overflowIf(buf.TryWrite(val[:]))
	case time.Time:
		if err := tagByte(buf, format.TagInstant); err != nil {
			return err
		}

		return overflowIf(tryAppendUint64(buf, uint64(val.UnixMilli())))
	case *big.Int:
		if err := tagByte(buf, format.TagBigInt); err != nil {
			return err
		}

		return encodeBigIntBody(buf, val)
	case *big.Rat:
		if err := tagByte(buf, format.TagRatio); err != nil {
			return err
		}
		if err := encodeBigIntBody(buf, val.Num()); err != nil {
			return err
		}

		return encodeBigIntBody(buf, val.Denom())
	case Decimal:
		if err := tagByte(buf, format.TagDecimal); err != nil {
			return err
		}
		if err := overflowIf(tryAppendUint32(buf, uint32(val.Scale))); err != nil {
			return err
		}

		return encodeBigIntBody(buf, val.Unscaled)
	case []any:
		return encodeSeq(buf, val, reg, depth)
	case *Map:
		return encodeMap(buf, val, reg, depth)
	case *Set:
		return encodeSet(buf, val, reg, depth)
	case []int16:
		return encodeInt16Array(buf, val)
	case []int32:
		return encodeInt32Array(buf, val)
	case []int64:
		return encodeInt64Array(buf, val)
	case []float32:
		return encodeFloat32Array(buf, val)
	case []float64:
		return encodeFloat64Array(buf, val)
	case []bool:
		return encodeBoolArray(buf, val)
	case []Char:
		return encodeCharArray(buf, val)
	default:
		if h, ok := reg.byValue(v); ok {
			return encodeHandler(buf, h, v, reg, depth)
		}

		return &errs.UnsupportedTypeError{Value: v}
	}
}

// tagByte writes a single tag byte, reporting overflow the same way every
// other write in this file does.
func tagByte(buf *pool.Buffer, t format.Tag) error {
	return overflowIf(buf.TryWriteByte(byte(t)))
}

func overflowIf(ok bool) error {
	if ok {
		return nil
	}

	return errs.ErrEncodeOverflow
}

func tryAppendUint16(buf *pool.Buffer, v uint16) bool {
	if buf.Headroom() < 2 {
		return false
	}

	buf.B = bigEndian.AppendUint16(buf.B, v)

	return true
}

func tryAppendUint32(buf *pool.Buffer, v uint32) bool {
	if buf.Headroom() < 4 {
		return false
	}

	buf.B = bigEndian.AppendUint32(buf.B, v)

	return true
}

func tryAppendUint64(buf *pool.Buffer, v uint64) bool {
	if buf.Headroom() < 8 {
		return false
	}

	buf.B = bigEndian.AppendUint64(buf.B, v)

	return true
}

func encodeInt64(buf *pool.Buffer, v int64) error {
	if err := tagByte(buf, format.TagInt64); err != nil {
		return err
	}

	return overflowIf(tryAppendUint64(buf, uint64(v)))
}

func encodeInt32(buf *pool.Buffer, v int32) error {
	if err := tagByte(buf, format.TagInt32); err != nil {
		return err
	}

	return overflowIf(tryAppendUint32(buf, uint32(v)))
}

func encodeInt16(buf *pool.Buffer, v int16) error {
	if err := tagByte(buf, format.TagInt16); err != nil {
		return err
	}

	return overflowIf(tryAppendUint16(buf, uint16(v)))
}

func encodeInt8(buf *pool.Buffer, v int8) error {
	if err := tagByte(buf, format.TagInt8); err != nil {
		return err
	}

	return overflowIf(buf.TryWriteByte(byte(v)))
}

func encodeFloat64(buf *pool.Buffer, v float64) error {
	if err := tagByte(buf, format.TagFloat64); err != nil {
		return err
	}

	return overflowIf(tryAppendUint64(buf, math.Float64bits(v)))
}

func encodeFloat32(buf *pool.Buffer, v float32) error {
	if err := tagByte(buf, format.TagFloat32); err != nil {
		return err
	}

	return overflowIf(tryAppendUint32(buf, math.Float32bits(v)))
}

// encodeBlob writes a 4-byte big-endian length prefix followed by data.
func encodeBlob(buf *pool.Buffer, t format.Tag, data []byte) error {
	if err := tagByte(buf, t); err != nil {
		return err
	}
	if err := overflowIf(tryAppendUint32(buf, uint32(len(data)))); err != nil {
		return err
	}

	return overflowIf(buf.TryWrite(data))
}

// encodeNamespaced writes a keyword/symbol body: a single length-prefixed
// blob holding "ns/name", or just "name" when there is no namespace
// (spec.md §4.C2 canonical form).
func encodeNamespaced(buf *pool.Buffer, t format.Tag, ns, name string) error {
	if err := tagByte(buf, t); err != nil {
		return err
	}

	joined := name
	if ns != "" {
		joined = ns + "/" + name
	}

	if err := overflowIf(tryAppendUint32(buf, uint32(len(joined)))); err != nil {
		return err
	}

	return overflowIf(buf.TryWrite([]byte(joined)))
}

// encodeBigIntBody writes a sign byte (0 zero, 1 positive, 2 negative)
// followed by a length-prefixed big-endian magnitude. It is shared by
// TagBigInt, TagDecimal and TagRatio.
func encodeBigIntBody(buf *pool.Buffer, v *big.Int) error {
	sign := byte(1)

	switch v.Sign() {
	case 0:
		sign = 0
	case -1:
		sign = 2
	}

	if err := overflowIf(buf.TryWriteByte(sign)); err != nil {
		return err
	}

	mag := v.Bytes()
	if err := overflowIf(tryAppendUint32(buf, uint32(len(mag)))); err != nil {
		return err
	}

	return overflowIf(buf.TryWrite(mag))
}

func encodeSeq(buf *pool.Buffer, items []any, reg *Registry, depth int) error {
	if err := tagByte(buf, format.TagSeq); err != nil {
		return err
	}
	if err := overflowIf(tryAppendUint32(buf, uint32(len(items)))); err != nil {
		return err
	}

	for _, item := range items {
		if err := encodeValue(buf, item, reg, depth+1); err != nil {
			return err
		}
	}

	return nil
}

func encodeMap(buf *pool.Buffer, m *Map, reg *Registry, depth int) error {
	if err := tagByte(buf, format.TagMap); err != nil {
		return err
	}
	if err := overflowIf(tryAppendUint32(buf, uint32(m.Len()))); err != nil {
		return err
	}

	var encErr error
	m.Range(func(k, v any) bool {
		if err := encodeValue(buf, k, reg, depth+1); err != nil {
			encErr = err

			return false
		}
		if err := encodeValue(buf, v, reg, depth+1); err != nil {
			encErr = err

			return false
		}

		return true
	})

	return encErr
}

func encodeSet(buf *pool.Buffer, s *Set, reg *Registry, depth int) error {
	if err := tagByte(buf, format.TagSet); err != nil {
		return err
	}
	if err := overflowIf(tryAppendUint32(buf, uint32(len(s.Items)))); err != nil {
		return err
	}

	for _, item := range s.Items {
		if err := encodeValue(buf, item, reg, depth+1); err != nil {
			return err
		}
	}

	return nil
}

func encodeInt16Array(buf *pool.Buffer, vals []int16) error {
	if err := tagByte(buf, format.TagInt16Arr); err != nil {
		return err
	}
	if err := overflowIf(tryAppendUint32(buf, uint32(len(vals)))); err != nil {
		return err
	}
	for _, v := range vals {
		if err := overflowIf(tryAppendUint16(buf, uint16(v))); err != nil {
			return err
		}
	}

	return nil
}

func encodeInt32Array(buf *pool.Buffer, vals []int32) error {
	if err := tagByte(buf, format.TagInt32Arr); err != nil {
		return err
	}
	if err := overflowIf(tryAppendUint32(buf, uint32(len(vals)))); err != nil {
		return err
	}
	for _, v := range vals {
		if err := overflowIf(tryAppendUint32(buf, uint32(v))); err != nil {
			return err
		}
	}

	return nil
}

func encodeInt64Array(buf *pool.Buffer, vals []int64) error {
	if err := tagByte(buf, format.TagInt64Arr); err != nil {
		return err
	}
	if err := overflowIf(tryAppendUint32(buf, uint32(len(vals)))); err != nil {
		return err
	}
	for _, v := range vals {
		if err := overflowIf(tryAppendUint64(buf, uint64(v))); err != nil {
			return err
		}
	}

	return nil
}

func encodeFloat32Array(buf *pool.Buffer, vals []float32) error {
	if err := tagByte(buf, format.TagF32Arr); err != nil {
		return err
	}
	if err := overflowIf(tryAppendUint32(buf, uint32(len(vals)))); err != nil {
		return err
	}
	for _, v := range vals {
		if err := overflowIf(tryAppendUint32(buf, math.Float32bits(v))); err != nil {
			return err
		}
	}

	return nil
}

func encodeFloat64Array(buf *pool.Buffer, vals []float64) error {
	if err := tagByte(buf, format.TagF64Arr); err != nil {
		return err
	}
	if err := overflowIf(tryAppendUint32(buf, uint32(len(vals)))); err != nil {
		return err
	}
	for _, v := range vals {
		if err := overflowIf(tryAppendUint64(buf, math.Float64bits(v))); err != nil {
			return err
		}
	}

	return nil
}

func encodeBoolArray(buf *pool.Buffer, vals []bool) error {
	if err := tagByte(buf, format.TagBoolArr); err != nil {
		return err
	}
	if err := overflowIf(tryAppendUint32(buf, uint32(len(vals)))); err != nil {
		return err
	}
	for _, v := range vals {
		b := byte(0)
		if v {
			b = 1
		}
		if err := overflowIf(buf.TryWriteByte(b)); err != nil {
			return err
		}
	}

	return nil
}

func encodeCharArray(buf *pool.Buffer, vals []Char) error {
	if err := tagByte(buf, format.TagCharArr); err != nil {
		return err
	}
	if err := overflowIf(tryAppendUint32(buf, uint32(len(vals)))); err != nil {
		return err
	}
	for _, v := range vals {
		if err := overflowIf(tryAppendUint16(buf, uint16(v))); err != nil {
			return err
		}
	}

	return nil
}

func encodeHandler(buf *pool.Buffer, h Handler, v any, reg *Registry, depth int) error {
	if err := overflowIf(buf.TryWriteByte(h.Tag)); err != nil {
		return err
	}

	nested := func(b *pool.Buffer, val any) error {
		return encodeValue(b, val, reg, depth+1)
	}

	return h.EncodeBody(buf, v, nested)
}
