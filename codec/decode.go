package codec

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/replikativ/konserve-lmdb/errs"
	"github.com/replikativ/konserve-lmdb/format"
)

// Decode reads one tagged value from the front of data. It returns an
// error if data holds anything other than exactly one encoded value.
func Decode(data []byte) (any, error) {
	return DecodeWithRegistry(data, nil)
}

// DecodeWithRegistry is Decode, additionally consulting reg for any tag
// outside the built-in table.
func DecodeWithRegistry(data []byte, reg *Registry) (any, error) {
	v, n, err := decodeValue(data, reg, 0)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing byte(s)", errs.ErrTruncated, len(data)-n)
	}

	return v, nil
}

// decodeValue reads one tagged value starting at data[0] and returns the
// value together with the number of bytes of data it consumed.
func decodeValue(data []byte, reg *Registry, depth int) (any, int, error) {
	if depth > depthLimit(reg) {
		return nil, 0, errs.ErrMaxDepthExceeded
	}
	if len(data) < 1 {
		return nil, 0, errs.ErrTruncated
	}

	t := format.Tag(data[0])
	body := data[1:]

	switch t {
	case format.TagNil:
		return nil, 1, nil
	case format.TagFalse:
		return false, 1, nil
	case format.TagTrue:
		return true, 1, nil
	case format.TagInt64:
		v, n, err := readUint64(body)

		return int64(v), 1 + n, err
	case format.TagInt32:
		v, n, err := readUint32(body)

		return int32(v), 1 + n, err
	case format.TagInt16:
		v, n, err := readUint16(body)

		return int16(v), 1 + n, err
	case format.TagInt8:
		if len(body) < 1 {
			return nil, 0, errs.ErrTruncated
		}

		return int8(body[0]), 2, nil
	case format.TagFloat64:
		v, n, err := readUint64(body)

		return math.Float64frombits(v), 1 + n, err
	case format.TagFloat32:
		v, n, err := readUint32(body)

		return math.Float32frombits(v), 1 + n, err
	case format.TagString:
		b, n, err := readBlob(body)
		if err != nil {
			return nil, 0, err
		}

		return string(b), 1 + n, nil
	case format.TagBytes:
		b, n, err := readBlob(body)
		if err != nil {
			return nil, 0, err
		}

		out := make([]byte, len(b))
		copy(out, b)

		return out, 1 + n, nil
	case format.TagKeyword:
		ns, name, n, err := readNamespaced(body)
		if err != nil {
			return nil, 0, err
		}

		return Keyword{Namespace: ns, Name: name}, 1 + n, nil
	case format.TagSymbol:
		ns, name, n, err := readNamespaced(body)
		if err != nil {
			return nil, 0, err
		}

		return Symbol{Namespace: ns, Name: name}, 1 + n, nil
	case format.TagUUID:
		if len(body) < 16 {
			return nil, 0, errs.ErrTruncated
		}

		var u uuid.UUID
		copy(u[:], body[:16])

		return u, 17, nil
	case format.TagInstant:
		v, n, err := readUint64(body)
		if err != nil {
			return nil, 0, err
		}

		return time.UnixMilli(int64(v)).UTC(), 1 + n, nil
	case format.TagChar:
		v, n, err := readUint16(body)

		return Char(v), 1 + n, err
	case format.TagBigInt:
		v, n, err := readBigInt(body)

		return v, 1 + n, err
	case format.TagDecimal:
		scale, n, err := readUint32(body)
		if err != nil {
			return nil, 0, err
		}

		v, vn, err := readBigInt(body[n:])
		if err != nil {
			return nil, 0, err
		}

		return Decimal{Scale: int32(scale), Unscaled: v}, 1 + n + vn, nil
	case format.TagRatio:
		num, n1, err := readBigInt(body)
		if err != nil {
			return nil, 0, err
		}

		den, n2, err := readBigInt(body[n1:])
		if err != nil {
			return nil, 0, err
		}

		return new(big.Rat).SetFrac(num, den), 1 + n1 + n2, nil
	case format.TagSeq:
		v, n, err := decodeSeq(body, reg, depth)

		return v, 1 + n, err
	case format.TagMap:
		v, n, err := decodeMap(body, reg, depth)

		return v, 1 + n, err
	case format.TagSet:
		v, n, err := decodeSet(body, reg, depth)

		return v, 1 + n, err
	case format.TagInt16Arr:
		v, n, err := decodeInt16Array(body)

		return v, 1 + n, err
	case format.TagInt32Arr:
		v, n, err := decodeInt32Array(body)

		return v, 1 + n, err
	case format.TagInt64Arr:
		v, n, err := decodeInt64Array(body)

		return v, 1 + n, err
	case format.TagF32Arr:
		v, n, err := decodeFloat32Array(body)

		return v, 1 + n, err
	case format.TagF64Arr:
		v, n, err := decodeFloat64Array(body)

		return v, 1 + n, err
	case format.TagBoolArr:
		v, n, err := decodeBoolArray(body)

		return v, 1 + n, err
	case format.TagCharArr:
		v, n, err := decodeCharArray(body)

		return v, 1 + n, err
	default:
		if h, ok := reg.byTagByte(byte(t)); ok {
			dec := func(d []byte) (any, int, error) {
				return decodeValue(d, reg, depth+1)
			}

			v, n, err := h.DecodeBody(body, reg.context(), dec)

			return v, 1 + n, err
		}

		return nil, 0, &errs.UnknownTagError{Tag: byte(t)}
	}
}

func readUint16(b []byte) (uint16, int, error) {
	if len(b) < 2 {
		return 0, 0, errs.ErrTruncated
	}

	return bigEndian.Uint16(b), 2, nil
}

func readUint32(b []byte) (uint32, int, error) {
	if len(b) < 4 {
		return 0, 0, errs.ErrTruncated
	}

	return bigEndian.Uint32(b), 4, nil
}

func readUint64(b []byte) (uint64, int, error) {
	if len(b) < 8 {
		return 0, 0, errs.ErrTruncated
	}

	return bigEndian.Uint64(b), 8, nil
}

// readBlob returns a view into b, not a copy: callers that need the bytes
// to outlive b (string/bytes values) copy explicitly.
func readBlob(b []byte) ([]byte, int, error) {
	ln, n, err := readUint32(b)
	if err != nil {
		return nil, 0, err
	}
	if uint32(len(b)-n) < ln {
		return nil, 0, errs.ErrTruncated
	}

	return b[n : n+int(ln)], n + int(ln), nil
}

// readNamespaced decodes a keyword/symbol body: a single blob holding
// either "name" or "ns/name" (spec.md §4.C2 canonical form). The
// namespace is everything before the first '/'.
func readNamespaced(b []byte) (ns, name string, consumed int, err error) {
	joined, n, err := readBlob(b)
	if err != nil {
		return "", "", 0, err
	}

	s := string(joined)
	if i := strings.IndexByte(s, '/'); i >= 0 {
		return s[:i], s[i+1:], n, nil
	}

	return "", s, n, nil
}

func readBigInt(b []byte) (*big.Int, int, error) {
	if len(b) < 1 {
		return nil, 0, errs.ErrTruncated
	}

	sign := b[0]

	mag, n, err := readBlob(b[1:])
	if err != nil {
		return nil, 0, err
	}

	v := new(big.Int).SetBytes(mag)
	if sign == 2 {
		v.Neg(v)
	}

	return v, 1 + n, nil
}

func decodeSeq(b []byte, reg *Registry, depth int) (any, int, error) {
	count, n, err := readUint32(b)
	if err != nil {
		return nil, 0, err
	}

	items := make([]any, 0, count)
	off := n

	for range count {
		v, vn, err := decodeValue(b[off:], reg, depth+1)
		if err != nil {
			return nil, 0, err
		}

		items = append(items, v)
		off += vn
	}

	return items, off, nil
}

func decodeMap(b []byte, reg *Registry, depth int) (any, int, error) {
	count, n, err := readUint32(b)
	if err != nil {
		return nil, 0, err
	}

	m := NewMap(int(count))
	off := n

	for range count {
		k, kn, err := decodeValue(b[off:], reg, depth+1)
		if err != nil {
			return nil, 0, err
		}

		off += kn

		v, vn, err := decodeValue(b[off:], reg, depth+1)
		if err != nil {
			return nil, 0, err
		}

		off += vn
		m.Set(k, v)
	}

	return m, off, nil
}

func decodeSet(b []byte, reg *Registry, depth int) (any, int, error) {
	count, n, err := readUint32(b)
	if err != nil {
		return nil, 0, err
	}

	items := make([]any, 0, count)
	off := n

	for range count {
		v, vn, err := decodeValue(b[off:], reg, depth+1)
		if err != nil {
			return nil, 0, err
		}

		items = append(items, v)
		off += vn
	}

	return &Set{Items: items}, off, nil
}

func decodeInt16Array(b []byte) (any, int, error) {
	count, n, err := readUint32(b)
	if err != nil {
		return nil, 0, err
	}

	out := make([]int16, count)
	off := n

	for i := range out {
		v, vn, err := readUint16(b[off:])
		if err != nil {
			return nil, 0, err
		}

		out[i] = int16(v)
		off += vn
	}

	return out, off, nil
}

func decodeInt32Array(b []byte) (any, int, error) {
	count, n, err := readUint32(b)
	if err != nil {
		return nil, 0, err
	}

	out := make([]int32, count)
	off := n

	for i := range out {
		v, vn, err := readUint32(b[off:])
		if err != nil {
			return nil, 0, err
		}

		out[i] = int32(v)
		off += vn
	}

	return out, off, nil
}

func decodeInt64Array(b []byte) (any, int, error) {
	count, n, err := readUint32(b)
	if err != nil {
		return nil, 0, err
	}

	out := make([]int64, count)
	off := n

	for i := range out {
		v, vn, err := readUint64(b[off:])
		if err != nil {
			return nil, 0, err
		}

		out[i] = int64(v)
		off += vn
	}

	return out, off, nil
}

func decodeFloat32Array(b []byte) (any, int, error) {
	count, n, err := readUint32(b)
	if err != nil {
		return nil, 0, err
	}

	out := make([]float32, count)
	off := n

	for i := range out {
		v, vn, err := readUint32(b[off:])
		if err != nil {
			return nil, 0, err
		}

		out[i] = math.Float32frombits(v)
		off += vn
	}

	return out, off, nil
}

func decodeFloat64Array(b []byte) (any, int, error) {
	count, n, err := readUint32(b)
	if err != nil {
		return nil, 0, err
	}

	out := make([]float64, count)
	off := n

	for i := range out {
		v, vn, err := readUint64(b[off:])
		if err != nil {
			return nil, 0, err
		}

		out[i] = math.Float64frombits(v)
		off += vn
	}

	return out, off, nil
}

func decodeBoolArray(b []byte) (any, int, error) {
	count, n, err := readUint32(b)
	if err != nil {
		return nil, 0, err
	}
	if uint32(len(b)-n) < count {
		return nil, 0, errs.ErrTruncated
	}

	out := make([]bool, count)
	for i := range out {
		out[i] = b[n+i] != 0
	}

	return out, n + int(count), nil
}

func decodeCharArray(b []byte) (any, int, error) {
	count, n, err := readUint32(b)
	if err != nil {
		return nil, 0, err
	}

	out := make([]Char, count)
	off := n

	for i := range out {
		v, vn, err := readUint16(b[off:])
		if err != nil {
			return nil, 0, err
		}

		out[i] = Char(v)
		off += vn
	}

	return out, off, nil
}
