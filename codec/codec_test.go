package codec

import (
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replikativ/konserve-lmdb/errs"
	"github.com/replikativ/konserve-lmdb/internal/pool"
)

func roundTrip(t *testing.T, v any) any {
	t.Helper()

	data, err := Encode(v)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)

	return got
}

func TestEncodeDecode_Scalars(t *testing.T) {
	assert.Equal(t, nil, roundTrip(t, nil))
	assert.Equal(t, true, roundTrip(t, true))
	assert.Equal(t, false, roundTrip(t, false))
	assert.Equal(t, int64(42), roundTrip(t, 42))
	assert.Equal(t, int64(-7), roundTrip(t, int64(-7)))
	assert.Equal(t, int32(1<<20), roundTrip(t, int32(1<<20)))
	assert.Equal(t, int16(-300), roundTrip(t, int16(-300)))
	assert.Equal(t, int8(-12), roundTrip(t, int8(-12)))
	assert.InDelta(t, 3.5, roundTrip(t, 3.5), 0)
	assert.InDelta(t, float32(1.5), roundTrip(t, float32(1.5)), 0)
	assert.Equal(t, "hello", roundTrip(t, "hello"))
	assert.Equal(t, []byte{1, 2, 3}, roundTrip(t, []byte{1, 2, 3}))
	assert.Equal(t, Char('x'), roundTrip(t, Char('x')))
}

func TestEncodeDecode_Keyword(t *testing.T) {
	kw := Keyword{Namespace: "app", Name: "status"}
	assert.Equal(t, kw, roundTrip(t, kw))

	bare := Keyword{Name: "ok"}
	assert.Equal(t, bare, roundTrip(t, bare))
}

func TestEncodeDecode_Symbol(t *testing.T) {
	sym := Symbol{Namespace: "clojure.core", Name: "inc"}
	assert.Equal(t, sym, roundTrip(t, sym))
}

func TestEncodeDecode_UUID(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id, roundTrip(t, id))
}

func TestEncodeDecode_Instant(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_123).UTC()
	got := roundTrip(t, now).(time.Time)
	assert.True(t, now.Equal(got))
}

func TestEncodeDecode_BigInt(t *testing.T) {
	n := new(big.Int)
	n.SetString("-123456789012345678901234567890", 10)
	got := roundTrip(t, n).(*big.Int)
	assert.Equal(t, 0, n.Cmp(got))

	assert.Equal(t, 0, big.NewInt(0).Cmp(roundTrip(t, big.NewInt(0)).(*big.Int)))
}

func TestEncodeDecode_Decimal(t *testing.T) {
	d := Decimal{Scale: 2, Unscaled: big.NewInt(12345)}
	got := roundTrip(t, d).(Decimal)
	assert.Equal(t, d.Scale, got.Scale)
	assert.Equal(t, 0, d.Unscaled.Cmp(got.Unscaled))
}

func TestEncodeDecode_Ratio(t *testing.T) {
	r := big.NewRat(22, 7)
	got := roundTrip(t, r).(*big.Rat)
	assert.Equal(t, 0, r.Cmp(got))
}

func TestEncodeDecode_Seq(t *testing.T) {
	in := []any{int64(1), "two", true, nil}
	got := roundTrip(t, in)
	assert.Equal(t, in, got)
}

func TestEncodeDecode_Map(t *testing.T) {
	m := NewMap(2).Set("meta", int64(1)).Set("value", "payload")
	got := roundTrip(t, m).(*Map)

	require.Equal(t, 2, got.Len())
	k0, v0 := got.At(0)
	assert.Equal(t, "meta", k0)
	assert.Equal(t, int64(1), v0)
	k1, v1 := got.At(1)
	assert.Equal(t, "value", k1)
	assert.Equal(t, "payload", v1)
}

func TestEncodeDecode_Set(t *testing.T) {
	s := NewSet(int64(1), int64(2), int64(3))
	got := roundTrip(t, s).(*Set)
	assert.ElementsMatch(t, s.Items, got.Items)
}

func TestEncodeDecode_TypedArrays(t *testing.T) {
	assert.Equal(t, []int16{1, -2, 3}, roundTrip(t, []int16{1, -2, 3}))
	assert.Equal(t, []int32{1, -2, 3}, roundTrip(t, []int32{1, -2, 3}))
	assert.Equal(t, []int64{1, -2, 3}, roundTrip(t, []int64{1, -2, 3}))
	assert.Equal(t, []float32{1.5, -2.5}, roundTrip(t, []float32{1.5, -2.5}))
	assert.Equal(t, []float64{1.5, -2.5}, roundTrip(t, []float64{1.5, -2.5}))
	assert.Equal(t, []bool{true, false, true}, roundTrip(t, []bool{true, false, true}))
	assert.Equal(t, []Char{'a', 'b'}, roundTrip(t, []Char{'a', 'b'}))
}

func TestEncode_UnsupportedType(t *testing.T) {
	_, err := Encode(struct{ X int }{X: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrUnsupportedType)
}

func TestEncode_NestedTooDeep(t *testing.T) {
	var v any = int64(0)
	for range MaxDepth + 2 {
		v = []any{v}
	}

	_, err := Encode(v)
	require.Error(t, err)
}

func TestEncode_GrowsBufferOnOverflow(t *testing.T) {
	// A string just over the initial 64 KiB buffer forces exactly one
	// growth iteration.
	payload := make([]byte, 70*1024)
	data, err := Encode(string(payload))
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Len(t, got.(string), len(payload))
}

func TestEncodeWithPool_ReleasesBufferOnSuccessAndOverflow(t *testing.T) {
	p := pool.New()

	data, err := EncodeWithPool("hello", nil, p)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len(), "buffer must be returned to the pool after a successful encode")

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	// A value that needs to grow past the first buffer still leaves every
	// buffer it touched back in the pool, including the one that
	// overflowed.
	p.Clear()
	big := make([]byte, 70*1024)
	_, err = EncodeWithPool(string(big), nil, p)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
}

func TestDecode_TrailingBytesIsError(t *testing.T) {
	data, err := Encode(int64(1))
	require.NoError(t, err)

	_, err = Decode(append(data, 0xFF))
	assert.Error(t, err)
}

func TestDecode_TruncatedIsError(t *testing.T) {
	data, err := Encode("hello world")
	require.NoError(t, err)

	_, err = Decode(data[:len(data)-2])
	assert.Error(t, err)
}

func TestDecode_UnknownTag(t *testing.T) {
	_, err := Decode([]byte{0x1D})
	require.Error(t, err)
}

func TestDecodeMeta(t *testing.T) {
	record := NewMap(2).Set("meta", NewMap(1).Set("key", int64(1))).Set("value", "payload")
	data, err := Encode(record)
	require.NoError(t, err)

	meta, ok, err := DecodeMeta(data)
	require.NoError(t, err)
	require.True(t, ok)

	m := meta.(*Map)
	v, found := m.Get("key")
	require.True(t, found)
	assert.Equal(t, int64(1), v)
}

func TestDecodeMeta_NotAWrappedRecord(t *testing.T) {
	data, err := Encode("bare string")
	require.NoError(t, err)

	_, ok, err := DecodeMeta(data)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeMeta_MapWithoutMetaFirst(t *testing.T) {
	record := NewMap(1).Set("value", "payload")
	data, err := Encode(record)
	require.NoError(t, err)

	_, ok, err := DecodeMeta(data)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFieldNames(t *testing.T) {
	record := NewMap(2).Set("meta", int64(1)).Set("value", "payload")
	data, err := Encode(record)
	require.NoError(t, err)

	names, err := FieldNames(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"meta", "value"}, names)
}
