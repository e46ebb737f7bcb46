package konserve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replikativ/konserve-lmdb/codec"
)

func TestNavigate_MapPath(t *testing.T) {
	db := codec.NewMap(1).Set("db", codec.NewMap(2).Set("host", "localhost").Set("port", int64(5432)))

	v, ok := navigate(db, []any{"db", "host"})
	require.True(t, ok)
	assert.Equal(t, "localhost", v)
}

func TestNavigate_MissingKeyIsMiss(t *testing.T) {
	m := codec.NewMap(1).Set("a", int64(1))

	_, ok := navigate(m, []any{"b"})
	assert.False(t, ok)
}

func TestNavigate_SeqIndex(t *testing.T) {
	seq := []any{int64(10), int64(20), int64(30)}

	v, ok := navigate(seq, []any{int64(1)})
	require.True(t, ok)
	assert.Equal(t, int64(20), v)
}

func TestNavigate_EmptyPathReturnsValue(t *testing.T) {
	v, ok := navigate(int64(42), nil)
	require.True(t, ok)
	assert.Equal(t, int64(42), v)
}

func TestAssocIn_ReplacesWholeValueAtEmptyPath(t *testing.T) {
	got, err := assocIn(int64(1), nil, int64(2))
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)
}

func TestAssocIn_CreatesNestedMaps(t *testing.T) {
	got, err := assocIn(nil, []any{"db", "host"}, "localhost")
	require.NoError(t, err)

	v, ok := navigate(got, []any{"db", "host"})
	require.True(t, ok)
	assert.Equal(t, "localhost", v)
}

func TestAssocIn_DoesNotMutateOriginal(t *testing.T) {
	orig := codec.NewMap(1).Set("a", codec.NewMap(1).Set("b", int64(1)))

	updated, err := assocIn(orig, []any{"a", "b"}, int64(2))
	require.NoError(t, err)

	origV, _ := navigate(orig, []any{"a", "b"})
	assert.Equal(t, int64(1), origV, "original tree must be untouched")

	newV, _ := navigate(updated, []any{"a", "b"})
	assert.Equal(t, int64(2), newV)
}

func TestAssocIn_SeqIndexOutOfRangeIsPathNotFound(t *testing.T) {
	seq := []any{int64(1), int64(2)}

	_, err := assocIn(seq, []any{int64(5)}, int64(9))
	assert.ErrorIs(t, err, ErrPathNotFound)
}
