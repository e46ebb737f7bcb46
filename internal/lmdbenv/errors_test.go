package lmdbenv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replikativ/konserve-lmdb/errs"
)

func TestTranslateErr_Nil(t *testing.T) {
	found, err := translateErr("get", nil)
	assert.True(t, found)
	assert.NoError(t, err)
}

func TestTranslateErr_Generic(t *testing.T) {
	found, err := translateErr("get", errors.New("boom"))
	assert.False(t, found)
	require.Error(t, err)

	var lerr *errs.LMDBError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "get", lerr.Op)
}
