package dberr_test

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kowanietz/lsm-tree-kv/internal/dberr"
)

func TestKindSurvivesWrapping(t *testing.T) {
	err := errors.Wrap(dberr.Corruption("bad magic 0x%x", 42), "open sstable")

	assert.True(t, dberr.IsCorruption(err))
	assert.False(t, dberr.IsIO(err))
	assert.True(t, errors.Is(err, dberr.ErrCorruption))
	assert.False(t, errors.Is(err, dberr.ErrIO))
	assert.Contains(t, err.Error(), "open sstable")
	assert.Contains(t, err.Error(), "bad magic 0x2a")
}

func TestIOKeepsCause(t *testing.T) {
	err := dberr.IO(io.ErrClosedPipe, "read footer")
	require.Error(t, err)

	assert.True(t, dberr.IsIO(err))
	assert.True(t, errors.Is(err, io.ErrClosedPipe))
	assert.Equal(t, "I/O error: read footer: io: read/write on closed pipe", err.Error())
}

func TestIONilIsNil(t *testing.T) {
	assert.NoError(t, dberr.IO(nil, "anything"))
}

func TestInvalidArgument(t *testing.T) {
	err := dberr.InvalidArgument("key %q out of order", "a")

	assert.True(t, dberr.IsInvalidArgument(err))
	assert.Equal(t, dberr.KindInvalidArgument, dberr.KindOf(err))
	assert.Equal(t, `invalid argument: key "a" out of order`, err.Error())
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, dberr.Kind(0), dberr.KindOf(io.EOF))
	assert.False(t, dberr.IsCorruption(nil))
}
