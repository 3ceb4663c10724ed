package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardfs/shardfs/pkg/content"
)

func TestReadWrite(t *testing.T) {
	ctx := context.Background()
	s := New()

	t.Run("MissingContentIsNotFound", func(t *testing.T) {
		_, err := s.Read(ctx, "/never-written")
		assert.ErrorIs(t, err, content.ErrNotFound)
	})

	t.Run("RoundTrips", func(t *testing.T) {
		require.NoError(t, s.Write(ctx, "/f", []byte("hello")))
		data, err := s.Read(ctx, "/f")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("WriteReplaces", func(t *testing.T) {
		require.NoError(t, s.Write(ctx, "/f", []byte("v2")))
		data, err := s.Read(ctx, "/f")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), data)
	})

	t.Run("CallerBufferIsNotAliased", func(t *testing.T) {
		buf := []byte("aaaa")
		require.NoError(t, s.Write(ctx, "/alias", buf))
		buf[0] = 'z'

		data, err := s.Read(ctx, "/alias")
		require.NoError(t, err)
		assert.Equal(t, []byte("aaaa"), data)

		data[1] = 'z'
		again, err := s.Read(ctx, "/alias")
		require.NoError(t, err)
		assert.Equal(t, []byte("aaaa"), again)
	})

	t.Run("EmptyWriteReadsEmpty", func(t *testing.T) {
		require.NoError(t, s.Write(ctx, "/empty", nil))
		data, err := s.Read(ctx, "/empty")
		require.NoError(t, err)
		assert.Empty(t, data)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Write(ctx, "/f", []byte("x")))
	require.NoError(t, s.Delete(ctx, "/f"))

	_, err := s.Read(ctx, "/f")
	assert.ErrorIs(t, err, content.ErrNotFound)

	assert.NoError(t, s.Delete(ctx, "/f"), "deleting missing content is not an error")
}
