package namespace

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParentOf(t *testing.T) {
	t.Run("FileInRoot", func(t *testing.T) {
		assert.Equal(t, "/", ParentOf("/t1.txt"))
	})

	t.Run("DirInRoot", func(t *testing.T) {
		assert.Equal(t, "/", ParentOf("/test1/"))
	})

	t.Run("NestedFile", func(t *testing.T) {
		assert.Equal(t, "/test1/", ParentOf("/test1/t1.txt"))
	})

	t.Run("NestedDir", func(t *testing.T) {
		assert.Equal(t, "/test1/", ParentOf("/test1/test_dir/"))
	})

	t.Run("DeeplyNested", func(t *testing.T) {
		assert.Equal(t, "/a/b/c/", ParentOf("/a/b/c/d/"))
	})

	t.Run("RootHasNoParent", func(t *testing.T) {
		assert.Equal(t, "", ParentOf("/"))
	})
}

func TestBaseName(t *testing.T) {
	t.Run("File", func(t *testing.T) {
		assert.Equal(t, "t1.txt", BaseName("/test1/t1.txt"))
	})

	t.Run("DirKeepsSeparator", func(t *testing.T) {
		assert.Equal(t, "test_dir/", BaseName("/test1/test_dir/"))
	})

	t.Run("Root", func(t *testing.T) {
		assert.Equal(t, "/", BaseName("/"))
	})
}

func TestValidatePath(t *testing.T) {
	t.Run("AcceptsNormalizedPaths", func(t *testing.T) {
		for _, p := range []string{"/", "/a", "/a/", "/a/b.txt", "/a/b/c/"} {
			assert.NoError(t, ValidatePath(p), "path %q", p)
		}
	})

	t.Run("RejectsEmpty", func(t *testing.T) {
		requireMalformed(t, ValidatePath(""))
	})

	t.Run("RejectsRelative", func(t *testing.T) {
		requireMalformed(t, ValidatePath("a/b"))
	})

	t.Run("RejectsEmptySegment", func(t *testing.T) {
		requireMalformed(t, ValidatePath("/a//b"))
	})

	t.Run("RejectsNulByte", func(t *testing.T) {
		requireMalformed(t, ValidatePath("/a\x00b"))
	})
}

func TestIsImmediateChild(t *testing.T) {
	t.Run("FileUnderRoot", func(t *testing.T) {
		assert.True(t, IsImmediateChild("/", "/t1.txt"))
	})

	t.Run("DirUnderRoot", func(t *testing.T) {
		assert.True(t, IsImmediateChild("/", "/test1/"))
	})

	t.Run("NestedIsNotImmediate", func(t *testing.T) {
		assert.False(t, IsImmediateChild("/", "/test1/t1.txt"))
		assert.False(t, IsImmediateChild("/", "/test1/test_dir/"))
	})

	t.Run("ChildOfDir", func(t *testing.T) {
		assert.True(t, IsImmediateChild("/test1/", "/test1/t1.txt"))
		assert.True(t, IsImmediateChild("/test1/", "/test1/test_dir/"))
		assert.False(t, IsImmediateChild("/test1/", "/test1/test_dir/deep.txt"))
	})

	t.Run("SelfIsNotChild", func(t *testing.T) {
		assert.False(t, IsImmediateChild("/test1/", "/test1/"))
	})

	t.Run("SiblingPrefixIsNotChild", func(t *testing.T) {
		assert.False(t, IsImmediateChild("/test1/", "/test12/file"))
	})
}

func TestKindForPath(t *testing.T) {
	assert.Equal(t, KindFile, KindForPath("/a.txt"))
	assert.Equal(t, KindDirectory, KindForPath("/a/"))
	assert.Equal(t, KindDirectory, KindForPath("/"))
}

func requireMalformed(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)

	var nsErr *Error
	require.True(t, errors.As(err, &nsErr))
	assert.Equal(t, ErrMalformed, nsErr.Code)
}
