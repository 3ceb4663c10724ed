package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardfs/shardfs/pkg/namespace"
)

func TestEncode(t *testing.T) {
	t.Run("HeaderLayoutIsLittleEndian", func(t *testing.T) {
		msg := NewRequest(7, OpCreateFile, []byte("/t1.txt"))
		buf, err := msg.Encode(0)
		require.NoError(t, err)

		expected := []byte{
			0x07, 0x00, 0x00, 0x00, // id = 7
			0x01, 0x00, 0x00, 0x00, // opcode = CreateFile
			0x00, 0x00, 0x00, 0x00, // flag = 0
			0x1b, 0x00, 0x00, 0x00, // total_length = 16 + 4 + 7 = 27
			0x07, 0x00, 0x00, 0x00, // path length = 7
			'/', 't', '1', '.', 't', 'x', 't',
		}
		assert.Equal(t, expected, buf)
	})

	t.Run("StatusOnlyResponseHasEmptyBody", func(t *testing.T) {
		msg := NewResponse(3, StatusAlreadyExists, 9)
		buf, err := msg.Encode(0)
		require.NoError(t, err)

		require.Len(t, buf, HeaderSize)
		assert.Equal(t, []byte{
			0x03, 0x00, 0x00, 0x00,
			0x01, 0x00, 0x00, 0x00, // status = AlreadyExists
			0x09, 0x00, 0x00, 0x00, // flag echoed
			0x10, 0x00, 0x00, 0x00, // total_length = 16
		}, buf)
	})

	t.Run("RejectsOversizeFrame", func(t *testing.T) {
		msg := NewRequest(1, OpWriteFile, []byte("/big"), make([]byte, 100))
		_, err := msg.Encode(64)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds maximum")
	})
}

func TestReadMessage(t *testing.T) {
	t.Run("RoundTripsPathRequest", func(t *testing.T) {
		in := NewRequest(42, OpDeleteDir, []byte("/test1/"))
		in.Flag = 5
		buf, err := in.Encode(0)
		require.NoError(t, err)

		out, err := ReadMessage(bytes.NewReader(buf), 0)
		require.NoError(t, err)

		assert.Equal(t, uint32(42), out.ID)
		assert.Equal(t, OpDeleteDir, out.Op())
		assert.Equal(t, uint32(5), out.Flag)

		path, err := out.FieldString(0)
		require.NoError(t, err)
		assert.Equal(t, "/test1/", path)
	})

	t.Run("RoundTripsMultipleFields", func(t *testing.T) {
		in := NewRequest(1, OpWriteFile, []byte("/f.bin"), []byte{0xde, 0xad, 0xbe, 0xef})
		buf, err := in.Encode(0)
		require.NoError(t, err)

		out, err := ReadMessage(bytes.NewReader(buf), 0)
		require.NoError(t, err)

		require.Len(t, out.Fields, 2)
		data, err := out.Field(1)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, data)
	})

	t.Run("EmptyFieldIsDistinctFromNoField", func(t *testing.T) {
		in := NewResponse(9, StatusOK, 0, []byte{})
		buf, err := in.Encode(0)
		require.NoError(t, err)

		out, err := ReadMessage(bytes.NewReader(buf), 0)
		require.NoError(t, err)

		require.Len(t, out.Fields, 1)
		assert.Empty(t, out.Fields[0])
	})

	t.Run("EOFBetweenFramesIsClean", func(t *testing.T) {
		_, err := ReadMessage(bytes.NewReader(nil), 0)
		assert.Equal(t, io.EOF, err)
	})

	t.Run("ShortHeaderIsTransportError", func(t *testing.T) {
		_, err := ReadMessage(bytes.NewReader([]byte{1, 2, 3}), 0)
		assert.Equal(t, io.ErrUnexpectedEOF, err)
	})

	t.Run("TotalLengthShorterThanHeader", func(t *testing.T) {
		buf := encodeRawHeader(8, uint32(OpCreateFile), 0, 4)
		_, err := ReadMessage(bytes.NewReader(buf), 0)

		var decErr *DecodeError
		require.True(t, errors.As(err, &decErr))
		assert.Equal(t, uint32(8), decErr.ID)
		assert.False(t, decErr.Recoverable)
	})

	t.Run("TotalLengthAboveMaximum", func(t *testing.T) {
		buf := encodeRawHeader(8, uint32(OpCreateFile), 0, 1<<30)
		_, err := ReadMessage(bytes.NewReader(buf), 64)

		var decErr *DecodeError
		require.True(t, errors.As(err, &decErr))
		assert.False(t, decErr.Recoverable)
	})

	t.Run("BodyShorterThanDeclared", func(t *testing.T) {
		buf := encodeRawHeader(8, uint32(OpCreateFile), 0, HeaderSize+10)
		buf = append(buf, 1, 2, 3)
		_, err := ReadMessage(bytes.NewReader(buf), 0)
		require.Error(t, err)

		var decErr *DecodeError
		assert.False(t, errors.As(err, &decErr), "short body is a transport error, not a frame error")
	})

	t.Run("TruncatedFieldPrefixIsRecoverable", func(t *testing.T) {
		buf := encodeRawHeader(8, uint32(OpCreateFile), 0, HeaderSize+2)
		buf = append(buf, 0x07, 0x00)
		_, err := ReadMessage(bytes.NewReader(buf), 0)

		var decErr *DecodeError
		require.True(t, errors.As(err, &decErr))
		assert.True(t, decErr.Recoverable)
	})

	t.Run("FieldLengthPastBodyIsRecoverable", func(t *testing.T) {
		buf := encodeRawHeader(8, uint32(OpCreateFile), 0, HeaderSize+6)
		buf = append(buf, 0xff, 0x00, 0x00, 0x00, 'a', 'b')
		_, err := ReadMessage(bytes.NewReader(buf), 0)

		var decErr *DecodeError
		require.True(t, errors.As(err, &decErr))
		assert.True(t, decErr.Recoverable)
		assert.Equal(t, uint32(8), decErr.ID)
	})
}

func TestAttrBlock(t *testing.T) {
	t.Run("RoundTrips", func(t *testing.T) {
		entry := namespace.Entry{
			Path: "/data.bin",
			Kind: namespace.KindFile,
			Attr: namespace.FileAttr{
				Mode:  0o644,
				Size:  4096,
				Ctime: time.Unix(1700000000, 0),
				Mtime: time.Unix(1700000100, 0),
			},
		}

		field := EncodeAttr(entry)
		require.Len(t, field, attrBlockSize)

		kind, attr, err := DecodeAttr(field)
		require.NoError(t, err)
		assert.Equal(t, namespace.KindFile, kind)
		assert.Equal(t, entry.Attr.Mode, attr.Mode)
		assert.Equal(t, entry.Attr.Size, attr.Size)
		assert.True(t, attr.Ctime.Equal(entry.Attr.Ctime))
		assert.True(t, attr.Mtime.Equal(entry.Attr.Mtime))
	})

	t.Run("RejectsWrongSize", func(t *testing.T) {
		_, _, err := DecodeAttr(make([]byte, 7))
		assert.Error(t, err)
	})
}

func TestBoolField(t *testing.T) {
	for _, v := range []bool{true, false} {
		got, err := DecodeBool(EncodeBool(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}

	_, err := DecodeBool([]byte{})
	assert.Error(t, err)
}

func TestNameFields(t *testing.T) {
	names := []string{"a.txt", "sub/", "z"}
	assert.Equal(t, names, FieldNames(NameFields(names)))
	assert.Empty(t, FieldNames(nil))
}

func encodeRawHeader(id, code, flag, total uint32) []byte {
	buf := make([]byte, HeaderSize)
	putUint32 := func(off int, v uint32) {
		buf[off] = byte(v)
		buf[off+1] = byte(v >> 8)
		buf[off+2] = byte(v >> 16)
		buf[off+3] = byte(v >> 24)
	}
	putUint32(0, id)
	putUint32(4, code)
	putUint32(8, flag)
	putUint32(12, total)
	return buf
}
