package wire

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/shardfs/shardfs/pkg/namespace"
)

// attrBlockSize is the fixed encoding of an attribute block:
//
//	[kind u32][mode u32][size u64][ctime u64][mtime u64]
//
// Times are unix seconds. All fields little-endian.
const attrBlockSize = 32

// EncodeAttr packs an entry's kind and attributes into one body field.
func EncodeAttr(e namespace.Entry) []byte {
	buf := make([]byte, attrBlockSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(e.Kind))
	binary.LittleEndian.PutUint32(buf[4:8], e.Attr.Mode)
	binary.LittleEndian.PutUint64(buf[8:16], e.Attr.Size)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(e.Attr.Ctime.Unix()))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(e.Attr.Mtime.Unix()))
	return buf
}

// DecodeAttr unpacks an attribute block field.
func DecodeAttr(field []byte) (namespace.Kind, namespace.FileAttr, error) {
	if len(field) != attrBlockSize {
		return 0, namespace.FileAttr{}, fmt.Errorf("attr block is %d bytes, want %d", len(field), attrBlockSize)
	}
	kind := namespace.Kind(binary.LittleEndian.Uint32(field[0:4]))
	attr := namespace.FileAttr{
		Mode:  binary.LittleEndian.Uint32(field[4:8]),
		Size:  binary.LittleEndian.Uint64(field[8:16]),
		Ctime: time.Unix(int64(binary.LittleEndian.Uint64(field[16:24])), 0),
		Mtime: time.Unix(int64(binary.LittleEndian.Uint64(field[24:32])), 0),
	}
	return kind, attr, nil
}

// EncodeBool packs a boolean answer (ChildExists) into one body field.
func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// DecodeBool unpacks a boolean answer field.
func DecodeBool(field []byte) (bool, error) {
	if len(field) != 1 {
		return false, fmt.Errorf("bool field is %d bytes, want 1", len(field))
	}
	return field[0] != 0, nil
}

// NameFields converts child names into one body field per name.
func NameFields(names []string) [][]byte {
	fields := make([][]byte, len(names))
	for i, n := range names {
		fields[i] = []byte(n)
	}
	return fields
}

// FieldNames converts body fields back into child names.
func FieldNames(fields [][]byte) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return names
}
