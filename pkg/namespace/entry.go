// Package namespace defines the domain model shared by every shardfs
// component: paths, entries, attributes, and the error taxonomy that maps
// one-to-one onto wire statuses.
package namespace

import "time"

// Kind discriminates files from directories. The zero value is invalid so
// that forgotten initialization surfaces as WrongType instead of silently
// behaving like a file.
type Kind uint32

const (
	KindFile      Kind = 1
	KindDirectory Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "invalid"
	}
}

// KindForPath derives the entry kind from the path shape: directories carry
// a trailing separator, files do not.
func KindForPath(path string) Kind {
	if IsDirPath(path) {
		return KindDirectory
	}
	return KindFile
}

// FileAttr carries the attributes stored with every entry.
//
// Size is meaningful for files only and is maintained by write operations.
// Times are kept at second granularity since that is all the wire encoding
// carries.
type FileAttr struct {
	// Mode contains Unix permission bits (0o7777 max).
	Mode uint32 `json:"mode"`

	// Size is the content length in bytes. Directories report 0.
	Size uint64 `json:"size"`

	// Ctime is the entry creation time.
	Ctime time.Time `json:"ctime"`

	// Mtime is the last content modification time.
	Mtime time.Time `json:"mtime"`
}

// Entry is one namespace node. Exactly one shard owns it: the shard the
// router maps its path to.
type Entry struct {
	Path string   `json:"path"`
	Kind Kind     `json:"kind"`
	Attr FileAttr `json:"attr"`
}

// NewEntry builds an entry for path with kind derived from the path shape
// and fresh timestamps.
func NewEntry(path string, mode uint32) Entry {
	now := time.Now().Truncate(time.Second)
	return Entry{
		Path: path,
		Kind: KindForPath(path),
		Attr: FileAttr{
			Mode:  mode,
			Ctime: now,
			Mtime: now,
		},
	}
}
