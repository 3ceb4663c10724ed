package badger

// Key Schema
// ==========
//
// The database holds one keyspace with a typed prefix, so future record
// types (counters, tombstones) can coexist without collisions:
//
//	e:<path>  ->  JSON-encoded namespace.Entry
//
// Paths embed their trailing separator for directories, which makes a
// prefix scan over "e:<dirpath>" cover exactly the locally-owned
// descendants of that directory: a sibling like /test12 never matches the
// prefix "/test1/" because the separator byte is part of the key.
// Immediate-child filtering on top of the scan happens in code.

const entryPrefix = "e:"

// entryKey returns the database key for a namespace path.
func entryKey(path string) []byte {
	return append([]byte(entryPrefix), path...)
}

// descendantScanPrefix returns the iterator prefix that covers every
// locally-owned descendant of the directory at dir.
func descendantScanPrefix(dir string) []byte {
	return entryKey(dir)
}

// pathFromKey recovers the namespace path from a database key.
func pathFromKey(key []byte) string {
	return string(key[len(entryPrefix):])
}
