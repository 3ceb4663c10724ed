package badger

import (
	"encoding/json"
	"fmt"

	"github.com/shardfs/shardfs/pkg/namespace"
)

// Entries are stored as JSON. They are small, the schema can grow without a
// migration, and records stay readable in debugging sessions against a live
// database. A binary encoding would save a few bytes per entry and buy
// nothing else at this workload.

func encodeEntry(entry namespace.Entry) ([]byte, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode entry %s: %w", entry.Path, err)
	}
	return data, nil
}

func decodeEntry(data []byte) (namespace.Entry, error) {
	var entry namespace.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return namespace.Entry{}, fmt.Errorf("decode entry: %w", err)
	}
	return entry, nil
}
