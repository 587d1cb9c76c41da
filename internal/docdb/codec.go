package docdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
)

// decodeRecords parses a collection file's contents. Malformed content is
// logged and treated as an empty collection rather than failing the caller:
// availability wins over strictness here, so a corrupt file silently reads
// as empty. Empty and whitespace-only files decode the same way.
func decodeRecords(path string, data []byte, log *slog.Logger) []Record {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		log.Warn("Discarding malformed collection file", "path", path, "err", err)
		return nil
	}
	return recs
}

// encodeRecords serializes records as a pretty-printed JSON array with a
// trailing newline, so collection files stay human-diffable. A nil slice
// encodes as an empty array, never "null".
func encodeRecords(recs []Record) ([]byte, error) {
	if recs == nil {
		recs = []Record{}
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal records: %w", err)
	}
	return append(data, '\n'), nil
}
