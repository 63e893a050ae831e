package ingestion

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadDump reads the whole dump at path and splits its top-level array into
// raw elements. Elements are decoded lazily so a bad entry only fails once
// the loop reaches it.
func LoadDump(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}
	return ParseDump(data)
}

// ParseDump splits an in-memory dump into its elements.
func ParseDump(data []byte) ([]json.RawMessage, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDump, err)
	}
	if entries == nil {
		// top-level null
		return nil, fmt.Errorf("%w: top-level value is not an array", ErrMalformedDump)
	}
	return entries, nil
}
