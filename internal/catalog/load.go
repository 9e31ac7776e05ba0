package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Decode reads a catalog: a JSON array of raw records, or an object wrapping
// the array under "items". Entries that are not objects are skipped.
func Decode(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	items, err := splitItems(data)
	if err != nil {
		return nil, err
	}

	raws := make([]RawRecord, 0, len(items))
	for _, item := range items {
		var raw RawRecord
		if err := json.Unmarshal(item, &raw); err != nil {
			continue
		}
		raws = append(raws, raw)
	}
	return ResolveAll(raws), nil
}

func splitItems(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}

	var wrapped struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return wrapped.Items, nil
}

// LoadFile reads and resolves the catalog file at path.
func LoadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return Decode(f)
}
