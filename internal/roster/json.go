package roster

import (
	"encoding/json"
	"fmt"
	"io"
)

// LoadJSON parses an array of objects. Keys are matched loosely, so
// {"Nama": ..., "Nis ": ..., "Jurusan": ...} and {"name": ...} both work.
// Numeric IDs are kept digit for digit.
func LoadJSON(r io.Reader) (*Roster, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode roster json: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		var e Entry
		for k, v := range row {
			s := stringify(v)
			switch {
			case matchKey(k, nameKeys):
				e.Name = s
			case matchKey(k, idKeys):
				e.ExternalID = s
			case matchKey(k, classKeys):
				e.ClassLabel = s
			}
		}
		entries = append(entries, e)
	}
	return New(entries), nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
