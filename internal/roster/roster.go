// Package roster reads the trusted participant list that lazy participant
// creation and bulk import draw from.
package roster

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for roster files that are neither JSON nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported roster format")

// Entry is one roster row. Fields are kept verbatim apart from trimming.
type Entry struct {
	Name       string `json:"name"`
	ExternalID string `json:"external_id"`
	ClassLabel string `json:"class_label"`
}

// Source resolves names against a roster.
type Source interface {
	Lookup(name string) (Entry, bool)
	Entries() []Entry
}

// Roster is an immutable, case-insensitively indexed list of entries.
type Roster struct {
	entries []Entry
	byName  map[string]int
}

// New indexes entries. Blank names are dropped; for names that collide
// case-insensitively the first entry wins.
func New(entries []Entry) *Roster {
	r := &Roster{byName: make(map[string]int, len(entries))}
	for _, e := range entries {
		e.Name = strings.TrimSpace(e.Name)
		e.ExternalID = strings.TrimSpace(e.ExternalID)
		e.ClassLabel = strings.TrimSpace(e.ClassLabel)
		if e.Name == "" {
			continue
		}
		key := foldName(e.Name)
		if _, dup := r.byName[key]; dup {
			continue
		}
		r.byName[key] = len(r.entries)
		r.entries = append(r.entries, e)
	}
	return r
}

// Empty returns a roster with no entries.
func Empty() *Roster {
	return New(nil)
}

// Lookup finds an entry by name, ignoring case and surrounding whitespace.
func (r *Roster) Lookup(name string) (Entry, bool) {
	i, ok := r.byName[foldName(name)]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Entries returns a copy of all entries in file order.
func (r *Roster) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of entries.
func (r *Roster) Len() int {
	return len(r.entries)
}

// Load reads a roster file, choosing the parser by extension.
func Load(path string) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(f)
	case ".xlsx":
		return LoadXLSX(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// column aliases, compared after trimming and lowercasing the header.
var (
	nameKeys  = []string{"nama", "name"}
	idKeys    = []string{"nis", "nisn", "external_id"}
	classKeys = []string{"jurusan", "kelas", "class", "class_label"}
)

func matchKey(header string, keys []string) bool {
	h := strings.ToLower(strings.TrimSpace(header))
	for _, k := range keys {
		if h == k {
			return true
		}
	}
	return false
}
