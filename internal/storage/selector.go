package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SelectStats summarizes one latest-version pass over a folder.
type SelectStats struct {
	TotalFiles    int `json:"total_files"`
	SelectedFiles int `json:"selected_files"`
	ExcludedFiles int `json:"excluded_files"`
}

// Selector reduces a folder of historically versioned artifacts to one
// current file per logical identity.
type Selector struct{}

func NewSelector() *Selector { return &Selector{} }

type candidate struct {
	name    string
	decoded Decoded
}

// SelectLatest groups every file in dir by the identity embedded in its
// name and keeps the highest version per group, breaking version ties by
// the most recent embedded timestamp. Files whose names do not follow the
// version grammar form degenerate singleton groups and are always kept —
// a template or foreign-format file dropped into the folder must not be
// silently lost. Returned paths are sorted by file name.
func (s *Selector) SelectLatest(dir string) ([]string, SelectStats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, SelectStats{}, fmt.Errorf("list %s: %w", dir, err)
	}

	groups := make(map[string]candidate)
	total := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		total++
		name := e.Name()

		d, ok := Decode(name)
		if !ok {
			// Singleton group keyed by the raw name: kept as its own latest.
			groups[name] = candidate{name: name}
			continue
		}

		cur, exists := groups[d.Identity]
		if !exists || newer(d, cur.decoded) {
			groups[d.Identity] = candidate{name: name, decoded: d}
		}
	}

	paths := make([]string, 0, len(groups))
	for _, c := range groups {
		paths = append(paths, filepath.Join(dir, c.name))
	}
	sort.Strings(paths)

	stats := SelectStats{
		TotalFiles:    total,
		SelectedFiles: len(paths),
		ExcludedFiles: total - len(paths),
	}
	return paths, stats, nil
}

func newer(a, b Decoded) bool {
	if a.Version != b.Version {
		return a.Version > b.Version
	}
	return a.Stamp.After(b.Stamp)
}
