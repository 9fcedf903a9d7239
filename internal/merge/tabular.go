package merge

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"filecollect/internal/storage"
)

// TableCodec is the row-oriented spreadsheet capability the engine
// consumes. ReadRows returns rows starting at headerRow (the first
// returned row is the header); WriteRows replaces path with a fresh
// workbook.
type TableCodec interface {
	ReadRows(path string, headerRow int) ([][]string, error)
	WriteRows(path string, rows [][]string) error
}

// Engine consolidates a collection folder into one output artifact.
// It never takes the writers' Serializer lock, so a merge racing an
// in-flight submission can observe a partially written file; accepted as
// an operational constraint.
type Engine struct {
	codec    TableCodec
	selector *storage.Selector
}

func NewEngine(codec TableCodec, selector *storage.Selector) *Engine {
	return &Engine{codec: codec, selector: selector}
}

// TabularOptions configures a spreadsheet merge run.
type TabularOptions struct {
	SourceFolder     string
	OutputPath       string
	RemoveDuplicates bool
	DedupColumns     []string
	Separator        string
	TemplatePath     string // optional canonical header source
	HeaderRow        int    // zero-based header row index
}

// MergeLatest reduces SourceFolder to its latest versions, concatenates
// their rows onto one canonical header, optionally deduplicates by a
// composite key, and atomically replaces OutputPath with the result.
func (e *Engine) MergeLatest(opts TabularOptions) Result {
	if _, err := os.Stat(opts.SourceFolder); err != nil {
		return failed(fmt.Sprintf("source folder not found: %s", opts.SourceFolder))
	}
	if opts.TemplatePath != "" {
		if _, err := os.Stat(opts.TemplatePath); err != nil {
			return failed(fmt.Sprintf("template not found: %s", opts.TemplatePath))
		}
	}
	if opts.Separator == "" {
		opts.Separator = "|"
	}

	selected, stats, err := e.selector.SelectLatest(opts.SourceFolder)
	if err != nil {
		return failed(err.Error())
	}

	var canonical []string
	if opts.TemplatePath != "" {
		rows, err := e.codec.ReadRows(opts.TemplatePath, opts.HeaderRow)
		if err != nil || len(rows) == 0 {
			return failed(fmt.Sprintf("template has no header row: %s", opts.TemplatePath))
		}
		canonical = rows[0]
	}

	var merged [][]string
	seen := make(map[string]bool)
	mergedFiles := 0
	totalRecords := 0
	duplicated := 0

	outAbs, _ := filepath.Abs(opts.OutputPath)
	for _, path := range selected {
		if abs, _ := filepath.Abs(path); abs == outAbs {
			continue // never merge a previous output back into itself
		}

		rows, err := e.codec.ReadRows(path, opts.HeaderRow)
		if err != nil {
			log.Printf("merge skip_file path=%s error=%q", path, err)
			continue
		}
		if len(rows) == 0 {
			continue
		}

		srcHeader := rows[0]
		data := rows[1:]
		if canonical == nil {
			canonical = srcHeader
		}

		colMap := mapHeaders(canonical, srcHeader)

		dedupIdx := make([]int, 0, len(opts.DedupColumns))
		if opts.RemoveDuplicates {
			for _, name := range opts.DedupColumns {
				dedupIdx = append(dedupIdx, headerIndex(srcHeader, name))
			}
		}
		// When none of the requested dedup columns resolve in this file the
		// rows are added unfiltered instead of failing the run.
		dedupActive := opts.RemoveDuplicates && anyResolved(dedupIdx)

		mergedFiles++
		for _, row := range data {
			totalRecords++

			if dedupActive {
				key, allEmpty := compositeKey(row, dedupIdx, opts.Separator)
				if !allEmpty {
					if seen[key] {
						duplicated++
						continue
					}
					seen[key] = true
				}
			}

			out := make([]string, len(canonical))
			for i, j := range colMap {
				if j >= 0 && j < len(row) {
					out[i] = row[j]
				}
			}
			merged = append(merged, out)
		}
	}

	if canonical == nil {
		return failed("no readable source files in folder")
	}

	outRows := append([][]string{canonical}, merged...)
	if err := e.writeAtomic(opts.OutputPath, outRows); err != nil {
		return failed(err.Error())
	}

	return Result{
		TotalFiles:          stats.TotalFiles,
		FilteredFiles:       stats.ExcludedFiles,
		MergedFiles:         mergedFiles,
		TotalRecords:        totalRecords,
		DeduplicatedRecords: totalRecords - duplicated,
		DuplicatedCount:     duplicated,
		OutputPath:          opts.OutputPath,
		IsSuccess:           true,
	}
}

// writeAtomic writes rows to a temp file beside dst, then swaps it into
// place. A reader can never observe a half-written output; on failure the
// temp file is discarded and any pre-existing dst is left untouched.
func (e *Engine) writeAtomic(dst string, rows [][]string) error {
	tmp := dst + ".tmp"
	if err := e.codec.WriteRows(tmp, rows); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write merge output: %w", err)
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", dst, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("move merge output into place: %w", err)
	}
	return nil
}

// mapHeaders resolves each canonical column to a source column index via
// case-insensitive name match, or -1 when the source lacks it.
func mapHeaders(canonical, src []string) []int {
	m := make([]int, len(canonical))
	for i, name := range canonical {
		m[i] = headerIndex(src, name)
	}
	return m
}

func headerIndex(header []string, name string) int {
	want := strings.TrimSpace(name)
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), want) {
			return i
		}
	}
	return -1
}

func anyResolved(idx []int) bool {
	for _, i := range idx {
		if i >= 0 {
			return true
		}
	}
	return false
}

// compositeKey joins the dedup column values with sep. Unresolved columns
// contribute an empty part; allEmpty reports a row with no usable dedup
// value at all, which is kept without deduplication.
func compositeKey(row []string, idx []int, sep string) (string, bool) {
	parts := make([]string, len(idx))
	allEmpty := true
	for k, i := range idx {
		if i >= 0 && i < len(row) {
			parts[k] = strings.TrimSpace(row[i])
		}
		if parts[k] != "" {
			allEmpty = false
		}
	}
	return strings.Join(parts, sep), allEmpty
}
