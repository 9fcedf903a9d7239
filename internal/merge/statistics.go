package merge

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// StatisticsOptions configures a structured-record merge run.
type StatisticsOptions struct {
	SchemaPath   string
	SourceFolder string
	OutputPath   string
	// ModeOverrides take precedence over the schema's per-column modes.
	ModeOverrides map[string]MergeMode
}

var statsHeader = []string{"字段", "分组", "统计结果"}

const (
	accumulateGroup = "全部"
	emptyGroup      = "未填写"
	listSeparator   = "、"
)

// record is one submitted JSON object with every field in tagged form.
type record map[string]Value

type aggKey struct {
	Mode MergeMode
	Type ColumnType
}

// aggregator turns all records' readings of one column into output rows.
type aggregator func(col ColumnDefinition, records []record, groupTarget bool) [][]string

// aggregators is the (MergeMode × ColumnType) dispatch table. Each of the
// six behaviors is independently testable.
var aggregators = map[aggKey]aggregator{
	{ModeAccumulate, ColumnNumber}:  accumulateNumber,
	{ModeAccumulate, ColumnBoolean}: accumulateBoolean,
	{ModeAccumulate, ColumnText}:    accumulateText,
	{ModeGroupBy, ColumnNumber}:     groupByNumber,
	{ModeGroupBy, ColumnBoolean}:    groupByBoolean,
	{ModeGroupBy, ColumnText}:       groupByText,
}

// MergeStatistics summarizes every field of the JSON records in
// SourceFolder per the schema's merge modes and atomically replaces
// OutputPath with the statistics table.
func (e *Engine) MergeStatistics(opts StatisticsOptions) Result {
	schema, err := LoadSchema(opts.SchemaPath)
	if err != nil {
		return failed(err.Error())
	}
	if _, err := os.Stat(opts.SourceFolder); err != nil {
		return failed(fmt.Sprintf("source folder not found: %s", opts.SourceFolder))
	}

	// Count candidates with the same case-insensitive extension test the
	// selected set is filtered with, or the superseded tally drifts.
	entries, err := os.ReadDir(opts.SourceFolder)
	if err != nil {
		return failed(err.Error())
	}
	total := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			total++
		}
	}

	selected, _, err := e.selector.SelectLatest(opts.SourceFolder)
	if err != nil {
		return failed(err.Error())
	}
	// Resubmissions are versioned files under one identity; only the latest
	// of each may count, or resubmitters would be aggregated twice.
	paths := make([]string, 0, len(selected))
	for _, path := range selected {
		if strings.EqualFold(filepath.Ext(path), ".json") {
			paths = append(paths, path)
		}
	}
	superseded := total - len(paths)

	records := make([]record, 0, len(paths))
	skipped := 0
	for _, path := range paths {
		rec, err := readRecord(path)
		if err != nil {
			log.Printf("statistics skip_file path=%s error=%q", path, err)
			skipped++
			continue
		}
		records = append(records, rec)
	}

	fields := workingFields(schema, records)
	groupTargets := make(map[string]bool)
	for _, col := range schema.Columns {
		if col.GroupByField != "" {
			groupTargets[col.GroupByField] = true
		}
	}

	byName := make(map[string]ColumnDefinition, len(schema.Columns))
	for _, col := range schema.Columns {
		byName[col.Name] = col
	}

	rows := [][]string{statsHeader}
	for _, name := range fields {
		col, ok := byName[name]
		if !ok {
			// Ad hoc field the schema never declared: still summarized.
			col = ColumnDefinition{Name: name, Type: ColumnText, MergeMode: ModeAccumulate}
		}
		if mode, ok := opts.ModeOverrides[name]; ok {
			col.MergeMode = mode
		}
		// Grouping a field by itself degenerates into one row per distinct
		// value with nothing aggregated; demote to Accumulate.
		if col.MergeMode == ModeGroupBy && col.GroupByField == col.Name {
			col.MergeMode = ModeAccumulate
		}

		agg, ok := aggregators[aggKey{col.MergeMode, normalizeType(col.Type)}]
		if !ok {
			agg = accumulateText
		}
		rows = append(rows, agg(col, records, groupTargets[name])...)
	}

	if err := e.writeAtomic(opts.OutputPath, rows); err != nil {
		return failed(err.Error())
	}

	return Result{
		TotalFiles:    total,
		FilteredFiles: superseded + skipped,
		MergedFiles:   len(rows) - 1, // output rows, header excluded
		TotalRecords:  len(records),
		OutputPath:    opts.OutputPath,
		IsSuccess:     true,
	}
}

func readRecord(path string) (record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	rec := make(record, len(raw))
	for k, v := range raw {
		rec[k] = FromJSON(v)
	}
	return rec, nil
}

// workingFields is the union of the schema's ordered columns and any extra
// keys found in the records, so ad hoc fields are still summarized.
// Underscore-prefixed keys are submission metadata and excluded.
func workingFields(schema *Schema, records []record) []string {
	fields := make([]string, 0, len(schema.Columns))
	known := make(map[string]bool)
	for _, col := range schema.Columns {
		fields = append(fields, col.Name)
		known[col.Name] = true
	}

	var extras []string
	for _, rec := range records {
		for k := range rec {
			if known[k] || strings.HasPrefix(k, "_") {
				continue
			}
			known[k] = true
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	return append(fields, extras...)
}

func normalizeType(t ColumnType) ColumnType {
	switch t {
	case ColumnNumber, ColumnBoolean:
		return t
	default:
		return ColumnText
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func formatBoolCounts(yes, no int) string {
	return fmt.Sprintf("是(%d) 否(%d)", yes, no)
}

func accumulateNumber(col ColumnDefinition, records []record, _ bool) [][]string {
	sum := 0.0
	for _, rec := range records {
		if n, ok := rec[col.Name].AsNumber(); ok {
			sum += n
		}
	}
	return [][]string{{col.Name, accumulateGroup, formatNumber(sum)}}
}

func accumulateBoolean(col ColumnDefinition, records []record, _ bool) [][]string {
	yes, no := 0, 0
	for _, rec := range records {
		b, ok := rec[col.Name].AsBool()
		if !ok {
			continue
		}
		if b {
			yes++
		} else {
			no++
		}
	}
	return [][]string{{col.Name, accumulateGroup, formatBoolCounts(yes, no)}}
}

func accumulateText(col ColumnDefinition, records []record, groupTarget bool) [][]string {
	var distinct []string
	seen := make(map[string]bool)
	for _, rec := range records {
		s := rec[col.Name].String()
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		distinct = append(distinct, s)
	}

	result := strings.Join(distinct, listSeparator)
	if groupTarget {
		result = fmt.Sprintf("%s（共%d项）", result, len(distinct))
	}
	return [][]string{{col.Name, accumulateGroup, result}}
}

func groupKey(rec record, field string) string {
	s := rec[field].String()
	if s == "" {
		return emptyGroup
	}
	return s
}

func sortedGroups[T any](groups map[string]T) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func groupByNumber(col ColumnDefinition, records []record, _ bool) [][]string {
	sums := make(map[string]float64)
	for _, rec := range records {
		g := groupKey(rec, col.GroupByField)
		if _, ok := sums[g]; !ok {
			sums[g] = 0
		}
		if n, ok := rec[col.Name].AsNumber(); ok {
			sums[g] += n
		}
	}

	var rows [][]string
	for _, g := range sortedGroups(sums) {
		rows = append(rows, []string{col.Name, g, formatNumber(sums[g])})
	}
	return rows
}

func groupByBoolean(col ColumnDefinition, records []record, _ bool) [][]string {
	type counts struct{ yes, no int }
	groups := make(map[string]*counts)
	for _, rec := range records {
		g := groupKey(rec, col.GroupByField)
		c, ok := groups[g]
		if !ok {
			c = &counts{}
			groups[g] = c
		}
		b, ok := rec[col.Name].AsBool()
		if !ok {
			continue
		}
		if b {
			c.yes++
		} else {
			c.no++
		}
	}

	var rows [][]string
	for _, g := range sortedGroups(groups) {
		c := groups[g]
		rows = append(rows, []string{col.Name, g, formatBoolCounts(c.yes, c.no)})
	}
	return rows
}

func groupByText(col ColumnDefinition, records []record, _ bool) [][]string {
	values := make(map[string][]string)
	for _, rec := range records {
		g := groupKey(rec, col.GroupByField)
		if _, ok := values[g]; !ok {
			values[g] = nil // the group appears even when no value is recorded
		}
		if s := rec[col.Name].String(); s != "" {
			values[g] = append(values[g], s)
		}
	}

	var rows [][]string
	for _, g := range sortedGroups(values) {
		all := values[g]
		seen := make(map[string]bool)
		distinct := 0
		for _, s := range all {
			if !seen[s] {
				seen[s] = true
				distinct++
			}
		}
		result := fmt.Sprintf("%s（去重%d项）", strings.Join(all, listSeparator), distinct)
		rows = append(rows, []string{col.Name, g, result})
	}
	return rows
}
