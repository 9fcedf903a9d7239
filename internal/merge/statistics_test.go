package merge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSchema puts the schema in its own directory so the record scan
// never picks it up.
func writeSchema(t *testing.T, cols ...ColumnDefinition) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, SaveSchema(path, &Schema{Title: "测试任务", Columns: cols}))
	return path
}

// writeRecord stores one record under its own submitter identity, so no
// record supersedes another.
func writeRecord(t *testing.T, dir string, i int, rec map[string]any) {
	t.Helper()
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("rec%d_v1.json", i)), data, 0644))
}

// runStats executes MergeStatistics against a fake codec and returns the
// written rows without the header.
func runStats(t *testing.T, schemaPath, srcDir string, overrides map[string]MergeMode) ([][]string, Result) {
	t.Helper()
	codec := newFakeCodec()
	res := newTestEngine(codec).MergeStatistics(StatisticsOptions{
		SchemaPath:    schemaPath,
		SourceFolder:  srcDir,
		OutputPath:    filepath.Join(t.TempDir(), "stats.xlsx"),
		ModeOverrides: overrides,
	})
	require.True(t, res.IsSuccess, res.ErrorMessage)
	require.NotEmpty(t, codec.lastRows)
	assert.Equal(t, statsHeader, codec.lastRows[0])
	return codec.lastRows[1:], res
}

func TestAccumulateNumberSums(t *testing.T) {
	dir := t.TempDir()
	schema := writeSchema(t, ColumnDefinition{Name: "金额", Type: ColumnNumber, MergeMode: ModeAccumulate})
	for i, v := range []float64{1, 2, 3} {
		writeRecord(t, dir, i+1, map[string]any{"金额": v})
	}

	rows, res := runStats(t, schema, dir, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"金额", "全部", "6"}, rows[0])
	assert.Equal(t, 3, res.TotalRecords)
	assert.Equal(t, 1, res.MergedFiles)
}

func TestStatisticsCountsUppercaseExtension(t *testing.T) {
	dir := t.TempDir()
	schema := writeSchema(t, ColumnDefinition{Name: "金额", Type: ColumnNumber, MergeMode: ModeAccumulate})
	writeRecord(t, dir, 1, map[string]any{"金额": 1})

	data, err := json.Marshal(map[string]any{"金额": 2})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rec2_v1.JSON"), data, 0644))

	rows, res := runStats(t, schema, dir, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"金额", "全部", "3"}, rows[0])
	assert.Equal(t, 2, res.TotalFiles)
	assert.Equal(t, 2, res.TotalRecords)
	assert.Equal(t, 0, res.FilteredFiles)
}

func TestAccumulateBooleanCounts(t *testing.T) {
	dir := t.TempDir()
	schema := writeSchema(t, ColumnDefinition{Name: "已交", Type: ColumnBoolean, MergeMode: ModeAccumulate})
	for i, v := range []bool{true, false, true} {
		writeRecord(t, dir, i+1, map[string]any{"已交": v})
	}

	rows, _ := runStats(t, schema, dir, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"已交", "全部", "是(2) 否(1)"}, rows[0])
}

func TestAccumulateTextDistinctWithGroupTargetCount(t *testing.T) {
	dir := t.TempDir()
	schema := writeSchema(t,
		ColumnDefinition{Name: "部门", Type: ColumnText, MergeMode: ModeAccumulate},
		ColumnDefinition{Name: "人数", Type: ColumnNumber, MergeMode: ModeGroupBy, GroupByField: "部门"},
	)
	writeRecord(t, dir, 1, map[string]any{"部门": "技术部", "人数": 3})
	writeRecord(t, dir, 2, map[string]any{"部门": "市场部", "人数": 2})
	writeRecord(t, dir, 3, map[string]any{"部门": "技术部", "人数": 4})

	rows, _ := runStats(t, schema, dir, nil)
	require.Len(t, rows, 3)
	// 部门 is the designated grouping field: distinct list plus count.
	assert.Equal(t, []string{"部门", "全部", "技术部、市场部（共2项）"}, rows[0])
	// 人数 grouped by 部门, sorted group keys.
	assert.Equal(t, []string{"人数", "市场部", "2"}, rows[1])
	assert.Equal(t, []string{"人数", "技术部", "7"}, rows[2])
}

func TestGroupByBooleanPerGroupCounts(t *testing.T) {
	dir := t.TempDir()
	schema := writeSchema(t,
		ColumnDefinition{Name: "部门", Type: ColumnText, MergeMode: ModeAccumulate},
		ColumnDefinition{Name: "参加", Type: ColumnBoolean, MergeMode: ModeGroupBy, GroupByField: "部门"},
	)
	writeRecord(t, dir, 1, map[string]any{"部门": "X", "参加": true})
	writeRecord(t, dir, 2, map[string]any{"部门": "X", "参加": true})
	writeRecord(t, dir, 3, map[string]any{"部门": "X", "参加": false})
	writeRecord(t, dir, 4, map[string]any{"部门": "Y", "参加": false})

	rows, _ := runStats(t, schema, dir, nil)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"参加", "X", "是(2) 否(1)"}, rows[1])
	assert.Equal(t, []string{"参加", "Y", "是(0) 否(1)"}, rows[2])
}

func TestGroupByTextListsValuesPerGroup(t *testing.T) {
	dir := t.TempDir()
	schema := writeSchema(t,
		ColumnDefinition{Name: "部门", Type: ColumnText, MergeMode: ModeAccumulate},
		ColumnDefinition{Name: "意见", Type: ColumnText, MergeMode: ModeGroupBy, GroupByField: "部门"},
	)
	writeRecord(t, dir, 1, map[string]any{"部门": "X", "意见": "同意"})
	writeRecord(t, dir, 2, map[string]any{"部门": "X", "意见": "同意"})
	writeRecord(t, dir, 3, map[string]any{"部门": "X", "意见": "反对"})

	rows, _ := runStats(t, schema, dir, nil)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"意见", "X", "同意、同意、反对（去重2项）"}, rows[1])
}

// A column grouped by itself must behave exactly like Accumulate.
func TestSelfReferenceGroupByDemotedToAccumulate(t *testing.T) {
	dir := t.TempDir()
	schema := writeSchema(t,
		ColumnDefinition{Name: "城市", Type: ColumnText, MergeMode: ModeGroupBy, GroupByField: "城市"},
	)
	writeRecord(t, dir, 1, map[string]any{"城市": "北京"})
	writeRecord(t, dir, 2, map[string]any{"城市": "上海"})
	writeRecord(t, dir, 3, map[string]any{"城市": "北京"})

	rows, _ := runStats(t, schema, dir, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, "全部", rows[0][1])
	assert.Equal(t, "北京、上海（共2项）", rows[0][2])
}

func TestModeOverrideTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	schema := writeSchema(t,
		ColumnDefinition{Name: "部门", Type: ColumnText, MergeMode: ModeAccumulate},
		ColumnDefinition{Name: "金额", Type: ColumnNumber, MergeMode: ModeAccumulate, GroupByField: "部门"},
	)
	writeRecord(t, dir, 1, map[string]any{"部门": "X", "金额": 1})
	writeRecord(t, dir, 2, map[string]any{"部门": "Y", "金额": 2})

	rows, _ := runStats(t, schema, dir, map[string]MergeMode{"金额": ModeGroupBy})
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"金额", "X", "1"}, rows[1])
	assert.Equal(t, []string{"金额", "Y", "2"}, rows[2])
}

func TestAdHocFieldsSummarizedMetadataExcluded(t *testing.T) {
	dir := t.TempDir()
	schema := writeSchema(t, ColumnDefinition{Name: "姓名", Type: ColumnText, MergeMode: ModeAccumulate})
	writeRecord(t, dir, 1, map[string]any{"姓名": "张三", "备注": "迟交", "_contact": "138"})
	writeRecord(t, dir, 2, map[string]any{"姓名": "李四", "备注": "正常", "_contact": "139"})

	rows, _ := runStats(t, schema, dir, nil)
	require.Len(t, rows, 2)
	assert.Equal(t, "姓名", rows[0][0])
	assert.Equal(t, "备注", rows[1][0])
	for _, r := range rows {
		assert.NotEqual(t, "_contact", r[0])
	}
}

// A resubmitted record supersedes its earlier versions; only the latest
// may enter the aggregation.
func TestStatisticsCountsOnlyLatestVersion(t *testing.T) {
	dir := t.TempDir()
	schema := writeSchema(t, ColumnDefinition{Name: "金额", Type: ColumnNumber, MergeMode: ModeAccumulate})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "u_123_v1.json"), []byte(`{"金额": 10}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "u_123_v2.json"), []byte(`{"金额": 4}`), 0644))

	rows, res := runStats(t, schema, dir, nil)
	assert.Equal(t, 2, res.TotalFiles)
	assert.Equal(t, 1, res.FilteredFiles)
	assert.Equal(t, 1, res.TotalRecords)
	assert.Equal(t, []string{"金额", "全部", "4"}, rows[0])
}

func TestStatisticsRejectsEmptySchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"title":"x","columns":[]}`), 0644))

	res := newTestEngine(newFakeCodec()).MergeStatistics(StatisticsOptions{
		SchemaPath:   path,
		SourceFolder: dir,
		OutputPath:   filepath.Join(dir, "stats.xlsx"),
	})
	require.False(t, res.IsSuccess)
	assert.Contains(t, res.ErrorMessage, "schema")
}

func TestStatisticsSkipsMalformedRecords(t *testing.T) {
	dir := t.TempDir()
	schema := writeSchema(t, ColumnDefinition{Name: "金额", Type: ColumnNumber, MergeMode: ModeAccumulate})
	writeRecord(t, dir, 1, map[string]any{"金额": 5})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken_v1.json"), []byte("{not json"), 0644))

	rows, res := runStats(t, schema, dir, nil)
	assert.Equal(t, 1, res.TotalRecords)
	assert.Equal(t, 1, res.FilteredFiles)
	assert.Equal(t, []string{"金额", "全部", "5"}, rows[0])
}
