package consolidate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"filecollect/internal/domain/task"
	"filecollect/internal/excel"
	"filecollect/internal/merge"
	"filecollect/internal/storage"
)

func setupTest(t *testing.T) (*Service, *task.Task, *excel.Codec) {
	t.Helper()
	dsn := fmt.Sprintf("file:consolidate_test_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	if err := db.AutoMigrate(&task.Task{}); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}

	base := filepath.Join(t.TempDir(), "demo")
	tk := &task.Task{
		Slug:         "demo",
		Title:        "demo task",
		VersionMode:  task.ModeAutoVersion,
		UploadFolder: filepath.Join(base, "files"),
		TemplatePath: filepath.Join(base, "template.xlsx"),
		SchemaPath:   filepath.Join(base, "schema.json"),
		IsActive:     true,
	}
	repo := task.NewRepository(db)
	if err := repo.Create(context.Background(), tk); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	if err := os.MkdirAll(tk.UploadFolder, 0755); err != nil {
		t.Fatalf("failed to create upload folder: %v", err)
	}

	codec := excel.NewCodec()
	return NewService(repo, merge.NewEngine(codec, storage.NewSelector())), tk, codec
}

func TestMergeTaskConsolidatesLatestVersions(t *testing.T) {
	svc, tk, codec := setupTest(t)

	write := func(name string, rows [][]string) {
		t.Helper()
		if err := codec.WriteRows(filepath.Join(tk.UploadFolder, name), rows); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	header := []string{"姓名", "城市"}
	write("张三_138_v1.xlsx", [][]string{header, {"张三", "北京"}})
	write("张三_138_v2.xlsx", [][]string{header, {"张三", "上海"}})
	write("李四_139_v1.xlsx", [][]string{header, {"李四", "广州"}})

	res, err := svc.MergeTask(context.Background(), tk.Slug, MergeRequest{})
	if err != nil {
		t.Fatalf("MergeTask returned error: %v", err)
	}
	if !res.IsSuccess {
		t.Fatalf("merge failed: %s", res.ErrorMessage)
	}
	if res.MergedFiles != 2 || res.TotalRecords != 2 {
		t.Fatalf("expected 2 merged files / 2 records, got %d / %d", res.MergedFiles, res.TotalRecords)
	}

	out := filepath.Join(filepath.Dir(tk.UploadFolder), "merged.xlsx")
	if res.OutputPath != out {
		t.Fatalf("unexpected output path %q", res.OutputPath)
	}
	rows, err := codec.ReadRows(out, 0)
	if err != nil {
		t.Fatalf("failed to read merged output: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	cities := map[string]bool{}
	for _, row := range rows[1:] {
		cities[row[1]] = true
	}
	// v1 of 张三 is superseded by v2.
	if cities["北京"] || !cities["上海"] || !cities["广州"] {
		t.Fatalf("unexpected merged cities: %v", cities)
	}
}

func TestMergeTaskStatisticsAggregatesRecords(t *testing.T) {
	svc, tk, codec := setupTest(t)

	schema := &merge.Schema{
		Title: "headcount",
		Columns: []merge.ColumnDefinition{
			{Name: "人数", Type: merge.ColumnNumber, MergeMode: merge.ModeAccumulate},
		},
	}
	if err := merge.SaveSchema(tk.SchemaPath, schema); err != nil {
		t.Fatalf("failed to save schema: %v", err)
	}
	for i, n := range []int{2, 3} {
		path := filepath.Join(tk.UploadFolder, fmt.Sprintf("u_123_v%d.json", i+1))
		if err := os.WriteFile(path, []byte(fmt.Sprintf(`{"人数": %d}`, n)), 0644); err != nil {
			t.Fatalf("failed to write record: %v", err)
		}
	}

	res, err := svc.MergeTaskStatistics(context.Background(), tk.Slug, StatisticsRequest{})
	if err != nil {
		t.Fatalf("MergeTaskStatistics returned error: %v", err)
	}
	if !res.IsSuccess {
		t.Fatalf("statistics merge failed: %s", res.ErrorMessage)
	}
	// Only the latest version of u_123 counts.
	if res.TotalFiles != 2 || res.FilteredFiles != 1 {
		t.Fatalf("expected 2 total / 1 filtered, got %d / %d", res.TotalFiles, res.FilteredFiles)
	}

	rows, err := codec.ReadRows(filepath.Join(filepath.Dir(tk.UploadFolder), "statistics.xlsx"), 0)
	if err != nil {
		t.Fatalf("failed to read statistics output: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus 1 row, got %d", len(rows))
	}
	if rows[1][0] != "人数" || rows[1][2] != "3" {
		t.Fatalf("unexpected statistics row: %v", rows[1])
	}
}

func TestMergeTaskUnknownSlug(t *testing.T) {
	svc, _, _ := setupTest(t)
	_, err := svc.MergeTask(context.Background(), "missing", MergeRequest{})
	if err != task.ErrTaskNotFound {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}
