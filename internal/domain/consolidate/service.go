package consolidate

import (
	"context"
	"os"
	"path/filepath"

	"filecollect/internal/domain/task"
	"filecollect/internal/merge"
)

// Service runs the consolidation pipelines against a task's collection
// folder. Outputs land next to the folder (merged.xlsx, statistics.xlsx),
// never inside it, so they can never be picked up as submissions.
type Service struct {
	tasks  task.Repository
	engine *merge.Engine
}

func NewService(tasks task.Repository, engine *merge.Engine) *Service {
	return &Service{tasks: tasks, engine: engine}
}

// MergeRequest tunes the tabular merge.
type MergeRequest struct {
	RemoveDuplicates bool     `json:"removeDuplicates"`
	DedupColumns     []string `json:"dedupColumns"`
	Separator        string   `json:"separator"`
}

// StatisticsRequest tunes the statistics merge.
type StatisticsRequest struct {
	ModeOverrides map[string]merge.MergeMode `json:"modeOverrides"`
}

// MergeTask consolidates the latest version of every submission into
// merged.xlsx under the task's base folder.
func (s *Service) MergeTask(ctx context.Context, slug string, req MergeRequest) (merge.Result, error) {
	t, err := s.tasks.GetBySlug(ctx, slug)
	if err != nil {
		return merge.Result{}, err
	}

	opts := merge.TabularOptions{
		SourceFolder:     t.UploadFolder,
		OutputPath:       filepath.Join(taskBase(t), "merged.xlsx"),
		RemoveDuplicates: req.RemoveDuplicates,
		DedupColumns:     req.DedupColumns,
		Separator:        req.Separator,
		HeaderRow:        t.HeaderRow,
	}
	if _, err := os.Stat(t.TemplatePath); err == nil {
		opts.TemplatePath = t.TemplatePath
	}
	return s.engine.MergeLatest(opts), nil
}

// MergeTaskStatistics aggregates the task's JSON form records into
// statistics.xlsx per the task's column schema.
func (s *Service) MergeTaskStatistics(ctx context.Context, slug string, req StatisticsRequest) (merge.Result, error) {
	t, err := s.tasks.GetBySlug(ctx, slug)
	if err != nil {
		return merge.Result{}, err
	}

	return s.engine.MergeStatistics(merge.StatisticsOptions{
		SchemaPath:    t.SchemaPath,
		SourceFolder:  t.UploadFolder,
		OutputPath:    filepath.Join(taskBase(t), "statistics.xlsx"),
		ModeOverrides: req.ModeOverrides,
	}), nil
}

// taskBase is the task's folder above the collection folder.
func taskBase(t *task.Task) string {
	return filepath.Dir(t.UploadFolder)
}
