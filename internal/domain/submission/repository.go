package submission

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"filecollect/internal/domain/task"
)

type Repository interface {
	// RecordSubmission is the ingestion gate: inserting the submission and
	// incrementing the task counter happen together or not at all.
	RecordSubmission(ctx context.Context, taskID int64, sub *Submission) error
	// Delete removes a submission and decrements the owning task's counter
	// in one transaction; returns the deleted row so callers can clean up
	// the stored files.
	Delete(ctx context.Context, id int64) (*Submission, error)
	GetByID(ctx context.Context, id int64) (*Submission, error)
	ListByTask(ctx context.Context, taskID int64) ([]*Submission, error)
	Departments(ctx context.Context) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// RecordSubmission inserts the row, then applies the conditional counter
// update in the same transaction. Zero rows affected means the task is at
// capacity: the whole transaction — including the inserted submission —
// rolls back. One round trip, race-free under concurrent callers, no
// in-process lock needed.
func (r *repository) RecordSubmission(ctx context.Context, taskID int64, sub *Submission) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub.TaskID = taskID
		if err := tx.Create(sub).Error; err != nil {
			return err
		}

		res := tx.Model(&task.Task{}).
			Where("id = ? AND (max_submissions = 0 OR current_count < max_submissions)", taskID).
			UpdateColumn("current_count", gorm.Expr("current_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCapacityExceeded
		}
		return nil
	})
}

func (r *repository) Delete(ctx context.Context, id int64) (*Submission, error) {
	var sub Submission
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubmissionNotFound
			}
			return err
		}
		if err := tx.Delete(&Submission{}, sub.ID).Error; err != nil {
			return err
		}
		return tx.Model(&task.Task{}).
			Where("id = ? AND current_count > 0", sub.TaskID).
			UpdateColumn("current_count", gorm.Expr("current_count - 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Submission, error) {
	var sub Submission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubmissionNotFound
	}
	return &sub, err
}

func (r *repository) ListByTask(ctx context.Context, taskID int64) ([]*Submission, error) {
	var subs []*Submission
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("created_at DESC").Find(&subs).Error
	return subs, err
}

func (r *repository) Departments(ctx context.Context) ([]string, error) {
	var departments []string
	err := r.db.WithContext(ctx).Model(&Submission{}).
		Where("department <> ''").
		Distinct("department").
		Order("department").
		Pluck("department", &departments).Error
	return departments, err
}
