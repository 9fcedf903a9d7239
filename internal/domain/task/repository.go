package task

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, t *Task) error
	GetBySlug(ctx context.Context, slug string) (*Task, error)
	GetByID(ctx context.Context, id int64) (*Task, error)
	List(ctx context.Context) ([]*Task, error)

	AddAttachment(ctx context.Context, a *TaskAttachment) error
	ListAttachments(ctx context.Context, taskID int64) ([]*TaskAttachment, error)
	GetAttachment(ctx context.Context, taskID, id int64) (*TaskAttachment, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, t *Task) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrSlugConflict
		}
		return err
	}
	return nil
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (*Task, error) {
	var t Task
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	return &t, err
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Task, error) {
	var t Task
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	return &t, err
}

func (r *repository) List(ctx context.Context) ([]*Task, error) {
	var tasks []*Task
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

func (r *repository) AddAttachment(ctx context.Context, a *TaskAttachment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *repository) ListAttachments(ctx context.Context, taskID int64) ([]*TaskAttachment, error) {
	var atts []*TaskAttachment
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("created_at ASC").Find(&atts).Error
	return atts, err
}

func (r *repository) GetAttachment(ctx context.Context, taskID, id int64) (*TaskAttachment, error) {
	var a TaskAttachment
	err := r.db.WithContext(ctx).Where("task_id = ? AND id = ?", taskID, id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttachmentNotFound
	}
	return &a, err
}

func isUniqueConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed")
}
