package task

import "errors"

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrTaskInactive  = errors.New("task is not active")
	ErrSlugConflict  = errors.New("task slug already taken")
	ErrWrongPassword = errors.New("wrong task password")
	ErrNoTemplate    = errors.New("task has no template")

	ErrAttachmentNotFound = errors.New("attachment not found")
)
