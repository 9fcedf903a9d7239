package submission

import "errors"

var (
	ErrCapacityExceeded      = errors.New("submission limit reached for this task")
	ErrSubmissionNotFound    = errors.New("submission not found")
	ErrExtensionNotAllowed   = errors.New("file extension is not allowed for this task")
	ErrAttachmentsNotAllowed = errors.New("this task does not accept attachments")
	ErrEmptyFile             = errors.New("file is empty")
)
