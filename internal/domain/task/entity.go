package task

import (
	"path/filepath"
	"strings"
	"time"
)

// Task types mirror the two collection modes exposed to submitters.
const (
	TypeFileCollection = 0 // submitters upload spreadsheet files
	TypeOnlineForm     = 1 // submitters fill a typed form, stored as JSON
)

// Versioning modes for stored artifacts.
const (
	ModeAutoVersion = "autoversion" // keep every version, increment
	ModeOverwrite   = "overwrite"   // keep only the latest, always version 1
)

// Task is one collection campaign. CurrentCount is only ever mutated
// through the submission repository's guarded transaction; it must never
// exceed MaxSubmissions when that limit is non-zero.
type Task struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Slug              string    `gorm:"column:slug;uniqueIndex;size:16;not null" json:"slug"`
	Title             string    `gorm:"column:title;not null" json:"title"`
	TaskType          int       `gorm:"column:task_type;not null" json:"taskType"`
	VersionMode       string    `gorm:"column:version_mode;not null;default:autoversion" json:"versionMode"`
	MaxSubmissions    int64     `gorm:"column:max_submissions;not null;default:0" json:"maxSubmissions"` // 0 = unlimited
	CurrentCount      int64     `gorm:"column:current_count;not null;default:0" json:"currentCount"`
	UploadFolder      string    `gorm:"column:upload_folder" json:"-"`
	TemplatePath      string    `gorm:"column:template_path" json:"-"`
	SchemaPath        string    `gorm:"column:schema_path" json:"-"`
	PasswordHash      string    `gorm:"column:password_hash" json:"-"`
	AllowedExtensions string    `gorm:"column:allowed_extensions" json:"-"` // comma separated, lowercase
	AllowAttachments  bool      `gorm:"column:allow_attachments" json:"allowAttachmentUpload"`
	HeaderRow         int       `gorm:"column:header_row;not null;default:0" json:"-"`
	IsActive          bool      `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (Task) TableName() string { return "tasks" }

// TaskAttachment is one operator-provided file handed out to submitters
// alongside a task: reference documents, filled examples, instructions.
// FileName is the on-disk name inside the task's attachment folder;
// DisplayName is what submitters see and download it as.
type TaskAttachment struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TaskID      int64     `gorm:"column:task_id;index;not null" json:"-"`
	FileName    string    `gorm:"column:file_name;not null" json:"fileName"`
	DisplayName string    `gorm:"column:display_name;not null" json:"displayName"`
	FileSize    int64     `gorm:"column:file_size;not null;default:0" json:"fileSize"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (TaskAttachment) TableName() string { return "task_attachments" }

func (t *Task) HasPassword() bool { return t.PasswordHash != "" }

// ExtensionList splits the stored allow-list. Empty means any extension.
func (t *Task) ExtensionList() []string {
	if t.AllowedExtensions == "" {
		return nil
	}
	parts := strings.Split(t.AllowedExtensions, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// AttachmentFolder is where operator-provided files live, next to the
// files/ folder that holds submitter uploads.
func (t *Task) AttachmentFolder() string {
	return filepath.Join(filepath.Dir(t.UploadFolder), "attachments")
}

func (t *Task) ExtensionAllowed(ext string) bool {
	list := t.ExtensionList()
	if len(list) == 0 {
		return true
	}
	ext = strings.ToLower(ext)
	for _, allowed := range list {
		if ext == allowed {
			return true
		}
	}
	return false
}
