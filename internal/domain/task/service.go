package task

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"filecollect/internal/merge"
)

// maxSlugRetries bounds the retry loop on slug collisions. Exhaustion is a
// fatal creation failure, not an exception escaping mid-transaction.
const maxSlugRetries = 5

// Service owns task lifecycle: slug allocation, folder layout on disk,
// password boundary.
type Service struct {
	repo        Repository
	storageRoot string
}

func NewService(repo Repository, storageRoot string) *Service {
	return &Service{repo: repo, storageRoot: storageRoot}
}

// CreateInput describes a new collection task.
type CreateInput struct {
	Title             string
	TaskType          int
	VersionMode       string
	MaxSubmissions    int64
	Password          string
	AllowedExtensions []string
	AllowAttachments  bool
	HeaderRow         int
	Columns           []merge.ColumnDefinition // form tasks only
}

// CreateTask allocates a slug (retrying on collisions with a fresh
// identifier up to maxSlugRetries), lays out the task's folders under the
// storage root and, for form tasks, writes the column schema file.
func (s *Service) CreateTask(ctx context.Context, in CreateInput) (*Task, error) {
	mode := in.VersionMode
	if mode == "" {
		mode = ModeAutoVersion
	}
	if mode != ModeAutoVersion && mode != ModeOverwrite {
		return nil, fmt.Errorf("unknown version mode %q", in.VersionMode)
	}

	hash := ""
	if in.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash task password: %w", err)
		}
		hash = string(h)
	}

	exts := make([]string, 0, len(in.AllowedExtensions))
	for _, e := range in.AllowedExtensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}

	var created *Task
	for attempt := 0; attempt < maxSlugRetries; attempt++ {
		slug := newSlug()
		base := filepath.Join(s.storageRoot, slug)

		t := &Task{
			Slug:              slug,
			Title:             in.Title,
			TaskType:          in.TaskType,
			VersionMode:       mode,
			MaxSubmissions:    in.MaxSubmissions,
			UploadFolder:      filepath.Join(base, "files"),
			TemplatePath:      filepath.Join(base, "template.xlsx"),
			SchemaPath:        filepath.Join(base, "schema.json"),
			PasswordHash:      hash,
			AllowedExtensions: strings.Join(exts, ","),
			AllowAttachments:  in.AllowAttachments,
			HeaderRow:         in.HeaderRow,
			IsActive:          true,
		}

		err := s.repo.Create(ctx, t)
		if err == nil {
			created = t
			break
		}
		if err == ErrSlugConflict {
			continue
		}
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("allocate task slug after %d attempts: %w", maxSlugRetries, ErrSlugConflict)
	}

	if err := os.MkdirAll(created.UploadFolder, 0755); err != nil {
		return nil, fmt.Errorf("create collection folder: %w", err)
	}
	if created.TaskType == TypeOnlineForm && len(in.Columns) > 0 {
		schema := &merge.Schema{Title: created.Title, Columns: in.Columns}
		if err := merge.SaveSchema(created.SchemaPath, schema); err != nil {
			return nil, err
		}
	}
	return created, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*Task, error) {
	return s.repo.GetBySlug(ctx, slug)
}

func (s *Service) List(ctx context.Context) ([]*Task, error) {
	return s.repo.List(ctx)
}

// CheckPassword is the single auth boundary call for submitter access. A
// task without a password accepts anything.
func (s *Service) CheckPassword(t *Task, password string) error {
	if !t.HasPassword() {
		return nil
	}
	if bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(password)) != nil {
		return ErrWrongPassword
	}
	return nil
}

// Schema loads the task's column schema from disk.
func (s *Service) Schema(t *Task) (*merge.Schema, error) {
	return merge.LoadSchema(t.SchemaPath)
}

// AddAttachment stores one operator-provided file under the task's
// attachment folder and records it. The on-disk name gets a fresh slug
// prefix so two uploads sharing a display name never collide.
func (s *Service) AddAttachment(ctx context.Context, t *Task, displayName string, src io.Reader) (*TaskAttachment, error) {
	dir := t.AttachmentFolder()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create attachment folder: %w", err)
	}

	diskName := newSlug() + "_" + filepath.Base(displayName)
	path := filepath.Join(dir, diskName)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create attachment file: %w", err)
	}
	size, err := io.Copy(f, src)
	if err != nil {
		f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write attachment file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	att := &TaskAttachment{
		TaskID:      t.ID,
		FileName:    diskName,
		DisplayName: displayName,
		FileSize:    size,
	}
	if err := s.repo.AddAttachment(ctx, att); err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	return att, nil
}

// Attachments lists the operator-provided files for a task, oldest first.
func (s *Service) Attachments(ctx context.Context, t *Task) ([]*TaskAttachment, error) {
	return s.repo.ListAttachments(ctx, t.ID)
}

// AttachmentPath resolves one attachment to its record and on-disk path.
// A record whose file has gone missing counts as not found.
func (s *Service) AttachmentPath(ctx context.Context, t *Task, id int64) (*TaskAttachment, string, error) {
	att, err := s.repo.GetAttachment(ctx, t.ID, id)
	if err != nil {
		return nil, "", err
	}
	path := filepath.Join(t.AttachmentFolder(), att.FileName)
	if _, err := os.Stat(path); err != nil {
		return nil, "", ErrAttachmentNotFound
	}
	return att, path, nil
}

func newSlug() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
