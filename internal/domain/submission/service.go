package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"filecollect/internal/domain/task"
	"filecollect/internal/storage"
)

// Attachment is one extra file riding along with a submission.
type Attachment struct {
	Filename string
	Reader   io.Reader
}

// Meta identifies the submitter. Name+contact form the logical identity
// embedded in stored file names.
type Meta struct {
	Name       string
	Contact    string
	Department string
}

// Service owns the submission write path: versioned file placement under
// the serializer lock, then the gate's transactional bookkeeping.
type Service struct {
	repo       Repository
	tasks      task.Repository
	serializer *storage.Serializer
	versioner  *storage.Versioner
}

func NewService(repo Repository, tasks task.Repository, serializer *storage.Serializer, versioner *storage.Versioner) *Service {
	return &Service{repo: repo, tasks: tasks, serializer: serializer, versioner: versioner}
}

// SubmitFile stores one spreadsheet submission and records it through the
// ingestion gate. On a gate refusal the just-written files are removed so
// disk and database stay consistent.
func (s *Service) SubmitFile(ctx context.Context, t *task.Task, meta Meta, filename string, file io.Reader, attachments []Attachment) (*Submission, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !t.ExtensionAllowed(ext) {
		return nil, ErrExtensionNotAllowed
	}
	if len(attachments) > 0 && !t.AllowAttachments {
		return nil, ErrAttachmentsNotAllowed
	}
	return s.submit(ctx, t, meta, ext, file, attachments)
}

// SubmitRecord stores one form-mode submission as a versioned JSON
// artifact, optionally with attachments. Submitter identity rides along
// under underscore-prefixed keys, which the statistics pipeline treats as
// metadata and skips. The task's extension allow-list governs the
// attachments here; the record itself is always .json.
func (s *Service) SubmitRecord(ctx context.Context, t *task.Task, meta Meta, record map[string]any, attachments []Attachment) (*Submission, error) {
	if len(attachments) > 0 {
		if !t.AllowAttachments {
			return nil, ErrAttachmentsNotAllowed
		}
		for _, att := range attachments {
			if !t.ExtensionAllowed(strings.ToLower(filepath.Ext(att.Filename))) {
				return nil, ErrExtensionNotAllowed
			}
		}
	}

	wrapped := make(map[string]any, len(record)+4)
	for k, v := range record {
		wrapped[k] = v
	}
	wrapped["_name"] = meta.Name
	wrapped["_contact"] = meta.Contact
	wrapped["_department"] = meta.Department
	wrapped["_submittedAt"] = time.Now().Format(time.RFC3339)

	data, err := json.Marshal(wrapped)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return s.submit(ctx, t, meta, ".json", bytes.NewReader(data), attachments)
}

// submit performs "scan versions -> write -> gate" inside the serializer
// region. The gate runs before any prior artifact is touched: a refused
// resubmission must leave the submitter's earlier files exactly as they
// were. Only after the gate accepts does overwrite mode sweep the
// superseded versions.
func (s *Service) submit(ctx context.Context, t *task.Task, meta Meta, ext string, src io.Reader, attachments []Attachment) (*Submission, error) {
	prefix := identityPrefix(meta.Name, meta.Contact)
	sub := &Submission{
		SubmitterName: meta.Name,
		Contact:       meta.Contact,
		Department:    meta.Department,
	}

	err := s.serializer.Do(func() error {
		if err := os.MkdirAll(t.UploadFolder, 0755); err != nil {
			return fmt.Errorf("create collection folder: %w", err)
		}

		version := 1
		if t.VersionMode != task.ModeOverwrite {
			v, err := s.versioner.NextVersion(t.UploadFolder, prefix, ext)
			if err != nil {
				return err
			}
			version = v
		}

		now := time.Now()
		storedName := s.versioner.TimestampedName(prefix, version, now, ext)
		// Overwrite mode reuses version 1, so a resubmission within the same
		// second would collide with the artifact it is meant to replace.
		// Never write onto an existing name; bump the stamp until free.
		for t.VersionMode == task.ModeOverwrite {
			if _, err := os.Stat(filepath.Join(t.UploadFolder, storedName)); os.IsNotExist(err) {
				break
			}
			now = now.Add(time.Second)
			storedName = s.versioner.TimestampedName(prefix, version, now, ext)
		}

		if err := writeStream(filepath.Join(t.UploadFolder, storedName), src); err != nil {
			return err
		}

		var attNames []string
		if len(attachments) > 0 {
			attDir := filepath.Join(t.UploadFolder, "attachments")
			if err := os.MkdirAll(attDir, 0755); err != nil {
				s.removeStored(t, storedName, nil)
				return fmt.Errorf("create attachments folder: %w", err)
			}
			base := strings.TrimSuffix(storedName, ext)
			for i, att := range attachments {
				attExt := strings.ToLower(filepath.Ext(att.Filename))
				if attExt == "" {
					attExt = ".bin"
				}
				name := fmt.Sprintf("%s_att%d%s", base, i+1, attExt)
				if err := writeStream(filepath.Join(attDir, name), att.Reader); err != nil {
					s.removeStored(t, storedName, attNames)
					return err
				}
				attNames = append(attNames, name)
			}
		}

		sub.StoredName = storedName
		sub.Attachments = encodeAttachmentNames(attNames)

		if err := s.repo.RecordSubmission(ctx, t.ID, sub); err != nil {
			s.removeStored(t, storedName, attNames)
			return err
		}

		if t.VersionMode == task.ModeOverwrite {
			// The accepted artifact replaces every earlier one. The sweep is
			// best-effort: the submission is already recorded.
			if err := s.versioner.RemoveMatching(t.UploadFolder, prefix, ext, storedName); err != nil {
				log.Printf("submission sweep_superseded prefix=%s error=%q", prefix, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// DeleteSubmission removes the row (decrementing the task counter in the
// same transaction) and then best-effort removes the stored files.
func (s *Service) DeleteSubmission(ctx context.Context, id int64) error {
	sub, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if t, err := s.tasks.GetByID(ctx, sub.TaskID); err == nil {
		s.removeStored(t, sub.StoredName, decodeAttachmentNames(sub.Attachments))
	}
	return nil
}

func (s *Service) ListByTask(ctx context.Context, taskID int64) ([]*Submission, error) {
	return s.repo.ListByTask(ctx, taskID)
}

func (s *Service) Departments(ctx context.Context) ([]string, error) {
	return s.repo.Departments(ctx)
}

func (s *Service) removeStored(t *task.Task, storedName string, attNames []string) {
	if storedName != "" {
		_ = os.Remove(filepath.Join(t.UploadFolder, storedName))
	}
	for _, name := range attNames {
		_ = os.Remove(filepath.Join(t.UploadFolder, "attachments", name))
	}
}

func writeStream(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return dst.Close()
}

// identityPrefix builds the "<name>_<contact>" logical identity for file
// names. Path separators and other filename-hostile runes become
// underscores; CJK and other letters pass through untouched.
func identityPrefix(name, contact string) string {
	return sanitize(name) + "_" + sanitize(contact)
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 || r == ' ' || r == '\t' {
			return '_'
		}
		return r
	}, s)
	if len([]rune(s)) > 40 {
		s = string([]rune(s)[:40])
	}
	if s == "" {
		return "anonymous"
	}
	return s
}

func encodeAttachmentNames(names []string) string {
	if len(names) == 0 {
		return ""
	}
	data, _ := json.Marshal(names)
	return string(data)
}

// AttachmentNames decodes the recorded attachment list of a submission.
func (s *Submission) AttachmentNames() []string {
	return decodeAttachmentNames(s.Attachments)
}

func decodeAttachmentNames(raw string) []string {
	if raw == "" {
		return nil
	}
	var names []string
	if json.Unmarshal([]byte(raw), &names) != nil {
		return nil
	}
	return names
}
