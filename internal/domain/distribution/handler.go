package distribution

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"filecollect/internal/domain/submission"
	"filecollect/internal/domain/task"
	"filecollect/internal/merge"
	"filecollect/internal/pkg/validator"
)

// Handler serves form-mode tasks: clients fetch the column schema, render
// the form themselves and post answers back as one JSON object.
type Handler struct {
	tasks       *task.Service
	submissions *submission.Service
}

func NewHandler(tasks *task.Service, submissions *submission.Service) *Handler {
	return &Handler{tasks: tasks, submissions: submissions}
}

// Schema returns the task's column definitions. Password travels in the
// X-Password header, same as the template download.
func (h *Handler) Schema(c *gin.Context) {
	t, err := h.tasks.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if t.TaskType != task.TypeOnlineForm {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task is not a form task"})
		return
	}
	if err := h.tasks.CheckPassword(t, c.GetHeader("X-Password")); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong password"})
		return
	}

	schema, err := h.tasks.Schema(t)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task has no schema"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"title":   schema.Title,
		"columns": schema.Columns,
	})
}

// Attachments lists the operator-provided files for a task. Password
// travels in the X-Password header, same as the schema endpoint.
func (h *Handler) Attachments(c *gin.Context) {
	t, err := h.tasks.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if err := h.tasks.CheckPassword(t, c.GetHeader("X-Password")); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong password"})
		return
	}

	atts, err := h.tasks.Attachments(c.Request.Context(), t)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list attachments"})
		return
	}
	if atts == nil {
		atts = []*task.TaskAttachment{}
	}
	c.JSON(http.StatusOK, gin.H{"attachments": atts})
}

// DownloadAttachment streams one attachment by id under its display name.
func (h *Handler) DownloadAttachment(c *gin.Context) {
	t, err := h.tasks.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if err := h.tasks.CheckPassword(t, c.GetHeader("X-Password")); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong password"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": task.ErrAttachmentNotFound.Error()})
		return
	}
	att, path, err := h.tasks.AttachmentPath(c.Request.Context(), t, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": task.ErrAttachmentNotFound.Error()})
		return
	}
	c.FileAttachment(path, att.DisplayName)
}

type submitForm struct {
	Name       string `form:"name" validate:"required,max=50"`
	Contact    string `form:"contact" validate:"required,min=3,max=15"`
	Department string `form:"department" validate:"required,max=50"`
	Password   string `form:"password"`
	JSONData   string `form:"jsonData" validate:"required"`
}

// Submit accepts one filled form as a jsonData field and stores it as a
// versioned JSON artifact through the same ingestion path as file uploads.
func (h *Handler) Submit(c *gin.Context) {
	t, err := h.tasks.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if t.TaskType != task.TypeOnlineForm {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task is not a form task"})
		return
	}
	if !t.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": task.ErrTaskInactive.Error()})
		return
	}

	var form submitForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if errs := validator.Validate(form); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission fields", "details": errs})
		return
	}
	if err := h.tasks.CheckPassword(t, form.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong password"})
		return
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(form.JSONData), &record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "jsonData must be a JSON object"})
		return
	}
	if schema, err := h.tasks.Schema(t); err == nil {
		if err := checkRequired(schema, record); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	// Extra files ride along as repeated "attachment" parts, validated
	// against the task's extension allow-list.
	var atts []submission.Attachment
	if mf, err := c.MultipartForm(); err == nil && mf != nil {
		for _, fh := range mf.File["attachment"] {
			f, err := fh.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read attachment"})
				return
			}
			defer f.Close()
			atts = append(atts, submission.Attachment{Filename: fh.Filename, Reader: f})
		}
	}

	meta := submission.Meta{Name: form.Name, Contact: form.Contact, Department: form.Department}
	sub, err := h.submissions.SubmitRecord(c.Request.Context(), t, meta, record, atts)
	if err != nil {
		switch {
		case errors.Is(err, submission.ErrCapacityExceeded):
			c.JSON(http.StatusForbidden, gin.H{"error": "submission limit reached"})
		case errors.Is(err, submission.ErrAttachmentsNotAllowed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "task does not accept attachments"})
		case errors.Is(err, submission.ErrExtensionNotAllowed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "attachment type not allowed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store submission"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"filename":        sub.StoredName,
		"submittedAt":     sub.CreatedAt,
		"attachmentCount": len(sub.AttachmentNames()),
	})
}

// checkRequired rejects records that leave a required column empty.
func checkRequired(schema *merge.Schema, record map[string]any) error {
	for _, col := range schema.Columns {
		if !col.Required {
			continue
		}
		v, ok := record[col.Name]
		if !ok || v == nil || fmt.Sprintf("%v", v) == "" {
			return fmt.Errorf("field %q is required", col.Name)
		}
	}
	return nil
}
