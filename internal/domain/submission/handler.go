package submission

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"filecollect/internal/domain/task"
	"filecollect/internal/pkg/response"
	"filecollect/internal/pkg/validator"
)

type Handler struct {
	service *Service
	tasks   *task.Service
}

func NewHandler(service *Service, tasks *task.Service) *Handler {
	return &Handler{service: service, tasks: tasks}
}

type submitForm struct {
	Name       string `form:"name" validate:"required,max=50"`
	Contact    string `form:"contact" validate:"required,min=3,max=15"`
	Department string `form:"department" validate:"required,max=50"`
	Password   string `form:"password"`
}

// Submit accepts one multipart file submission for a collection task.
// Flat response body, like the other submitter-facing endpoints.
func (h *Handler) Submit(c *gin.Context) {
	t, err := h.tasks.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
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

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrEmptyFile.Error()})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer file.Close()

	attachments, closeAll, err := openAttachments(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer closeAll()

	meta := Meta{Name: form.Name, Contact: form.Contact, Department: form.Department}
	sub, err := h.service.SubmitFile(c.Request.Context(), t, meta, fileHeader.Filename, file, attachments)
	if err != nil {
		h.submitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"filename":    sub.StoredName,
		"submittedAt": sub.CreatedAt,
	})
}

func (h *Handler) submitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrCapacityExceeded):
		c.JSON(http.StatusForbidden, gin.H{"error": "submission limit reached"})
	case errors.Is(err, ErrExtensionNotAllowed), errors.Is(err, ErrAttachmentsNotAllowed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store submission"})
	}
}

// openAttachments opens every "attachments" part and returns a single
// closer for all of them.
func openAttachments(c *gin.Context) ([]Attachment, func(), error) {
	noop := func() {}
	mf, err := c.MultipartForm()
	if err != nil {
		return nil, noop, nil // no multipart body beyond the bound fields
	}
	headers := mf.File["attachments"]
	if len(headers) == 0 {
		return nil, noop, nil
	}

	var attachments []Attachment
	var opened []interface{ Close() error }
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	for _, hdr := range headers {
		f, err := hdr.Open()
		if err != nil {
			closeAll()
			return nil, noop, errors.New("unreadable attachment")
		}
		opened = append(opened, f)
		attachments = append(attachments, Attachment{Filename: hdr.Filename, Reader: f})
	}
	return attachments, closeAll, nil
}

// Departments lists the distinct department names seen across all
// submissions, for the submit form's dropdown.
func (h *Handler) Departments(c *gin.Context) {
	departments, err := h.service.Departments(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load departments"})
		return
	}
	if departments == nil {
		departments = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"departments": departments})
}

// ListByTask is the operator view of everything a task has received.
func (h *Handler) ListByTask(c *gin.Context) {
	t, err := h.tasks.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, http.StatusNotFound, "TASK_NOT_FOUND", "task not found")
		return
	}
	subs, err := h.service.ListByTask(c.Request.Context(), t.ID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "LIST_FAILED", "failed to list submissions")
		return
	}
	response.Success(c, http.StatusOK, subs)
}

// Delete removes one submission, its stored files included.
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "submission id must be numeric")
		return
	}
	if err := h.service.DeleteSubmission(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrSubmissionNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "submission not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "DELETE_FAILED", "failed to delete submission")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}
