package task

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"filecollect/internal/merge"
	"filecollect/internal/pkg/response"
	"filecollect/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Info returns the public task metadata submitters need before posting.
// The body is flat (no envelope) — submitter clients predate the envelope.
func (h *Handler) Info(c *gin.Context) {
	t, err := h.service.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	exts := t.ExtensionList()
	if exts == nil {
		exts = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"id":                    t.ID,
		"slug":                  t.Slug,
		"title":                 t.Title,
		"taskType":              t.TaskType,
		"hasPassword":           t.HasPassword(),
		"isActive":              t.IsActive,
		"allowedExtensions":     exts,
		"allowAttachmentUpload": t.AllowAttachments,
	})
}

// Template streams the task's xlsx template. Password travels in the
// X-Password header as submitter clients send it.
func (h *Handler) Template(c *gin.Context) {
	t, err := h.service.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if err := h.service.CheckPassword(t, c.GetHeader("X-Password")); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong password"})
		return
	}
	if _, err := os.Stat(t.TemplatePath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrNoTemplate.Error()})
		return
	}
	c.FileAttachment(t.TemplatePath, t.Slug+"_template.xlsx")
}

type createTaskRequest struct {
	Title             string                   `json:"title" validate:"required"`
	TaskType          int                      `json:"taskType" validate:"min=0,max=1"`
	VersionMode       string                   `json:"versionMode"`
	MaxSubmissions    int64                    `json:"maxSubmissions" validate:"min=0"`
	Password          string                   `json:"password"`
	AllowedExtensions []string                 `json:"allowedExtensions"`
	AllowAttachments  bool                     `json:"allowAttachmentUpload"`
	HeaderRowIndex    int                      `json:"headerRowIndex" validate:"min=0"`
	Columns           []merge.ColumnDefinition `json:"columns"`
}

// Create is the operator endpoint for new tasks.
func (h *Handler) Create(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "invalid task definition", errs)
		return
	}

	t, err := h.service.CreateTask(c.Request.Context(), CreateInput{
		Title:             req.Title,
		TaskType:          req.TaskType,
		VersionMode:       req.VersionMode,
		MaxSubmissions:    req.MaxSubmissions,
		Password:          req.Password,
		AllowedExtensions: req.AllowedExtensions,
		AllowAttachments:  req.AllowAttachments,
		HeaderRow:         req.HeaderRowIndex,
		Columns:           req.Columns,
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "CREATE_FAILED", err.Error())
		return
	}
	response.Success(c, http.StatusCreated, t)
}

// UploadAttachment lets the operator attach a reference file to a task.
// Submitters fetch it back through the public attachment endpoints.
func (h *Handler) UploadAttachment(c *gin.Context) {
	t, err := h.service.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, http.StatusNotFound, "TASK_NOT_FOUND", "task not found")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_BODY", "file field is required")
		return
	}
	display := c.PostForm("displayName")
	if display == "" {
		display = fh.Filename
	}

	f, err := fh.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_BODY", "failed to read uploaded file")
		return
	}
	defer f.Close()

	att, err := h.service.AddAttachment(c.Request.Context(), t, display, f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "UPLOAD_FAILED", err.Error())
		return
	}
	response.Success(c, http.StatusCreated, att)
}

// List is the operator overview of all tasks.
func (h *Handler) List(c *gin.Context) {
	tasks, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "LIST_FAILED", "failed to list tasks")
		return
	}
	response.Success(c, http.StatusOK, tasks)
}
