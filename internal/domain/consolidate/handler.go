package consolidate

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"filecollect/internal/domain/task"
	"filecollect/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Merge runs the tabular consolidation for a task. The body is optional;
// an empty body means defaults (no dedup).
func (h *Handler) Merge(c *gin.Context) {
	var req MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	res, err := h.service.MergeTask(c.Request.Context(), c.Param("slug"), req)
	if err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			response.Error(c, http.StatusNotFound, "TASK_NOT_FOUND", "task not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "MERGE_FAILED", err.Error())
		return
	}
	if !res.IsSuccess {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "MERGE_FAILED", res.ErrorMessage, res)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// MergeStatistics runs the statistics consolidation for a form task.
func (h *Handler) MergeStatistics(c *gin.Context) {
	var req StatisticsRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	res, err := h.service.MergeTaskStatistics(c.Request.Context(), c.Param("slug"), req)
	if err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			response.Error(c, http.StatusNotFound, "TASK_NOT_FOUND", "task not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "MERGE_FAILED", err.Error())
		return
	}
	if !res.IsSuccess {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "MERGE_FAILED", res.ErrorMessage, res)
		return
	}
	response.Success(c, http.StatusOK, res)
}
