package consolidate

import "github.com/gin-gonic/gin"

// RegisterAdminRoutes wires the operator consolidation endpoints.
func RegisterAdminRoutes(r *gin.RouterGroup, h *Handler) {
	r.POST("/tasks/:slug/merge", h.Merge)
	r.POST("/tasks/:slug/merge-statistics", h.MergeStatistics)
}
