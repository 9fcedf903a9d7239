package submission

import "github.com/gin-gonic/gin"

// RegisterRoutes wires the public submitter-facing endpoints.
func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	r.POST("/submit/:slug", h.Submit)
	r.GET("/departments", h.Departments)
}

// RegisterAdminRoutes wires the operator endpoints (JWT protected group).
func RegisterAdminRoutes(r *gin.RouterGroup, h *Handler) {
	r.GET("/tasks/:slug/submissions", h.ListByTask)
	r.DELETE("/submissions/:id", h.Delete)
}
