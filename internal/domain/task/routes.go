package task

import "github.com/gin-gonic/gin"

// RegisterRoutes wires the public submitter-facing endpoints.
func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	r.GET("/task/:slug/info", h.Info)
	r.GET("/template/:slug", h.Template)
}

// RegisterAdminRoutes wires the operator endpoints (JWT protected group).
func RegisterAdminRoutes(r *gin.RouterGroup, h *Handler) {
	r.POST("/tasks", h.Create)
	r.GET("/tasks", h.List)
	r.POST("/tasks/:slug/attachments", h.UploadAttachment)
}
