package distribution

import "github.com/gin-gonic/gin"

// RegisterRoutes wires the public form-mode endpoints.
func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	r.GET("/distribution/:slug/schema", h.Schema)
	r.GET("/distribution/:slug/attachments", h.Attachments)
	r.GET("/distribution/:slug/attachments/:id", h.DownloadAttachment)
	r.POST("/distribution/:slug/submit", h.Submit)
}
