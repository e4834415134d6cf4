package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health GET /healthz，RPC 不可达时返回 503
func (h *Handler) Health(c *gin.Context) {
	body := gin.H{
		"cluster": h.svc.Cluster(),
		"account": h.svc.Account().String(),
	}
	if h.conn != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.conn.Ping(ctx); err != nil {
			body["status"] = "unhealthy"
			body["error"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}
	body["status"] = "ok"
	c.JSON(http.StatusOK, body)
}
