package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"adjunct-search-go/pkg/log"
)

// HealthHandler 报告服务和数据库的连通性。
type HealthHandler struct {
	ping func() error
}

// NewHealthHandler 创建一个新的 HealthHandler 实例。ping 通常是 database.Ping 的闭包。
func NewHealthHandler(ping func() error) *HealthHandler {
	return &HealthHandler{ping: ping}
}

// Check 处理健康检查请求。
func (h *HealthHandler) Check(c *gin.Context) {
	now := time.Now().UTC().Format(time.RFC3339)
	if err := h.ping(); err != nil {
		log.Error("[HealthHandler] 数据库连接检查失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "ERROR", "database": "disconnected", "timestamp": now, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "database": "connected", "timestamp": now})
}
