package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"adjunct-search-go/pkg/log"
)

// RequestIDHeader 是请求 ID 的请求头和响应头。
const RequestIDHeader = "X-Request-ID"

// RequestID 为每个请求分配 ID（沿用上游传入的值），
// 并把带 request_id 字段的 logger 放进 request context。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(log.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(log.NewContext(c.Request.Context(), log.RequestIDKey, id))
		c.Next()
	}
}
