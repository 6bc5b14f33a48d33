package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"adjunct-search-go/pkg/token"
)

// CoordinatorAuthMiddleware 检查调用方是否为协调人或管理员。
// 此中间件必须在 AuthMiddleware 之后使用。
func CoordinatorAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ClaimsKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Missing authentication context"})
			return
		}
		claims, ok := value.(*token.CustomClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Invalid authentication context"})
			return
		}

		if !token.CanSearch(claims.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Coordinator access required"})
			return
		}
		c.Next()
	}
}
