package middleware

import (
	"net/http" // HTTP status codes

	"oficina/internal/domain" // Role types

	"github.com/gin-gonic/gin" // Gin web framework
)

// RequireRoles rejects callers whose role is not in allow. An empty allow-list
// admits every authenticated caller. It must run after the auth gate.
func RequireRoles(allow ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentUser(c) // Identity set by the auth gate
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Não autenticado"})
			return
		}
		if !domain.IsAuthorized(id.Role, allow) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Acesso negado"})
			return
		}
		c.Next()
	}
}
