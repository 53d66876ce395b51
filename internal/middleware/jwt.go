package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"oficina/internal/domain" // Identity type
	"oficina/internal/utils"  // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// Context keys populated by the auth gate
const (
	IdentityKey = "identity"
	UserIDKey   = "userID"
)

// JWTAuthMiddleware validates the bearer token and stores the caller identity
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token não informado"})
			return
		}
		authenticate(c, secret, strings.TrimPrefix(authHeader, "Bearer "))
	}
}

// QueryTokenAuthMiddleware accepts the token from the "token" query parameter,
// for browser websocket clients that cannot set headers
func QueryTokenAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token não informado"})
			return
		}
		authenticate(c, secret, token)
	}
}

func authenticate(c *gin.Context, secret, tokenStr string) {
	claims, err := utils.ParseJWT(tokenStr, secret) // Parse the JWT token
	if err != nil {
		// If parsing fails, abort with unauthorized status
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token inválido ou expirado"})
		return
	}
	c.Set(IdentityKey, domain.Identity{UserID: claims.UserID, Name: claims.Name, Role: claims.Role})
	c.Set(UserIDKey, claims.UserID) // Store userID in context
	c.Next()                        // Proceed to the next handler
}

// CurrentUser returns the identity stored by the auth gate
func CurrentUser(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}
