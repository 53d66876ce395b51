package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"oficina/internal/domain"
	"oficina/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-0123456789abcdef0123456789"

func newEngine(allow ...domain.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded", JWTAuthMiddleware(secret), RequireRoles(allow...), func(c *gin.Context) {
		id, _ := CurrentUser(c)
		c.JSON(http.StatusOK, id)
	})
	return r
}

func token(t *testing.T, role domain.Role) string {
	t.Helper()
	tok, err := utils.GenerateJWT(domain.Identity{UserID: 4, Name: "Bia", Role: role}, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestAuthGate(t *testing.T) {
	tests := []struct {
		name   string
		header string
		allow  []domain.Role
		want   int
	}{
		{"no header", "", []domain.Role{domain.RoleAdmin}, http.StatusUnauthorized},
		{"not bearer", "Basic abc", []domain.Role{domain.RoleAdmin}, http.StatusUnauthorized},
		{"bad token", "Bearer nope", nil, http.StatusUnauthorized},
		{"wrong role", "Bearer " + token(t, domain.RoleClient), []domain.Role{domain.RoleAdmin, domain.RoleEmployee}, http.StatusForbidden},
		{"allowed role", "Bearer " + token(t, domain.RoleEmployee), []domain.Role{domain.RoleAdmin, domain.RoleEmployee}, http.StatusOK},
		{"empty allow-list still needs a token", "", nil, http.StatusUnauthorized},
		{"empty allow-list admits any role", "Bearer " + token(t, domain.RoleClient), nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newEngine(tt.allow...).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestQueryTokenAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", QueryTokenAuthMiddleware(secret), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token="+token(t, domain.RoleClient), nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Logger())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
