package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"user-registry/internal/core/auth"
	resp "user-registry/internal/transport/http/response"
)

const (
	KeyClaims = "claims"
	KeyUserID = "userId"
	KeyRole   = "role"
)

// AuthJWT requireRole 为空时只要求合法 token
func AuthJWT(j *auth.JWTer, requireRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.Error(resp.CodeUnauthorized, "missing token"))
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.Error(resp.CodeUnauthorized, "invalid token"))
			return
		}
		if requireRole != "" && claims.Role != requireRole {
			c.AbortWithStatusJSON(http.StatusForbidden, resp.Error(resp.CodeForbidden, "forbidden"))
			return
		}
		c.Set(KeyClaims, claims)
		c.Set(KeyUserID, claims.UID)
		c.Set(KeyRole, claims.Role)
		c.Next()
	}
}
