package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "user-registry/internal/transport/http/response"
)

func Recovery(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				l.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("rid", c.GetString(KeyRequestID)),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, resp.Error(resp.CodeServerError, "internal error"))
			}
		}()
		c.Next()
	}
}
