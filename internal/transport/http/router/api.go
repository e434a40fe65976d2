package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"user-registry/internal/core/config"
	"user-registry/internal/core/server"
	mdw "user-registry/internal/transport/http/middleware"
	resp "user-registry/internal/transport/http/response"
)

// Pinger /health 的下游探测（通常是数据库）
type Pinger func(ctx context.Context) error

type Deps struct {
	Log    *zap.Logger
	Limits config.Limits
	Health Pinger
}

// base 两个 engine 共用：基础 router + 中间件 + /health + /metrics
func base(d Deps) *gin.Engine {
	l := d.Log
	if l == nil {
		l = zap.NewNop()
	}
	r := server.NewRouter(l)

	r.Use(mdw.RequestID(), mdw.Recovery(l))
	if d.Limits.GlobalRPS > 0 {
		r.Use(mdw.RateLimit(rate.Limit(d.Limits.GlobalRPS), max(d.Limits.GlobalBurst, 1)))
	}
	if d.Limits.RPS > 0 {
		r.Use(mdw.RateLimitPerIP(rate.Limit(d.Limits.RPS), max(d.Limits.Burst, 1), 10*time.Minute))
	}
	if d.Limits.MaxConcurrent > 0 {
		r.Use(mdw.ConcurrencyLimit(d.Limits.MaxConcurrent))
	}
	if d.Limits.MaxBodyBytes > 0 {
		r.Use(mdw.MaxBodyBytes(d.Limits.MaxBodyBytes))
	}
	if d.Limits.RequestTimeoutSec > 0 {
		r.Use(mdw.Timeout(time.Duration(d.Limits.RequestTimeoutSec) * time.Second))
	}
	r.Use(mdw.Metrics(), mdw.AccessLog(l, "/health", "/metrics"))

	r.GET("/health", func(c *gin.Context) {
		if d.Health != nil {
			if err := d.Health(c.Request.Context()); err != nil {
				l.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, resp.Error(resp.CodeUnavailable, "database unavailable"))
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, resp.Error(resp.CodeNotFound, ""))
	})
	return r
}

func NewAPIEngine(d Deps, mods ...APIModule) *gin.Engine {
	r := base(d)

	api := r.Group("/api/v1")
	MountAllAPI(api, mods...)

	return r
}
