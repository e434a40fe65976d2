package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"user-registry/internal/core/config"
	zlog "user-registry/internal/core/logger"
)

// NewRouter 基础 router：最外层 panic 兜底 + CORS；访问日志由 middleware.AccessLog 负责
func NewRouter(l *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(ginzap.RecoveryWithZap(l, true))
	r.Use(cors.Default())
	return r
}

func BuildServer(addr string, handler http.Handler, rt, wt, it time.Duration, l *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       rt,
		ReadHeaderTimeout: rt,
		WriteTimeout:      wt,
		IdleTimeout:       it,
		MaxHeaderBytes:    1 << 20, // 1MB
	}
	if l != nil {
		srv.ErrorLog = zlog.ToStdLogger(l.Named("http"), zapcore.WarnLevel)
	}
	return srv
}

// FromConfig 公开端 server
func FromConfig(c config.HTTP, handler http.Handler, l *zap.Logger) *http.Server {
	return BuildServer(
		Addr(c.Host, c.Port), handler,
		time.Duration(c.ReadTimeoutSec)*time.Second,
		time.Duration(c.WriteTimeoutSec)*time.Second,
		time.Duration(c.IdleTimeoutSec)*time.Second,
		l,
	)
}

func Addr(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }

// BaseURL 启动日志里打印可点击地址
func BaseURL(host string, port int) string {
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return "http://" + Addr(host, port)
}
