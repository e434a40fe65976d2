package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"user-registry/internal/bootstrap"
	"user-registry/internal/core/config"
	"user-registry/internal/core/logger"
	"user-registry/internal/core/server"
	"user-registry/internal/domain"
	"user-registry/internal/transport/http/handler"
	mdw "user-registry/internal/transport/http/middleware"
	"user-registry/internal/transport/http/router"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "user api:", err)
		os.Exit(1)
	}
}

// run 所有 defer（日志 flush、DB 关闭）在退出码返回前执行完
func run() error {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, closeApp, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("bootstrap failed", zap.Error(err))
		return err
	}
	defer closeApp()

	var opts []handler.Option
	if cfg.Security.ProtectUserList {
		opts = append(opts, handler.WithReadGuard(mdw.AuthJWT(app.JWT, string(domain.RoleAdmin))))
	} else {
		log.Warn("GET /api/v1/users is readable anonymously; set security.protectUserList=true to require an ADMIN token")
	}

	// 路由（用户端）
	r := router.NewAPIEngine(
		router.Deps{Log: log, Limits: cfg.Limits, Health: app.Health},
		handler.NewUserHandler(app.Users, log, opts...),
	)
	srv := server.FromConfig(cfg.App.HTTP, r, log)

	baseURL := server.BaseURL(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	log.Info("user api starting",
		zap.String("addr", srv.Addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1"),
	)

	// 异步启动
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Error("user api start FAILED", zap.Error(err))
		return err
	case <-ctx.Done():
	}

	// 优雅关闭
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	log.Info("user api stopped gracefully")
	return nil
}
