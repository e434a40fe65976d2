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
	"user-registry/internal/transport/http/handler"
	"user-registry/internal/transport/http/router"
)

const usage = `usage: admin [serve|create|token] [flags]

  serve                          run the admin HTTP server (default)
  create -username -email -password [-first -last -phone] [-roles ADMIN,USER]
  token  -login <username-or-email> -password <pw>`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "admin:", err)
		os.Exit(1)
	}
}

// run 所有 defer（日志 flush、DB 关闭）在退出码返回前执行完
func run(argv []string) error {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	cmd, args := "serve", argv
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, closeApp, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("bootstrap failed", zap.Error(err))
		return err
	}
	defer closeApp()

	switch cmd {
	case "serve":
		err = serve(ctx, app)
	case "create":
		err = runCreate(ctx, app.Users, args, os.Stdout)
	case "token":
		err = runToken(ctx, app.Users, app.JWT, args, os.Stdout)
	default:
		fmt.Fprintln(os.Stderr, usage)
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		log.Error("admin "+cmd+" failed", zap.Error(err))
	}
	return err
}

func serve(ctx context.Context, app *bootstrap.App) error {
	cfg, log := app.Cfg, app.Log
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 路由（后台端）
	r := router.NewAdminEngine(
		router.Deps{Log: log, Limits: cfg.Limits, Health: app.Health},
		app.JWT,
		handler.NewUserHandler(app.Users, log),
	)
	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(addr, r, 5*time.Second, 10*time.Second, 60*time.Second, log)

	baseURL := server.BaseURL(cfg.App.Admin.Host, cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("admin_v1", baseURL+"/admin/v1"),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("admin api start: %w", err)
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("admin api stopped gracefully")
	return nil
}
