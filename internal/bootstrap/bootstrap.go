package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-registry/internal/core/auth"
	"user-registry/internal/core/cache"
	"user-registry/internal/core/config"
	"user-registry/internal/core/database"
	"user-registry/internal/feature/user"
	"user-registry/internal/repo"
	"user-registry/internal/service"
	"user-registry/pkg/utils"
)

// App 两个二进制共用的依赖
type App struct {
	Cfg   *config.Config
	Log   *zap.Logger
	DB    *gorm.DB
	Cache *cache.Cache
	Users *service.UserService
	JWT   *auth.JWTer
}

// New DB 连接 → 迁移 → 缓存（可选）→ service；返回的 cleanup 负责关闭连接
func New(ctx context.Context, cfg *config.Config, l *zap.Logger) (*App, func(), error) {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	}, l)
	if err != nil {
		return nil, nil, fmt.Errorf("db open: %w", err)
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver), zap.String("dsn", database.MaskDSN(cfg.DB.DSN)))

	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	if cfg.DB.AutoMigrate {
		if err := user.Migrate(db, cfg.DB.Driver); err != nil {
			closeDB()
			return nil, nil, err
		}
		l.Info("automigrate done")
	}

	opts := []service.Option{service.WithLogger(l.Named("users"))}
	var c *cache.Cache
	if cfg.Redis.Addr != "" {
		c = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := c.Ping(pctx); err != nil {
			// redis 不可用不阻塞启动，GetOrLoad 会直接回源
			l.Warn("redis ping failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
		opts = append(opts, service.WithCache(c, time.Duration(cfg.Redis.TTLSec)*time.Second))
	}

	hasher := utils.NewBcryptHasher(cfg.Security.BcryptCost)
	a := &App{
		Cfg:   cfg,
		Log:   l,
		DB:    db,
		Cache: c,
		Users: service.NewUserService(repo.NewUserRepo(db), hasher, opts...),
		JWT: &auth.JWTer{
			Secret: []byte(cfg.JWT.Secret),
			Issuer: cfg.JWT.Issuer,
			TTL:    cfg.TokenTTL(),
		},
	}
	cleanup := func() {
		if c != nil {
			_ = c.Close()
		}
		closeDB()
	}
	return a, cleanup, nil
}

// Health /health 探测数据库
func (a *App) Health(ctx context.Context) error { return database.Ping(ctx, a.DB) }
