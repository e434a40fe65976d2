package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTLSec   int    `mapstructure:"ttlsec"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Security struct {
	ProtectUserList bool
	BcryptCost      int
}

// Limits RPS/Burst 按客户端 IP；GlobalRPS/GlobalBurst 是整个进程的总量
type Limits struct {
	RPS               float64
	Burst             int
	GlobalRPS         float64
	GlobalBurst       int
	MaxConcurrent     int64
	MaxBodyBytes      int64
	RequestTimeoutSec int
}

type Config struct {
	App      App
	Log      Log
	JWT      JWT
	DB       DB
	Redis    Redis `mapstructure:"redis"`
	Security Security
	Limits   Limits
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Limits.RequestTimeoutSec) * time.Second
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenTTLMin) * time.Minute
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "user-registry")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 10)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8081)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.filename", "logs/app.log")
	v.SetDefault("log.file.maxsizemb", 100)
	v.SetDefault("log.file.maxbackups", 7)
	v.SetDefault("log.file.maxagedays", 30)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "user-registry")
	v.SetDefault("jwt.accesstokenttlmin", 60)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.maxopenconns", 20)
	v.SetDefault("db.maxidleconns", 10)
	v.SetDefault("db.connmaxlifetimemin", 30)
	v.SetDefault("db.automigrate", true)
	v.SetDefault("db.loglevel", "warn")

	v.SetDefault("redis.ttlsec", 300)

	v.SetDefault("security.protectuserlist", false)
	v.SetDefault("security.bcryptcost", 10)

	v.SetDefault("limits.rps", 20)
	v.SetDefault("limits.burst", 40)
	v.SetDefault("limits.globalrps", 200)
	v.SetDefault("limits.globalburst", 400)
	v.SetDefault("limits.maxconcurrent", 300)
	v.SetDefault("limits.maxbodybytes", 1<<20)
	v.SetDefault("limits.requesttimeoutsec", 10)
}

// Load 读取 yaml + APP_ 前缀环境变量；配置文件不存在时只用默认值和环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// MinJWTSecretLen HS256 密钥最短长度
const MinJWTSecretLen = 16

func (c *Config) validate() error {
	switch c.DB.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("config: unsupported db.driver %q", c.DB.Driver)
	}
	if c.App.HTTP.Port <= 0 || c.App.Admin.Port <= 0 {
		return errors.New("config: http ports must be positive")
	}
	if len(c.JWT.Secret) < MinJWTSecretLen {
		return fmt.Errorf("config: jwt.secret must be at least %d bytes (set APP_JWT_SECRET)", MinJWTSecretLen)
	}
	return nil
}
