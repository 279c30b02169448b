package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/aussiebroadwan/patchnotes/internal/auth/service"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	API      APIConfig      `envPrefix:"API_"`
	JWT      JWTConfig      `envPrefix:"JWT_"`
	Telegram TelegramConfig `envPrefix:"TELEGRAM_"`
	QR       QRConfig       `envPrefix:"QR_"`
	Database DatabaseConfig `envPrefix:"DATABASE_"`
	Cache    CacheConfig    `envPrefix:"CACHE_"`
	Notifier NotifierConfig `envPrefix:"NOTIFIER_"`

	CORSOrigins         []string      `env:"CORS_ORIGIN" envSeparator:","`
	RevocationScope     string        `env:"AUTH_REVOCATION_SCOPE" envDefault:"token"`
	PepperFile          string        `env:"AUTH_PEPPER_FILE" envDefault:"pepper"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingEvery   time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
}

type APIConfig struct {
	Port     int    `env:"PORT" envDefault:"3001"`
	Domain   string `env:"DOMAIN"` // cookie Domain, omitted when empty
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
}

type JWTConfig struct {
	AccessSecret  string        `env:"AT_SECRET,required,notEmpty"`
	RefreshSecret string        `env:"RT_SECRET,required,notEmpty"`
	AccessTTL     time.Duration `env:"AT_EXP" envDefault:"15m"`
	RefreshTTL    time.Duration `env:"RT_EXP" envDefault:"720h"`
	BlacklistTTL  time.Duration `env:"BLACKLIST_TTL" envDefault:"720h"`
}

type TelegramConfig struct {
	BotToken    string        `env:"BOT_TOKEN"` // telegram login disabled when empty
	InitDataTTL time.Duration `env:"INIT_DATA_TTL" envDefault:"24h"`
}

type QRConfig struct {
	CodeTTL   time.Duration `env:"CODE_TTL" envDefault:"5m"`
	Retention time.Duration `env:"RETENTION" envDefault:"24h"`
}

type DatabaseConfig struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	File   string `env:"FILE" envDefault:"auth.db"`
	DSN    string `env:"DSN"`
}

type CacheConfig struct {
	Driver    string `env:"DRIVER" envDefault:"redis"`
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"api_cache:"`
	BoltFile  string `env:"BOLT_FILE" envDefault:"cache.db"`
}

type NotifierConfig struct {
	Driver string `env:"DRIVER" envDefault:"memory"`
}

// LoadConfig reads a .env file from the working directory when one exists,
// then parses the environment. Variables already set win over the file.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return ParseConfig()
}

// ParseConfig parses and validates the process environment.
func ParseConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if _, err := service.ParseRevocationScope(c.RevocationScope); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(c.Database.Driver) {
	case "sqlite":
	case "postgres":
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.Database.Driver))
	}

	switch strings.ToLower(c.Cache.Driver) {
	case "redis", "bolt":
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_DRIVER %q", c.Cache.Driver))
	}

	switch strings.ToLower(c.Notifier.Driver) {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFIER_DRIVER %q", c.Notifier.Driver))
	}

	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 || c.JWT.BlacklistTTL <= 0 {
		errs = append(errs, errors.New("JWT_AT_EXP, JWT_RT_EXP and JWT_BLACKLIST_TTL must be positive"))
	}
	if c.QR.CodeTTL <= 0 {
		errs = append(errs, errors.New("QR_CODE_TTL must be positive"))
	}

	return errors.Join(errs...)
}
