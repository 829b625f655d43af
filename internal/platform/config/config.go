package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Umnico    UmnicoConfig    `mapstructure:"umnico"`
	Linker    LinkerConfig    `mapstructure:"linker"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Admin     AdminConfig     `mapstructure:"admin"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// ResolveOnStart resolves the account identity before serving traffic.
	ResolveOnStart bool `mapstructure:"resolve_on_start"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// UmnicoConfig holds the remote account settings. AuthHeader is the bearer
// token value; AccountID only seeds the cached identity until it is resolved.
type UmnicoConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	AuthHeader string        `mapstructure:"auth_header"`
	AccountID  int64         `mapstructure:"account_id"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type LinkerConfig struct {
	Mode string `mapstructure:"mode"` // faithful, hardened
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

type RateLimitConfig struct {
	APIReadPerMinute  int `mapstructure:"api_read_per_minute"`
	APIWritePerMinute int `mapstructure:"api_write_per_minute"`
	LoginPerMinute    int `mapstructure:"login_per_minute"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

const DefaultBaseURL = "https://api.umnico.com"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.resolve_on_start", true)

	v.SetDefault("database.url", "file:data/umnico.db")
	v.SetDefault("database.max_connections", 1)
	v.SetDefault("database.migrations_path", "migrations")

	v.SetDefault("umnico.base_url", DefaultBaseURL)
	v.SetDefault("umnico.auth_header", "")
	v.SetDefault("umnico.account_id", 0)
	v.SetDefault("umnico.timeout", 0)

	v.SetDefault("linker.mode", "faithful")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_token_ttl", time.Hour)

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password_hash", "")

	v.SetDefault("rate_limit.api_read_per_minute", 600)
	v.SetDefault("rate_limit.api_write_per_minute", 60)
	v.SetDefault("rate_limit.login_per_minute", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "")
}

// Load reads the optional YAML file at path and overlays the environment,
// e.g. umnico.base_url is read from UMNICO_BASE_URL.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
