package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Invitation InvitationConfig `mapstructure:"invitation"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	FrontendURL  string        `mapstructure:"frontend_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// JWTConfig carries the token signing knobs. Expiry windows are
// "<integer><unit>" strings with unit s, m, h or d; auth.NewCodec rejects
// anything else at startup.
type JWTConfig struct {
	Secret          string `mapstructure:"secret"`
	AccessExpiry    string `mapstructure:"access_expiry"`
	RefreshSecret   string `mapstructure:"refresh_secret"`
	RefreshExpiry   string `mapstructure:"refresh_expiry"`
	RefreshRotation bool   `mapstructure:"refresh_rotation"`
}

type InvitationConfig struct {
	Expiry string `mapstructure:"expiry"`
}

type RateLimitConfig struct {
	AuthPerMinute int `mapstructure:"auth_per_minute"`
	APIPerMinute  int `mapstructure:"api_per_minute"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Deployments configure the auth knobs through these names.
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("jwt.access_expiry", "JWT_EXPIRES_IN")
	viper.BindEnv("jwt.refresh_secret", "JWT_REFRESH_SECRET")
	viper.BindEnv("jwt.refresh_expiry", "JWT_REFRESH_EXPIRES_IN")
	viper.BindEnv("jwt.refresh_rotation", "REFRESH_TOKEN_ROTATION")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("jwt.access_expiry", "15m")
	viper.SetDefault("jwt.refresh_expiry", "7d")
	viper.SetDefault("invitation.expiry", "7d")
	viper.SetDefault("rate_limit.auth_per_minute", 10)
	viper.SetDefault("rate_limit.api_per_minute", 1000)
	viper.SetDefault("database.max_connections", 10)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
