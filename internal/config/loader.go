package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/rpattn/visadesk/internal/db"
)

// EnvPrefix namespaces environment overrides, e.g. VISADESK_DATABASE_HOST.
const EnvPrefix = "VISADESK"

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Pretty bool
}

// Config is the full application configuration
type Config struct {
	Database db.Config
	Server   ServerConfig
	Log      LogConfig
}

// DefaultServerConfig returns the server settings used when nothing is configured.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           ":8080",
		AllowedOrigins: []string{"http://localhost:3000"},
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    2 * time.Minute,
	}
}

// DefaultLogConfig returns the logger settings used when nothing is configured.
func DefaultLogConfig() LogConfig {
	return LogConfig{Level: "info"}
}

// NewViper returns a viper instance with defaults, env binding and the
// config.yaml search path registered. Callers may bind flags before Load.
func NewViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	dbDefaults := db.DefaultConfig()
	v.SetDefault("database.host", dbDefaults.Host)
	v.SetDefault("database.port", dbDefaults.Port)
	v.SetDefault("database.user", dbDefaults.User)
	v.SetDefault("database.password", dbDefaults.Password)
	v.SetDefault("database.dbname", dbDefaults.DBName)
	v.SetDefault("database.sslmode", dbDefaults.SSLMode)
	v.SetDefault("database.max_conns", dbDefaults.MaxConns)

	server := DefaultServerConfig()
	v.SetDefault("server.addr", server.Addr)
	v.SetDefault("server.allowed_origins", server.AllowedOrigins)
	v.SetDefault("server.read_timeout", server.ReadTimeout)
	v.SetDefault("server.write_timeout", server.WriteTimeout)
	v.SetDefault("server.idle_timeout", server.IdleTimeout)

	logCfg := DefaultLogConfig()
	v.SetDefault("log.level", logCfg.Level)
	v.SetDefault("log.pretty", logCfg.Pretty)

	return v
}

// Load reads config.yaml when present and resolves every setting from
// defaults, the file and the environment, in increasing precedence.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		log.Debug().Msg("no config.yaml found, using defaults and env vars")
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("loaded config")
	}

	cfg := Config{
		Database: db.Config{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
			MaxConns: v.GetInt32("database.max_conns"),
		},
		Server: ServerConfig{
			Addr:           v.GetString("server.addr"),
			AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
			ReadTimeout:    v.GetDuration("server.read_timeout"),
			WriteTimeout:   v.GetDuration("server.write_timeout"),
			IdleTimeout:    v.GetDuration("server.idle_timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Pretty: v.GetBool("log.pretty"),
		},
	}

	if cfg.Database.Port <= 0 {
		return Config{}, fmt.Errorf("invalid database port %d", cfg.Database.Port)
	}
	if cfg.Server.Addr == "" {
		return Config{}, fmt.Errorf("server.addr must not be empty")
	}
	return cfg, nil
}
