package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"github.com/wemprss/article-exporter/internal/shared/errors"
)

const envPrefix = "EXPORTER_"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// DefaultFiles are tried in order; the first one found is loaded.
var DefaultFiles = []string{
	"config.yaml",
	"config.yml",
	"config.json",
	"config.toml",
}

type Config struct {
	HTTPPort         string  `koanf:"http_port"`
	DBDriver         string  `koanf:"db_driver"`
	DatabaseURL      string  `koanf:"database_url"`
	BootstrapSchema  bool    `koanf:"bootstrap_schema"`
	TelegramBotToken string  `koanf:"telegram_bot_token"`
	AllowedUsers     []int64 `koanf:"-"`
	AppEnv           string  `koanf:"app_env"`
}

// IsDevelopment reports whether verbose logging should be enabled.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

func Load() (*Config, error) {
	return LoadFrom(DefaultFiles...)
}

// LoadFrom loads the first existing file of candidates, then applies
// EXPORTER_* environment overrides and defaults.
func LoadFrom(candidates ...string) (*Config, error) {
	k := koanf.New(".")

	configFile, found := lo.Find(candidates, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		ext := filepath.Ext(configFile)

		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Errorf("unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	// Environment variables override file values
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	defaults := map[string]any{
		"http_port":        "8001",
		"db_driver":        DriverSQLite,
		"database_url":     "file:data/db.db",
		"bootstrap_schema": false,
		"app_env":          EnvProduction,
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	if allowedUsers := k.Get("allowed_users"); allowedUsers != nil {
		switch v := allowedUsers.(type) {
		case string:
			cfg.AllowedUsers = ParseAllowedUsers(v)
		case []interface{}:
			cfg.AllowedUsers = lo.FilterMap(v, func(item interface{}, _ int) (int64, bool) {
				switch val := item.(type) {
				case int64:
					return val, true
				case int:
					return int64(val), true
				case float64:
					return int64(val), true
				case string:
					ids := ParseAllowedUsers(val)
					if len(ids) == 1 {
						return ids[0], true
					}
					return 0, false
				default:
					return 0, false
				}
			})
		}
	}

	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if cfg.DBDriver != DriverSQLite && cfg.DBDriver != DriverPostgres {
		return nil, oops.With("db_driver", cfg.DBDriver).Wrap(errors.ErrUnsupportedDriver)
	}
	if cfg.AppEnv != EnvDevelopment {
		cfg.AppEnv = EnvProduction
	}

	return &cfg, nil
}

// ParseAllowedUsers parses comma-separated user IDs string into []int64
func ParseAllowedUsers(s string) []int64 {
	if s == "" {
		return []int64{}
	}
	parts := strings.Split(s, ",")
	return lo.FilterMap(parts, func(part string, _ int) (int64, bool) {
		part = strings.TrimSpace(part)
		if part == "" {
			return 0, false
		}
		var id int64
		if _, err := fmt.Sscanf(part, "%d", &id); err == nil {
			return id, true
		}
		return 0, false
	})
}
