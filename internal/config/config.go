// Package config loads procmeta settings from an optional YAML file and
// PROCMETA_* environment variables. Environment values win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, for example
// PROCMETA_SERVER_ADDR or PROCMETA_PREFERENCES_REDIS_ADDR.
const EnvPrefix = "PROCMETA_"

// DefaultPath is read when no file is named. It may be missing.
const DefaultPath = "procmeta.yaml"

// Config is the full set of settings.
type Config struct {
	Server      Server      `yaml:"server" mapstructure:"server"`
	Client      Client      `yaml:"client" mapstructure:"client"`
	Preferences Preferences `yaml:"preferences" mapstructure:"preferences"`
	Export      Export      `yaml:"export" mapstructure:"export"`
	Log         Log         `yaml:"log" mapstructure:"log"`
}

// Server configures the REST backend.
type Server struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
	// Catalog is memory, sqlite or postgres.
	Catalog     string `yaml:"catalog" mapstructure:"catalog"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
}

// Client configures how the CLI reaches a backend.
type Client struct {
	URL     string        `yaml:"url" mapstructure:"url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// SaveMode is sequential or batch.
	SaveMode string `yaml:"save_mode" mapstructure:"save_mode"`
}

// Preferences configures where the last selection and the theme are kept.
type Preferences struct {
	// Backend is memory, file or redis.
	Backend       string        `yaml:"backend" mapstructure:"backend"`
	Dir           string        `yaml:"dir" mapstructure:"dir"`
	RedisAddr     string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string        `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int           `yaml:"redis_db" mapstructure:"redis_db"`
	TTL           time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// Export configures catalog snapshots.
type Export struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Bucket string `yaml:"bucket" mapstructure:"bucket"`
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
	Region string `yaml:"region" mapstructure:"region"`
}

// Log configures the logger.
type Log struct {
	Level string `yaml:"level" mapstructure:"level"`
	// Format is text or json.
	Format string `yaml:"format" mapstructure:"format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: Server{
			Addr:       ":8000",
			Catalog:    "sqlite",
			SQLitePath: "procmeta.db",
		},
		Client: Client{
			URL:      "http://localhost:8000",
			Timeout:  30 * time.Second,
			SaveMode: "sequential",
		},
		Preferences: Preferences{
			Backend: "file",
			Dir:     ".procmeta/preferences",
		},
		Export: Export{
			Dir:    "exports",
			Prefix: "procmeta/",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path (DefaultPath when empty) and the process environment.
func Load(path string) (Config, error) {
	return LoadWith(path, os.Environ())
}

// LoadWith is Load with an explicit environment in KEY=VALUE form.
// A missing file is only an error when path was named explicitly.
func LoadWith(path string, environ []string) (Config, error) {
	raw := make(map[string]any)

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if raw == nil {
			raw = make(map[string]any)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	overlayEnv(raw, environ)

	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// overlayEnv copies PROCMETA_<SECTION>_<KEY> variables into raw[section][key].
func overlayEnv(raw map[string]any, environ []string) {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		section, key, ok := strings.Cut(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "_")
		if !ok || key == "" {
			continue
		}
		sub, ok := raw[section].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			raw[section] = sub
		}
		sub[key] = value
	}
}
