// Package config loads application settings from defaults, an optional YAML
// file, ENGLISHOO_* environment variables and command-line flags, in that
// order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds every tunable of the application.
type Config struct {
	Server   Server   `koanf:"server"`
	Database Database `koanf:"database"`
	AI       AI       `koanf:"ai"`
	Review   Review   `koanf:"review"`
	Sync     Sync     `koanf:"sync"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr string `koanf:"addr" validate:"required,hostname_port"`
}

// Database configures SQLite persistence.
type Database struct {
	Path string `koanf:"path" validate:"required"`
}

// AI configures the chat-completion service used to enrich words. An empty
// key disables enrichment.
type AI struct {
	Key         string  `koanf:"key"`
	BaseURL     string  `koanf:"baseurl" validate:"required,url"`
	Model       string  `koanf:"model" validate:"required"`
	MaxTokens   int     `koanf:"maxtokens" validate:"gt=0"`
	Temperature float64 `koanf:"temperature" validate:"gte=0,lte=2"`
}

// Review configures the scheduler and the study session.
type Review struct {
	Retention    float64 `koanf:"retention" validate:"gt=0,lt=1"`
	MaxInterval  int     `koanf:"maxinterval" validate:"gte=1"`
	NewPerDay    int     `koanf:"newperday" validate:"gte=0"`
	SessionLimit int     `koanf:"sessionlimit" validate:"gt=0"`
}

// Sync configures word-list source scanning.
type Sync struct {
	Dir     string `koanf:"dir" validate:"required"`
	Minutes int    `koanf:"minutes" validate:"gte=1"`
}

// Default returns the configuration used when nothing else is provided.
func Default() Config {
	return Config{
		Server:   Server{Addr: "127.0.0.1:8080"},
		Database: Database{Path: "englishoo.db"},
		AI: AI{
			BaseURL:     "https://api.deepseek.com",
			Model:       "deepseek-chat",
			MaxTokens:   512,
			Temperature: 0.7,
		},
		Review: Review{
			Retention:    0.9,
			MaxInterval:  36500,
			NewPerDay:    20,
			SessionLimit: 50,
		},
		Sync: Sync{Dir: defaultSyncDir(), Minutes: 60},
	}
}

func defaultSyncDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "englishoo", "sources")
	}
	return "sources"
}

// Load layers configuration sources on top of Default. The file is skipped
// when path is empty; flags may be nil. Flag values only take effect when
// the flag was explicitly set.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// ENGLISHOO_SERVER_ADDR becomes the key server.addr. Key segments are
	// single words so the underscore split stays unambiguous.
	if err := k.Load(env.Provider("ENGLISHOO_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "ENGLISHOO_")), "_", ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load command-line flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
