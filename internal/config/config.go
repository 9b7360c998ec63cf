// Package config loads service configuration from an optional YAML file and
// TAILFIN_-prefixed environment variables, environment taking precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Projector ProjectorConfig `koanf:"projector"`
	Storage   StorageConfig   `koanf:"storage"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
	// RequestTimeoutSeconds bounds non-streaming requests; streaming
	// endpoints manage their own lifetimes.
	RequestTimeoutSeconds int `koanf:"request_timeout_seconds"`
}

type ProjectorConfig struct {
	// MaxChunkChars bounds one chunk.delta payload when splitting binary
	// (base64) tool outputs such as partial images.
	MaxChunkChars int `koanf:"max_chunk_chars"`
}

type StorageConfig struct {
	// Path is the sqlite database file for the event journal.
	Path string `koanf:"path"`
	// JournalEnabled toggles persisting forwarded public events.
	JournalEnabled bool `koanf:"journal_enabled"`
}

// Load reads configuration from path (skipped when empty or missing) and then
// overlays TAILFIN_ environment variables (TAILFIN_SERVER_PORT=9000 sets
// server.port).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("TAILFIN_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "TAILFIN_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("server.request_timeout_seconds") {
		k.Set("server.request_timeout_seconds", 30)
	}
	if !k.Exists("projector.max_chunk_chars") {
		k.Set("projector.max_chunk_chars", 8192)
	}
	if !k.Exists("storage.path") {
		k.Set("storage.path", "./data/tailfin.db")
	}
	if !k.Exists("storage.journal_enabled") {
		k.Set("storage.journal_enabled", true)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
