// Package config loads the companion configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/go-companion/internal/log"
	"github.com/teslashibe/go-companion/pkg/chat"
	"github.com/teslashibe/go-companion/pkg/engine"
	"github.com/teslashibe/go-companion/pkg/speech"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreJSON     = "json"
	StorePostgres = "postgres"
)

// Config is the complete process configuration.
type Config struct {
	Log    log.Options   `koanf:"log"`
	Engine engine.Config `koanf:"engine"`
	Web    WebConfig     `koanf:"web"`
	Store  StoreConfig   `koanf:"store"`
	NATS   NATSConfig    `koanf:"nats"`
	Chat   ChatConfig    `koanf:"chat"`
	Speech SpeechConfig  `koanf:"speech"`
}

// WebConfig configures the HTTP and websocket server.
type WebConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `koanf:"backend"`
	Path    string `koanf:"path"` // json backend; empty means ~/.companion/state.json
	DSN     string `koanf:"dsn"`  // postgres backend
}

// NATSConfig configures the presence publisher.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Name    string `koanf:"name"`
}

// ChatConfig configures the idle-talk line source.
type ChatConfig struct {
	Enabled     bool `koanf:"enabled"`
	chat.Config `koanf:",squash"`
}

// SpeechConfig configures the TTS speaker.
type SpeechConfig struct {
	Enabled       bool `koanf:"enabled"`
	speech.Config `koanf:",squash"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:    log.DefaultOptions(),
		Engine: engine.DefaultConfig(),
		Web: WebConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Store: StoreConfig{Backend: StoreJSON},
		NATS: NATSConfig{
			URL:  "nats://localhost:4222",
			Name: "companion",
		},
		Chat:   ChatConfig{Config: chat.DefaultConfig()},
		Speech: SpeechConfig{Config: speech.DefaultConfig()},
	}
}

// ValidationError reports one invalid field.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Validate checks the configuration and returns every problem found.
func (c Config) Validate() error {
	var errs []error
	bad := func(field, reason string) {
		errs = append(errs, &ValidationError{Field: field, Reason: reason})
	}

	if err := c.Engine.Validate(); err != nil {
		bad("engine", err.Error())
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		bad("log.format", fmt.Sprintf("unknown format %q", c.Log.Format))
	}
	if c.Web.Addr == "" {
		bad("web.addr", "required")
	}
	switch c.Store.Backend {
	case StoreMemory, StoreJSON:
	case StorePostgres:
		if c.Store.DSN == "" {
			bad("store.dsn", "required for postgres backend")
		}
	default:
		bad("store.backend", fmt.Sprintf("unknown backend %q", c.Store.Backend))
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		bad("nats.url", "required when nats is enabled")
	}
	if c.Chat.Enabled && c.Chat.BaseURL == "" {
		bad("chat.base_url", "required when chat is enabled")
	}
	if c.Speech.Enabled && c.Speech.BaseURL == "" {
		bad("speech.base_url", "required when speech is enabled")
	}
	return errors.Join(errs...)
}
