package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix namespaces environment overrides.
	EnvPrefix = "COMPANION_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load reads configuration with precedence env > YAML file > defaults.
// A missing file is not an error; an empty path skips the file.
func Load(path string) (Config, error) {
	var content []byte
	if path != "" {
		info, err := os.Stat(path)
		switch {
		case err == nil:
			if info.Size() > maxConfigFileSize {
				return Config{}, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
			}
			if content, err = os.ReadFile(path); err != nil {
				return Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("failed to stat config file: %w", err)
		}
	}
	return LoadBytes(content)
}

// LoadBytes is Load over in-memory YAML.
func LoadBytes(yamlContent []byte) (Config, error) {
	k := koanf.New(".")

	if len(yamlContent) > 0 {
		if err := k.Load(rawbytes.Provider(yamlContent), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps an environment variable onto a koanf path. The first
// underscore after the prefix separates the section; a double underscore
// descends one more level:
//
//	COMPANION_WEB_ADDR                   -> web.addr
//	COMPANION_ENGINE_TICK_RATE           -> engine.tick_rate
//	COMPANION_ENGINE_BEHAVIOR__IDLE_TALK -> engine.behavior.idle_talk
func envKey(name string) string {
	s := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	parts := strings.Split(s, "__")
	if head := strings.SplitN(parts[0], "_", 2); len(head) == 2 {
		parts = append([]string{head[0], head[1]}, parts[1:]...)
	}
	return strings.Join(parts, ".")
}
