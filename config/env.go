// Package config provides configuration types and utilities for the crew
// orchestration engine.
// This file contains the environment hydration layer: .env file loading
// and ${VAR}-style interpolation applied to raw config text before it is
// parsed.
package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/joho/godotenv"
)

// Interpolation forms, most specific first: ${VAR:-default}, ${VAR}, $VAR.
var (
	envWithDefault = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*):-(.*?)\}`)
	envBraced      = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	envBare        = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
)

// ExpandEnvVars interpolates environment variable references in raw
// configuration text. An unset variable resolves to its ${VAR:-default}
// fallback when one is given and to the empty string otherwise.
// LoadConfigFromString applies this before parsing, so every field of the
// YAML surface (api_key, base_url, model, ...) supports interpolation.
func ExpandEnvVars(s string) string {
	s = envWithDefault.ReplaceAllStringFunc(s, func(match string) string {
		parts := envWithDefault.FindStringSubmatch(match)
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return parts[2]
	})
	s = envBraced.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envBraced.FindStringSubmatch(match)[1])
	})
	return envBare.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envBare.FindStringSubmatch(match)[1])
	})
}

// LoadEnvFiles populates the process environment from .env files before
// interpolation runs. Priority: the inherited environment (highest), then
// .env.local, then .env — godotenv never overwrites a variable that is
// already set. Missing files are not an error.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}
