// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// DefaultEnvFile is read by Load when present.
const DefaultEnvFile = ".env"

// Config holds the frontier command configuration
type Config struct {
	DataDir   string   // Directory holding <SYMBOL>.csv price files (always absolute)
	Symbols   []string // Symbols to load, in column order; required by the frontier run
	OutputDir string   // Directory the charts are written to (always absolute)
	Points    int      // Number of target returns on the frontier
	LogLevel  string
	LogPretty bool
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Load reads configuration from environment variables, falling back to a
// .env file in the working directory
func Load() (*Config, error) {
	return LoadFile(DefaultEnvFile)
}

// LoadFile is Load with an explicit env file. A missing file is not an error.
// Variables already set in the process environment take precedence.
func LoadFile(envFile string) (*Config, error) {
	fileVars, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
	}
	env := source{file: fileVars}

	dataDir, err := filepath.Abs(env.get("FRONTIER_DATA_DIR", "."))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	outputDir, err := filepath.Abs(env.get("FRONTIER_OUTPUT_DIR", "charts"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory path: %w", err)
	}

	cfg := &Config{
		DataDir:   dataDir,
		Symbols:   parseSymbols(env.get("FRONTIER_SYMBOLS", "")),
		OutputDir: outputDir,
		Points:    env.getInt("FRONTIER_POINTS", 50),
		LogLevel:  env.get("LOG_LEVEL", "info"),
		LogPretty: env.getBool("LOG_PRETTY", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	var errs ValidationErrors

	seen := make(map[string]bool, len(c.Symbols))
	for _, s := range c.Symbols {
		if seen[s] {
			errs = append(errs, ValidationError{
				Field:   "FRONTIER_SYMBOLS",
				Message: fmt.Sprintf("duplicate symbol %q", s),
			})
		}
		seen[s] = true
	}

	if c.Points < 2 {
		errs = append(errs, ValidationError{
			Field:   "FRONTIER_POINTS",
			Message: "must be at least 2",
		})
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, ValidationError{
			Field:   "LOG_LEVEL",
			Message: fmt.Sprintf("unknown level %q", c.LogLevel),
		})
	}

	if c.DataDir == c.OutputDir {
		errs = append(errs, ValidationError{
			Field:   "FRONTIER_OUTPUT_DIR",
			Message: "must differ from FRONTIER_DATA_DIR",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// RequireSymbols reports a validation error when no symbol is configured.
// Only the frontier run needs symbols; the bond commands do not.
func (c *Config) RequireSymbols() error {
	if len(c.Symbols) == 0 {
		return ValidationErrors{{
			Field:   "FRONTIER_SYMBOLS",
			Message: "at least one symbol is required",
		}}
	}
	return nil
}

func parseSymbols(raw string) []string {
	var symbols []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}

// source resolves a key from the process environment first, then the env file.
type source struct {
	file map[string]string
}

func (s source) get(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value := s.file[key]; value != "" {
		return value
	}
	return defaultValue
}

func (s source) getInt(key string, defaultValue int) int {
	if value := s.get(key, ""); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func (s source) getBool(key string, defaultValue bool) bool {
	if value := s.get(key, ""); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
