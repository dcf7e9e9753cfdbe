// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and validation for warriorchat.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete warriorchat configuration.
type Config struct {
	Backend BackendConfig `toml:"backend"`
	Chat    ChatConfig    `toml:"chat"`
	UI      UIConfig      `toml:"ui"`
	Log     LogConfig     `toml:"log"`

	// path is the file the config was loaded from, empty for defaults
	path string
	// unknown holds keys present in the file that no field matched
	unknown []string
}

// BackendConfig contains backend connection settings.
type BackendConfig struct {
	// BaseURL is the WarriorChat backend base URL
	BaseURL string `toml:"base_url"`
	// TimeoutSecs bounds non-streaming requests. Streaming is bounded by cancellation only.
	TimeoutSecs int `toml:"timeout_secs"`
	// ModelsPath is the model listing endpoint
	ModelsPath string `toml:"models_path"`
}

// Timeout returns TimeoutSecs as a duration.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSecs) * time.Second
}

// ChatConfig contains per-request chat settings.
type ChatConfig struct {
	// DefaultModel is selected first and used when the backend lists no models
	DefaultModel string `toml:"default_model"`
	// SystemPrompt is sent as the system text of every generate request
	SystemPrompt string `toml:"system_prompt"`
	// LLMParams is passed through as llm_params
	LLMParams map[string]any `toml:"llm_params"`
	// ReadBufferSize is the read size for streamed responses, in bytes
	ReadBufferSize int `toml:"read_buffer_size"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Markdown renders finished assistant replies with glamour
	Markdown bool `toml:"markdown"`
	// Color is "auto", "always" or "never"
	Color string `toml:"color"`
	// GlamourStyle is "auto", "dark", "light" or "notty"
	GlamourStyle string `toml:"glamour_style"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is "debug", "info", "warn" or "error"
	Level string `toml:"level"`
	// File receives log output while the TUI owns the terminal
	File string `toml:"file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:     "http://127.0.0.1:8000",
			TimeoutSecs: 30,
			ModelsPath:  "/models",
		},
		Chat: ChatConfig{
			DefaultModel:   "gpt-oss",
			ReadBufferSize: 4096,
		},
		UI: UIConfig{
			Markdown:     true,
			Color:        "auto",
			GlamourStyle: "auto",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the warriorchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".warriorchat"), nil
}

// ConfigPath returns the path to the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultLogPath returns the log file used when none is configured.
func DefaultLogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "warriorchat.log"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from path, or from the default location when
// path is empty. A missing default file yields the defaults; a missing
// explicit file is an error. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return finish(Default())
		}
		path = p
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return finish(Default())
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// the values already in cfg.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	cfg.path = path
	cfg.unknown = cfg.unknown[:0]
	for _, key := range md.Undecoded() {
		// llm_params is free-form
		if strings.HasPrefix(key.String(), "chat.llm_params") {
			continue
		}
		cfg.unknown = append(cfg.unknown, key.String())
	}
	return nil
}

// Parse decodes TOML text. Used for tests and `config check`.
func Parse(text string) (*Config, error) {
	cfg := Default()
	if _, err := toml.Decode(text, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode TOML: %w", err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Path returns the file the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.path
}

// UnknownKeys returns keys in the file that no setting matched.
func (c *Config) UnknownKeys() []string {
	return append([]string(nil), c.unknown...)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes the configuration to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# warriorchat configuration file")
	fmt.Fprintln(file, "# Environment variables WARRIORCHAT_* override these values")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// String returns the configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Chat.LLMParams != nil {
		clone.Chat.LLMParams = make(map[string]any, len(c.Chat.LLMParams))
		for k, v := range c.Chat.LLMParams {
			clone.Chat.LLMParams[k] = v
		}
	}
	clone.unknown = append([]string(nil), c.unknown...)
	return &clone
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Backend
	if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ValidationError{
			Field:   "backend.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be an http or https URL", c.Backend.BaseURL),
		})
	}
	if c.Backend.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "backend.timeout_secs",
			Message: "must not be negative",
		})
	}
	if !strings.HasPrefix(c.Backend.ModelsPath, "/") {
		errs = append(errs, ValidationError{
			Field:   "backend.models_path",
			Message: fmt.Sprintf("'%s' must start with /", c.Backend.ModelsPath),
		})
	}

	// Chat
	if c.Chat.ReadBufferSize < 0 || c.Chat.ReadBufferSize > 1<<20 {
		errs = append(errs, ValidationError{
			Field:   "chat.read_buffer_size",
			Message: "must be between 1 and 1048576",
		})
	}

	// UI
	if !oneOf(c.UI.Color, "auto", "always", "never") {
		errs = append(errs, ValidationError{
			Field:   "ui.color",
			Message: fmt.Sprintf("invalid value '%s', must be one of: auto, always, never", c.UI.Color),
		})
	}
	if !oneOf(c.UI.GlamourStyle, "auto", "dark", "light", "notty") {
		errs = append(errs, ValidationError{
			Field:   "ui.glamour_style",
			Message: fmt.Sprintf("invalid value '%s', must be one of: auto, dark, light, notty", c.UI.GlamourStyle),
		})
	}

	// Log
	if !oneOf(c.Log.Level, "debug", "info", "warn", "error") {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// SetDefaults fills zero values that have no meaningful zero.
func (c *Config) SetDefaults() {
	defaults := Default()

	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaults.Backend.BaseURL
	}
	if c.Backend.TimeoutSecs == 0 {
		c.Backend.TimeoutSecs = defaults.Backend.TimeoutSecs
	}
	if c.Backend.ModelsPath == "" {
		c.Backend.ModelsPath = defaults.Backend.ModelsPath
	}
	if c.Chat.ReadBufferSize == 0 {
		c.Chat.ReadBufferSize = defaults.Chat.ReadBufferSize
	}
	if c.UI.Color == "" {
		c.UI.Color = defaults.UI.Color
	}
	if c.UI.GlamourStyle == "" {
		c.UI.GlamourStyle = defaults.UI.GlamourStyle
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - WARRIORCHAT_URL: overrides backend.base_url
//   - WARRIORCHAT_TIMEOUT: overrides backend.timeout_secs
//   - WARRIORCHAT_MODEL: overrides chat.default_model
//   - WARRIORCHAT_SYSTEM: overrides chat.system_prompt
//   - WARRIORCHAT_LOG_LEVEL: overrides log.level
//   - WARRIORCHAT_LOG_FILE: overrides log.file
//   - NO_COLOR: sets ui.color to never
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("WARRIORCHAT_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("WARRIORCHAT_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Backend.TimeoutSecs = secs
		}
	}
	if v := os.Getenv("WARRIORCHAT_MODEL"); v != "" {
		c.Chat.DefaultModel = v
	}
	if v := os.Getenv("WARRIORCHAT_SYSTEM"); v != "" {
		c.Chat.SystemPrompt = v
	}
	if v := os.Getenv("WARRIORCHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("WARRIORCHAT_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		c.UI.Color = "never"
	}
}
