// Copyright 2025 Kothakunjo Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads and validates the application configuration from a
// YAML file and environment variables. Environment variables take precedence
// over file values; vendor API keys are normally injected via environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	// ErrMissingRequiredField is returned when a required configuration field is missing
	ErrMissingRequiredField = errors.New("missing required configuration field")
	// ErrInvalidConfigValue is returned when a configuration value is invalid
	ErrInvalidConfigValue = errors.New("invalid configuration value")
)

// Trigger modes control how plugin flags and keyword matches combine.
const (
	// TriggerModeKeywordsOrFlags fires a concern when either the explicit
	// plugin flag is set or a trigger phrase matches the message.
	TriggerModeKeywordsOrFlags = "keywords_or_flags"
	// TriggerModeFlagsOnly fires a concern only on an explicit plugin flag.
	TriggerModeFlagsOnly = "flags_only"
)

// Config represents the complete application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Groq         GroqConfig         `mapstructure:"groq"`
	Gemini       GeminiConfig       `mapstructure:"gemini"`
	Serper       SerperConfig       `mapstructure:"serper"`
	Khoj         KhojConfig         `mapstructure:"khoj"`
	Pollinations PollinationsConfig `mapstructure:"pollinations"`
	FreeImage    FreeImageConfig    `mapstructure:"freeimage"`
	Triggers     TriggersConfig     `mapstructure:"triggers"`
	Chat         ChatConfig         `mapstructure:"chat"`
	History      HistoryConfig      `mapstructure:"history"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// GroqConfig contains the primary LLM provider configuration.
// The flagship model forms the first fallback tier on every plan; the
// remaining models form the last tier.
type GroqConfig struct {
	APIKey        string   `mapstructure:"apikey"`
	BaseURL       string   `mapstructure:"base_url"`
	FlagshipModel string   `mapstructure:"flagship_model"`
	Models        []string `mapstructure:"models"`
}

// GeminiConfig contains the secondary LLM provider configuration
type GeminiConfig struct {
	APIKey string   `mapstructure:"apikey"`
	Models []string `mapstructure:"models"`
}

// SerperConfig contains the web search vendor configuration
type SerperConfig struct {
	APIKey     string `mapstructure:"apikey"`
	Endpoint   string `mapstructure:"endpoint"`
	MaxResults int    `mapstructure:"max_results"`
}

// KhojConfig contains the fact-check vendor configuration
type KhojConfig struct {
	APIKey   string `mapstructure:"apikey"`
	Endpoint string `mapstructure:"endpoint"`
}

// PollinationsConfig contains the image synthesis vendor configuration
type PollinationsConfig struct {
	APIKey         string `mapstructure:"apikey"`
	Endpoint       string `mapstructure:"endpoint"`
	Model          string `mapstructure:"model"`
	Width          int    `mapstructure:"width"`
	Height         int    `mapstructure:"height"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// FreeImageConfig contains the image hosting vendor configuration
type FreeImageConfig struct {
	APIKey   string `mapstructure:"apikey"`
	Endpoint string `mapstructure:"endpoint"`
}

// TriggersConfig contains the augmentation trigger policy and phrase lists
type TriggersConfig struct {
	Mode             string   `mapstructure:"mode"`
	FactCheckPhrases []string `mapstructure:"fact_check_phrases"`
	WebSearchPhrases []string `mapstructure:"web_search_phrases"`
	ImagePhrases     []string `mapstructure:"image_phrases"`
}

// ChatConfig contains completion parameters for the chat pipeline
type ChatConfig struct {
	Temperature       float32 `mapstructure:"temperature"`
	TitleTemperature  float32 `mapstructure:"title_temperature"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	MaxHistoryTurns   int     `mapstructure:"max_history_turns"`
	GeminiTemperature float32 `mapstructure:"gemini_temperature"`
}

// HistoryConfig contains the conversation store configuration
type HistoryConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed for field '%s': %s", e.Field, e.Message)
}

// LoadOptions contains options for configuration loading
type LoadOptions struct {
	ConfigPath       string
	ValidateRequired bool
}

// Load loads configuration from file and environment variables.
// Environment variables take precedence over config file values.
func Load(configPath string) (*Config, error) {
	return LoadWithOptions(LoadOptions{
		ConfigPath:       configPath,
		ValidateRequired: true,
	})
}

// LoadWithOptions loads configuration with additional options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	setConfigFile(v, opts.ConfigPath)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("KOTHAKUNJO")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error if env vars are set
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if _, statErr := os.Stat(v.ConfigFileUsed()); statErr == nil || v.ConfigFileUsed() == "" {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	setEnvironmentMappings(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if opts.ValidateRequired {
		if err := validateConfig(&config); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")

	// Provider defaults
	v.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("groq.flagship_model", "openai/gpt-oss-120b")
	v.SetDefault("groq.models", []string{
		"openai/gpt-oss-120b", "llama-3.3-70b-versatile", "llama-3.1-70b-versatile",
	})
	v.SetDefault("gemini.models", []string{
		"gemini-3-flash-preview", "gemini-2.0-flash-exp", "gemini-2.5-flash",
	})

	// Vendor defaults
	v.SetDefault("serper.endpoint", "https://google.serper.dev/search")
	v.SetDefault("serper.max_results", 5)
	v.SetDefault("khoj.endpoint", "https://khoj-bd.com/api/v1/factcheck")
	v.SetDefault("pollinations.endpoint", "https://gen.pollinations.ai/image")
	v.SetDefault("pollinations.model", "flux")
	v.SetDefault("pollinations.width", 1024)
	v.SetDefault("pollinations.height", 1024)
	v.SetDefault("pollinations.timeout_seconds", 30)
	v.SetDefault("freeimage.endpoint", "https://freeimage.host/api/1/upload")

	// Trigger defaults
	v.SetDefault("triggers.mode", TriggerModeKeywordsOrFlags)
	v.SetDefault("triggers.fact_check_phrases", DefaultFactCheckPhrases())
	v.SetDefault("triggers.web_search_phrases", DefaultWebSearchPhrases())
	v.SetDefault("triggers.image_phrases", DefaultImagePhrases())

	// Chat defaults
	v.SetDefault("chat.temperature", 0.7)
	v.SetDefault("chat.title_temperature", 0.5)
	v.SetDefault("chat.max_tokens", 8192)
	v.SetDefault("chat.max_history_turns", 30)
	v.SetDefault("chat.gemini_temperature", 1.0)

	// History defaults
	v.SetDefault("history.db_path", "./conversations.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// setConfigFile sets the configuration file path with fallback locations
func setConfigFile(v *viper.Viper, configPath string) {
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		v.SetConfigFile(envPath)
		return
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
}

// setEnvironmentMappings sets explicit environment variable mappings
func setEnvironmentMappings(v *viper.Viper) {
	envMappings := map[string]string{
		"GROQ_API_KEY":         "groq.apikey",
		"GEMINI_API_KEY":       "gemini.apikey",
		"SERPER_API_KEY":       "serper.apikey",
		"KHOJ_API_KEY":         "khoj.apikey",
		"POLLINATIONS_API_KEY": "pollinations.apikey",
		"FREEIMAGE_API_KEY":    "freeimage.apikey",
		"HISTORY_DB_PATH":      "history.db_path",
		"LOG_LEVEL":            "logging.level",
		"LOG_FORMAT":           "logging.format",
		"LOG_OUTPUT":           "logging.output",
		"PORT":                 "server.port",
	}

	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			v.Set(configKey, value)
		}
	}
}

// validateConfig validates the configuration for required fields and valid values
func validateConfig(config *Config) error {
	var errs []ValidationError

	if config.Groq.APIKey == "" {
		errs = append(errs, ValidationError{
			Field:   "groq.apikey",
			Message: "Groq API key is required. Set via config file or GROQ_API_KEY environment variable",
		})
	}

	if config.Gemini.APIKey == "" {
		errs = append(errs, ValidationError{
			Field:   "gemini.apikey",
			Message: "Gemini API key is required. Set via config file or GEMINI_API_KEY environment variable",
		})
	}

	if config.Groq.FlagshipModel == "" {
		errs = append(errs, ValidationError{
			Field:   "groq.flagship_model",
			Message: "flagship model is required",
		})
	}

	if len(config.Gemini.Models) == 0 {
		errs = append(errs, ValidationError{
			Field:   "gemini.models",
			Message: "at least one Gemini model is required",
		})
	}

	if config.Serper.MaxResults <= 0 {
		errs = append(errs, ValidationError{
			Field:   "serper.max_results",
			Message: "max_results must be greater than 0",
		})
	}

	if config.Pollinations.TimeoutSeconds <= 0 {
		errs = append(errs, ValidationError{
			Field:   "pollinations.timeout_seconds",
			Message: "timeout_seconds must be greater than 0",
		})
	}

	if config.Chat.MaxTokens <= 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.max_tokens",
			Message: "max_tokens must be greater than 0",
		})
	}

	if config.Chat.Temperature < 0 || config.Chat.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "chat.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if config.Chat.MaxHistoryTurns <= 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.max_history_turns",
			Message: "max_history_turns must be greater than 0",
		})
	}

	validModes := []string{TriggerModeKeywordsOrFlags, TriggerModeFlagsOnly}
	if !contains(validModes, config.Triggers.Mode) {
		errs = append(errs, ValidationError{
			Field:   "triggers.mode",
			Message: fmt.Sprintf("trigger mode must be one of: %s", strings.Join(validModes, ", ")),
		})
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, config.Logging.Level) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("log level must be one of: %s", strings.Join(validLogLevels, ", ")),
		})
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, config.Logging.Format) {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("log format must be one of: %s", strings.Join(validLogFormats, ", ")),
		})
	}

	if config.History.DBPath == "" {
		errs = append(errs, ValidationError{
			Field:   "history.db_path",
			Message: "conversation database path is required",
		})
	}

	if len(errs) > 0 {
		var errorMessages []string
		for _, err := range errs {
			errorMessages = append(errorMessages, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errorMessages, "\n"))
	}

	return nil
}

// MaskSensitiveValues returns a copy of the config with vendor keys masked
func (c *Config) MaskSensitiveValues() *Config {
	masked := *c

	masked.Groq.APIKey = maskValue(masked.Groq.APIKey)
	masked.Gemini.APIKey = maskValue(masked.Gemini.APIKey)
	masked.Serper.APIKey = maskValue(masked.Serper.APIKey)
	masked.Khoj.APIKey = maskValue(masked.Khoj.APIKey)
	masked.Pollinations.APIKey = maskValue(masked.Pollinations.APIKey)
	masked.FreeImage.APIKey = maskValue(masked.FreeImage.APIKey)

	return &masked
}

// maskValue masks sensitive values, showing only the first 4 characters
func maskValue(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + strings.Repeat("*", len(value)-4)
}

// contains checks if a slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// WatchConfig enables configuration hot-reloading
func WatchConfig(configPath string, callback func(*Config)) error {
	v := viper.New()

	setConfigFile(v, configPath)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file for watching: %w", err)
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		config, err := LoadWithOptions(LoadOptions{
			ConfigPath:       configPath,
			ValidateRequired: true,
		})
		if err != nil {
			fmt.Printf("Failed to reload config after change to %s: %v\n", e.Name, err)
			return
		}
		callback(config)
	})

	return nil
}
