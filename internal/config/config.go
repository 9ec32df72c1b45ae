// Package config loads the server configuration from .env files, the
// environment and an optional TOML override file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// SessionConfig controls the idle-session sweep. A zero TTL disables it.
type SessionConfig struct {
	TTL           time.Duration `toml:"ttl" env:"SESSION_TTL" validate:"min=0"`
	SweepInterval time.Duration `toml:"sweep_interval" env:"SESSION_SWEEP_INTERVAL" validate:"min=0"`
}

// SamplingConfig bounds verbalized sampling submissions.
type SamplingConfig struct {
	MinSamples    int `toml:"min_samples" env:"SAMPLING_MIN_SAMPLES" validate:"min=1"`
	MaxSamples    int `toml:"max_samples" env:"SAMPLING_MAX_SAMPLES" validate:"gtefield=MinSamples"`
	MinTextLength int `toml:"min_text_length" env:"SAMPLING_MIN_TEXT_LENGTH" validate:"min=1"`
	MaxTextLength int `toml:"max_text_length" env:"SAMPLING_MAX_TEXT_LENGTH" validate:"gtefield=MinTextLength"`
}

type MemoryConfig struct {
	Enabled bool   `env:"MEMORY_ENABLED"`
	DataDir string `env:"DATA_DIR"`
}

type SlackConfig struct {
	BotToken          string   `env:"SLACK_BOT_TOKEN"`
	UserToken         string   `env:"SLACK_USER_TOKEN"`
	DigestChannels    []string `env:"SLACK_DIGEST_CHANNELS"`
	DigestPostChannel string   `env:"SLACK_DIGEST_POST_CHANNEL"`
}

type JiraConfig struct {
	URL            string        `env:"JIRA_URL" validate:"omitempty,http_url"`
	Email          string        `env:"JIRA_EMAIL" validate:"omitempty,email"`
	Token          string        `env:"JIRA_TOKEN"`
	KnowledgeField string        `env:"JIRA_KNOWLEDGE_FIELD"`
	RequestDelay   time.Duration `env:"JIRA_REQUEST_DELAY" validate:"min=0"`
}

type ConfluenceConfig struct {
	URL   string `env:"CONFLUENCE_URL" validate:"omitempty,http_url"`
	Email string `env:"CONFLUENCE_EMAIL" validate:"omitempty,email"`
	Token string `env:"CONFLUENCE_TOKEN"`
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	DataDir        string `env:"DATA_DIR" validate:"required"`
	OutputDir      string `env:"OUTPUT_DIR" validate:"required"`
	LogDir         string `env:"LOGS_FOLDER"`
	AttachmentsDir string `env:"ATTACHMENTS_DIR" validate:"required"`
	Session        SessionConfig
	Sampling       SamplingConfig
	Memory         MemoryConfig
	Slack          SlackConfig
	Jira           JiraConfig
	Confluence     ConfluenceConfig
}

// SlackEnabled reports whether the Slack tools can be registered.
func (c *AppConfig) SlackEnabled() bool { return c.Slack.BotToken != "" }

// JiraEnabled reports whether the JIRA tools can be registered.
func (c *AppConfig) JiraEnabled() bool { return c.Jira.URL != "" && c.Jira.Token != "" }

// ConfluenceEnabled reports whether the Confluence tools can be registered.
func (c *AppConfig) ConfluenceEnabled() bool {
	return c.Confluence.URL != "" && c.Confluence.Token != ""
}

// LoadEnvFiles loads .env from the executable directory and then from the
// working directory. Variables already set are never overridden, so the
// first file to define a key wins.
func LoadEnvFiles() {
	if exePath, err := os.Executable(); err == nil {
		envPath := filepath.Join(filepath.Dir(exePath), ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}
}

// Load loads the configuration from .env files, environment variables and
// the TOML file named by REASONKIT_CONFIG, then validates it.
func Load() (*AppConfig, error) {
	LoadEnvFiles()
	cfg := fromEnv()
	if path := getEnv("REASONKIT_CONFIG", ""); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() *AppConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := getEnv("DATA_DIR", filepath.Join(home, ".reasonkit"))
	return &AppConfig{
		DataDir:        dataDir,
		OutputDir:      getEnv("OUTPUT_DIR", "output"),
		LogDir:         getEnv("LOGS_FOLDER", ""),
		AttachmentsDir: getEnv("ATTACHMENTS_DIR", filepath.Join(dataDir, "attachments")),
		Session: SessionConfig{
			TTL:           getEnvDuration("SESSION_TTL", 0),
			SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),
		},
		Sampling: SamplingConfig{
			MinSamples:    getEnvInt("SAMPLING_MIN_SAMPLES", 3),
			MaxSamples:    getEnvInt("SAMPLING_MAX_SAMPLES", 10),
			MinTextLength: getEnvInt("SAMPLING_MIN_TEXT_LENGTH", 10),
			MaxTextLength: getEnvInt("SAMPLING_MAX_TEXT_LENGTH", 5000),
		},
		Memory: MemoryConfig{
			Enabled: getEnvBool("MEMORY_ENABLED", true),
			DataDir: dataDir,
		},
		Slack: SlackConfig{
			BotToken:          getEnv("SLACK_BOT_TOKEN", ""),
			UserToken:         getEnv("SLACK_USER_TOKEN", ""),
			DigestChannels:    getEnvList("SLACK_DIGEST_CHANNELS"),
			DigestPostChannel: getEnv("SLACK_DIGEST_POST_CHANNEL", ""),
		},
		Jira: JiraConfig{
			URL:            strings.TrimRight(getEnv("JIRA_URL", ""), "/"),
			Email:          getEnv("JIRA_EMAIL", ""),
			Token:          getEnv("JIRA_TOKEN", ""),
			KnowledgeField: getEnv("JIRA_KNOWLEDGE_FIELD", ""),
			RequestDelay:   getEnvDuration("JIRA_REQUEST_DELAY", 0),
		},
		Confluence: ConfluenceConfig{
			URL:   strings.TrimRight(getEnv("CONFLUENCE_URL", ""), "/"),
			Email: getEnv("CONFLUENCE_EMAIL", ""),
			Token: getEnv("CONFLUENCE_TOKEN", ""),
		},
	}
}

// fileConfig is the subset of settings a TOML file may override.
type fileConfig struct {
	Session  SessionConfig  `toml:"session"`
	Sampling SamplingConfig `toml:"sampling"`
}

func applyFile(cfg *AppConfig, path string) error {
	fc := fileConfig{Session: cfg.Session, Sampling: cfg.Sampling}
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		log.Warn().Str("path", path).Str("key", key.String()).Msg("Unknown key in config file")
	}
	cfg.Session, cfg.Sampling = fc.Session, fc.Sampling
	log.Debug().Str("path", path).Msg("Applied config file overrides")
	return nil
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Name fields after their environment variable.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}()

// Validate checks cfg and reports the first problem by variable name.
func Validate(cfg *AppConfig) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) || len(vErrs) == 0 {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	fe := vErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("invalid configuration: %s is required", fe.Field())
	case "gtefield":
		return fmt.Errorf("invalid configuration: %s (%v) must be at least %s", fe.Field(), fe.Value(), fieldEnv(fe))
	case "http_url":
		return fmt.Errorf("invalid configuration: %s %q is not an http(s) URL", fe.Field(), fe.Value())
	case "email":
		return fmt.Errorf("invalid configuration: %s %q is not an email address", fe.Field(), fe.Value())
	default:
		return fmt.Errorf("invalid configuration: %s must satisfy %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
	}
}

// fieldEnv maps the gtefield parameter (a Go field name) to its env name.
func fieldEnv(fe validator.FieldError) string {
	for _, t := range []reflect.Type{reflect.TypeOf(SamplingConfig{}), reflect.TypeOf(SessionConfig{})} {
		if f, ok := t.FieldByName(fe.Param()); ok {
			return f.Tag.Get("env")
		}
	}
	return fe.Param()
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring invalid boolean")
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring invalid integer")
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s", "2h") or whole seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	value = strings.TrimSpace(value)
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	log.Warn().Str("key", key).Str("value", value).Msg("Ignoring invalid duration")
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
