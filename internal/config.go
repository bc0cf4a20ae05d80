package internal

import (
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Failure policies for subtree errors during a mirror run.
const (
	OnErrorAbort = "abort"
	OnErrorSkip  = "skip"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Notion NotionConfig      `yaml:"notion"`
	Mirror MirrorConfig      `yaml:"mirror"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Notion.Validate(); err != nil {
		return err
	}
	return c.Mirror.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// NotionConfig holds the remote document service connection settings.
//
// Token is the integration secret. It is deliberately not validated here:
// the entrypoint resolves it from the config file or the NOTION_TOKEN
// environment variable and fails before any traversal when both are empty.
type NotionConfig struct {
	Token          string `yaml:"token"`
	BaseURL        string `yaml:"base_url"`
	Version        string `yaml:"version"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Validate validates the remote service configuration.
func (c *NotionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Version, validation.Required),
		validation.Field(&c.TimeoutSeconds, validation.Required, validation.Min(1), validation.Max(600)),
	)
}

// Timeout returns the per-request HTTP timeout.
func (c *NotionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MirrorConfig holds mirror run configuration.
//
// OnError controls what a failed subtree does to the run:
//   - "abort" (default): the first failure stops the whole run.
//   - "skip": the failing subtree is logged and counted, siblings continue.
type MirrorConfig struct {
	Workers       int    `yaml:"workers"`
	OnError       string `yaml:"on_error"`
	IncludeHidden bool   `yaml:"include_hidden"`
}

// Validate validates the mirror configuration.
func (c *MirrorConfig) Validate() error {
	// Normalise empty policy to "abort".
	if c.OnError == "" {
		c.OnError = OnErrorAbort
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Min(0), validation.Max(64)),
		validation.Field(&c.OnError, validation.Required, validation.In(OnErrorAbort, OnErrorSkip)),
	)
}

// SkipFailed returns true when failed subtrees should be skipped rather
// than aborting the run.
func (c *MirrorConfig) SkipFailed() bool {
	return c.OnError == OnErrorSkip
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Notion: NotionConfig{
			BaseURL:        "https://api.notion.com",
			Version:        "2022-06-28",
			TimeoutSeconds: 30,
		},
		Mirror: MirrorConfig{
			Workers: 1,
			OnError: OnErrorAbort,
		},
	}
}
