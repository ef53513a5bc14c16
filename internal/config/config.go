// Package config reads process configuration from CHOICES_* environment variables.
//
// Call [Load] once at startup. A .env file, when present, is applied first and
// never overrides variables already set in the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/logging"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/remote"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every variable name
const Prefix = "CHOICES_"

// Config holds the process settings of choicectl
type Config struct {
	// ── Logging ──────────────────────────────────────────────────────────────────
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogFile   string `env:"LOG_FILE"`

	// ── Server ───────────────────────────────────────────────────────────────────
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// ── Sources ──────────────────────────────────────────────────────────────────
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`
	FetchRetries uint64        `env:"FETCH_RETRIES" envDefault:"2"`
	GitHubToken  string        `env:"GITHUB_TOKEN"`

	// ── Repository listing ───────────────────────────────────────────────────────
	SVNCommand string `env:"SVN_COMMAND" envDefault:"svn"`

	// ── Roles ────────────────────────────────────────────────────────────────────
	// Both files must be set to use a casbin policy.
	RoleModelFile  string `env:"ROLE_MODEL_FILE"`
	RolePolicyFile string `env:"ROLE_POLICY_FILE"`
	GrantStore     string `env:"GRANT_STORE"`

	// ── Credentials ──────────────────────────────────────────────────────────────
	// Use the encrypted file store when no system keyring is reachable.
	SecretsFallback bool `env:"SECRETS_FALLBACK" envDefault:"false"`
}

// Load applies envFile (ignored when absent) and parses the environment
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	return parse(env.Options{Prefix: Prefix})
}

// FromMap parses settings from vars instead of the process environment
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if (cfg.RoleModelFile == "") != (cfg.RolePolicyFile == "") {
		return nil, fmt.Errorf("invalid configuration: %sROLE_MODEL_FILE and %sROLE_POLICY_FILE must be set together", Prefix, Prefix)
	}
	return cfg, nil
}

// Logging returns the logger settings
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:  c.LogLevel,
		Format: c.LogFormat,
		File:   c.LogFile,
	}
}

// Remote returns the fetch settings for URL sources
func (c *Config) Remote() remote.Options {
	return remote.Options{
		Timeout: c.FetchTimeout,
		Retries: c.FetchRetries,
		Token:   c.GitHubToken,
	}
}

// UsesCasbin reports whether a casbin model and policy are configured
func (c *Config) UsesCasbin() bool {
	return c.RoleModelFile != "" && c.RolePolicyFile != ""
}

// String masks the token
func (c *Config) String() string {
	token := ""
	if c.GitHubToken != "" {
		token = "****"
	}
	return fmt.Sprintf("log=%s/%s listen=%s fetch=%s/%d token=%s svn=%s",
		c.LogLevel, c.LogFormat, c.ListenAddr, c.FetchTimeout, c.FetchRetries, token, c.SVNCommand)
}
