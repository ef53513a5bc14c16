package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFromMap_Defaults(t *testing.T) {
	cfg, err := FromMap(map[string]string{})
	if err != nil {
		t.Fatalf("FromMap() error: %v", err)
	}

	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("Unexpected log defaults: %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("Expected :8080, got %q", cfg.ListenAddr)
	}
	if cfg.FetchTimeout != 30*time.Second || cfg.FetchRetries != 2 {
		t.Errorf("Unexpected fetch defaults: %s/%d", cfg.FetchTimeout, cfg.FetchRetries)
	}
	if cfg.SVNCommand != "svn" || cfg.SecretsFallback {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.UsesCasbin() {
		t.Error("Expected no casbin policy by default")
	}
}

func TestFromMap_Overrides(t *testing.T) {
	cfg, err := FromMap(map[string]string{
		"CHOICES_LOG_LEVEL":        "debug",
		"CHOICES_FETCH_TIMEOUT":    "5s",
		"CHOICES_FETCH_RETRIES":    "0",
		"CHOICES_ROLE_MODEL_FILE":  "model.conf",
		"CHOICES_ROLE_POLICY_FILE": "policy.csv",
		"CHOICES_SECRETS_FALLBACK": "true",
		"CHOICES_GITHUB_TOKEN":     "ghp_secret",
		"LOG_LEVEL":                "error",
	})
	if err != nil {
		t.Fatalf("FromMap() error: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("Expected prefixed variable to win, got %q", cfg.LogLevel)
	}
	if cfg.FetchTimeout != 5*time.Second || cfg.FetchRetries != 0 {
		t.Errorf("Unexpected fetch settings: %s/%d", cfg.FetchTimeout, cfg.FetchRetries)
	}
	if !cfg.UsesCasbin() || !cfg.SecretsFallback {
		t.Errorf("Unexpected settings: %+v", cfg)
	}

	remote := cfg.Remote()
	if remote.Token != "ghp_secret" || remote.Timeout != 5*time.Second {
		t.Errorf("Unexpected remote options: %+v", remote)
	}
	if strings.Contains(cfg.String(), "ghp_secret") {
		t.Error("Expected token to be masked")
	}
}

func TestFromMap_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"bad duration":         {"CHOICES_FETCH_TIMEOUT": "soon"},
		"bad bool":             {"CHOICES_SECRETS_FALLBACK": "maybe"},
		"model without policy": {"CHOICES_ROLE_MODEL_FILE": "model.conf"},
	}

	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := FromMap(vars); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CHOICES_LISTEN_ADDR=:9191\n"), 0644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}
	t.Setenv("CHOICES_LISTEN_ADDR", "")
	_ = os.Unsetenv("CHOICES_LISTEN_ADDR")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ListenAddr != ":9191" {
		t.Errorf("Expected value from .env, got %q", cfg.ListenAddr)
	}
}

func TestLoad_MissingEnvFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("Expected missing .env to be ignored, got %v", err)
	}
}
