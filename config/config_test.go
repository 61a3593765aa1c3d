package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"UDIO_API_BASE", "RIZUMU_PAGE_SIZE", "RIZUMU_CORS_MODE", "RIZUMU_MAX_RETRIES"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PageSize != DefaultPageSize {
		t.Errorf("PageSize = %d, want %d", cfg.PageSize, DefaultPageSize)
	}
	if cfg.CORSMode != "auto" {
		t.Errorf("CORSMode = %q, want auto", cfg.CORSMode)
	}
	if cfg.ProxyCooldown != 30*time.Minute {
		t.Errorf("ProxyCooldown = %s, want 30m", cfg.ProxyCooldown)
	}
	if got, want := cfg.SearchEndpoint(), "https://www.udio.com/api/songs/search"; got != want {
		t.Errorf("SearchEndpoint() = %q, want %q", got, want)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("UDIO_API_BASE", "http://localhost:9999/api/")
	t.Setenv("RIZUMU_PAGE_SIZE", "5")
	t.Setenv("RIZUMU_CORS_MODE", "PROXY")
	t.Setenv("RIZUMU_PLACEHOLDERS", "true")
	t.Setenv("RIZUMU_PROXY_COOLDOWN", "2m")
	t.Setenv("RIZUMU_MAX_RETRIES", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PageSize != 5 {
		t.Errorf("PageSize = %d, want 5", cfg.PageSize)
	}
	if cfg.CORSMode != "proxy" {
		t.Errorf("CORSMode = %q, want proxy", cfg.CORSMode)
	}
	if !cfg.Placeholders {
		t.Error("Placeholders = false, want true")
	}
	if cfg.ProxyCooldown != 2*time.Minute {
		t.Errorf("ProxyCooldown = %s, want 2m", cfg.ProxyCooldown)
	}
	if cfg.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want fallback %d", cfg.MaxRetries, DefaultMaxRetries)
	}
	if got, want := cfg.SearchEndpoint(), "http://localhost:9999/api/songs/search"; got != want {
		t.Errorf("SearchEndpoint() = %q, want %q", got, want)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"ok", Config{CORSMode: "auto", PageSize: 1}, nil},
		{"bad mode", Config{CORSMode: "jsonp", PageSize: 1}, ErrInvalidCORSMode},
		{"zero page size", Config{CORSMode: "direct"}, ErrInvalidPageSize},
		{"negative retries", Config{CORSMode: "proxy", PageSize: 1, MaxRetries: -1}, ErrInvalidRetries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}
