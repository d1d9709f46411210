package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/periodic/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestSettingsConfig_MustStayInVault(t *testing.T) {
	for _, p := range []string{"/etc/periodic.json", "../data.json", ""} {
		cfg := SettingsConfig{Path: p}
		if err := cfg.Validate(); err == nil {
			t.Errorf("path %q should be rejected", p)
		}
	}
	cfg := SettingsConfig{Path: ".periodic/data.json"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default path rejected: %v", err)
	}
}

func TestIndexConfig_Validate(t *testing.T) {
	if err := (&IndexConfig{}).Validate(); err == nil {
		t.Error("empty DSN should fail")
	}
	if err := (&IndexConfig{DSN: ":memory:", CalendarThrottle: -time.Second}).Validate(); err == nil {
		t.Error("negative throttle should fail")
	}
}

func TestLoad_OverridesDefaultsWithEnv(t *testing.T) {
	t.Setenv("PERIODIC_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
app:
  log_level: debug
  http:
    port: 9090
vault:
  path: /srv/vault
index:
  calendar_throttle: 500ms
auth:
  mode: token
  token: ${PERIODIC_TOKEN}
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.Vault.Path != "/srv/vault" || cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Index.DSN != ":memory:" || cfg.Index.CalendarThrottle != 500*time.Millisecond {
		t.Errorf("index = %+v", cfg.Index)
	}
	if cfg.Settings.Path != ".periodic/data.json" {
		t.Errorf("settings path = %q", cfg.Settings.Path)
	}
	if !cfg.Auth.AuthEnabled() || cfg.Auth.Token != "s3cret" {
		t.Errorf("auth = %+v", cfg.Auth)
	}
}
