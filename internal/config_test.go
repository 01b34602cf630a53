package internal

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/lifematrix/internal/models"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

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
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token"}
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
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestStoreConfig(t *testing.T) {
	cfg := StoreConfig{Path: "./x"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("store config: %v", err)
	}
	if cfg.Driver != "file" || cfg.Key != "life_matrix_v4_data" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	bad := StoreConfig{Driver: "redis", Path: "x"}
	if err := bad.Validate(); err == nil {
		t.Error("unknown driver should fail")
	}
	noPath := StoreConfig{Driver: "sqlite"}
	if err := noPath.Validate(); err == nil {
		t.Error("missing path should fail")
	}
}

func TestSyncConfig(t *testing.T) {
	cfg := SyncConfig{Mode: "http"}
	if err := cfg.Validate(); err == nil {
		t.Error("http mode without endpoint should fail")
	}
	cfg.Endpoint = "https://backup.example/profiles"
	cfg.Timeout = 5 * time.Second
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid http sync: %v", err)
	}
	empty := SyncConfig{}
	if err := empty.Validate(); err != nil || empty.Mode != "none" {
		t.Errorf("empty sync: mode=%q err=%v", empty.Mode, err)
	}
}

func TestProfileConfig(t *testing.T) {
	cfg := ProfileConfig{Dimensions: []models.Dimension{
		{ID: "a", Name: "A", Active: true},
		{ID: "a", Name: "B", Active: true},
	}}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("duplicate ids should fail, got %v", err)
	}
	cfg = ProfileConfig{Dimensions: []models.Dimension{{ID: "a"}}}
	if err := cfg.Validate(); err == nil {
		t.Error("missing name should fail")
	}
	cfg = ProfileConfig{Timezone: "Not/AZone"}
	if err := cfg.Validate(); err == nil {
		t.Error("bad timezone should fail")
	}
	cfg = ProfileConfig{Timezone: "UTC"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("UTC: %v", err)
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}
