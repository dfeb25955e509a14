package internal

import (
	"strings"
	"testing"
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

func TestRemoteConfig_DisabledByDefault(t *testing.T) {
	cfg := RemoteConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty remote config should pass: %v", err)
	}
	if cfg.Enabled() {
		t.Error("empty remote config should be disabled")
	}
}

func TestRemoteConfig_HTTPRequiresCredentials(t *testing.T) {
	cfg := RemoteConfig{Mode: "http", Endpoint: "https://api.example.com/v1"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("http mode without credentials should fail")
	}

	cfg = RemoteConfig{
		Mode:     "http",
		Endpoint: "https://api.example.com/v1",
		Project:  "proj",
		Key:      "key",
		Database: "db",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("complete http config should pass: %v", err)
	}
	if !cfg.Enabled() {
		t.Error("http mode should be enabled")
	}
}

func TestRemoteConfig_InvalidMode(t *testing.T) {
	cfg := RemoteConfig{Mode: "ftp"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid remote mode should fail validation")
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

func TestFullConfig_StoreValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Store.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch empty store path")
	}
}
