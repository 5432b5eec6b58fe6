package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestResolve_ExplicitKeyWins(t *testing.T) {
	envs := []map[string]string{
		nil,
		{PrimaryKeyEnv: "primary"},
		{FallbackKeyEnv: "fallback"},
		{PrimaryKeyEnv: "primary", FallbackKeyEnv: "fallback"},
	}
	for _, env := range envs {
		p := DefaultProfile()
		p.APIKey = "from-file"
		s, diags := Resolve(p, Overrides{APIKey: "explicit"}, envMap(env))
		if s.APIKey != "explicit" {
			t.Errorf("env %v: APIKey = %q, want %q", env, s.APIKey, "explicit")
		}
		if s.KeySource != "explicit" {
			t.Errorf("env %v: KeySource = %q", env, s.KeySource)
		}
		if len(diags) != 0 {
			t.Errorf("env %v: unexpected diagnostics %v", env, diags)
		}
	}
}

func TestResolve_EnvPriorityOrder(t *testing.T) {
	s, _ := Resolve(DefaultProfile(), Overrides{}, envMap(map[string]string{
		PrimaryKeyEnv:  "primary",
		FallbackKeyEnv: "fallback",
	}))
	if s.APIKey != "primary" || s.KeySource != "env:"+PrimaryKeyEnv {
		t.Fatalf("got key %q from %q, want primary", s.APIKey, s.KeySource)
	}

	s, _ = Resolve(DefaultProfile(), Overrides{}, envMap(map[string]string{
		PrimaryKeyEnv:  "",
		FallbackKeyEnv: "fallback",
	}))
	if s.APIKey != "fallback" {
		t.Fatalf("empty primary should fall through, got %q", s.APIKey)
	}
}

func TestResolve_EnvValuesPassedThroughUnchanged(t *testing.T) {
	s, diags := Resolve(DefaultProfile(), Overrides{}, envMap(map[string]string{
		PrimaryKeyEnv: " sk-padded\n",
		EndpointEnv:   " https://env.example/chat ",
	}))
	if s.APIKey != " sk-padded\n" {
		t.Errorf("APIKey = %q, want value unchanged", s.APIKey)
	}
	if s.Endpoint != " https://env.example/chat " {
		t.Errorf("Endpoint = %q, want value unchanged", s.Endpoint)
	}
	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics %v", diags)
	}
}

func TestResolve_ConfigKeyIsLastResort(t *testing.T) {
	p := DefaultProfile()
	p.APIKey = "from-file"

	s, _ := Resolve(p, Overrides{}, envMap(nil))
	if s.APIKey != "from-file" || s.KeySource != "config" {
		t.Fatalf("got key %q from %q", s.APIKey, s.KeySource)
	}

	s, _ = Resolve(p, Overrides{}, envMap(map[string]string{FallbackKeyEnv: "env"}))
	if s.APIKey != "env" {
		t.Fatalf("env should beat config file, got %q", s.APIKey)
	}
}

func TestResolve_MissingKeyIsDiagnostic(t *testing.T) {
	s, diags := Resolve(DefaultProfile(), Overrides{}, envMap(nil))
	if s.HasAPIKey() {
		t.Fatalf("expected no key, got %q", s.APIKey)
	}
	if len(diags) != 1 {
		t.Fatalf("expected one diagnostic, got %v", diags)
	}
	if diags[0].Code != DiagnosticMissingAPIKey || diags[0].Severity != SeverityWarning {
		t.Errorf("unexpected diagnostic %+v", diags[0])
	}
	if !strings.Contains(diags[0].Message, PrimaryKeyEnv) || !strings.Contains(diags[0].Message, FallbackKeyEnv) {
		t.Errorf("diagnostic should name the key variables: %q", diags[0].Message)
	}
}

func TestResolve_EndpointPrecedence(t *testing.T) {
	s, _ := Resolve(ProfileConfig{}, Overrides{}, envMap(nil))
	if s.Endpoint != DefaultEndpoint {
		t.Errorf("default endpoint = %q", s.Endpoint)
	}

	p := ProfileConfig{Endpoint: "https://profile.example/v1/chat/completions"}
	s, _ = Resolve(p, Overrides{}, envMap(nil))
	if s.Endpoint != p.Endpoint {
		t.Errorf("profile endpoint = %q", s.Endpoint)
	}

	env := envMap(map[string]string{EndpointEnv: "https://env.example/chat"})
	s, _ = Resolve(p, Overrides{}, env)
	if s.Endpoint != "https://env.example/chat" {
		t.Errorf("env endpoint = %q", s.Endpoint)
	}

	s, _ = Resolve(p, Overrides{Endpoint: "https://flag.example/chat"}, env)
	if s.Endpoint != "https://flag.example/chat" {
		t.Errorf("explicit endpoint = %q", s.Endpoint)
	}
}

func TestResolve_ParameterDefaultsAndOverrides(t *testing.T) {
	s, _ := Resolve(ProfileConfig{}, Overrides{}, envMap(nil))
	if s.Model != DefaultModel || s.Temperature != DefaultTemperature || s.MaxTokens != DefaultMaxTokens {
		t.Errorf("defaults not applied: %+v", s)
	}
	if s.Timeout != 30*time.Second {
		t.Errorf("timeout = %v", s.Timeout)
	}

	zero := 0.0
	s, _ = Resolve(ProfileConfig{}, Overrides{Model: "m", Temperature: &zero, MaxTokens: 7}, envMap(nil))
	if s.Model != "m" || s.Temperature != 0 || s.MaxTokens != 7 {
		t.Errorf("overrides not applied: %+v", s)
	}
}

func TestResolve_CustomKeyEnv(t *testing.T) {
	p := ProfileConfig{APIKeyEnv: []string{"ROUTER_KEY"}}
	s, _ := Resolve(p, Overrides{}, envMap(map[string]string{
		PrimaryKeyEnv: "ignored",
		"ROUTER_KEY":  "router",
	}))
	if s.APIKey != "router" {
		t.Errorf("APIKey = %q, want router", s.APIKey)
	}
}

func TestLoad_EmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	name, p, err := cfg.ActiveProfile("")
	if err != nil {
		t.Fatalf("ActiveProfile: %v", err)
	}
	if name != DefaultProfileName || p.Endpoint != DefaultEndpoint {
		t.Errorf("got profile %q %+v", name, p)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "llm-client.yaml")
	content := `
profile: router
log:
  level: debug
profiles:
  router:
    endpoint: https://router.example/api/v1/chat/completions
    api_key_env: [ROUTER_API_KEY]
    model: router-model
    max_tokens: 100
    headers:
      X-Title: llm-client
server:
  port: 9090
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("unexpected top-level config: %+v", cfg)
	}

	name, p, err := cfg.ActiveProfile("")
	if err != nil {
		t.Fatalf("ActiveProfile: %v", err)
	}
	if name != "router" || p.Model != "router-model" || p.MaxTokens != 100 {
		t.Errorf("unexpected profile %q: %+v", name, p)
	}
	if p.Temperature == nil || *p.Temperature != DefaultTemperature {
		t.Errorf("temperature default not applied")
	}
	if p.Headers["X-Title"] != "llm-client" {
		t.Errorf("headers = %v", p.Headers)
	}

	if _, _, err := cfg.ActiveProfile(DefaultProfileName); err != nil {
		t.Errorf("built-in profile should remain available: %v", err)
	}
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("profiles:\n  openai:\n    endpiont: https://x\n"), "test.yaml")
	if err == nil {
		t.Fatal("expected schema error for misspelled field")
	}
	if !strings.Contains(err.Error(), "schema") {
		t.Errorf("error should mention schema: %v", err)
	}
}

func TestParse_RejectsBadLogLevel(t *testing.T) {
	if _, err := Parse([]byte("log:\n  level: loud\n"), "test.yaml"); err == nil {
		t.Fatal("expected schema error for invalid log level")
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse([]byte(""), "empty.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("expected port error")
	}

	cfg = Default()
	cfg.Profiles["bad"] = ProfileConfig{Endpoint: "ftp://example.com"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected endpoint scheme error")
	}

	cfg = Default()
	cfg.Profiles["bad"] = ProfileConfig{Headers: Headers{"Bad Header": "x"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected header error")
	}
}

func TestActiveProfile_Unknown(t *testing.T) {
	_, _, err := Default().ActiveProfile("nope")
	if !errors.Is(err, ErrUnknownProfile) {
		t.Fatalf("expected ErrUnknownProfile, got %v", err)
	}
}
