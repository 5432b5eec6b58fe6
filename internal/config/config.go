package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultProfileName = "openai"
	DefaultEndpoint    = "https://api.openai.com/v1/chat/completions"
	DefaultModel       = "gpt-3.5-turbo"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500
	DefaultTimeout     = 30 * time.Second
	DefaultServerPort  = 8080

	PrimaryKeyEnv  = "LLM_API_KEY"
	FallbackKeyEnv = "OPENAI_API_KEY"
	EndpointEnv    = "LLM_API_URL"
)

var (
	// ErrUnknownProfile indicates the requested profile is not configured.
	ErrUnknownProfile = errors.New("unknown profile")
	// ErrMissingAPIKey is returned by callers that refuse to send without a key.
	ErrMissingAPIKey = errors.New("no API key configured")
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Profile  string                   `yaml:"profile"`
	Profiles map[string]ProfileConfig `yaml:"profiles"`
	Log      LogConfig                `yaml:"log"`
	Server   ServerConfig             `yaml:"server"`
}

// ServerConfig defines listener configuration for the relay.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig selects the slog level, handler format and optional log file.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// ProfileConfig describes one chat-completion endpoint and where its
// credentials come from.
type ProfileConfig struct {
	Endpoint       string   `yaml:"endpoint"`
	EndpointEnv    string   `yaml:"endpoint_env"`
	APIKey         string   `yaml:"api_key"`
	APIKeyEnv      []string `yaml:"api_key_env"`
	Model          string   `yaml:"model"`
	Temperature    *float64 `yaml:"temperature"`
	MaxTokens      int      `yaml:"max_tokens"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Headers        Headers  `yaml:"headers"`
}

// Headers contains additional HTTP headers to send with every request.
type Headers map[string]string

// Default returns the built-in configuration used when no file is given.
func Default() Config {
	return Config{
		Profile: DefaultProfileName,
		Profiles: map[string]ProfileConfig{
			DefaultProfileName: DefaultProfile(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Port: DefaultServerPort,
		},
	}
}

// DefaultProfile returns the built-in OpenAI profile.
func DefaultProfile() ProfileConfig {
	return ProfileConfig{}.withDefaults()
}

// Load reads YAML configuration from disk and validates the result.
// An empty path yields Default().
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	return Parse(data, absPath)
}

// Parse decodes YAML bytes, checks them against the config schema and
// applies defaults. name is only used in error messages.
func Parse(data []byte, name string) (Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", name, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	asJSON, err := json.Marshal(doc)
	if err != nil {
		return Config{}, fmt.Errorf("convert config file %q: %w", name, err)
	}
	problems, err := ValidateSchema(asJSON)
	if err != nil {
		return Config{}, err
	}
	if len(problems) > 0 {
		return Config{}, fmt.Errorf("config file %q does not match schema: %s", name, strings.Join(problems, "; "))
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", name, err)
	}
	cfg = cfg.withDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) withDefaults() Config {
	def := Default()
	if strings.TrimSpace(c.Profile) == "" {
		c.Profile = def.Profile
	}
	if c.Profiles == nil {
		c.Profiles = make(map[string]ProfileConfig)
	}
	if _, ok := c.Profiles[DefaultProfileName]; !ok {
		c.Profiles[DefaultProfileName] = DefaultProfile()
	}
	for name, p := range c.Profiles {
		c.Profiles[name] = p.withDefaults()
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	return c
}

func (p ProfileConfig) withDefaults() ProfileConfig {
	if strings.TrimSpace(p.Endpoint) == "" {
		p.Endpoint = DefaultEndpoint
	}
	if strings.TrimSpace(p.EndpointEnv) == "" {
		p.EndpointEnv = EndpointEnv
	}
	if len(p.APIKeyEnv) == 0 {
		p.APIKeyEnv = []string{PrimaryKeyEnv, FallbackKeyEnv}
	}
	if strings.TrimSpace(p.Model) == "" {
		p.Model = DefaultModel
	}
	if p.Temperature == nil {
		t := DefaultTemperature
		p.Temperature = &t
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = DefaultMaxTokens
	}
	if p.TimeoutSeconds == 0 {
		p.TimeoutSeconds = int(DefaultTimeout / time.Second)
	}
	return p
}

// ActiveProfile returns the named profile, or the configured default when
// name is empty.
func (c Config) ActiveProfile(name string) (string, ProfileConfig, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = c.Profile
	}
	if name == "" {
		name = DefaultProfileName
	}

	p, ok := c.Profiles[name]
	if !ok {
		if name == DefaultProfileName {
			return name, DefaultProfile(), nil
		}
		return "", ProfileConfig{}, fmt.Errorf("%w: %s (known: %s)", ErrUnknownProfile, name, strings.Join(c.ProfileNames(), ", "))
	}
	return name, p.withDefaults(), nil
}

// ProfileNames lists configured profile names in sorted order.
func (c Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}

	if _, ok := c.Profiles[c.Profile]; !ok && c.Profile != DefaultProfileName {
		return fmt.Errorf("profile %q is selected but not defined", c.Profile)
	}

	for _, name := range c.ProfileNames() {
		if err := validateProfile(name, c.Profiles[name]); err != nil {
			return err
		}
	}

	return nil
}

func validateProfile(name string, p ProfileConfig) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("profile name must not be empty")
	}
	if p.Endpoint != "" {
		if err := validateEndpoint(p.Endpoint); err != nil {
			return fmt.Errorf("profile %s: %w", name, err)
		}
	}
	for _, env := range p.APIKeyEnv {
		if strings.TrimSpace(env) == "" {
			return fmt.Errorf("profile %s: api_key_env entries must not be empty", name)
		}
	}
	if p.TimeoutSeconds < 0 {
		return fmt.Errorf("profile %s: timeout_seconds must not be negative, got %d", name, p.TimeoutSeconds)
	}
	for headerKey := range p.Headers {
		if !isCanonicalHTTPHeader(headerKey) {
			return fmt.Errorf("profile %s: header %q is not a valid canonical HTTP header", name, headerKey)
		}
	}
	return nil
}

func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("endpoint %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint %q must include a host", raw)
	}
	return nil
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}

	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
