package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// LookupFunc reports the value of an environment variable. os.LookupEnv
// satisfies it.
type LookupFunc func(key string) (string, bool)

// Overrides carries explicitly supplied values. Empty fields are unset.
type Overrides struct {
	APIKey      string
	Endpoint    string
	Model       string
	Temperature *float64
	MaxTokens   int
}

// Settings is the resolved, immutable client configuration.
type Settings struct {
	APIKey      string
	Endpoint    string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Headers     map[string]string

	// KeySource names where APIKey came from: "explicit", "env:<NAME>",
	// "config" or "" when no key was found.
	KeySource string
	// KeyEnv lists the variables consulted for the key, in priority order.
	KeyEnv []string
}

// HasAPIKey reports whether a key was resolved.
func (s Settings) HasAPIKey() bool {
	return s.APIKey != ""
}

// Severity grades a Diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
)

// Diagnostic is a non-fatal observation made while resolving settings.
type Diagnostic struct {
	Severity Severity
	Code     string
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

const DiagnosticMissingAPIKey = "missing_api_key"

// Resolve computes final settings for one profile.
//
// API key: explicit > first non-empty variable of p.APIKeyEnv > p.APIKey.
// Endpoint: explicit > p.EndpointEnv > p.Endpoint > DefaultEndpoint.
//
// A missing key is reported as a warning Diagnostic and never as an error;
// the remote service rejects the request instead.
func Resolve(p ProfileConfig, o Overrides, env LookupFunc) (Settings, []Diagnostic) {
	if env == nil {
		env = os.LookupEnv
	}
	p = p.withDefaults()

	s := Settings{
		Model:       p.Model,
		Temperature: *p.Temperature,
		MaxTokens:   p.MaxTokens,
		Timeout:     time.Duration(p.TimeoutSeconds) * time.Second,
		Headers:     cloneHeaders(p.Headers),
		KeyEnv:      append([]string(nil), p.APIKeyEnv...),
	}

	switch {
	case o.APIKey != "":
		s.APIKey, s.KeySource = o.APIKey, "explicit"
	default:
		for _, name := range p.APIKeyEnv {
			if v, ok := lookupNonEmpty(env, name); ok {
				s.APIKey, s.KeySource = v, "env:"+name
				break
			}
		}
		if s.APIKey == "" && p.APIKey != "" {
			s.APIKey, s.KeySource = p.APIKey, "config"
		}
	}

	s.Endpoint = p.Endpoint
	if v, ok := lookupNonEmpty(env, p.EndpointEnv); ok {
		s.Endpoint = v
	}
	if o.Endpoint != "" {
		s.Endpoint = o.Endpoint
	}
	if s.Endpoint == "" {
		s.Endpoint = DefaultEndpoint
	}

	if o.Model != "" {
		s.Model = o.Model
	}
	if o.Temperature != nil {
		s.Temperature = *o.Temperature
	}
	if o.MaxTokens > 0 {
		s.MaxTokens = o.MaxTokens
	}

	var diags []Diagnostic
	if s.APIKey == "" {
		diags = append(diags, Diagnostic{
			Severity: SeverityWarning,
			Code:     DiagnosticMissingAPIKey,
			Message:  fmt.Sprintf("no API key provided; set %s or pass an explicit key", strings.Join(p.APIKeyEnv, " or ")),
		})
	}
	return s, diags
}

func lookupNonEmpty(env LookupFunc, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	v, ok := env(name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func cloneHeaders(h Headers) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
