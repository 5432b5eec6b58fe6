package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"llm-client/internal/config"
)

func restoreDefault(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInit_TextToFallback(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer

	if _, err := Init(config.LogConfig{Level: "warn"}, &buf); err != nil {
		t.Fatalf("Init: %v", err)
	}
	slog.Info("hidden")
	slog.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "key=value") {
		t.Errorf("unexpected text output: %q", out)
	}
}

func TestInit_JSON(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer

	if _, err := Init(config.LogConfig{Format: "json"}, &buf); err != nil {
		t.Fatalf("Init: %v", err)
	}
	slog.Info("sending request", "model", "gpt-3.5-turbo")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "sending request" || rec["model"] != "gpt-3.5-turbo" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestInit_File(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "llm-client.log")

	if _, err := Init(config.LogConfig{File: path}, &buf); err != nil {
		t.Fatalf("Init: %v", err)
	}
	slog.Info("to file")

	if buf.Len() != 0 {
		t.Errorf("fallback writer should be unused, got %q", buf.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file missing record: %q", data)
	}
}
