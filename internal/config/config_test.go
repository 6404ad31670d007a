package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("TENSION_CONFIG_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if time.Duration(cfg.GraceWindow) != DefaultGraceWindow {
		t.Fatalf("expected default grace window, got %v", time.Duration(cfg.GraceWindow))
	}
	if cfg.DueOrder != "asc" || cfg.LogLevel != "warn" || cfg.Glyphs() != "unicode" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.CascadeArea || cfg.ParallelPersist {
		t.Fatalf("expected bool defaults to be false: %+v", cfg)
	}
}

func TestSaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TENSION_CONFIG_DIR", dir)

	cfg := &Config{}
	for k, v := range map[string]string{
		KeyWorkspace:   "/tmp/ws",
		KeyGraceWindow: "2s",
		KeyCascadeArea: "true",
		KeyDueOrder:    "desc",
		KeyTUIGlyphs:   "ascii",
	} {
		if err := Set(cfg, k, v); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	if err := Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); err != nil {
		t.Fatalf("expected config.json: %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Workspace != "/tmp/ws" || time.Duration(got.GraceWindow) != 2*time.Second || !got.CascadeArea || got.DueOrder != "desc" || got.Glyphs() != "ascii" {
		t.Fatalf("unexpected config: %+v (tui=%+v)", got, got.TUI)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TENSION_CONFIG_DIR", dir)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"graceWindow":"3s","tui":{"glyphs":"ascii"}}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("TENSION_GRACEWINDOW", "9s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if time.Duration(cfg.GraceWindow) != 9*time.Second {
		t.Fatalf("expected env override, got %v", time.Duration(cfg.GraceWindow))
	}
	if cfg.Glyphs() != "ascii" {
		t.Fatalf("expected glyphs from file, got %q", cfg.Glyphs())
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TENSION_CONFIG_DIR", dir)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"dueOrder":"sideways"}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "dueOrder") {
		t.Fatalf("expected dueOrder error, got %v", err)
	}
}

func TestSet_UnknownKey(t *testing.T) {
	if err := Set(&Config{}, "colour", "red"); err == nil {
		t.Fatalf("expected error")
	}
	if err := Set(&Config{}, KeyGraceWindow, "-1s"); err == nil {
		t.Fatalf("expected error for negative grace window")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&buf, "info")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	log.Debug("hidden")
	log.Info("shown", "op", "moveItem")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "op=moveItem") {
		t.Fatalf("unexpected log output: %q", buf.String())
	}
	if _, err := NewLogger(&buf, "loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
