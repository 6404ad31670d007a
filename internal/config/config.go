package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	KeyWorkspace       = "workspace"
	KeyChart           = "chart"
	KeyGraceWindow     = "graceWindow"
	KeyCascadeArea     = "cascadeArea"
	KeyParallelPersist = "parallelPersist"
	KeyDueOrder        = "dueOrder"
	KeyLogLevel        = "logLevel"
	KeyTUIGlyphs       = "tui.glyphs"
)

const DefaultGraceWindow = 5 * time.Second

type Config struct {
	// Workspace is the data directory holding tension.sqlite.
	Workspace string `json:"workspace,omitempty"`
	// Chart is the chart opened when no --chart is given.
	Chart string `json:"chart,omitempty"`

	GraceWindow     Duration `json:"graceWindow,omitempty"`
	CascadeArea     bool     `json:"cascadeArea,omitempty"`
	ParallelPersist bool     `json:"parallelPersist,omitempty"`
	DueOrder        string   `json:"dueOrder,omitempty"`
	LogLevel        string   `json:"logLevel,omitempty"`

	TUI *TUIConfig `json:"tui,omitempty"`
}

type TUIConfig struct {
	// Glyphs selects the glyph set ("unicode" or "ascii").
	Glyphs string `json:"glyphs,omitempty"`
}

// Duration is a time.Duration stored as its String() form ("5s").
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (c *Config) Glyphs() string {
	if c == nil || c.TUI == nil || c.TUI.Glyphs == "" {
		return "unicode"
	}
	return c.TUI.Glyphs
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.tension).
	if v := strings.TrimSpace(os.Getenv("TENSION_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tension"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("json")
	v.SetDefault(KeyGraceWindow, DefaultGraceWindow.String())
	v.SetDefault(KeyCascadeArea, false)
	v.SetDefault(KeyParallelPersist, false)
	v.SetDefault(KeyDueOrder, "asc")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyTUIGlyphs, "unicode")
	v.SetEnvPrefix("TENSION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads config.json (if any) and layers TENSION_* environment variables
// on top, e.g. TENSION_GRACEWINDOW=10s or TENSION_TUI_GLYPHS=ascii.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	v := newViper()
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	grace, err := time.ParseDuration(strings.TrimSpace(v.GetString(KeyGraceWindow)))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyGraceWindow, err)
	}
	if grace <= 0 {
		return nil, fmt.Errorf("invalid %s: must be positive", KeyGraceWindow)
	}
	due := strings.ToLower(strings.TrimSpace(v.GetString(KeyDueOrder)))
	if due != "asc" && due != "desc" {
		return nil, fmt.Errorf("invalid %s %q (expected asc|desc)", KeyDueOrder, due)
	}
	return &Config{
		Workspace:       strings.TrimSpace(v.GetString(KeyWorkspace)),
		Chart:           strings.TrimSpace(v.GetString(KeyChart)),
		GraceWindow:     Duration(grace),
		CascadeArea:     v.GetBool(KeyCascadeArea),
		ParallelPersist: v.GetBool(KeyParallelPersist),
		DueOrder:        due,
		LogLevel:        strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
		TUI:             &TUIConfig{Glyphs: strings.TrimSpace(v.GetString(KeyTUIGlyphs))},
	}, nil
}

// Keys lists the settable keys in a stable order.
func Keys() []string {
	out := []string{KeyWorkspace, KeyChart, KeyGraceWindow, KeyCascadeArea, KeyParallelPersist, KeyDueOrder, KeyLogLevel, KeyTUIGlyphs}
	sort.Strings(out)
	return out
}

// Set validates and applies one key to cfg.
func Set(cfg *Config, key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case KeyWorkspace:
		cfg.Workspace = value
	case KeyChart:
		cfg.Chart = value
	case KeyGraceWindow:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid %s %q", key, value)
		}
		cfg.GraceWindow = Duration(d)
	case KeyCascadeArea, KeyParallelPersist:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q", key, value)
		}
		if key == KeyCascadeArea {
			cfg.CascadeArea = b
		} else {
			cfg.ParallelPersist = b
		}
	case KeyDueOrder:
		if value != "asc" && value != "desc" {
			return fmt.Errorf("invalid %s %q (expected asc|desc)", key, value)
		}
		cfg.DueOrder = value
	case KeyLogLevel:
		if _, err := ParseLogLevel(value); err != nil {
			return err
		}
		cfg.LogLevel = value
	case KeyTUIGlyphs:
		if value != "unicode" && value != "ascii" {
			return fmt.Errorf("invalid %s %q (expected unicode|ascii)", key, value)
		}
		if cfg.TUI == nil {
			cfg.TUI = &TUIConfig{}
		}
		cfg.TUI.Glyphs = value
	default:
		return fmt.Errorf("unknown config key %q (expected one of %s)", key, strings.Join(Keys(), ", "))
	}
	return nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}
