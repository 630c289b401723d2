package main

// Notes:
// - newLogger: level selection from -q/-v.
// - applyFlags: only set flags override the configuration.
// - loadConfig: precedence of file, environment and flags. These tests use
//   t.Setenv and are not parallel.

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-docconv/internal/config"
)

// ---------------------------------------------------------------------------
// TestNewLogger - Level selection
// ---------------------------------------------------------------------------

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		flags   commonFlags
		enabled slog.Level
		muted   slog.Level
	}{
		{"default", commonFlags{}, slog.LevelWarn, slog.LevelInfo},
		{"quiet", commonFlags{quiet: true}, slog.LevelError, slog.LevelWarn},
		{"verbose", commonFlags{verbose: true}, slog.LevelDebug, slog.LevelDebug - 1},
		{"quiet wins", commonFlags{quiet: true, verbose: true}, slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger := newLogger(&bytes.Buffer{}, tt.flags)
			ctx := context.Background()
			if !logger.Enabled(ctx, tt.enabled) {
				t.Errorf("level %v disabled, want enabled", tt.enabled)
			}
			if logger.Enabled(ctx, tt.muted) {
				t.Errorf("level %v enabled, want disabled", tt.muted)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestApplyFlags - Flag overrides
// ---------------------------------------------------------------------------

func TestApplyFlags(t *testing.T) {
	t.Parallel()

	t.Run("unset flags keep config", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		want := *cfg
		applyFlags(commonFlags{}, cfg)
		if cfg.Engine != want.Engine || cfg.Paths != want.Paths {
			t.Errorf("config changed: %+v", cfg)
		}
	})

	t.Run("set flags override", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		applyFlags(commonFlags{
			engine:     config.EngineBuiltin,
			pandocPath: "/opt/pandoc",
			timeout:    time.Minute,
			outputDir:  "dist",
		}, cfg)

		if cfg.Engine.Name != config.EngineBuiltin {
			t.Errorf("engine = %q", cfg.Engine.Name)
		}
		if cfg.Engine.PandocPath != "/opt/pandoc" {
			t.Errorf("pandoc path = %q", cfg.Engine.PandocPath)
		}
		if cfg.Engine.Timeout != time.Minute {
			t.Errorf("timeout = %v", cfg.Engine.Timeout)
		}
		if cfg.Paths.OutputDir != "dist" {
			t.Errorf("output dir = %q", cfg.Paths.OutputDir)
		}
	})
}

// ---------------------------------------------------------------------------
// TestLoadConfig - Precedence
// ---------------------------------------------------------------------------

func TestLoadConfig(t *testing.T) {
	writeConfig := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "docconv.yaml")
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("file then env then flags", func(t *testing.T) {
		h := newHarness(t, "")
		path := writeConfig(t, "paths:\n  outputDir: from-file\nengine:\n  pandocPath: file-pandoc\n")
		t.Setenv("DOCCONV_OUTPUT_DIR", "")
		t.Setenv("DOCCONV_PANDOC_PATH", "env-pandoc")

		cfg, err := loadConfig(commonFlags{config: path, outputDir: "from-flag"}, h.env, slog.New(slog.DiscardHandler))
		if err != nil {
			t.Fatalf("loadConfig() error: %v", err)
		}
		if cfg.Paths.OutputDir != "from-flag" {
			t.Errorf("output dir = %q, want from-flag", cfg.Paths.OutputDir)
		}
		if cfg.Engine.PandocPath != "env-pandoc" {
			t.Errorf("pandoc path = %q, want env-pandoc", cfg.Engine.PandocPath)
		}
	})

	t.Run("config from environment", func(t *testing.T) {
		h := newHarness(t, "")
		path := writeConfig(t, "batch:\n  workers: 3\n")
		t.Setenv(configEnvVar, path)

		cfg, err := loadConfig(commonFlags{}, h.env, slog.New(slog.DiscardHandler))
		if err != nil {
			t.Fatalf("loadConfig() error: %v", err)
		}
		if cfg.Batch.Workers != 3 {
			t.Errorf("workers = %d, want 3", cfg.Batch.Workers)
		}
	})

	t.Run("env warnings are logged", func(t *testing.T) {
		h := newHarness(t, "")
		t.Setenv("DOCCONV_TIMEOUT", "soon")
		var logs bytes.Buffer

		if _, err := loadConfig(commonFlags{}, h.env, newLogger(&logs, commonFlags{})); err != nil {
			t.Fatalf("loadConfig() error: %v", err)
		}
		if !strings.Contains(logs.String(), "DOCCONV_TIMEOUT") {
			t.Errorf("logs = %q, want a warning about DOCCONV_TIMEOUT", logs.String())
		}
	})

	t.Run("invalid flag value", func(t *testing.T) {
		h := newHarness(t, "")

		_, err := loadConfig(commonFlags{engine: "typewriter"}, h.env, slog.New(slog.DiscardHandler))
		if !errors.Is(err, config.ErrInvalidConfig) {
			t.Errorf("error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		h := newHarness(t, "")

		_, err := loadConfig(commonFlags{config: filepath.Join(t.TempDir(), "none.yaml")}, h.env, slog.New(slog.DiscardHandler))
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("dotenv", func(t *testing.T) {
		h := newHarness(t, "")
		dotenv := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(dotenv, []byte("DOCCONV_WORKERS=5\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		h.env.DotEnv = []string{dotenv}
		// .env never overrides a variable that is already set.
		if err := os.Unsetenv("DOCCONV_WORKERS"); err != nil {
			t.Fatal(err)
		}

		cfg, err := loadConfig(commonFlags{}, h.env, slog.New(slog.DiscardHandler))
		if err != nil {
			t.Fatalf("loadConfig() error: %v", err)
		}
		if cfg.Batch.Workers != 5 {
			t.Errorf("workers = %d, want 5", cfg.Batch.Workers)
		}
	})
}
