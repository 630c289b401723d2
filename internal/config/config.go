// Package config loads converter settings. Sources are applied lowest to
// highest: DefaultConfig, a YAML file, a .env file, the environment. CLI
// flags are merged last by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/alnah/go-docconv/internal/fileutil"
	"github.com/alnah/go-docconv/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidConfig   = errors.New("invalid config")
)

// Engine names accepted in engine.name.
const (
	EnginePandoc  = "pandoc"
	EngineBuiltin = "builtin"
)

// Defaults.
const (
	DefaultOutputDir      = "./outputs"
	DefaultTempDir        = "./temp"
	DefaultPDFEngine      = "xelatex"
	DefaultMaxFileSizeMB  = 50
	DefaultTimeout        = 300 * time.Second
	DefaultFetchTimeout   = 60 * time.Second
	DefaultMaxInlineBytes = 10 << 20
	DefaultServerAddr     = "127.0.0.1:8080"
)

// appDir names the per-user config directory.
const appDir = "go-docconv"

// Config holds all converter settings.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Paths    PathsConfig    `yaml:"paths"`
	Limits   LimitsConfig   `yaml:"limits"`
	Features FeaturesConfig `yaml:"features"`
	Batch    BatchConfig    `yaml:"batch"`
	Server   ServerConfig   `yaml:"server"`
}

// EngineConfig selects and tunes the conversion engine.
type EngineConfig struct {
	Name             string        `yaml:"name"`       // "pandoc" or "builtin"
	PandocPath       string        `yaml:"pandocPath"` // binary name or path
	Timeout          time.Duration `yaml:"timeout"`    // per conversion
	DefaultPDFEngine string        `yaml:"defaultPdfEngine"`
}

// PathsConfig defines where outputs and scratch files go.
type PathsConfig struct {
	OutputDir string `yaml:"outputDir"`
	TempDir   string `yaml:"tempDir"`
}

// LimitsConfig bounds sources.
type LimitsConfig struct {
	MaxFileSizeMB  int           `yaml:"maxFileSizeMB"`
	FetchTimeout   time.Duration `yaml:"fetchTimeout"`
	MaxInlineBytes int           `yaml:"maxInlineBytes"` // content returned inline by ConvertFromContent
}

// FeaturesConfig toggles default behaviors.
type FeaturesConfig struct {
	MathJax              bool `yaml:"mathJax"`
	SyntaxHighlighting   bool `yaml:"syntaxHighlighting"`
	CleanupTempFiles     bool `yaml:"cleanupTempFiles"`
	AllowPrivateNetworks bool `yaml:"allowPrivateNetworks"` // permit URL sources on private addresses
}

// BatchConfig sizes the batch worker pool.
type BatchConfig struct {
	Workers int `yaml:"workers"` // 0 = auto
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Name:             EnginePandoc,
			PandocPath:       "pandoc",
			Timeout:          DefaultTimeout,
			DefaultPDFEngine: DefaultPDFEngine,
		},
		Paths: PathsConfig{OutputDir: DefaultOutputDir, TempDir: DefaultTempDir},
		Limits: LimitsConfig{
			MaxFileSizeMB:  DefaultMaxFileSizeMB,
			FetchTimeout:   DefaultFetchTimeout,
			MaxInlineBytes: DefaultMaxInlineBytes,
		},
		Features: FeaturesConfig{MathJax: true, SyntaxHighlighting: true, CleanupTempFiles: true},
		Server:   ServerConfig{Addr: DefaultServerAddr},
	}
}

// MaxFileSize returns the source size limit in bytes.
func (c *Config) MaxFileSize() int64 {
	return int64(c.Limits.MaxFileSizeMB) << 20
}

// Validate checks settings that would make every conversion fail.
func (c *Config) Validate() error {
	switch c.Engine.Name {
	case EnginePandoc, EngineBuiltin:
	default:
		return fmt.Errorf("%w: engine.name: unknown engine %q (must be %s or %s)",
			ErrInvalidConfig, c.Engine.Name, EnginePandoc, EngineBuiltin)
	}
	if c.Engine.Name == EnginePandoc && strings.TrimSpace(c.Engine.PandocPath) == "" {
		return fmt.Errorf("%w: engine.pandocPath: required for the pandoc engine", ErrInvalidConfig)
	}
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("%w: engine.timeout: must be positive, got %s", ErrInvalidConfig, c.Engine.Timeout)
	}
	if c.Limits.MaxFileSizeMB <= 0 {
		return fmt.Errorf("%w: limits.maxFileSizeMB: must be positive, got %d", ErrInvalidConfig, c.Limits.MaxFileSizeMB)
	}
	if c.Limits.FetchTimeout <= 0 {
		return fmt.Errorf("%w: limits.fetchTimeout: must be positive, got %s", ErrInvalidConfig, c.Limits.FetchTimeout)
	}
	if c.Limits.MaxInlineBytes <= 0 {
		return fmt.Errorf("%w: limits.maxInlineBytes: must be positive, got %d", ErrInvalidConfig, c.Limits.MaxInlineBytes)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("%w: batch.workers: must not be negative, got %d", ErrInvalidConfig, c.Batch.Workers)
	}
	return nil
}

// LoadConfig reads a YAML file over DefaultConfig. nameOrPath is either a
// path (contains a separator) or a name searched as ./name.yaml|yml, then
// in the user config directory.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		if configPath, err = resolveConfigPath(nameOrPath); err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	if err := yamlutil.ReadFile(configPath, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SearchPaths lists where a named config is looked for.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	var paths []string
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(dir, appDir, name+ext))
		}
	}
	return paths
}

func resolveConfigPath(name string) (string, error) {
	paths := SearchPaths(name)
	for _, p := range paths {
		if fileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(paths, ", "))
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if !fileExists(p) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
