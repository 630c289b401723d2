package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix starts every variable this package reads.
const EnvPrefix = "DOCCONV_"

// envVar binds one variable (and its legacy bare name, if any) to a field.
type envVar struct {
	name   string
	legacy string
	apply  func(cfg *Config, value string) error
}

var envVars = []envVar{
	{"DOCCONV_CONFIG", "", nil},    // read by the CLI before loading
	{"DOCCONV_CONTAINER", "", nil}, // read by doctor
	{"DOCCONV_ENGINE", "", setString(func(c *Config) *string { return &c.Engine.Name })},
	{"DOCCONV_PANDOC_PATH", "PANDOC_PATH", setString(func(c *Config) *string { return &c.Engine.PandocPath })},
	{"DOCCONV_TIMEOUT", "", setDuration(func(c *Config) *time.Duration { return &c.Engine.Timeout })},
	{"DOCCONV_DEFAULT_PDF_ENGINE", "DEFAULT_PDF_ENGINE", setString(func(c *Config) *string { return &c.Engine.DefaultPDFEngine })},
	{"DOCCONV_OUTPUT_DIR", "OUTPUT_DIR", setString(func(c *Config) *string { return &c.Paths.OutputDir })},
	{"DOCCONV_TEMP_DIR", "TEMP_DIR", setString(func(c *Config) *string { return &c.Paths.TempDir })},
	{"DOCCONV_MAX_FILE_SIZE_MB", "MAX_FILE_SIZE_MB", setInt(func(c *Config) *int { return &c.Limits.MaxFileSizeMB })},
	{"DOCCONV_FETCH_TIMEOUT", "", setDuration(func(c *Config) *time.Duration { return &c.Limits.FetchTimeout })},
	{"DOCCONV_MAX_INLINE_BYTES", "", setInt(func(c *Config) *int { return &c.Limits.MaxInlineBytes })},
	{"DOCCONV_ENABLE_MATHJAX", "ENABLE_MATHJAX", setBool(func(c *Config) *bool { return &c.Features.MathJax })},
	{"DOCCONV_ENABLE_SYNTAX_HIGHLIGHTING", "ENABLE_SYNTAX_HIGHLIGHTING", setBool(func(c *Config) *bool { return &c.Features.SyntaxHighlighting })},
	{"DOCCONV_CLEANUP_TEMP_FILES", "CLEANUP_TEMP_FILES", setBool(func(c *Config) *bool { return &c.Features.CleanupTempFiles })},
	{"DOCCONV_ALLOW_PRIVATE_NETWORKS", "", setBool(func(c *Config) *bool { return &c.Features.AllowPrivateNetworks })},
	{"DOCCONV_WORKERS", "", setInt(func(c *Config) *int { return &c.Batch.Workers })},
	{"DOCCONV_ADDR", "", setString(func(c *Config) *string { return &c.Server.Addr })},
}

// KnownEnvVars lists every DOCCONV_* variable, sorted.
func KnownEnvVars() []string {
	names := make([]string, 0, len(envVars))
	for _, v := range envVars {
		names = append(names, v.name)
	}
	sort.Strings(names)
	return names
}

// ApplyEnv overrides cfg from the environment. lookup is os.LookupEnv in
// production. A DOCCONV_ variable wins over its legacy bare name. Values that
// do not parse are reported and leave the field unchanged.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) (warnings []string) {
	for _, v := range envVars {
		if v.apply == nil {
			continue
		}
		name := v.name
		value, ok := lookup(name)
		if !ok && v.legacy != "" {
			name = v.legacy
			value, ok = lookup(name)
		}
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		if err := v.apply(cfg, strings.TrimSpace(value)); err != nil {
			warnings = append(warnings, fmt.Sprintf("ignoring %s=%q: %v", name, value, err))
		}
	}
	return warnings
}

// UnknownEnvVars reports DOCCONV_* variables in environ that are not
// recognized, to catch typos like DOCCONV_TIMOUT.
func UnknownEnvVars(environ []string) []string {
	known := make(map[string]bool, len(envVars))
	for _, v := range envVars {
		known[v.name] = true
	}
	var unknown []string
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, EnvPrefix) && !known[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// FromEnvironment is DefaultConfig, an optional file, .env and the process
// environment combined. An empty nameOrPath skips the file.
func FromEnvironment(nameOrPath string, dotenv ...string) (*Config, []string, error) {
	if err := LoadDotEnv(dotenv...); err != nil {
		return nil, nil, err
	}

	cfg := DefaultConfig()
	if nameOrPath != "" {
		loaded, err := LoadConfig(nameOrPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}

	warnings := ApplyEnv(cfg, os.LookupEnv)
	for _, name := range UnknownEnvVars(os.Environ()) {
		warnings = append(warnings, fmt.Sprintf("unknown environment variable %s (typo?)", name))
	}
	if err := cfg.Validate(); err != nil {
		return nil, warnings, err
	}
	return cfg, warnings, nil
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func setInt(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("not an integer")
		}
		*field(c) = n
		return nil
	}
}

func setBool(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.ToLower(v))
		if err != nil {
			return fmt.Errorf("not a boolean")
		}
		*field(c) = b
		return nil
	}
}

// setDuration accepts Go durations ("90s", "5m") or bare seconds ("300").
func setDuration(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		if secs, err := strconv.Atoi(v); err == nil {
			*field(c) = time.Duration(secs) * time.Second
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("not a duration")
		}
		*field(c) = d
		return nil
	}
}
