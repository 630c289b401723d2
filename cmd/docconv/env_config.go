package main

import (
	"io"
	"log/slog"
	"os"

	docconv "github.com/alnah/go-docconv"
	"github.com/alnah/go-docconv/internal/config"
)

// configEnvVar names the config file when --config is not given.
const configEnvVar = config.EnvPrefix + "CONFIG"

// newLogger builds the stderr logger: warnings by default, debug with -v,
// errors only with -q.
func newLogger(w io.Writer, f commonFlags) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case f.quiet:
		level = slog.LevelError
	case f.verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig combines defaults, the config file, .env files, the
// environment and finally the command flags, in that order of precedence.
func loadConfig(f commonFlags, env *Environment, logger *slog.Logger) (*config.Config, error) {
	name := f.config
	if name == "" {
		name = os.Getenv(configEnvVar)
	}

	cfg, warnings, err := config.FromEnvironment(name, env.DotEnv...)
	for _, w := range warnings {
		logger.Warn(w)
	}
	if err != nil {
		return nil, err
	}

	applyFlags(f, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags overrides cfg with the flags that were set.
func applyFlags(f commonFlags, cfg *config.Config) {
	if f.engine != "" {
		cfg.Engine.Name = f.engine
	}
	if f.pandocPath != "" {
		cfg.Engine.PandocPath = f.pandocPath
	}
	if f.timeout > 0 {
		cfg.Engine.Timeout = f.timeout
	}
	if f.outputDir != "" {
		cfg.Paths.OutputDir = f.outputDir
	}
}

// newConverter loads the configuration and builds a Converter. The caller
// closes it.
func newConverter(f commonFlags, env *Environment, extra ...docconv.Option) (*docconv.Converter, *slog.Logger, error) {
	logger := newLogger(env.Stderr, f)
	cfg, err := loadConfig(f, env, logger)
	if err != nil {
		return nil, logger, err
	}

	opts := []docconv.Option{docconv.WithConfig(cfg), docconv.WithLogger(logger)}
	if env.Engine != nil {
		opts = append(opts, docconv.WithEngine(env.Engine))
	}
	opts = append(opts, extra...)

	conv, err := docconv.New(opts...)
	if err != nil {
		return nil, logger, err
	}
	logger.Debug("converter ready",
		"engine", conv.Engine().Name(),
		"output_dir", cfg.Paths.OutputDir,
		"timeout", cfg.Engine.Timeout)
	return conv, logger, nil
}
