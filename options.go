package docconv

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alnah/go-docconv/internal/config"
	"github.com/alnah/go-docconv/internal/engine"
)

// Option configures a Converter.
type Option func(*Converter)

// WithConfig sets the base configuration. Other options override it.
func WithConfig(cfg *config.Config) Option {
	return func(c *Converter) {
		c.cfg = cfg
	}
}

// WithLogger sets the structured logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		c.logger = logger
	}
}

// WithTimeout sets the per-conversion engine time limit.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("docconv: WithTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.timeout = d
	}
}

// WithOutputDir sets where generated output names are placed.
func WithOutputDir(dir string) Option {
	return func(c *Converter) {
		c.outputDir = dir
	}
}

// WithTempDir sets where inputs are materialized and workspaces created.
func WithTempDir(dir string) Option {
	return func(c *Converter) {
		c.tempDir = dir
	}
}

// WithWorkers sets the batch pool size. Zero sizes it from GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *Converter) {
		c.workers = n
	}
}

// WithEngine replaces the engine selected by configuration.
func WithEngine(e engine.Engine) Option {
	return func(c *Converter) {
		c.engine = e
	}
}

// WithHTTPClient sets the client used to fetch URL sources. The default
// refuses private and loopback addresses unless the configuration allows
// them.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Converter) {
		c.client = client
	}
}
