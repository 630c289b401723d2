package main

import (
	"errors"
	"os"

	docconv "github.com/alnah/go-docconv"
	"github.com/alnah/go-docconv/internal/config"
)

// Exit codes for the docconv CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Command succeeded
	ExitGeneral = 1 // General/unexpected error, failed batch items, plugin error envelope
	ExitUsage   = 2 // Invalid flags, config, formats or options
	ExitIO      = 3 // Source not found, unreadable, too large or not fetchable
	ExitEngine  = 4 // Engine missing, timed out or failed
)

// exitCodeFor returns the exit code for err. Wrapped errors are matched with
// errors.Is, so callers must wrap with %w.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, docconv.ErrEngineNotFound) ||
		errors.Is(err, docconv.ErrConversionTimeout) ||
		errors.Is(err, docconv.ErrEngineError) {
		return ExitEngine
	}

	if errors.Is(err, docconv.ErrSourceNotFound) ||
		errors.Is(err, docconv.ErrSourceUnreadable) ||
		errors.Is(err, docconv.ErrSourceTooLarge) ||
		errors.Is(err, docconv.ErrSourceFetchFailed) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadInput) {
		return ExitIO
	}

	if errors.Is(err, ErrUsage) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrInvalidConfig) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, docconv.ErrFormatUnrecognized) ||
		errors.Is(err, docconv.ErrUnsupportedConversion) ||
		errors.Is(err, docconv.ErrInvalidOptionValue) {
		return ExitUsage
	}

	return ExitGeneral
}
