package main

import (
	"errors"
	"fmt"
	"os"
	"testing"

	docconv "github.com/alnah/go-docconv"
	"github.com/alnah/go-docconv/internal/config"
)

// ---------------------------------------------------------------------------
// TestExitCodeFor - Error to exit code mapping
// ---------------------------------------------------------------------------

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", ErrUsage, ExitUsage},
		{"wrapped usage", fmt.Errorf("%w: bad flag", ErrUsage), ExitUsage},
		{"config not found", config.ErrConfigNotFound, ExitUsage},
		{"config invalid", fmt.Errorf("%w: engine", config.ErrInvalidConfig), ExitUsage},
		{"format unrecognized", docconv.ErrFormatUnrecognized, ExitUsage},
		{"unsupported", docconv.ErrUnsupportedConversion, ExitUsage},
		{"invalid option", &docconv.Error{Kind: docconv.KindInvalidOptionValue}, ExitUsage},
		{"source not found", &docconv.Error{Kind: docconv.KindSourceNotFound}, ExitIO},
		{"too large", docconv.ErrSourceTooLarge, ExitIO},
		{"fetch failed", docconv.ErrSourceFetchFailed, ExitIO},
		{"os not exist", fmt.Errorf("open: %w", os.ErrNotExist), ExitIO},
		{"read input", ErrReadInput, ExitIO},
		{"engine not found", &docconv.Error{Kind: docconv.KindEngineNotFound}, ExitEngine},
		{"timeout", docconv.ErrConversionTimeout, ExitEngine},
		{"engine error", docconv.ErrEngineError, ExitEngine},
		{"batch failed", ErrBatchFailed, ExitGeneral},
		{"internal", &docconv.Error{Kind: docconv.KindInternal}, ExitGeneral},
		{"unknown", errors.New("boom"), ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
