package pipeline

// Notes:
// - Rendering through Chrome is not exercised here; these tests cover the
//   page geometry handed to the browser

import (
	"errors"
	"math"
	"testing"
)

func TestPrintOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		setup      PageSetup
		wantWidth  float64
		wantHeight float64
		wantMargin float64
		wantErr    bool
	}{
		{name: "defaults to letter", setup: PageSetup{}, wantWidth: 8.5, wantHeight: 11, wantMargin: 0.5},
		{name: "a4", setup: PageSetup{PaperSize: "A4"}, wantWidth: 8.27, wantHeight: 11.69, wantMargin: 0.5},
		{name: "landscape swaps", setup: PageSetup{PaperSize: "a4", Landscape: true}, wantWidth: 11.69, wantHeight: 8.27, wantMargin: 0.5},
		{name: "margin in cm", setup: PageSetup{Margin: "2.54cm"}, wantWidth: 8.5, wantHeight: 11, wantMargin: 1},
		{name: "unknown paper", setup: PageSetup{PaperSize: "tabloid"}, wantErr: true},
		{name: "relative margin", setup: PageSetup{Margin: "2em"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := PrintOptions(tt.setup)
			if tt.wantErr {
				if !errors.Is(err, ErrPDFGeneration) {
					t.Fatalf("PrintOptions() error = %v, want ErrPDFGeneration", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("PrintOptions() unexpected error: %v", err)
			}
			if *got.PaperWidth != tt.wantWidth || *got.PaperHeight != tt.wantHeight {
				t.Errorf("size = %vx%v, want %vx%v", *got.PaperWidth, *got.PaperHeight, tt.wantWidth, tt.wantHeight)
			}
			if math.Abs(*got.MarginTop-tt.wantMargin) > 1e-9 || *got.MarginLeft != *got.MarginTop {
				t.Errorf("margin = %v, want %v", *got.MarginTop, tt.wantMargin)
			}
			if !got.PrintBackground {
				t.Error("PrintBackground should be set")
			}
		})
	}
}

func TestLengthInches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want float64
	}{
		{"1in", 1},
		{"25.4mm", 1},
		{"72pt", 1},
		{"96px", 1},
		{"36", 0.5},
	}
	for _, tt := range tests {
		got, err := lengthInches(tt.in)
		if err != nil {
			t.Errorf("lengthInches(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("lengthInches(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRodRenderer_CloseWithoutBrowser(t *testing.T) {
	t.Parallel()

	if err := NewRodRenderer(0).Close(); err != nil {
		t.Errorf("Close() unexpected error: %v", err)
	}
}
