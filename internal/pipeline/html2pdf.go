package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Sentinel errors for headless Chrome rendering.
var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")
)

// DefaultRenderTimeout bounds a render when the context has no deadline.
const DefaultRenderTimeout = 30 * time.Second

// Page dimensions in inches.
var paperSizes = map[string][2]float64{
	"a3":        {11.69, 16.54},
	"a4":        {8.27, 11.69},
	"a5":        {5.83, 8.27},
	"b5":        {6.93, 9.84},
	"executive": {7.25, 10.5},
	"legal":     {8.5, 14},
	"letter":    {8.5, 11},
}

const defaultMarginInches = 0.5

// PageSetup describes the printed page. Zero values mean US Letter,
// portrait, half-inch margins.
type PageSetup struct {
	PaperSize string // a4, letter, ...
	Landscape bool
	Margin    string // 1in, 2cm, 20mm, 72pt, 96px
}

// PDFRenderer renders a local HTML file to PDF bytes.
type PDFRenderer interface {
	RenderFile(ctx context.Context, path string, setup PageSetup) ([]byte, error)
	Close() error
}

var _ PDFRenderer = (*RodRenderer)(nil)

// RodRenderer implements PDFRenderer with headless Chrome via go-rod.
// The browser is started on first use and shared by later renders.
type RodRenderer struct {
	mu      sync.Mutex
	browser *rod.Browser
	timeout time.Duration
}

// NewRodRenderer creates a renderer. A zero timeout uses DefaultRenderTimeout.
func NewRodRenderer(timeout time.Duration) *RodRenderer {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	return &RodRenderer{timeout: timeout}
}

// ensureBrowser lazily launches and connects to the browser.
func (r *RodRenderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New()
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}
	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	r.browser = browser
	return browser, nil
}

// Close releases browser resources.
func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	return err
}

// RenderFile opens path in headless Chrome and prints it to PDF.
func (r *RodRenderer) RenderFile(ctx context.Context, path string, setup PageSetup) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pdfOpts, err := PrintOptions(setup)
	if err != nil {
		return nil, err
	}

	browser, err := r.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: pathToFileURL(path)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	page = page.Context(ctx).Timeout(timeout)

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	reader, err := page.PDF(pdfOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	pdf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return pdf, nil
}

// PrintOptions converts a PageSetup to Chrome print parameters.
func PrintOptions(setup PageSetup) (*proto.PagePrintToPDF, error) {
	size := strings.ToLower(setup.PaperSize)
	if size == "" {
		size = "letter"
	}
	dims, ok := paperSizes[size]
	if !ok {
		return nil, fmt.Errorf("%w: unknown paper size %q", ErrPDFGeneration, setup.PaperSize)
	}
	width, height := dims[0], dims[1]
	if setup.Landscape {
		width, height = height, width
	}

	margin := defaultMarginInches
	if setup.Margin != "" {
		m, err := lengthInches(setup.Margin)
		if err != nil {
			return nil, err
		}
		margin = m
	}

	return &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(width),
		PaperHeight:     floatPtr(height),
		MarginTop:       floatPtr(margin),
		MarginBottom:    floatPtr(margin),
		MarginLeft:      floatPtr(margin),
		MarginRight:     floatPtr(margin),
		PrintBackground: true,
	}, nil
}

// lengthInches parses a length in in, cm, mm, pt or px. A bare number is
// taken as points.
func lengthInches(s string) (float64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	units := []struct {
		suffix string
		perIn  float64
	}{{"in", 1}, {"cm", 2.54}, {"mm", 25.4}, {"pt", 72}, {"px", 96}, {"", 72}}
	for _, u := range units {
		if num, ok := strings.CutSuffix(s, u.suffix); ok {
			v, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
			if err != nil || v < 0 {
				break
			}
			return v / u.perIn, nil
		}
	}
	return 0, fmt.Errorf("%w: invalid margin %q", ErrPDFGeneration, s)
}

func floatPtr(v float64) *float64 {
	return &v
}
