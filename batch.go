package docconv

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/alnah/go-docconv/internal/fileutil"
	"github.com/alnah/go-docconv/internal/formats"
	"github.com/alnah/go-docconv/internal/source"
)

// ConvertBatch converts every source independently through a bounded
// worker pool. One item's failure never affects another; the result holds
// one item per source in input order. Cancelling ctx fails the items not
// yet started.
func (c *Converter) ConvertBatch(ctx context.Context, req BatchRequest) *BatchResult {
	start := c.now()

	outDir := req.OutputDir
	if outDir == "" {
		outDir = c.outputDir
	}
	if abs, err := filepath.Abs(outDir); err == nil {
		outDir = abs
	}

	n := len(req.Sources)
	result := &BatchResult{
		Items:             make([]BatchItem, n),
		Total:             n,
		PreserveStructure: req.PreserveStructure,
		OutputDir:         outDir,
	}
	if n == 0 {
		return result
	}

	var ext string
	if f, ok := formats.Lookup(req.OutputFormat); ok {
		ext = formats.Extension(f)
	}
	plan := PlanOutputs(req.Sources, outDir, ext, req.PreserveStructure)

	workers := req.Workers
	if workers <= 0 {
		workers = c.workers
	}
	workers = min(ResolvePoolSize(workers), n)
	c.logger.DebugContext(ctx, "batch started", "items", n, "workers", workers, "outputDir", outDir)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				result.Items[i] = BatchItem{Source: req.Sources[i], Result: c.batchItem(ctx, req, req.Sources[i], plan[i])}
			}
		}()
	}

feed:
	for i := range req.Sources {
		select {
		case jobs <- i:
		case <-ctx.Done():
			for j := i; j < n; j++ {
				result.Items[j] = BatchItem{Source: req.Sources[j], Result: cancelled(req.Sources[j])}
			}
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	for _, item := range result.Items {
		if item.Result.OK() {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	result.Duration = c.now().Sub(start)
	c.logger.InfoContext(ctx, "batch finished",
		"total", result.Total, "succeeded", result.Succeeded, "failed", result.Failed, "duration", result.Duration)
	return result
}

func (c *Converter) batchItem(ctx context.Context, req BatchRequest, src, output string) *Result {
	if ctx.Err() != nil {
		return cancelled(src)
	}
	return c.Convert(ctx, Request{
		Source:       src,
		InputFormat:  req.InputFormat,
		OutputFormat: req.OutputFormat,
		Options:      req.Options,
		OutputPath:   output,
		planned:      true,
	})
}

func cancelled(src string) *Result {
	t := &task{req: Request{ID: uuid.NewString(), Source: src}}
	return t.failure(&Error{Kind: KindInternal, Message: "cancelled"})
}

// PlanOutputs assigns an output path to every source before any
// conversion starts. Flat plans put <stem><ext> directly in dir; preserving
// plans mirror each local source's directory relative to the deepest
// directory shared by all local sources, and put URL sources at the root.
// Names that clash within the batch get _1, _2... suffixes, in input order.
// Clashes with files already on disk are resolved when each item runs.
func PlanOutputs(sources []string, dir, ext string, preserve bool) []string {
	locals := make([]string, len(sources))
	var localDirs []string
	for i, s := range sources {
		if p, ok := localPath(s); ok {
			locals[i] = p
			localDirs = append(localDirs, filepath.Dir(p))
		}
	}

	var root string
	if preserve {
		root = commonDir(localDirs)
	}

	taken := make(map[string]bool, len(sources))
	paths := make([]string, len(sources))
	for i, s := range sources {
		name := stem(displayName(s)) + ext
		if root != "" && locals[i] != "" {
			if rel, err := filepath.Rel(root, filepath.Dir(locals[i])); err == nil && !escapes(rel) {
				name = filepath.Join(rel, name)
			}
		}
		paths[i] = unique(filepath.Join(dir, name), ext, taken)
	}
	return paths
}

// unique returns p, or p with a numeric suffix before ext, that is not yet
// in taken, and records it.
func unique(p, ext string, taken map[string]bool) string {
	candidate := p
	base := strings.TrimSuffix(p, ext)
	for i := 1; taken[candidate]; i++ {
		candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
	taken[candidate] = true
	return candidate
}

// localPath returns the absolute path of a local or file:// source.
func localPath(s string) (string, bool) {
	switch {
	case s == "" || fileutil.IsURL(s):
		return "", false
	case fileutil.IsFileURI(s):
		p, err := source.ParseFileURI(s)
		if err != nil {
			return "", false
		}
		s = p
	}
	abs, err := filepath.Abs(s)
	if err != nil {
		return "", false
	}
	return abs, true
}

// displayName is the file name a source's output is named after.
func displayName(s string) string {
	if fileutil.IsURL(s) {
		if u, err := url.Parse(s); err == nil {
			if base := path.Base(u.Path); base != "/" && base != "." {
				return base
			}
		}
		return "download"
	}
	if p, ok := localPath(s); ok {
		return filepath.Base(p)
	}
	return filepath.Base(s)
}

// commonDir is the deepest directory containing every entry of dirs, or ""
// when there is none (different volumes).
func commonDir(dirs []string) string {
	if len(dirs) == 0 {
		return ""
	}
	common := dirs[0]
	for _, d := range dirs[1:] {
		for {
			rel, err := filepath.Rel(common, d)
			if err == nil && !escapes(rel) {
				break
			}
			parent := filepath.Dir(common)
			if parent == common {
				return ""
			}
			common = parent
		}
	}
	return common
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
