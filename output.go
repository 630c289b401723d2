package docconv

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-docconv/internal/fileutil"
)

// timestampLayout stamps generated output names.
const timestampLayout = "20060102_150405"

// maxNameAttempts bounds the search for a free output name.
const maxNameAttempts = 1000

// OutputName returns the generated name for a converted file:
// <stem>_converted_<YYYYmmdd_HHMMSS><ext>.
func OutputName(stem, ext string, at time.Time) string {
	return fmt.Sprintf("%s_converted_%s%s", stem, at.Format(timestampLayout), ext)
}

// reserveOutput claims a generated name in dir by creating an empty file,
// so concurrent conversions started in the same second get distinct names.
// release removes the placeholder when the conversion fails.
func reserveOutput(dir, stem, ext string, at time.Time) (path string, release func(), err error) {
	return claim(dir, strings.TrimSuffix(OutputName(stem, ext, at), ext), ext)
}

// reservePath claims p, or p with a _1, _2... suffix when p already exists.
// Planned batch outputs go through here so that neither an existing file
// nor the batch's own input is replaced.
func reservePath(p string) (path string, release func(), err error) {
	dir, name := filepath.Split(p)
	ext := filepath.Ext(name)
	return claim(filepath.Clean(dir), strings.TrimSuffix(name, ext), ext)
}

// claim creates the first free name among base+ext, base_1+ext... in dir
// with O_EXCL.
func claim(dir, base, ext string) (path string, release func(), err error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", nil, fmt.Errorf("creating output directory: %w", err)
	}

	for i := 0; i < maxNameAttempts; i++ {
		name := base + ext
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		path = filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640) // #nosec G304 -- generated name
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("creating output file: %w", err)
		}
		_ = f.Close()
		return path, func() { _ = os.Remove(path) }, nil
	}
	return "", nil, fmt.Errorf("no free output name for %s in %s", base+ext, dir)
}

// stem is a file name without its directory and last extension.
func stem(name string) string {
	base := filepath.Base(name)
	s := strings.TrimSuffix(base, filepath.Ext(base))
	if s == "" || s == "." || s == string(filepath.Separator) {
		return "document"
	}
	return s
}

// sweepTemp removes temporary entries in dir last modified before cutoff.
// Only names carrying the converter's prefix are touched.
func sweepTemp(dir string, cutoff time.Time) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("sweeping temp directory: %w", err)
	}

	var errs []error
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), fileutil.TempPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
