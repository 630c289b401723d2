package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alnah/go-docconv/internal/config"
	"github.com/alnah/go-docconv/internal/engine"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - stub engine and CLI harness
// ---------------------------------------------------------------------------

// stubEngine copies its input to the output, prefixed with the target
// format, so conversions succeed without pandoc.
type stubEngine struct {
	locateErr  error
	convertErr error

	mu   sync.Mutex
	jobs []engine.Job
}

func (s *stubEngine) Name() string { return "stub" }

func (s *stubEngine) Locate(context.Context) (engine.Info, error) {
	return engine.Info{Name: "stub", Path: "/usr/local/bin/stub", Version: "9.9"}, s.locateErr
}

func (s *stubEngine) Convert(_ context.Context, _ string, job engine.Job, out string) ([]string, error) {
	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()

	if s.convertErr != nil {
		return nil, s.convertErr
	}
	data, err := os.ReadFile(job.Input)
	if err != nil {
		return nil, err
	}
	return nil, os.WriteFile(out, append([]byte(string(job.To)+":"), data...), 0o600)
}

func (s *stubEngine) Formats(context.Context) ([]string, []string, error) {
	return []string{"html", "markdown"}, []string{"docx", "html", "markdown"}, nil
}

func (s *stubEngine) jobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// cliHarness runs docconv commands against a stub engine with all
// directories under a test temp dir.
type cliHarness struct {
	env    *Environment
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	eng    *stubEngine
	root   string
	outDir string
}

// newHarness isolates the configuration from the process environment.
// It uses t.Setenv, so callers cannot run in parallel.
func newHarness(t *testing.T, stdin string) *cliHarness {
	t.Helper()

	root := t.TempDir()
	h := &cliHarness{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		eng:    &stubEngine{},
		root:   root,
		outDir: filepath.Join(root, "out"),
	}
	for _, name := range config.KnownEnvVars() {
		t.Setenv(name, "")
	}
	t.Setenv("DOCCONV_OUTPUT_DIR", h.outDir)
	t.Setenv("DOCCONV_TEMP_DIR", filepath.Join(root, "tmp"))

	h.env = &Environment{
		Stdin:  strings.NewReader(stdin),
		Stdout: h.stdout,
		Stderr: h.stderr,
		Engine: h.eng,
	}
	return h
}

func (h *cliHarness) run(args ...string) int {
	return runMain(context.Background(), append([]string{"docconv"}, args...), h.env)
}

// writeFile creates a file under the harness root and returns its path.
func (h *cliHarness) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// outputs lists the files written to the output directory.
func (h *cliHarness) outputs(t *testing.T) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(h.outDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	return files
}
