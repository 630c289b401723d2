package main

// Notes:
// - GenerateCompletion: each shell script names every command and the flags
//   read from the command FlagSets, with format values for --to.
// - runCompletion: exit codes and usage.

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestGenerateCompletion - Script content per shell
// ---------------------------------------------------------------------------

func TestGenerateCompletion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		shell Shell
		want  []string
	}{
		{ShellBash, []string{"complete -F _docconv docconv", "--preserve-structure", "--workers", "compgen -d"}},
		{ShellZsh, []string{"#compdef docconv", "'--preserve-structure[", "_files -/", `_files -g "(*.yaml|*.yml)"`}},
		{ShellFish, []string{"complete -c docconv -f", "-l preserve-structure", "-s t -l to", "__fish_complete_directories"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.shell), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := GenerateCompletion(&buf, tt.shell); err != nil {
				t.Fatalf("GenerateCompletion(%q) error: %v", tt.shell, err)
			}
			out := buf.String()

			for _, c := range getCommands() {
				if !strings.Contains(out, c.Name) {
					t.Errorf("script missing command %q", c.Name)
				}
			}
			for _, w := range append(tt.want, "docx", "pandoc builtin") {
				if !strings.Contains(out, w) {
					t.Errorf("script missing %q", w)
				}
			}
		})
	}
}

func TestGenerateCompletion_UnsupportedShell(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := GenerateCompletion(&buf, Shell("tcsh"))
	if !errors.Is(err, ErrUnsupportedShell) {
		t.Errorf("error = %v, want ErrUnsupportedShell", err)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes for an unsupported shell", buf.Len())
	}
}

// ---------------------------------------------------------------------------
// TestGetCommands - Flags come from the FlagSets
// ---------------------------------------------------------------------------

func TestGetCommands(t *testing.T) {
	t.Parallel()

	find := func(cmd, long string) (flagDef, bool) {
		for _, c := range getCommands() {
			if c.Name != cmd {
				continue
			}
			for _, f := range c.Flags {
				if f.Long == long {
					return f, true
				}
			}
		}
		return flagDef{}, false
	}

	if f, ok := find("convert", "to"); !ok || f.Short != "t" || len(f.Values) == 0 {
		t.Errorf("convert --to = %+v, %v", f, ok)
	}
	if f, ok := find("convert", "opt"); !ok || !slices.Contains(f.Values, "toc=") {
		t.Errorf("convert --opt = %+v, want option keys", f)
	}
	if f, ok := find("batch", "output"); !ok || !f.IsDir {
		t.Errorf("batch --output = %+v, want a directory", f)
	}
	if f, ok := find("convert", "output"); !ok || f.IsDir {
		t.Errorf("convert --output = %+v, want a file", f)
	}
	if f, ok := find("convert", "json"); !ok || f.HasValue {
		t.Errorf("convert --json = %+v, want a boolean", f)
	}
	if _, ok := find("serve", "addr"); !ok {
		t.Error("serve should have --addr")
	}
	if _, ok := find("mcp", "addr"); ok {
		t.Error("mcp should not have --addr")
	}
}

// ---------------------------------------------------------------------------
// TestRunCompletion - Command entry point
// ---------------------------------------------------------------------------

func TestRunCompletion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{"usage", nil, ExitSuccess, "Usage: docconv completion", ""},
		{"bash", []string{"bash"}, ExitSuccess, "_docconv()", ""},
		{"unsupported", []string{"tcsh"}, ExitUsage, "", "unsupported shell"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer
			env := &Environment{Stdout: &stdout, Stderr: &stderr}
			if code := runCompletion(tt.args, env); code != tt.wantCode {
				t.Errorf("runCompletion() = %d, want %d", code, tt.wantCode)
			}
			if !strings.Contains(stdout.String(), tt.wantStdout) {
				t.Errorf("stdout = %q, want %q", stdout.String(), tt.wantStdout)
			}
			if !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Errorf("stderr = %q, want %q", stderr.String(), tt.wantStderr)
			}
		})
	}
}
