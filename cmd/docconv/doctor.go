package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-docconv/internal/config"
	"github.com/alnah/go-docconv/internal/fileutil"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string      `json:"status"` // "ready", "warnings", "errors"
	Config   configInfo  `json:"config"`
	Engine   engineInfo  `json:"engine"`
	Browser  browserInfo `json:"browser"`
	Env      envInfo     `json:"environment"`
	System   systemInfo  `json:"system"`
	Warnings []string    `json:"warnings,omitempty"`
	Errors   []string    `json:"errors,omitempty"`
}

type configInfo struct {
	Loaded    bool   `json:"loaded"`
	Source    string `json:"source,omitempty"`
	Engine    string `json:"engine"`
	OutputDir string `json:"output_dir"`
	TempDir   string `json:"temp_dir"`
}

type engineInfo struct {
	Name    string `json:"name"`
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
}

// browserInfo holds Chrome/Chromium detection results. Only the builtin
// engine needs a browser, for PDF output.
type browserInfo struct {
	Checked bool   `json:"checked"`
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

type systemInfo struct {
	OutputWritable bool `json:"output_writable"`
	TempWritable   bool `json:"temp_writable"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) int {
	f, _, err := parseQueryFlags("doctor", printDoctorUsage, args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}

	result := runDoctor(ctx, f.common, env)

	if f.json {
		_ = writeJSON(env.Stdout, result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, f commonFlags, env *Environment) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  os.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: os.Getenv("ROD_BROWSER_BIN"),
		},
	}

	checkEnvironment(result)
	if cfg := checkConfig(ctx, f, env, result); cfg != nil {
		checkSystem(cfg, result)
		if cfg.Engine.Name == config.EngineBuiltin {
			checkBrowser(result)
		}
	}

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}
	return result
}

// checkConfig loads the configuration and locates the engine through a
// Converter, exactly as a conversion would.
func checkConfig(ctx context.Context, f commonFlags, env *Environment, result *doctorResult) *config.Config {
	f.quiet = true
	conv, _, err := newConverter(f, env)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Configuration: %v", err))
		return nil
	}
	defer conv.Close()

	cfg := conv.Config()
	result.Config = configInfo{
		Loaded:    true,
		Source:    configSource(f),
		Engine:    cfg.Engine.Name,
		OutputDir: cfg.Paths.OutputDir,
		TempDir:   cfg.Paths.TempDir,
	}

	result.Engine.Name = conv.Engine().Name()
	conv.RefreshEngine()
	info, err := conv.EngineInfo(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Engine %s: %v", result.Engine.Name, err))
		return cfg
	}
	result.Engine.Found = true
	result.Engine.Path = info.Path
	result.Engine.Version = info.Version
	return cfg
}

func configSource(f commonFlags) string {
	if f.config != "" {
		return f.config
	}
	if name := os.Getenv(configEnvVar); name != "" {
		return name
	}
	return "defaults"
}

// checkBrowser detects Chrome/Chromium for builtin PDF output.
func checkBrowser(result *doctorResult) {
	result.Browser.Checked = true
	chromePath := result.Env.BrowserBin

	if chromePath == "" {
		var found bool
		chromePath, found = launcher.LookPath()
		if !found {
			result.Warnings = append(result.Warnings,
				"Chrome/Chromium not found: builtin PDF output unavailable. Install Chrome or set ROD_BROWSER_BIN")
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Browser.Found = true
	result.Browser.Path = chromePath

	out, err := exec.Command(chromePath, "--version").Output() // #nosec G204 -- browser path from rod's launcher or the user's ROD_BROWSER_BIN
	if err == nil {
		result.Browser.Version = strings.TrimSpace(string(out))
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get Chrome version: %v", err))
	}

	result.Browser.Sandbox = result.Env.NoSandbox != "1"
	if (result.Env.Container || result.Env.CI) && result.Browser.Sandbox {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = isContainer()

	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if os.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}
}

// isContainer reports whether we run in a container, and which signal said so.
func isContainer() (bool, string) {
	if os.Getenv("DOCCONV_CONTAINER") == "1" {
		return true, "DOCCONV_CONTAINER=1"
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the output and temp directories accept files.
func checkSystem(cfg *config.Config, result *doctorResult) {
	if err := probeWritable(cfg.Paths.OutputDir); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Output directory not writable: %v", err))
	} else {
		result.System.OutputWritable = true
	}

	tmp := cfg.Paths.TempDir
	if tmp == "" {
		tmp = os.TempDir()
	}
	if err := probeWritable(tmp); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Temp directory not writable: %v", err))
	} else {
		result.System.TempWritable = true
	}
}

func probeWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, fileutil.TempPrefix+"doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(filepath.Clean(name))
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "docconv doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Configuration")
	if r.Config.Loaded {
		fmt.Fprintf(w, "  [OK] Source: %s\n", r.Config.Source)
		fmt.Fprintf(w, "  [OK] Output directory: %s\n", r.Config.OutputDir)
	} else {
		fmt.Fprintln(w, "  [ERROR] Not loaded")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Engine (%s)\n", orUnknown(r.Engine.Name))
	if r.Engine.Found {
		if r.Engine.Path != "" {
			fmt.Fprintf(w, "  [OK] Found at %s\n", r.Engine.Path)
		}
		if r.Engine.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Engine.Version)
		}
	} else {
		fmt.Fprintln(w, "  [ERROR] Not found")
	}
	fmt.Fprintln(w)

	if r.Browser.Checked {
		fmt.Fprintln(w, "Chrome/Chromium")
		if r.Browser.Found {
			fmt.Fprintf(w, "  [OK] Found at %s\n", r.Browser.Path)
			if r.Browser.Version != "" {
				fmt.Fprintf(w, "  [OK] Version: %s\n", r.Browser.Version)
			}
			if r.Browser.Sandbox {
				fmt.Fprintln(w, "  [OK] Sandbox: enabled")
			} else {
				fmt.Fprintln(w, "  [OK] Sandbox: disabled (ROD_NO_SANDBOX=1)")
			}
		} else {
			fmt.Fprintln(w, "  [WARN] Not found")
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	if r.Config.Loaded {
		fmt.Fprintln(w, "System")
		printCheck(w, "Output directory", r.System.OutputWritable)
		printCheck(w, "Temp directory", r.System.TempWritable)
		fmt.Fprintln(w)
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to convert")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}

func printCheck(w io.Writer, label string, ok bool) {
	if ok {
		fmt.Fprintf(w, "  [OK] %s: writable\n", label)
	} else {
		fmt.Fprintf(w, "  [ERROR] %s: not writable\n", label)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
