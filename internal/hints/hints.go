// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"fmt"
	"os"
	"strings"

	"github.com/alnah/go-docconv/internal/fileutil"
)

const prefix = "\n  hint: "

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForEngineNotFound returns hints for a missing conversion engine.
func ForEngineNotFound(binary string) string {
	if binary == "" {
		binary = "pandoc"
	}
	return formatHints([]string{
		"install " + binary + " (https://pandoc.org/installing.html)",
		"or set DOCCONV_PANDOC_PATH to its location",
	})
}

// ForBrowserConnect returns hints for browser connection errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserConnect() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	if (inCI || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about increasing the engine time limit.
func ForTimeout() string {
	return format("for large documents, raise --timeout or DOCCONV_TIMEOUT")
}

// ForSourceTooLarge returns a hint naming the size limit in force.
func ForSourceTooLarge(limitMB int) string {
	return format(fmt.Sprintf("limit is %d MB; raise --max-size or DOCCONV_MAX_FILE_SIZE_MB", limitMB))
}

// ForFileNotFoundLocally explains how to hand over a file that lives elsewhere.
func ForFileNotFoundLocally() string {
	return format("the file must exist on this machine; pass a reachable URL or send the content inline")
}

// ForUnsupportedConversion lists the writers available for an input format.
func ForUnsupportedConversion(writers []string) string {
	if len(writers) == 0 {
		return ""
	}
	return format("supported output formats: " + strings.Join(writers, ", "))
}

// ForInvalidOption lists the options that apply to the conversion.
func ForInvalidOption(legal []string) string {
	if len(legal) == 0 {
		return ""
	}
	return format("options for this conversion: " + strings.Join(legal, ", "))
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-docconv/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/go-docconv") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// Text returns the bare hint text, without the leading marker.
func Text(hint string) string {
	return strings.TrimPrefix(hint, prefix)
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return prefix + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
