package source

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// ParseFileURI converts a file:// URI into a local path, percent-decoding it.
// On Windows "file:///C:/dir/a.md" yields "C:\dir\a.md".
func ParseFileURI(raw string) (string, error) {
	return parseFileURI(raw, runtime.GOOS)
}

func parseFileURI(raw, goos string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "file" {
		return "", fmt.Errorf("%w: malformed file URI %q", ErrUnreadable, raw)
	}

	path := u.Path
	if goos == "windows" && isDriveLetter(u.Host) {
		// file://C:/dir/a.md
		path = "/" + u.Host + path
	} else if u.Host != "" && u.Host != "localhost" {
		if goos != "windows" {
			return "", fmt.Errorf("%w: file URI %q names remote host %q", ErrUnreadable, raw, u.Host)
		}
		// UNC share: file://server/share/a.md
		path = "//" + u.Host + path
	}
	if path == "" {
		path = u.Opaque
	}
	if path == "" {
		return "", fmt.Errorf("%w: file URI %q has no path", ErrUnreadable, raw)
	}

	if goos == "windows" {
		if len(path) >= 3 && path[0] == '/' && path[2] == ':' {
			path = path[1:]
		}
		return strings.ReplaceAll(path, "/", `\`), nil
	}
	return path, nil
}

// FileURL renders an absolute path as a file:// URL.
func FileURL(abs string) string {
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

func isDriveLetter(s string) bool {
	return len(s) == 2 && s[1] == ':' &&
		(('a' <= s[0] && s[0] <= 'z') || ('A' <= s[0] && s[0] <= 'Z'))
}
