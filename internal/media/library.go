package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Library provides read access to the local media directory. Identifiers
// are library-relative paths; Library resolves them back to the
// filesystem with a traversal guard so a crafted identifier can never
// escape the library root.
type Library struct {
	dir string
}

// NewLibrary creates a Library rooted at the given directory. The
// directory must be an absolute path (resolved at config load time) and
// must already exist; the engine never creates or writes library content.
func NewLibrary(dir string) (*Library, error) {
	if dir == "" {
		return nil, fmt.Errorf("library directory must not be empty")
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("library directory %s: %w", dir, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("library path %s is not a directory", dir)
	}

	return &Library{dir: dir}, nil
}

// Dir returns the root directory of the library.
func (l *Library) Dir() string {
	return l.dir
}

// Open opens the item named by identifier for reading.
func (l *Library) Open(identifier string) (io.ReadCloser, error) {
	absPath, err := l.resolve(identifier)
	if err != nil {
		return nil, err
	}

	return os.Open(absPath) //nolint:gosec // G304: absPath validated by Library.resolve
}

// Stat returns file info for the item named by identifier.
func (l *Library) Stat(identifier string) (os.FileInfo, error) {
	absPath, err := l.resolve(identifier)
	if err != nil {
		return nil, err
	}

	return os.Stat(absPath)
}

// resolve maps an identifier to an absolute path, rejecting traversal.
func (l *Library) resolve(identifier string) (string, error) {
	if identifier == "" {
		return "", fmt.Errorf("empty identifier")
	}

	if strings.ContainsRune(identifier, 0) {
		return "", fmt.Errorf("identifier contains null byte: %q", identifier)
	}

	// Normalize backslashes so the ".." segment check below catches
	// Windows-style traversal.
	identifier = strings.ReplaceAll(identifier, "\\", "/")

	for _, seg := range strings.Split(identifier, "/") {
		if seg == ".." {
			return "", fmt.Errorf("identifier contains ..: %q", identifier)
		}
	}

	absPath := filepath.Join(l.dir, identifier)
	if !strings.HasPrefix(absPath, l.dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("traversal blocked: %q resolves outside library dir", identifier)
	}

	return absPath, nil
}

// normalizePath normalizes a library-relative path into a stable
// identifier. It converts OS-native separators to forward slashes,
// collapses repeated slashes, and applies NFC so the same file yields
// the same identifier across platforms with differing filename
// normalization (notably macOS NFD).
func normalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")

	var b strings.Builder

	prevSlash := false

	for _, r := range path {
		if r == '/' {
			if prevSlash {
				continue
			}

			prevSlash = true
		} else {
			prevSlash = false
		}

		b.WriteRune(r)
	}

	path = strings.Trim(b.String(), "/")

	return norm.NFC.String(path)
}
