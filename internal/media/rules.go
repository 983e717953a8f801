package media

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// rulesFileName is the optional per-library rules file, read from the
// library root.
const rulesFileName = ".media-sync.yaml"

// Rules controls which library files become sync candidates. The zero
// value allows every recognized media extension at any size.
type Rules struct {
	// IncludeExtensions restricts candidates to these extensions
	// (without the leading dot, case-insensitive). Empty means every
	// recognized image/video extension.
	IncludeExtensions []string `yaml:"include_extensions"`

	// Exclude lists glob patterns matched against the library-relative
	// path. A pattern without a slash is also matched against the base
	// name, so "*.tmp" excludes temp files at any depth.
	Exclude []string `yaml:"exclude"`

	// MinSizeBytes drops files smaller than this. Thumbnails and
	// placeholder files are typically below a few KB.
	MinSizeBytes int64 `yaml:"min_size_bytes"`
}

// LoadRules reads the rules file from the library root. A missing file
// yields default rules; a malformed file is an error so a typo cannot
// silently disable an exclusion.
func LoadRules(libraryDir string) (*Rules, error) {
	data, err := os.ReadFile(filepath.Join(libraryDir, rulesFileName)) //nolint:gosec // G304: path rooted at the configured library dir
	if err != nil {
		if os.IsNotExist(err) {
			return &Rules{}, nil
		}

		return nil, fmt.Errorf("reading %s: %w", rulesFileName, err)
	}

	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rulesFileName, err)
	}

	return &r, nil
}

// Allow reports whether a candidate at the given library-relative path
// and size passes the rules. The extension check applies only when
// IncludeExtensions is set; kind recognition happens in the enumerator.
func (r *Rules) Allow(relPath string, size int64) bool {
	if r.MinSizeBytes > 0 && size < r.MinSizeBytes {
		return false
	}

	if len(r.IncludeExtensions) > 0 {
		ext := strings.TrimPrefix(strings.ToLower(path.Ext(relPath)), ".")

		found := false

		for _, inc := range r.IncludeExtensions {
			if strings.ToLower(strings.TrimPrefix(inc, ".")) == ext {
				found = true
				break
			}
		}

		if !found {
			return false
		}
	}

	base := path.Base(relPath)

	for _, pattern := range r.Exclude {
		if ok, _ := path.Match(pattern, relPath); ok {
			return false
		}

		if !strings.Contains(pattern, "/") {
			if ok, _ := path.Match(pattern, base); ok {
				return false
			}
		}
	}

	return true
}
