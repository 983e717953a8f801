package media

import (
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// imageExtensions and videoExtensions classify files into sync candidates
// by extension. Extensions are lower-case without the leading dot.
var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true,
	"heic": true, "heif": true, "bmp": true, "tiff": true, "tif": true,
	"dng": true, "raw": true, "cr2": true, "nef": true, "arw": true,
}

var videoExtensions = map[string]bool{
	"mp4": true, "mov": true, "m4v": true, "mkv": true, "webm": true,
	"avi": true, "3gp": true, "mts": true, "wmv": true,
}

// Enumerator walks the library directory and produces the candidate
// LocalItem list for a sync run.
type Enumerator struct {
	library *Library
	rules   *Rules
	logger  *slog.Logger
}

// NewEnumerator creates an enumerator over the given library. rules may
// be nil to allow everything recognized.
func NewEnumerator(library *Library, rules *Rules, logger *slog.Logger) *Enumerator {
	if rules == nil {
		rules = &Rules{}
	}

	return &Enumerator{
		library: library,
		rules:   rules,
		logger:  logger,
	}
}

// Enumerate walks the library and returns every item that classifies as
// an image or video and passes the rules, sorted by identifier for a
// stable candidate order. Hidden files and directories, symlinks, and
// unreadable entries are skipped.
func (e *Enumerator) Enumerate() ([]LocalItem, error) {
	dir := e.library.Dir()

	var items []LocalItem

	err := filepath.WalkDir(dir, func(absPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(dir, absPath)
		if err != nil {
			return err
		}

		// Skip the root directory itself.
		if relPath == "." {
			return nil
		}

		base := filepath.Base(absPath)
		if strings.HasPrefix(base, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if d.IsDir() {
			return nil
		}

		// Skip symlinks to prevent following links to files outside the
		// library or to special files that could hang the hasher.
		if d.Type()&os.ModeSymlink != 0 {
			e.logger.Debug("skipping symlink", slog.String("path", relPath))
			return nil
		}

		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(base)), ".")

		var kind ItemKind

		switch {
		case imageExtensions[ext]:
			kind = KindImage
		case videoExtensions[ext]:
			kind = KindVideo
		default:
			return nil
		}

		info, err := d.Info()
		if err != nil {
			e.logger.Warn("stat failed during enumeration",
				slog.String("path", relPath),
				slog.String("error", err.Error()),
			)

			return nil
		}

		identifier := normalizePath(relPath)
		if !e.rules.Allow(identifier, info.Size()) {
			return nil
		}

		items = append(items, LocalItem{
			Identifier: identifier,
			Kind:       kind,
			MimeType:   mime.TypeByExtension("." + ext),
			Size:       info.Size(),
			ModifiedAt: info.ModTime().UnixMilli(),
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking library: %w", err)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Identifier < items[j].Identifier
	})

	return items, nil
}
