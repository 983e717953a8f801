package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	apierrors "github.com/alexjbarnes/media-sync/internal/errors"
	"github.com/google/uuid"
)

// StagedItem is a local item copied to a private staging file, ready to
// be transferred. The staging copy isolates the transfer from concurrent
// edits to the original.
type StagedItem struct {
	// Path is the absolute path of the staging file.
	Path string
	// FileName is the name the server should store the item under.
	FileName string
	// ContentType is the MIME type sent with the file part.
	ContentType string
	// SourceIdentifier is the library identifier the staging copy was
	// made from, kept for log and error context.
	SourceIdentifier string
	Meta             uploadMetadata
}

// uploadAPI is the slice of the API client the uploader needs.
type uploadAPI interface {
	Upload(ctx context.Context, token string, staged *StagedItem) (string, error)
}

// Uploader stages library items into temp files and transfers them.
type Uploader struct {
	library   *Library
	api       uploadAPI
	extractor Extractor
	logger    *slog.Logger

	// stagingDir overrides os.TempDir in tests.
	stagingDir string
}

// NewUploader creates an uploader reading from library and transferring
// via api. extractor may be nil when geolocation is not wanted.
func NewUploader(library *Library, api uploadAPI, extractor Extractor, logger *slog.Logger) *Uploader {
	return &Uploader{
		library:   library,
		api:       api,
		extractor: extractor,
		logger:    logger,
	}
}

// UploadItem stages one item and transfers it, returning the remote id
// assigned by the server. The staging file is removed on every path,
// success or failure. An item that vanished from the library between
// enumeration and staging returns ErrItemVanished.
func (u *Uploader) UploadItem(ctx context.Context, token string, item LocalItem, hash string) (string, error) {
	staged, err := u.stage(item, hash)
	if err != nil {
		return "", err
	}

	defer func() {
		if err := os.Remove(staged.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			u.logger.Warn("removing staging file",
				slog.String("path", staged.Path),
				slog.String("error", err.Error()),
			)
		}
	}()

	remoteID, err := u.api.Upload(ctx, token, staged)
	if err != nil {
		return "", err
	}

	return remoteID, nil
}

// stage copies the item into a uniquely named temp file and assembles the
// upload metadata.
func (u *Uploader) stage(item LocalItem, hash string) (*StagedItem, error) {
	src, err := u.library.Open(item.Identifier)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("staging %s: %w", item.Identifier, apierrors.ErrItemVanished)
		}

		return nil, fmt.Errorf("staging %s: %w", item.Identifier, err)
	}
	defer src.Close()

	ext := extensionFor(item)
	dir := u.stagingDir

	if dir == "" {
		dir = os.TempDir()
	}

	stagePath := filepath.Join(dir, "media-sync-"+uuid.NewString()+ext)

	dst, err := os.OpenFile(stagePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating staging file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(stagePath)

		return nil, fmt.Errorf("staging %s: %w", item.Identifier, err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(stagePath)

		return nil, fmt.Errorf("closing staging file: %w", err)
	}

	meta := uploadMetadata{
		Type:         item.Kind.String(),
		DateTaken:    item.CapturedAt,
		DateModified: item.ModifiedAt,
		DateAdded:    time.Now().UnixMilli(),
		Hash:         hash,
	}

	if meta.DateTaken == 0 {
		meta.DateTaken = item.ModifiedAt
	}

	if u.extractor != nil {
		if loc, ok := u.extractor.Extract(item.Identifier); ok {
			meta.Latitude = &loc.Latitude
			meta.Longitude = &loc.Longitude
			meta.Altitude = loc.Altitude
			meta.GPSTimestamp = loc.Timestamp
		}
	}

	contentType := item.MimeType
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &StagedItem{
		Path:             stagePath,
		FileName:         filepath.Base(item.Identifier),
		ContentType:      contentType,
		SourceIdentifier: item.Identifier,
		Meta:             meta,
	}, nil
}

// extensionFor picks the staging file extension: the item's own
// extension when present, otherwise a default derived from its kind.
func extensionFor(item LocalItem) string {
	if ext := filepath.Ext(item.Identifier); ext != "" {
		return ext
	}

	return item.Kind.defaultExtension()
}
