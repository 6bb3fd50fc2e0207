// internal/media/host.go
// Package media stores video files and thumbnails on a remote object host.
// Records keep the public URL; the asset key used for deletion is derived
// from that URL, so nothing else about the remote object is persisted.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Errors shared by every Host implementation.
var (
	ErrUnavailable     = errors.New("media host unavailable")    // Not configured or circuit open
	ErrUnsupportedType = errors.New("unsupported media type")    // Content sniffing rejected the file
	ErrMissingFile     = errors.New("local media file not found") // Nothing to upload
)

// Asset describes an object after a successful upload.
type Asset struct {
	URL         string  // Public URL stored on the record
	PublicID    string  // Key accepted by Delete; equals AssetKey(URL)
	Duration    float64 // Seconds, 0 for images or when probing failed
	ContentType string  // Sniffed MIME type
	Bytes       int64   // Object size
}

// Host is a remote media host.
// Upload never removes the local file; callers own their temp files.
// Delete reports found=false without error when the host has no such asset.
type Host interface {
	Upload(ctx context.Context, localPath string) (*Asset, error)
	Delete(ctx context.Context, publicID string) (found bool, err error)
}

// AssetKey derives the public id of an asset from its URL: the last path
// segment up to its first dot. It returns "" when the URL has no path.
func AssetKey(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}

// LocalFile is what content sniffing learned about a file on disk.
type LocalFile struct {
	Path        string
	ContentType string // Without parameters, e.g. "video/mp4"
	Extension   string // Including the dot, e.g. ".mp4"; may be empty
	Size        int64
}

// IsVideo reports whether the file sniffed as a video.
func (f *LocalFile) IsVideo() bool { return strings.HasPrefix(f.ContentType, "video/") }

// IsImage reports whether the file sniffed as an image.
func (f *LocalFile) IsImage() bool { return strings.HasPrefix(f.ContentType, "image/") }

// Inspect sniffs the content type of a local file from its leading bytes.
func Inspect(localPath string) (*LocalFile, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrMissingFile
		}
		return nil, fmt.Errorf("failed to stat %s: %w", localPath, err)
	}
	mt, err := mimetype.DetectFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to detect media type: %w", err)
	}
	ct := mt.String()
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return &LocalFile{Path: localPath, ContentType: ct, Extension: mt.Extension(), Size: info.Size()}, nil
}

// Allowed reports whether contentType matches one of the patterns.
// A pattern may end in "/*" to match a whole top-level type.
func Allowed(contentType string, patterns []string) bool {
	for _, p := range patterns {
		if p == contentType {
			return true
		}
		if prefix, ok := strings.CutSuffix(p, "/*"); ok && strings.HasPrefix(contentType, prefix+"/") {
			return true
		}
	}
	return false
}

// ProbeDuration reads the container duration with ffprobe.
func ProbeDuration(localPath string) (float64, error) {
	out, err := ffmpeg.Probe(localPath)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(out), &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if probe.Format.Duration == "" {
		return 0, nil
	}
	return strconv.ParseFloat(probe.Format.Duration, 64)
}

// describe inspects a file before upload and assigns it a fresh object key.
// A failed duration probe is logged and leaves Duration at zero.
func describe(localPath string) (*LocalFile, *Asset, string, error) {
	file, err := Inspect(localPath)
	if err != nil {
		return nil, nil, "", err
	}
	if !file.IsVideo() && !file.IsImage() {
		return nil, nil, "", fmt.Errorf("%w: %s", ErrUnsupportedType, file.ContentType)
	}

	asset := &Asset{
		PublicID:    strings.ToLower(ulid.Make().String()),
		ContentType: file.ContentType,
		Bytes:       file.Size,
	}
	if file.IsVideo() {
		if d, err := ProbeDuration(localPath); err != nil {
			slog.Warn("Failed to probe video duration", "path", localPath, "error", err)
		} else {
			asset.Duration = d
		}
	}
	return file, asset, asset.PublicID + file.Extension, nil
}

// joinURL appends an object key to a public base URL.
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

// Disabled is the Host used when no media backend is configured.
type Disabled struct{}

func (Disabled) Upload(ctx context.Context, localPath string) (*Asset, error) {
	return nil, ErrUnavailable
}

func (Disabled) Delete(ctx context.Context, publicID string) (bool, error) {
	return false, ErrUnavailable
}
