// Package fsmeta gathers per-file metadata forwarded with upload
// initialization requests: MIME type, modification time and extended
// attributes.
package fsmeta

import (
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/xattr"

	"github.com/blockgate/blockgate/internal/constants"
)

// FileInfo is the metadata bundle for one file.
type FileInfo struct {
	MimeType     string
	IsImage      bool
	ModifiedDate *int64  // unix seconds, nil if unavailable
	Xattrs       *string // comma-separated attribute names, nil if none
}

// Detect sniffs the MIME type of the file at path by content.
// Falls back to application/octet-stream on error, matching the
// first-or-octet-stream behavior uploads expect.
func Detect(path string) (mime string, isImage bool) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream", false
	}
	mime = mtype.String()
	// mimetype appends parameters like "; charset=utf-8" for text types.
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mime, strings.HasPrefix(mime, "image/")
}

// NeedsThumbnail reports whether a thumbnail should be requested for a
// file: images under the size limit only.
func NeedsThumbnail(isImage bool, size int64) bool {
	return isImage && size < constants.ThumbnailSizeLimit
}

// ModifiedUnix converts a file mod time to unix seconds, nil for zero or
// pre-epoch times.
func ModifiedUnix(mod time.Time) *int64 {
	if mod.IsZero() || mod.Unix() < 0 {
		return nil
	}
	secs := mod.Unix()
	return &secs
}

// ListXattrs returns the file's extended attribute names joined with ", ".
// Best-effort: returns nil on error or when no attributes exist.
func ListXattrs(path string) *string {
	attrs, err := xattr.List(path)
	if err != nil || len(attrs) == 0 {
		return nil
	}
	joined := strings.Join(attrs, ", ")
	return &joined
}

// Gather collects all metadata for one file.
func Gather(path string, mod time.Time) FileInfo {
	mime, isImage := Detect(path)
	return FileInfo{
		MimeType:     mime,
		IsImage:      isImage,
		ModifiedDate: ModifiedUnix(mod),
		Xattrs:       ListXattrs(path),
	}
}
