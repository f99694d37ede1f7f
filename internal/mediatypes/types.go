package mediatypes

import (
	"fmt"
	"path/filepath"
	"strings"

	"asciier/internal/apperr"
)

// FileType represents the kind of media a conversion accepts.
type FileType string

const (
	// FileTypeImage represents an image upload.
	FileTypeImage FileType = "image"
	// FileTypeVideo represents a video upload.
	FileTypeVideo FileType = "video"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// ImageExtensions maps file extensions to whether they are accepted image inputs.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// VideoExtensions maps file extensions to whether they are accepted video inputs.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",

	// Videos
	".mp4":  "video/mp4",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",

	// Artifacts
	".txt": "text/plain; charset=utf-8",
}

// acceptedMimes lists the declared content types accepted per kind. Browsers
// disagree on some of these, so several aliases are allowed.
var acceptedMimes = map[FileType]map[string]bool{
	FileTypeImage: {
		"image/jpeg":     true,
		"image/jpg":      true,
		"image/png":      true,
		"image/gif":      true,
		"image/bmp":      true,
		"image/x-ms-bmp": true,
		"image/webp":     true,
	},
	FileTypeVideo: {
		"video/mp4":              true,
		"video/x-msvideo":        true,
		"video/avi":              true,
		"video/msvideo":          true,
		"video/quicktime":        true,
		"video/x-matroska":       true,
		"video/webm":             true,
		"application/x-matroska": true,
	},
}

// Ext returns the lowercase extension of a filename including the dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// GetFileType returns the FileType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
func GetFileType(ext string) FileType {
	if ImageExtensions[ext] {
		return FileTypeImage
	}
	if VideoExtensions[ext] {
		return FileTypeVideo
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// CheckUpload verifies that an upload's filename extension and declared MIME
// type both belong to the allow-list for want. An empty MIME type is checked
// by extension only.
func CheckUpload(want FileType, filename, mimeType string) error {
	ext := Ext(filename)
	if GetFileType(ext) != want {
		return fmt.Errorf("%w: %q is not an accepted %s file", apperr.ErrUnsupportedFormat, filepath.Base(filename), want)
	}

	if mimeType == "" {
		return nil
	}

	base := strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	if !acceptedMimes[want][base] {
		return fmt.Errorf("%w: content type %q is not an accepted %s type", apperr.ErrUnsupportedFormat, base, want)
	}
	return nil
}
