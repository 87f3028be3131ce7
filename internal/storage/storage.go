// Package storage is the object store recordings are uploaded to.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("object not found")
	ErrInvalidPath = errors.New("invalid object path")
)

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ObjectStore is the object store contract: upload by path, list by prefix,
// delete by path and signed URLs with an expiry
type ObjectStore interface {
	Upload(ctx context.Context, objectPath string, body io.Reader, size int64, contentType string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, objectPath string) error
	SignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error)
}

// RecordingPath builds the per-user object path for a new recording.
// The file name comes from the capture timestamp.
func RecordingPath(userID int64, capturedAt time.Time, ext string) string {
	if ext == "" {
		ext = ".m4a"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%d/recording_%d%s", userID, capturedAt.UnixNano(), strings.ToLower(ext))
}

// UserPrefix is the prefix every object of a user lives under
func UserPrefix(userID int64) string {
	return fmt.Sprintf("%d/", userID)
}

// OwnerOf returns the user whose prefix objectPath lives under
func OwnerOf(objectPath string) (int64, bool) {
	head, _, found := strings.Cut(objectPath, "/")
	if !found {
		return 0, false
	}
	userID, err := strconv.ParseInt(head, 10, 64)
	if err != nil || userID <= 0 || !strings.HasPrefix(objectPath, UserPrefix(userID)) {
		return 0, false
	}
	return userID, true
}

// cleanPath rejects absolute paths and parent traversal
func cleanPath(objectPath string) (string, error) {
	if objectPath == "" || strings.HasPrefix(objectPath, "/") || strings.Contains(objectPath, "\\") {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(objectPath)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

// ContentTypeFor maps an audio file extension to its MIME type
func ContentTypeFor(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "m4a", "mp4":
		return "audio/mp4"
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "webm":
		return "audio/webm"
	case "ogg", "oga":
		return "audio/ogg"
	case "aac":
		return "audio/aac"
	default:
		return "application/octet-stream"
	}
}

// IsAudioExtension reports whether ext is an accepted recording format
func IsAudioExtension(ext string) bool {
	return ContentTypeFor(ext) != "application/octet-stream"
}
