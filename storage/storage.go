// Package storage holds uploaded issue media in an object store.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrForeignURL      = errors.New("url does not belong to this store")
)

// Object describes a stored blob.
type Object struct {
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// BlobStore stores media and returns a URL clients can fetch it from.
type BlobStore interface {
	Put(ctx context.Context, r io.Reader, size int64, name, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
	ListByPrefix(ctx context.Context, prefix string) ([]Object, error)
}

var (
	ImageExtensions = []string{"jpg", "jpeg", "png", "gif", "webp"}
	AudioExtensions = []string{"mp3", "wav", "m4a", "ogg", "webm", "aac"}
)

var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"m4a":  "audio/mp4",
	"ogg":  "audio/ogg",
	"webm": "audio/webm",
	"aac":  "audio/aac",
}

// Extension returns the lower-cased extension of filename without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
}

// ContentType guesses a MIME type from the file extension.
func ContentType(filename string) string {
	if ct, ok := contentTypes[Extension(filename)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// CheckExtension returns ErrUnsupportedType unless filename has one of the
// allowed extensions.
func CheckExtension(filename string, allowed []string) error {
	ext := Extension(filename)
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return ErrUnsupportedType
}

// ObjectName builds folder/<uid>/<uuid>.<ext>, defaulting the uid to
// "anonymous".
func ObjectName(folder, uid, filename string) string {
	if uid == "" {
		uid = "anonymous"
	}
	name := uuid.NewString()
	if ext := Extension(filename); ext != "" {
		name += "." + ext
	}
	return path.Join(folder, uid, name)
}
