// Package storage provides object storage for user uploads: job photos,
// profile pictures, CVs and chat images.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ObjectStore is the interface the services depend on. The production
// implementation talks to S3; tests substitute an in-memory store.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// sanitizeFilename strips path separators and spaces from a user-provided
// filename so it is safe to embed in an object key.
func sanitizeFilename(name string) string {
	name = path.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	return name
}

// JobPhotoKey builds the object key for a job post photo.
func JobPhotoKey(userID uint, now time.Time, filename string) string {
	return fmt.Sprintf("jobposts/%d/%d_%s", userID, now.UnixMilli(), sanitizeFilename(filename))
}

// ProfilePicKey builds the object key for a profile picture.
func ProfilePicKey(userID uint, filename string) string {
	return fmt.Sprintf("usersdata/%d/%s", userID, sanitizeFilename(filename))
}

// CVKey builds the object key for an uploaded CV document.
func CVKey(userID uint, filename string) string {
	return fmt.Sprintf("documents/%d/%s", userID, sanitizeFilename(filename))
}

// ChatImageKey builds the object key for a chat image attachment.
func ChatImageKey(now time.Time, filename string) string {
	return fmt.Sprintf("chatimages/%s_%s", now.UTC().Format(time.RFC3339Nano), sanitizeFilename(filename))
}
