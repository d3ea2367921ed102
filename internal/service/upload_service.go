// Package service provides application business logic (jobs, users, chat).
package service

import (
	"context"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"workhive/internal/models"
	"workhive/internal/storage"
)

const MaxUploadSizeMB = 10

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var allowedDocExts = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
}

// UploadService pushes user files into the object store and hands back their
// public URLs.
type UploadService struct {
	store storage.ObjectStore
	now   func() time.Time
}

// NewUploadService returns a new UploadService.
func NewUploadService(store storage.ObjectStore) *UploadService {
	return &UploadService{store: store, now: time.Now}
}

func contentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func validateExt(filename string, allowed map[string]bool, kind string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowed[ext] {
		return models.NewValidationError("unsupported " + kind + " file type: " + ext)
	}
	return nil
}

// UploadJobPhoto stores one job post attachment and returns its public URL.
func (s *UploadService) UploadJobPhoto(ctx context.Context, userID uint, filename string, body io.Reader) (string, error) {
	if err := validateExt(filename, allowedImageExts, "image"); err != nil {
		return "", err
	}
	key := storage.JobPhotoKey(userID, s.now(), filename)
	if err := s.store.Upload(ctx, key, body, contentTypeFor(filename)); err != nil {
		return "", models.NewStorageError(err)
	}
	return s.store.PublicURL(key), nil
}

// UploadProfilePic stores a profile picture and returns its public URL.
func (s *UploadService) UploadProfilePic(ctx context.Context, userID uint, filename string, body io.Reader) (string, error) {
	if err := validateExt(filename, allowedImageExts, "image"); err != nil {
		return "", err
	}
	key := storage.ProfilePicKey(userID, filename)
	if err := s.store.Upload(ctx, key, body, contentTypeFor(filename)); err != nil {
		return "", models.NewStorageError(err)
	}
	return s.store.PublicURL(key), nil
}

// UploadCV stores a CV document and returns its public URL.
func (s *UploadService) UploadCV(ctx context.Context, userID uint, filename string, body io.Reader) (string, error) {
	if err := validateExt(filename, allowedDocExts, "document"); err != nil {
		return "", err
	}
	key := storage.CVKey(userID, filename)
	if err := s.store.Upload(ctx, key, body, contentTypeFor(filename)); err != nil {
		return "", models.NewStorageError(err)
	}
	return s.store.PublicURL(key), nil
}

// UploadChatImage stores a chat attachment and returns its public URL.
func (s *UploadService) UploadChatImage(ctx context.Context, filename string, body io.Reader) (string, error) {
	if err := validateExt(filename, allowedImageExts, "image"); err != nil {
		return "", err
	}
	key := storage.ChatImageKey(s.now(), filename)
	if err := s.store.Upload(ctx, key, body, contentTypeFor(filename)); err != nil {
		return "", models.NewStorageError(err)
	}
	return s.store.PublicURL(key), nil
}
