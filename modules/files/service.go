package files

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// allowedExtensions mirrors the attachment types the clients can render.
var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
}

// Service provides attachment management operations.
type Service struct {
	store ObjectStore
}

// NewService creates a new file service.
func NewService(store ObjectStore) *Service {
	return &Service{store: store}
}

// Upload validates and stores an attachment, returning its metadata.
// Objects are keyed "id/filename" so the original name survives.
func (s *Service) Upload(ctx context.Context, name string, data []byte, contentType string) (*FileMeta, error) {
	if name == "" {
		return nil, fmt.Errorf("file name is required")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file data is empty")
	}
	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return nil, ErrFileTypeNotAllowed
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	fileID := uuid.New().String()
	storageName := fmt.Sprintf("%s/%s", fileID, name)

	info, err := s.store.Put(ctx, storageName, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	return &FileMeta{
		ID:          fileID,
		Name:        name,
		Size:        int64(info.Size),
		ContentType: contentType,
		URL:         fmt.Sprintf("/api/files/%s/%s", fileID, name),
		CreatedAt:   info.ModTime,
	}, nil
}

// Get retrieves an attachment by ID and original name.
func (s *Service) Get(ctx context.Context, id, name string) ([]byte, *FileMeta, error) {
	if id == "" || name == "" {
		return nil, nil, fmt.Errorf("file ID and name are required")
	}

	storageName := fmt.Sprintf("%s/%s", id, name)
	data, info, err := s.store.Get(ctx, storageName)
	if err != nil {
		return nil, nil, ErrFileNotFound
	}

	return data, &FileMeta{
		ID:          id,
		Name:        name,
		Size:        int64(info.Size),
		ContentType: info.ContentType,
		URL:         fmt.Sprintf("/api/files/%s/%s", id, name),
		CreatedAt:   info.ModTime,
	}, nil
}

// Delete removes an attachment by ID and original name.
func (s *Service) Delete(ctx context.Context, id, name string) error {
	if id == "" || name == "" {
		return fmt.Errorf("file ID and name are required")
	}
	if err := s.store.Delete(ctx, fmt.Sprintf("%s/%s", id, name)); err != nil {
		return ErrFileNotFound
	}
	return nil
}
