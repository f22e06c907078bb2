package files

import (
	"errors"
	"time"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds MaxFileSize.
	ErrFileTooLarge = errors.New("file exceeds the maximum allowed size")
	// ErrFileTypeNotAllowed is returned for extensions outside the allow-list.
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	// ErrFileNotFound is returned when no stored object matches.
	ErrFileNotFound = errors.New("file not found")
)

// MaxFileSize is the upload size cap in bytes.
const MaxFileSize = 10 * 1024 * 1024

// FileMeta describes an uploaded attachment.
type FileMeta struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"createdAt"`
}
