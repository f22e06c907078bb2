package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// fakeStore is an in-memory ObjectStore for tests.
type fakeStore struct {
	objects map[string][]byte
	types   map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (f *fakeStore) Put(_ context.Context, name string, data []byte, contentType string) (*ObjectInfo, error) {
	f.objects[name] = data
	f.types[name] = contentType
	return &ObjectInfo{Name: name, Size: uint64(len(data)), ContentType: contentType, ModTime: time.Now()}, nil
}

func (f *fakeStore) Get(_ context.Context, name string) ([]byte, *ObjectInfo, error) {
	data, ok := f.objects[name]
	if !ok {
		return nil, nil, fmt.Errorf("object not found: %s", name)
	}
	return data, &ObjectInfo{Name: name, Size: uint64(len(data)), ContentType: f.types[name]}, nil
}

func (f *fakeStore) Delete(_ context.Context, name string) error {
	if _, ok := f.objects[name]; !ok {
		return fmt.Errorf("object not found: %s", name)
	}
	delete(f.objects, name)
	delete(f.types, name)
	return nil
}

func (f *fakeStore) GetInfo(_ context.Context, name string) (*ObjectInfo, error) {
	data, ok := f.objects[name]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", name)
	}
	return &ObjectInfo{Name: name, Size: uint64(len(data)), ContentType: f.types[name]}, nil
}

func TestService_Upload(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	service := NewService(store)

	t.Run("valid upload", func(t *testing.T) {
		meta, err := service.Upload(ctx, "photo.png", []byte("png-bytes"), "image/png")
		if err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
		if meta.ID == "" {
			t.Error("expected file ID to be set")
		}
		if meta.URL != "/api/files/"+meta.ID+"/photo.png" {
			t.Errorf("unexpected URL: %q", meta.URL)
		}
		if _, ok := store.objects[meta.ID+"/photo.png"]; !ok {
			t.Error("expected object stored under id/name key")
		}
	})

	t.Run("size cap enforced", func(t *testing.T) {
		big := bytes.Repeat([]byte("a"), MaxFileSize+1)
		_, err := service.Upload(ctx, "big.pdf", big, "application/pdf")
		if !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("expected ErrFileTooLarge, got %v", err)
		}
	})

	t.Run("extension allow-list enforced", func(t *testing.T) {
		_, err := service.Upload(ctx, "script.exe", []byte("mz"), "application/octet-stream")
		if !errors.Is(err, ErrFileTypeNotAllowed) {
			t.Errorf("expected ErrFileTypeNotAllowed, got %v", err)
		}
	})

	t.Run("extension check is case-insensitive", func(t *testing.T) {
		if _, err := service.Upload(ctx, "REPORT.PDF", []byte("pdf"), "application/pdf"); err != nil {
			t.Errorf("expected upper-case extension accepted, got %v", err)
		}
	})
}

func TestService_GetAndDelete(t *testing.T) {
	ctx := context.Background()
	service := NewService(newFakeStore())

	meta, err := service.Upload(ctx, "notes.txt", []byte("hello world"), "text/plain")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	data, got, err := service.Get(ctx, meta.ID, "notes.txt")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("unexpected data: %q", data)
	}
	if got.ContentType != "text/plain" {
		t.Errorf("expected content type preserved, got %q", got.ContentType)
	}

	if err := service.Delete(ctx, meta.ID, "notes.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, _, err := service.Get(ctx, meta.ID, "notes.txt"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound after delete, got %v", err)
	}

	if err := service.Delete(ctx, meta.ID, "notes.txt"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound on double delete, got %v", err)
	}
}

func TestService_UploadValidation(t *testing.T) {
	ctx := context.Background()
	service := NewService(newFakeStore())

	if _, err := service.Upload(ctx, "", []byte("x"), ""); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := service.Upload(ctx, "a.txt", nil, ""); err == nil {
		t.Error("expected error for empty data")
	}
	if _, err := service.Upload(ctx, "noext", []byte("x"), ""); err == nil ||
		!strings.Contains(err.Error(), "not allowed") {
		t.Errorf("expected extension rejection for bare name, got %v", err)
	}
}
