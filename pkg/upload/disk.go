package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// DiskStore stores attachments on the local filesystem. Each file has a
// "<id>.meta" JSON sidecar holding its Attachment.
type DiskStore struct {
	dir     string
	maxSize int64
}

// NewDiskStore creates a new DiskStore.
//
// Parameters:
//   - dir: Directory to store files in
//   - maxSize: Maximum file size in bytes (0 = no limit)
func NewDiskStore(dir string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir, maxSize: maxSize}, nil
}

// Save writes the file and its metadata.
func (s *DiskStore) Save(_ context.Context, a Attachment, r io.Reader) (Attachment, error) {
	a.ID = newID()
	path := s.path(a.ID)

	f, err := os.Create(path)
	if err != nil {
		return Attachment{}, err
	}
	defer f.Close()

	var reader io.Reader = r
	if s.maxSize > 0 {
		reader = io.LimitReader(r, s.maxSize+1) // +1 to detect overflow
	}

	written, err := io.Copy(f, reader)
	if err != nil {
		os.Remove(path)
		return Attachment{}, err
	}
	if s.maxSize > 0 && written > s.maxSize {
		os.Remove(path)
		return Attachment{}, ErrTooLarge
	}

	a.Size = written
	a.CreatedAt = time.Now().UTC()
	if err := s.saveMeta(a); err != nil {
		os.Remove(path)
		return Attachment{}, err
	}
	return a, nil
}

// Open opens a stored attachment.
func (s *DiskStore) Open(_ context.Context, id string) (*File, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	a, err := s.loadMeta(id)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	f, err := os.Open(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &File{Attachment: a, Reader: f}, nil
}

// Delete removes an attachment and its metadata.
func (s *DiskStore) Delete(_ context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	err := os.Remove(s.path(id))
	os.Remove(s.metaPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *DiskStore) path(id string) string {
	return filepath.Join(s.dir, id)
}

func (s *DiskStore) metaPath(id string) string {
	return filepath.Join(s.dir, id+".meta")
}

func (s *DiskStore) saveMeta(a Attachment) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return os.WriteFile(s.metaPath(a.ID), data, 0o644)
}

func (s *DiskStore) loadMeta(id string) (Attachment, error) {
	data, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		return Attachment{}, err
	}
	var a Attachment
	if err := json.Unmarshal(data, &a); err != nil {
		return Attachment{}, err
	}
	return a, nil
}
