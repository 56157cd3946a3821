package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an attachment doesn't exist.
var ErrNotFound = errors.New("upload: file not found")

// ErrTooLarge is returned when a file exceeds the size limit.
var ErrTooLarge = errors.New("upload: file too large")

// ErrTypeNotAllowed is returned for content types outside the allow list.
var ErrTypeNotAllowed = errors.New("upload: content type not allowed")

// Store is the interface for attachment storage backends.
type Store interface {
	// Save stores the contents of r and returns the stored attachment with
	// its ID, size and creation time filled in.
	Save(ctx context.Context, a Attachment, r io.Reader) (Attachment, error)

	// Open returns the attachment and a reader over its contents.
	Open(ctx context.Context, id string) (*File, error)

	// Delete removes an attachment.
	Delete(ctx context.Context, id string) error
}

// Attachment describes a stored file.
type Attachment struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner,omitempty"` // "<kind>/<id>" of the record it belongs to
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// File is an opened attachment.
type File struct {
	Attachment

	// Reader provides access to the file contents.
	Reader io.ReadCloser
}

// Close closes the file reader if open.
func (f *File) Close() error {
	if f.Reader != nil {
		return f.Reader.Close()
	}
	return nil
}

// newID generates an attachment ID.
func newID() string {
	return uuid.NewString()
}

// validID reports whether id could have been produced by newID. Backends
// use it before turning an ID into a path or key.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && !strings.ContainsAny(id, `/\.`)
}

// Config holds configuration for the upload handler.
type Config struct {
	// MaxFileSize is the maximum allowed file size in bytes.
	// Default: 10MB.
	MaxFileSize int64

	// AllowedTypes is a list of allowed MIME types.
	// If empty, all types are allowed.
	AllowedTypes []string

	// Logger receives upload failures. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults for receipts.
func DefaultConfig() *Config {
	return &Config{
		MaxFileSize: 10 * 1024 * 1024, // 10MB
		AllowedTypes: []string{
			"image/jpeg",
			"image/png",
			"application/pdf",
		},
	}
}

func (c *Config) allowed(contentType string) bool {
	if len(c.AllowedTypes) == 0 {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return slices.Contains(c.AllowedTypes, mediaType)
}

// Handler returns an http.Handler for attachment uploads.
//
// The handler expects a multipart form with a "file" field and an optional
// "owner" field. It responds with the stored Attachment as JSON.
func Handler(store Store, config *Config) http.Handler {
	if config == nil {
		config = DefaultConfig()
	}
	maxSize := config.MaxFileSize
	if maxSize <= 0 {
		maxSize = 10 * 1024 * 1024
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "upload")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Limit the body before parsing; multipart overhead gets 1MB.
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "Failed to parse form", http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "No file provided", http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxSize {
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if !config.allowed(contentType) {
			http.Error(w, "Unsupported file type", http.StatusUnsupportedMediaType)
			return
		}

		a, err := store.Save(r.Context(), Attachment{
			Owner:       r.FormValue("owner"),
			Filename:    header.Filename,
			ContentType: contentType,
		}, file)
		if err != nil {
			if errors.Is(err, ErrTooLarge) {
				http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
				return
			}
			logger.Error("upload failed", "filename", header.Filename, "error", err)
			http.Error(w, "Upload failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(a)
	})
}

// DownloadHandler serves a stored attachment. idFunc extracts the ID from
// the request, typically from a router path parameter.
func DownloadHandler(store Store, idFunc func(*http.Request) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := idFunc(r)
		if !validID(id) {
			http.NotFound(w, r)
			return
		}

		f, err := store.Open(r.Context(), id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Download failed", http.StatusInternalServerError)
			return
		}
		defer f.Close()

		w.Header().Set("Content-Type", f.ContentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": f.Filename}))
		if f.Size > 0 {
			w.Header().Set("Content-Length", fmt.Sprint(f.Size))
		}
		io.Copy(w, f.Reader)
	})
}
