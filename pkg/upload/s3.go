package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config describes an S3 compatible endpoint.
type S3Config struct {
	Region          string
	Endpoint        string // empty for AWS
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool // required by most self-hosted servers
}

// NewS3Client builds an S3 client from static configuration.
func NewS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.PathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Source:          "backoffice config",
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	}
	return s3.New(opts)
}

// Object metadata keys.
const (
	metaFilename = "original-filename"
	metaOwner    = "owner"
	metaCreated  = "upload-time"
)

// S3Store stores attachments in an S3 bucket.
type S3Store struct {
	client  S3API
	bucket  string
	prefix  string
	maxSize int64
}

// NewS3Store creates a new S3 attachment store.
//
// Parameters:
//   - client: S3 client, usually from NewS3Client
//   - bucket: S3 bucket name
//   - prefix: Key prefix for attachments (e.g., "attachments/")
//   - maxSize: Maximum file size in bytes (0 = no limit)
func NewS3Store(client S3API, bucket, prefix string, maxSize int64) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		maxSize: maxSize,
	}
}

// Save uploads a file.
func (s *S3Store) Save(ctx context.Context, a Attachment, r io.Reader) (Attachment, error) {
	a.ID = newID()
	a.CreatedAt = time.Now().UTC()

	// Buffered so the size limit is enforced before anything is uploaded.
	var buf bytes.Buffer
	if s.maxSize > 0 {
		n, err := io.Copy(&buf, io.LimitReader(r, s.maxSize+1))
		if err != nil {
			return Attachment{}, err
		}
		if n > s.maxSize {
			return Attachment{}, ErrTooLarge
		}
	} else if _, err := io.Copy(&buf, r); err != nil {
		return Attachment{}, err
	}
	a.Size = int64(buf.Len())

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(a.ID)),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(a.ContentType),
		Metadata: map[string]string{
			metaFilename: a.Filename,
			metaOwner:    a.Owner,
			metaCreated:  a.CreatedAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return Attachment{}, fmt.Errorf("upload: s3 put: %w", err)
	}
	return a, nil
}

// Open downloads an attachment.
func (s *S3Store) Open(ctx context.Context, id string) (*File, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("upload: s3 get: %w", err)
	}

	a := Attachment{
		ID:          id,
		Filename:    id,
		ContentType: "application/octet-stream",
	}
	if fn, ok := out.Metadata[metaFilename]; ok {
		a.Filename = fn
	}
	a.Owner = out.Metadata[metaOwner]
	if t, err := time.Parse(time.RFC3339, out.Metadata[metaCreated]); err == nil {
		a.CreatedAt = t
	}
	if out.ContentType != nil {
		a.ContentType = *out.ContentType
	}
	if out.ContentLength != nil {
		a.Size = *out.ContentLength
	}

	return &File{Attachment: a, Reader: out.Body}, nil
}

// Delete removes an attachment. S3 does not report missing keys on delete.
func (s *S3Store) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return fmt.Errorf("upload: s3 delete: %w", err)
	}
	return nil
}

func (s *S3Store) key(id string) string {
	return s.prefix + id
}
