package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore reads objects from Cloud Storage. File ids are "bucket/object".
type GCSStore struct {
	client *storage.Client
}

func NewGCSStore(ctx context.Context, credentials []byte, opts ...option.ClientOption) (*GCSStore, error) {
	if len(credentials) > 0 {
		opts = append([]option.ClientOption{option.WithCredentialsJSON(credentials)}, opts...)
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: %w: %w", ErrConnection, err)
	}
	return &GCSStore{client: client}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) FetchMetadata(ctx context.Context, fileID string) (Metadata, error) {
	obj, err := s.object(fileID)
	if err != nil {
		return Metadata{}, err
	}
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return Metadata{}, s.classify("gcs metadata", fileID, err)
	}
	return Metadata{
		ID:      fileID,
		Name:    attrs.Name,
		ModTime: attrs.Updated,
		Size:    attrs.Size,
	}, nil
}

func (s *GCSStore) Download(ctx context.Context, fileID string, w io.Writer) error {
	obj, err := s.object(fileID)
	if err != nil {
		return err
	}
	r, err := obj.NewReader(ctx)
	if err != nil {
		return s.classify("gcs download", fileID, err)
	}
	defer r.Close()
	if _, err := io.Copy(w, r); err != nil {
		return s.classify("gcs download", fileID, err)
	}
	return nil
}

func (s *GCSStore) object(fileID string) (*storage.ObjectHandle, error) {
	bucket, name, err := splitObject(fileID)
	if err != nil {
		return nil, err
	}
	return s.client.Bucket(bucket).Object(name), nil
}

func (s *GCSStore) classify(op, fileID string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("%s %s: %w: %w", op, fileID, ErrNotFound, err)
	}
	return classify(op, fileID, err)
}

func splitObject(fileID string) (bucket, name string, err error) {
	bucket, name, ok := strings.Cut(strings.TrimPrefix(fileID, "gs://"), "/")
	if !ok || bucket == "" || name == "" {
		return "", "", fmt.Errorf("gcs: %w: %q is not bucket/object", ErrNotFound, fileID)
	}
	return bucket, name, nil
}
