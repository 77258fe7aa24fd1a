package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const driveFields = "id, name, modifiedTime, size"

// DriveStore reads files from Google Drive, shared drives included.
type DriveStore struct {
	svc *drive.Service
}

// NewDriveStore authenticates with a service-account JSON key. Extra options
// are appended after the credential (tests point the endpoint at a fake).
func NewDriveStore(ctx context.Context, credentials []byte, opts ...option.ClientOption) (*DriveStore, error) {
	if len(credentials) == 0 {
		return nil, fmt.Errorf("drive: %w: no service account credentials", ErrConnection)
	}
	jwtConfig, err := google.JWTConfigFromJSON(credentials, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("drive: %w: %w", ErrConnection, err)
	}
	opts = append([]option.ClientOption{option.WithHTTPClient(jwtConfig.Client(ctx))}, opts...)
	return NewDriveStoreWithOptions(ctx, opts...)
}

// NewDriveStoreWithOptions builds the store from raw client options.
func NewDriveStoreWithOptions(ctx context.Context, opts ...option.ClientOption) (*DriveStore, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive: %w: %w", ErrConnection, err)
	}
	return &DriveStore{svc: svc}, nil
}

func (s *DriveStore) FetchMetadata(ctx context.Context, fileID string) (Metadata, error) {
	f, err := s.svc.Files.Get(fileID).
		Fields(googleapi.Field(driveFields)).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return Metadata{}, classify("drive metadata", fileID, err)
	}
	md := Metadata{ID: f.Id, Name: f.Name, Size: f.Size}
	if f.ModifiedTime != "" {
		// RFC 3339, toujours en UTC côté Drive
		t, err := time.Parse(time.RFC3339Nano, f.ModifiedTime)
		if err == nil {
			md.ModTime = t
		}
	}
	return md, nil
}

func (s *DriveStore) Download(ctx context.Context, fileID string, w io.Writer) error {
	resp, err := s.svc.Files.Get(fileID).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		return classify("drive download", fileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return classify("drive download", fileID, &googleapi.Error{Code: resp.StatusCode})
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return classify("drive download", fileID, err)
	}
	return nil
}
