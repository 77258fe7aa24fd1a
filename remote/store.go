package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
)

var (
	// ErrNotFound means the file identifier does not resolve to a file.
	ErrNotFound = errors.New("remote file not found")
	// ErrConnection covers credentials, transport failures and timeouts.
	ErrConnection = errors.New("remote store unreachable")
)

// Metadata describes a remote file. ModTime is zero when the store does not
// report a modification time.
type Metadata struct {
	ID      string
	Name    string
	ModTime time.Time
	Size    int64
}

// Store is a read-only view on a cloud file store.
type Store interface {
	FetchMetadata(ctx context.Context, fileID string) (Metadata, error)
	// Download streams the file content to w. A failed download may have
	// written part of the content.
	Download(ctx context.Context, fileID string, w io.Writer) error
}

// classify wraps err with the sentinel matching its cause.
func classify(op, fileID string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w: %w", op, fileID, ErrNotFound, err)
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConnection) {
		return fmt.Errorf("%s %s: %w", op, fileID, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", op, fileID, err)
	}
	return fmt.Errorf("%s %s: %w: %w", op, fileID, ErrConnection, err)
}
