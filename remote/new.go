package remote

import (
	"context"
	"fmt"
)

const (
	KindDrive = "drive"
	KindGCS   = "gcs"
)

// New builds the store named by kind.
func New(ctx context.Context, kind string, credentials []byte) (Store, error) {
	switch kind {
	case KindDrive, "":
		return NewDriveStore(ctx, credentials)
	case KindGCS:
		return NewGCSStore(ctx, credentials)
	}
	return nil, fmt.Errorf("unknown remote store kind %q", kind)
}
