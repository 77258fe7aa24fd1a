package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"adinsight/remote"
)

// LocalFile is the outcome of a Sync.
type LocalFile struct {
	Path       string
	ModTime    time.Time
	Downloaded bool
	// Stale is set when the remote could not be reached and an older local
	// copy is used; Warning holds the cause.
	Stale   bool
	Warning error
}

// LocalStore keeps one local copy per dataset and replaces it atomically
// when the remote file is newer.
type LocalStore struct {
	dir     string
	remote  remote.Store
	timeout time.Duration
	logger  *zap.Logger
}

func NewLocalStore(dir string, store remote.Store, timeout time.Duration, logger *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalStore{dir: dir, remote: store, timeout: timeout, logger: logger}, nil
}

func (s *LocalStore) Path(d Descriptor) string {
	return filepath.Join(s.dir, d.LocalName())
}

func (s *LocalStore) Exists(d Descriptor) bool {
	info, err := os.Stat(s.Path(d))
	return err == nil && info.Mode().IsRegular()
}

// Discard removes the local copy. A missing file is not an error.
func (s *LocalStore) Discard(d Descriptor) error {
	err := os.Remove(s.Path(d))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Sync makes sure the local copy of d is at least as recent as the remote
// file. The copy is downloaded again when it is missing, when the remote
// time is unknown, or when it is strictly older than the remote file.
func (s *LocalStore) Sync(ctx context.Context, d Descriptor) (LocalFile, error) {
	path := s.Path(d)
	local, statErr := os.Stat(path)
	haveLocal := statErr == nil && local.Mode().IsRegular()

	timeout := s.timeout
	if d.DownloadTimeout > 0 {
		timeout = d.DownloadTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	md, err := s.remote.FetchMetadata(ctx, d.FileID)
	if err != nil {
		return s.fallback(d, path, local, haveLocal, err)
	}
	if haveLocal && !md.ModTime.IsZero() && !local.ModTime().Before(md.ModTime) {
		return LocalFile{Path: path, ModTime: local.ModTime()}, nil
	}

	start := time.Now()
	if err := s.download(ctx, d, path, md.ModTime); err != nil {
		return s.fallback(d, path, local, haveLocal, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return LocalFile{}, err
	}
	s.logger.Info("dataset downloaded",
		zap.String("dataset", d.Key),
		zap.String("file_id", d.FileID),
		zap.Int64("bytes", info.Size()),
		zap.Time("remote_modified", md.ModTime),
		zap.Duration("took", time.Since(start)),
	)
	return LocalFile{Path: path, ModTime: info.ModTime(), Downloaded: true}, nil
}

func (s *LocalStore) fallback(d Descriptor, path string, local os.FileInfo, haveLocal bool, cause error) (LocalFile, error) {
	if !haveLocal {
		return LocalFile{}, fmt.Errorf("%w: %s: %w", ErrDataUnavailable, d.Key, cause)
	}
	s.logger.Warn("refresh failed, using local copy",
		zap.String("dataset", d.Key),
		zap.Time("local_modified", local.ModTime()),
		zap.Error(cause),
	)
	return LocalFile{Path: path, ModTime: local.ModTime(), Stale: true, Warning: cause}, nil
}

// download writes into a temp file of the same directory and renames it over
// path once complete, so readers never see a partial file.
func (s *LocalStore) download(ctx context.Context, d Descriptor, path string, modTime time.Time) error {
	tmp, err := s.writeTemp(d, func(w io.Writer) error {
		return s.remote.Download(ctx, d.FileID, &ctxWriter{ctx: ctx, w: w})
	})
	if err != nil {
		return err
	}
	if !modTime.IsZero() {
		if err := os.Chtimes(tmp, modTime, modTime); err != nil {
			os.Remove(tmp)
			return err
		}
	}
	return os.Rename(tmp, path)
}

// Replace installs r as the local copy of d, for a manual upload. The content
// must decode before it replaces the current copy. Its modification time is
// the upload time, so Sync keeps it until the remote file is modified again.
func (s *LocalStore) Replace(d Descriptor, r io.Reader) (*Snapshot, error) {
	tmp, err := s.writeTemp(d, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	snap, err := Decode(tmp, d)
	if err != nil {
		os.Remove(tmp)
		return nil, err
	}
	if err := os.Rename(tmp, s.Path(d)); err != nil {
		os.Remove(tmp)
		return nil, err
	}
	s.logger.Info("dataset replaced by upload",
		zap.String("dataset", d.Key),
		zap.Int("rows", snap.Table.Rows()),
	)
	return snap, nil
}

// writeTemp fills a synced temp file next to the local copies and returns its
// path. Nothing is left behind on error.
func (s *LocalStore) writeTemp(d Descriptor, fill func(io.Writer) error) (path string, err error) {
	tmp, err := os.CreateTemp(s.dir, "."+d.LocalName()+".*.tmp")
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = fill(tmp); err != nil {
		return "", err
	}
	if err = tmp.Sync(); err != nil {
		return "", err
	}
	if err = tmp.Close(); err != nil {
		return "", err
	}
	return tmp.Name(), nil
}

// ctxWriter stops a copy as soon as the download deadline passes, whatever
// the reader on the other side does.
type ctxWriter struct {
	ctx context.Context
	w   io.Writer
}

func (c *ctxWriter) Write(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.w.Write(p)
}
