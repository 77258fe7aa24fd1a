package dataset

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"adinsight/remote"
)

func newTestStore(t *testing.T, r remote.Store) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir(), r, time.Second, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	require.NoError(t, err)
	return matches
}

func TestSyncDownloadsOnlyWhenRemoteIsNewer(t *testing.T) {
	ctx := context.Background()
	r := newFakeRemote()
	remoteTime := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r.put("f1", []byte("v1"), remoteTime)
	s := newTestStore(t, r)
	d := Descriptor{Key: "base", FileID: "f1", Format: FormatParquet}

	lf, err := s.Sync(ctx, d)
	require.NoError(t, err)
	assert.True(t, lf.Downloaded)
	assert.True(t, lf.ModTime.Equal(remoteTime), "local mtime is stamped with the remote time")
	assert.Equal(t, filepath.Join(s.dir, "base.parquet"), lf.Path)

	lf, err = s.Sync(ctx, d)
	require.NoError(t, err)
	assert.False(t, lf.Downloaded)
	_, downloads := r.counts()
	assert.Equal(t, 1, downloads)

	r.put("f1", []byte("v2"), remoteTime.Add(time.Minute))
	lf, err = s.Sync(ctx, d)
	require.NoError(t, err)
	assert.True(t, lf.Downloaded)
	data, err := os.ReadFile(lf.Path)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestSyncWithoutRemoteTimeAlwaysDownloads(t *testing.T) {
	r := newFakeRemote()
	r.put("f1", []byte("v1"), time.Time{})
	s := newTestStore(t, r)
	d := Descriptor{Key: "base", FileID: "f1", Format: FormatXLSX}

	for i := 0; i < 2; i++ {
		lf, err := s.Sync(context.Background(), d)
		require.NoError(t, err)
		assert.True(t, lf.Downloaded)
	}
}

func TestSyncFallsBackToLocalCopy(t *testing.T) {
	r := newFakeRemote()
	r.put("f1", []byte("v1"), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	s := newTestStore(t, r)
	d := Descriptor{Key: "base", FileID: "f1", Format: FormatParquet}
	_, err := s.Sync(context.Background(), d)
	require.NoError(t, err)

	r.statErr = remote.ErrConnection
	lf, err := s.Sync(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, lf.Stale)
	assert.ErrorIs(t, lf.Warning, remote.ErrConnection)
}

func TestSyncWithoutLocalCopyIsUnavailable(t *testing.T) {
	r := newFakeRemote()
	r.statErr = remote.ErrConnection
	s := newTestStore(t, r)

	_, err := s.Sync(context.Background(), Descriptor{Key: "base", FileID: "f1", Format: FormatParquet})
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.ErrorIs(t, err, remote.ErrConnection)

	r.statErr = nil
	_, err = s.Sync(context.Background(), Descriptor{Key: "other", FileID: "missing", Format: FormatParquet})
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestFailedDownloadKeepsPreviousFile(t *testing.T) {
	r := newFakeRemote()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	r.put("f1", []byte("complete old content"), start)
	s := newTestStore(t, r)
	d := Descriptor{Key: "base", FileID: "f1", Format: FormatParquet}
	_, err := s.Sync(context.Background(), d)
	require.NoError(t, err)

	r.put("f1", []byte("complete new content"), start.Add(time.Hour))
	r.fetchErr = errors.New("connection reset")
	lf, err := s.Sync(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, lf.Stale)

	data, err := os.ReadFile(s.Path(d))
	require.NoError(t, err)
	assert.Equal(t, "complete old content", string(data))
	assert.Empty(t, tempFiles(t, s.dir))
}

func TestDownloadTimeout(t *testing.T) {
	r := newFakeRemote()
	r.put("f1", []byte("slow content"), time.Now())
	r.block = true
	s := newTestStore(t, r)
	d := Descriptor{Key: "base", FileID: "f1", Format: FormatParquet, DownloadTimeout: 20 * time.Millisecond}

	_, err := s.Sync(context.Background(), d)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, s.Exists(d))
	assert.Empty(t, tempFiles(t, s.dir))
}

func TestDiscard(t *testing.T) {
	r := newFakeRemote()
	r.put("f1", []byte("v1"), time.Now())
	s := newTestStore(t, r)
	d := Descriptor{Key: "base", FileID: "f1", Format: FormatParquet}
	_, err := s.Sync(context.Background(), d)
	require.NoError(t, err)
	require.True(t, s.Exists(d))

	require.NoError(t, s.Discard(d))
	assert.False(t, s.Exists(d))
	assert.NoError(t, s.Discard(d))
}

func TestReplaceKeepsUploadUntilRemoteChanges(t *testing.T) {
	r := newFakeRemote()
	r.put("file-insercoes", parquetBytes(t, sampleInsertions()), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	s := newTestStore(t, r)
	d := insertionDescriptor()
	_, err := s.Sync(context.Background(), d)
	require.NoError(t, err)

	snap, err := s.Replace(d, bytes.NewReader(parquetBytes(t, sampleInsertions()[:2])))
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Table.Rows())
	assert.Empty(t, tempFiles(t, s.dir))

	lf, err := s.Sync(context.Background(), d)
	require.NoError(t, err)
	assert.False(t, lf.Downloaded)
	decoded, err := Decode(lf.Path, d)
	require.NoError(t, err)
	assert.Equal(t, 2, decoded.Table.Rows())

	r.put("file-insercoes", parquetBytes(t, sampleInsertions()), time.Now().Add(time.Hour))
	lf, err = s.Sync(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, lf.Downloaded)
}

func TestReplaceRejectsUndecodableFile(t *testing.T) {
	original := parquetBytes(t, sampleInsertions())
	r := newFakeRemote()
	r.put("file-insercoes", original, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	s := newTestStore(t, r)
	d := insertionDescriptor()
	_, err := s.Sync(context.Background(), d)
	require.NoError(t, err)

	_, err = s.Replace(d, bytes.NewReader([]byte("not parquet at all")))
	var de *DecodeError
	require.ErrorAs(t, err, &de)

	data, err := os.ReadFile(s.Path(d))
	require.NoError(t, err)
	assert.Equal(t, original, data)
	assert.Empty(t, tempFiles(t, s.dir))
}
