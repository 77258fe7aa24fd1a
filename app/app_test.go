package app

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"
	"go.uber.org/zap/zaptest"

	"adinsight/config"
	"adinsight/dataset"
	"adinsight/remote"
	"adinsight/utils"
)

const configYAML = `
server:
  listen: ":9090"
jwt:
  secret: s3cret
auth:
  user_backend: file
  user_file: users.yaml
  hash_macro: "{sha256}({salt}{password})"
remote:
  kind: gcs
  credentials_json: "{}"
data:
  retry_interval: 1m
`

const datasetsYAML = `
datasets:
  insercoes:
    file_id: bucket/insercoes.xlsx
    format: xlsx
`

func writeRoot(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0644))
	}
	t.Setenv(utils.RootEnv, root)
	return root
}

func TestLoadState(t *testing.T) {
	writeRoot(t, map[string]string{
		"config.yaml":   configYAML,
		"datasets.yaml": datasetsYAML,
		"users.yaml":    "users:\n  alice:\n    hash: x\n    salt: y\n",
	})
	st, df, err := LoadState("config.yaml", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer st.Auth.Close()

	assert.Equal(t, ":9090", st.Config.Server.Listen)
	assert.Contains(t, st.Auth.Users().Users, "alice")
	d, ok := st.Catalog.Lookup("insercoes")
	require.True(t, ok)
	assert.Equal(t, dataset.FormatXLSX, d.Format)
	assert.Len(t, df.Datasets, 1)
}

func TestLoadStateMissingUsers(t *testing.T) {
	writeRoot(t, map[string]string{
		"config.yaml":   configYAML,
		"datasets.yaml": datasetsYAML,
	})
	_, _, err := LoadState("config.yaml", nil)
	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.File, "users.yaml")
}

type memStore struct{ data []byte }

func (m memStore) FetchMetadata(_ context.Context, id string) (remote.Metadata, error) {
	return remote.Metadata{ID: id, ModTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}, nil
}

func (m memStore) Download(_ context.Context, _ string, w io.Writer) error {
	_, err := io.Copy(w, bytes.NewReader(m.data))
	return err
}

func TestNewDataUsesConfiguredDir(t *testing.T) {
	root := writeRoot(t, nil)
	cfg := &config.Config{}
	cfg.Data.Dir = "cache"
	data, err := newData(memStore{}, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(root, "cache"))
	assert.Equal(t, filepath.Join(root, "cache", "k.parquet"),
		data.Store.Path(dataset.Descriptor{Key: "k", Format: dataset.FormatParquet}))
}

func workbook(t *testing.T, clients ...string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	sh, err := f.AddSheet("Base")
	require.NoError(t, err)
	sh.AddRow().AddCell().SetString("cliente")
	for _, c := range clients {
		sh.AddRow().AddCell().SetString(c)
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestUploadReplacesCachedTable(t *testing.T) {
	writeRoot(t, nil)
	cfg := &config.Config{}
	cfg.Data.Dir = "cache"
	data, err := newData(memStore{data: workbook(t, "C1")}, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	d := dataset.Descriptor{Key: "vendas", FileID: "f", Format: dataset.FormatXLSX}

	snap, err := data.Cache.Get(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Table.Rows())

	up, err := data.Upload(d, bytes.NewReader(workbook(t, "C1", "C2", "C3")))
	require.NoError(t, err)
	assert.Equal(t, 3, up.Table.Rows())

	snap, err = data.Cache.Get(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Table.Rows())
	assert.False(t, snap.Stale)

	_, err = data.Upload(d, bytes.NewReader([]byte("garbage")))
	var de *dataset.DecodeError
	require.ErrorAs(t, err, &de)
	snap, err = data.Cache.Get(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Table.Rows())
}

type evictions struct{ invalidated, forgotten []string }

func (e *evictions) Invalidate(key string) { e.invalidated = append(e.invalidated, key) }
func (e *evictions) Forget(key string)     { e.forgotten = append(e.forgotten, key) }

func TestEvict(t *testing.T) {
	before := &config.DatasetsFile{Datasets: map[string]dataset.Descriptor{
		"a": {FileID: "1", Format: dataset.FormatXLSX},
		"b": {FileID: "2", Format: dataset.FormatXLSX},
		"c": {FileID: "3", Format: dataset.FormatXLSX},
	}}
	after := &config.DatasetsFile{Datasets: map[string]dataset.Descriptor{
		"a": {FileID: "1", Format: dataset.FormatXLSX},
		"b": {FileID: "2", Format: dataset.FormatXLSX, TTL: time.Minute},
		"d": {FileID: "4", Format: dataset.FormatXLSX},
	}}
	var ev evictions
	changed, removed := Evict(&ev, before, after)
	assert.Equal(t, []string{"b"}, changed)
	assert.Equal(t, []string{"c"}, removed)
	assert.Equal(t, []string{"b"}, ev.invalidated)
	assert.Equal(t, []string{"c"}, ev.forgotten)
}
