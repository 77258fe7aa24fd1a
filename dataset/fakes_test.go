package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"

	"adinsight/remote"
)

type remoteFile struct {
	data    []byte
	modTime time.Time
}

// fakeRemote is an in-memory remote.Store.
type fakeRemote struct {
	mu        sync.Mutex
	files     map[string]remoteFile
	statErr   error
	fetchErr  error
	block     bool
	stats     int
	downloads int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{files: make(map[string]remoteFile)}
}

func (f *fakeRemote) put(id string, data []byte, modTime time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[id] = remoteFile{data: data, modTime: modTime}
}

func (f *fakeRemote) FetchMetadata(ctx context.Context, id string) (remote.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats++
	if f.statErr != nil {
		return remote.Metadata{}, f.statErr
	}
	file, ok := f.files[id]
	if !ok {
		return remote.Metadata{}, fmt.Errorf("%s: %w", id, remote.ErrNotFound)
	}
	return remote.Metadata{ID: id, ModTime: file.modTime, Size: int64(len(file.data))}, nil
}

func (f *fakeRemote) Download(ctx context.Context, id string, w io.Writer) error {
	f.mu.Lock()
	f.downloads++
	file, ok := f.files[id]
	fetchErr, block := f.fetchErr, f.block
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, remote.ErrNotFound)
	}
	if block {
		// writes half the file, then waits for the deadline
		if _, err := w.Write(file.data[:len(file.data)/2]); err != nil {
			return err
		}
		<-ctx.Done()
		return fmt.Errorf("%w: %w", remote.ErrConnection, ctx.Err())
	}
	if fetchErr != nil {
		w.Write(file.data[:len(file.data)/2])
		return fetchErr
	}
	_, err := io.Copy(w, bytes.NewReader(file.data))
	return err
}

func (f *fakeRemote) counts() (stats, downloads int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats, f.downloads
}

type insertionRow struct {
	Data       string  `parquet:"Data"`
	Praca      string  `parquet:"Praca"`
	Emissora   string  `parquet:"Emissora"`
	Anunciante *string `parquet:"Anunciante,optional"`
	Volume     int64   `parquet:"Volume"`
	Preco      float64 `parquet:"Preco"`
}

func strPtr(s string) *string { return &s }

func sampleInsertions() []insertionRow {
	return []insertionRow{
		{Data: "05/01/2024", Praca: "SP", Emissora: "TV A", Anunciante: strPtr("Acme"), Volume: 3, Preco: 10.5},
		{Data: "06/01/2024", Praca: "RJ", Emissora: "TV B", Anunciante: strPtr("Beta"), Volume: 120, Preco: 2},
		{Data: "not a date", Praca: "SP", Emissora: "TV A", Anunciante: nil, Volume: 7, Preco: 1},
		{Data: "31/01/2024", Praca: "SP", Emissora: "TV B", Anunciante: strPtr("Acme"), Volume: 1, Preco: 0.25},
	}
}

func insertionDescriptor() Descriptor {
	return Descriptor{
		Key:         "insercoes",
		FileID:      "file-insercoes",
		Format:      FormatParquet,
		Categorical: []string{"Praca", "Emissora", "Anunciante"},
		Integer:     []string{"Volume"},
		DateColumn:  "Data",
	}
}

func writeParquet(t *testing.T, dir string, rows []insertionRow) string {
	t.Helper()
	path := filepath.Join(dir, "insercoes.parquet")
	require.NoError(t, parquet.WriteFile(path, rows))
	return path
}

func parquetBytes(t *testing.T, rows []insertionRow) []byte {
	t.Helper()
	data, err := os.ReadFile(writeParquet(t, t.TempDir(), rows))
	require.NoError(t, err)
	return data
}

// writeXLSX saves a single-sheet workbook. Cells are written as numbers when
// given as int or float64, as text otherwise; nil leaves the cell empty.
func writeXLSX(t *testing.T, path string, rows [][]any) {
	t.Helper()
	f := xlsx.NewFile()
	sh, err := f.AddSheet("Base")
	require.NoError(t, err)
	for _, r := range rows {
		row := sh.AddRow()
		for _, v := range r {
			cell := row.AddCell()
			switch x := v.(type) {
			case nil:
			case int:
				cell.SetInt(x)
			case float64:
				cell.SetFloat(x)
			default:
				cell.SetString(fmt.Sprint(x))
			}
		}
	}
	require.NoError(t, f.Save(path))
}
