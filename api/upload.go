package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"adinsight/dataset"
	"adinsight/report"
)

// maxUploadSize borne le corps d'un upload manuel.
const maxUploadSize = 256 << 20

// Uploader remplace la copie locale d'un dataset et invalide son cache.
type Uploader interface {
	Upload(d dataset.Descriptor, r io.Reader) (*dataset.Snapshot, error)
}

// DatasetUploadHandler lets an administrator override the remote file of a
// dataset with a multipart "file" field in the dataset's format. The upload
// is served until the remote file is modified again.
func (s *Server) DatasetUploadHandler(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	if !u.Admin {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin only"})
		return
	}
	key := chi.URLParam(r, "key")
	d, ok := s.State().Catalog.Lookup(key)
	if !ok {
		writeError(w, fmt.Errorf("%w: %q", report.ErrUnknownDataset, key))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file"})
		return
	}
	defer file.Close()
	defer r.MultipartForm.RemoveAll()
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), "."); ext != string(d.Format) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "expected a ." + string(d.Format) + " file"})
		return
	}

	snap, err := s.uploads.Upload(d, file)
	if err != nil {
		var de *dataset.DecodeError
		if errors.As(err, &de) {
			s.logs.Access.Warn("upload rejected", zap.String("user", u.Name), zap.String("dataset", key), zap.Error(err))
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "invalid " + string(d.Format) + " file"})
			return
		}
		s.logs.Access.Error("upload failed", zap.String("user", u.Name), zap.String("dataset", key), zap.Error(err))
		writeError(w, err)
		return
	}
	s.logs.Access.Info("dataset uploaded",
		zap.String("user", u.Name),
		zap.String("dataset", key),
		zap.String("filename", header.Filename),
		zap.Int64("bytes", header.Size),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"key":          key,
		"rows":         snap.Table.Rows(),
		"last_updated": snap.LastUpdated,
	})
}
