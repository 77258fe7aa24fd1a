package api

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"adinsight/worker"
)

// DownloadReportHandler télécharge le CSV ou l'Excel du rapport demandé
// Paramètre GET: id (obligatoire), type=csv|excel (optionnel, défaut: csv)
func (s *Server) DownloadReportHandler(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	reportID := r.URL.Query().Get("id")
	if reportID == "" {
		http.Error(w, "Paramètre id manquant", http.StatusBadRequest)
		return
	}
	rr, err := s.lookupReport(r)
	if err != nil {
		writeError(w, err)
		return
	}
	switch rr.Status {
	case worker.StatusComplete:
	case worker.StatusError:
		writeJSON(w, httpStatus(rr.Err), map[string]string{"error": rr.ErrorMsg})
		return
	case worker.StatusExpired:
		http.Error(w, "Rapport expiré", http.StatusGone)
		return
	default:
		http.Error(w, "Rapport en cours de génération", http.StatusConflict)
		return
	}

	fileType := r.URL.Query().Get("type")
	if fileType == "" {
		fileType = "csv"
	}
	var filePath, contentType, fileName string
	switch strings.ToLower(fileType) {
	case "excel", "xlsx":
		filePath = rr.XLSPath
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		fileName = fmt.Sprintf("report_%s.xlsx", reportID)
	default:
		filePath = rr.CSVPath
		contentType = "text/csv"
		fileName = fmt.Sprintf("report_%s.csv", reportID)
	}
	if _, err := os.Stat(filePath); err != nil {
		http.Error(w, "Fichier non trouvé pour ce rapport", http.StatusNotFound)
		return
	}
	s.logs.Access.Info("download", zap.String("user", u.Name), zap.String("id", reportID), zap.String("type", fileType))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", fileName))
	http.ServeFile(w, r, filePath)
}
