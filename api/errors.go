package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"adinsight/auth"
	"adinsight/dataset"
	"adinsight/report"
	"adinsight/worker"
)

// httpStatus traduit la taxonomie d'erreurs en code HTTP.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, report.ErrInvalidParams):
		return http.StatusUnprocessableEntity
	case errors.Is(err, report.ErrUnknownDataset), errors.Is(err, worker.ErrUnknownRequest):
		return http.StatusNotFound
	case errors.Is(err, dataset.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	// *dataset.DecodeError, *config.Error et le reste
	return http.StatusInternalServerError
}

// publicMessage ne renvoie jamais de chemin ni de détail interne pour les erreurs 5xx.
func publicMessage(status int, err error) string {
	switch status {
	case http.StatusServiceUnavailable:
		return "data temporarily unavailable"
	case http.StatusInternalServerError, http.StatusGatewayTimeout:
		return http.StatusText(status)
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	writeJSON(w, status, map[string]string{"error": publicMessage(status, err)})
}
