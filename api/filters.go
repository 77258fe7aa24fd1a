package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"adinsight/auth"
	"adinsight/report"
)

type FilterRequest struct {
	Dataset string `json:"dataset"`
	Column  string `json:"column"`
}

type FilterResponse struct {
	Values []string `json:"values"`
}

// FilterValuesHandler renvoie les valeurs distinctes d'une colonne, restreintes
// aux droits de l'utilisateur.
func (s *Server) FilterValuesHandler(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	st := s.State()

	var filterReq FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&filterReq); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if filterReq.Column == "" || filterReq.Dataset == "" {
		http.Error(w, "Column and Dataset are required", http.StatusBadRequest)
		return
	}
	d, ok := st.Catalog.Lookup(filterReq.Dataset)
	if !ok {
		http.Error(w, "Dataset not found in configuration", http.StatusNotFound)
		return
	}
	if problems := auth.CheckRights([]string{filterReq.Column}, nil, d, u.Admin); len(problems) > 0 {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "forbidden", "problems": problems})
		s.logs.Access.Warn("filter values forbidden", zap.String("user", u.Name), zap.Strings("problems", problems))
		return
	}
	access, err := auth.GetAccessFilters(r.Context(), u.Name, u.Admin, d, st.Auth.Users(), st.Auth.DB())
	if err != nil {
		s.logs.Access.Error("access filters", zap.String("user", u.Name), zap.Error(err))
		writeError(w, err)
		return
	}
	values, err := s.service.Values(r.Context(), d.Key, filterReq.Column, report.AccessFilters(access))
	if errors.Is(err, report.ErrMissingColumn) {
		http.Error(w, "Column not found in dataset", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logs.Access.Warn("filter values", zap.String("user", u.Name), zap.String("dataset", d.Key), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FilterResponse{Values: values})
}
