package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"adinsight/auth"
	"adinsight/report"
	"adinsight/utils"
	"adinsight/worker"
)

// ReportExecuteHandler valide la demande et la place dans la file des workers.
func (s *Server) ReportExecuteHandler(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	st := s.State()

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Bad JSON", http.StatusBadRequest)
		s.logs.Access.Info("execute failed", zap.String("user", u.Name), zap.String("reason", "bad json"))
		return
	}
	spec, err := report.Parse(payload, s.now())
	if err != nil {
		s.logs.Access.Info("execute failed", zap.String("user", u.Name), zap.Error(err))
		writeError(w, err)
		return
	}
	key := st.Catalog.Sources().For(spec.Source())
	d, ok := st.Catalog.Lookup(key)
	if !ok {
		s.logs.Access.Error("report source not configured", zap.String("report", string(spec.Kind())), zap.String("dataset", key))
		writeError(w, report.ErrUnknownDataset)
		return
	}
	cols := st.Catalog.Columns().WithDefaults()
	if problems := auth.CheckRights(spec.Columns(cols), nil, d, u.Admin); len(problems) > 0 {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"error":    "forbidden",
			"problems": problems,
		})
		s.logs.Access.Warn("execute forbidden", zap.String("user", u.Name), zap.Strings("problems", problems))
		return
	}
	access, err := auth.GetAccessFilters(r.Context(), u.Name, u.Admin, d, st.Auth.Users(), st.Auth.DB())
	if err != nil {
		s.logs.Access.Error("access filters", zap.String("user", u.Name), zap.Error(err))
		writeError(w, err)
		return
	}

	id := utils.GenerateRequestID()
	s.pool.Submit(&worker.ReportRequest{
		ID:        id,
		Spec:      spec,
		Access:    access,
		Owner:     u.Name,
		Admin:     u.Admin,
		CreatedAt: s.now(),
	})
	s.logs.Access.Info("execute ok", zap.String("user", u.Name), zap.String("id", id), zap.String("report", string(spec.Kind())))
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}
