package api

import (
	"net/http"

	"adinsight/worker"
)

// lookupReport applique la règle de propriété: un non-admin ne voit que ses rapports.
func (s *Server) lookupReport(r *http.Request) (worker.ReportResult, error) {
	u := userFrom(r.Context())
	id := r.URL.Query().Get("id")
	rr, err := s.pool.Status(id)
	if err != nil {
		return rr, err
	}
	if !u.Admin && rr.Owner != u.Name {
		return worker.ReportResult{}, worker.ErrUnknownRequest
	}
	return rr, nil
}

func (s *Server) ReportStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("id") == "" {
		http.Error(w, "Missing id", http.StatusBadRequest)
		return
	}
	rr, err := s.lookupReport(r)
	if err != nil {
		writeError(w, err)
		return
	}
	out := map[string]interface{}{
		"status": rr.Status,
	}
	status := http.StatusOK
	switch rr.Status {
	case worker.StatusComplete:
		out["result"] = rr.Result
	case worker.StatusError:
		out["error"] = rr.ErrorMsg
		status = httpStatus(rr.Err)
	}
	writeJSON(w, status, out)
}
