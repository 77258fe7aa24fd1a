package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

type columnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type datasetInfo struct {
	Key         string       `json:"key"`
	Format      string       `json:"format"`
	Rows        int          `json:"rows"`
	Columns     []columnInfo `json:"columns"`
	LastUpdated string       `json:"last_updated,omitempty"`
	RefreshedAt *time.Time   `json:"refreshed_at,omitempty"`
	Stale       bool         `json:"stale"`
	Error       string       `json:"error,omitempty"`
}

// DatasetsHandler liste les datasets et leur fraîcheur; les colonnes réservées
// ne sont montrées qu'aux administrateurs.
func (s *Server) DatasetsHandler(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	cat := s.State().Catalog
	out := make([]datasetInfo, 0)
	for _, key := range cat.Keys() {
		d, _ := cat.Lookup(key)
		info := datasetInfo{Key: key, Format: string(d.Format), Columns: []columnInfo{}}
		snap, err := s.service.Snapshot(r.Context(), key)
		if err != nil {
			s.logs.Access.Warn("dataset unavailable", zap.String("dataset", key), zap.Error(err))
			info.Error = publicMessage(httpStatus(err), err)
			out = append(out, info)
			continue
		}
		info.LastUpdated = snap.LastUpdated
		info.Stale = snap.Stale
		if !snap.RefreshedAt.IsZero() {
			t := snap.RefreshedAt
			info.RefreshedAt = &t
		}
		if snap.Table != nil {
			info.Rows = snap.Table.Rows()
			for _, c := range snap.Table.Columns() {
				if d.IsReserved(c.Name()) && !u.Admin {
					continue
				}
				info.Columns = append(info.Columns, columnInfo{Name: c.Name(), Type: c.Kind().String()})
			}
		}
		out = append(out, info)
	}
	s.logs.Access.Info("datasets", zap.String("user", u.Name))
	writeJSON(w, http.StatusOK, map[string]any{"datasets": out})
}

type cacheStatus struct {
	Key          string     `json:"key"`
	Loaded       bool       `json:"loaded"`
	Rows         int        `json:"rows,omitempty"`
	LastUpdated  string     `json:"last_updated,omitempty"`
	RefreshedAt  *time.Time `json:"refreshed_at,omitempty"`
	Stale        bool       `json:"stale"`
	RefreshError string     `json:"refresh_error,omitempty"`
}

// DatasetsStatusHandler montre l'état du cache sans déclencher de rafraîchissement.
func (s *Server) DatasetsStatusHandler(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	out := make([]cacheStatus, 0)
	for _, key := range s.State().Catalog.Keys() {
		st := cacheStatus{Key: key}
		if snap, ok := s.service.Cached(key); ok {
			st.Loaded = true
			st.LastUpdated = snap.LastUpdated
			st.Stale = snap.Stale
			if snap.Table != nil {
				st.Rows = snap.Table.Rows()
			}
			if !snap.RefreshedAt.IsZero() {
				t := snap.RefreshedAt
				st.RefreshedAt = &t
			}
			// le détail n'est montré qu'aux administrateurs
			if snap.RefreshErr != nil && u.Admin {
				st.RefreshError = snap.RefreshErr.Error()
			}
		}
		out = append(out, st)
	}
	writeJSON(w, http.StatusOK, map[string]any{"datasets": out})
}
