package api

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"adinsight/auth"
	"adinsight/config"
	"adinsight/logging"
	"adinsight/report"
	"adinsight/static"
	"adinsight/worker"
)

// State est ce que recharge un SIGHUP.
type State struct {
	Config  *config.Config
	Auth    *auth.Authenticator
	Catalog *config.Catalog
}

type Server struct {
	state   atomic.Pointer[State]
	service *report.Service
	pool    *worker.Pool
	uploads Uploader
	logs    *logging.Set
	now     func() time.Time
}

// NewServer wires the handlers. A nil uploads disables manual uploads.
func NewServer(st *State, service *report.Service, pool *worker.Pool, uploads Uploader, logs *logging.Set) *Server {
	if logs == nil {
		logs = logging.NopSet()
	}
	s := &Server{service: service, pool: pool, uploads: uploads, logs: logs, now: time.Now}
	s.state.Store(st)
	return s
}

// SetState remplace la configuration servie (rechargement à chaud).
func (s *Server) SetState(st *State) { s.state.Store(st) }

func (s *Server) State() *State { return s.state.Load() }

func (s *Server) Routes() http.Handler {
	st := s.State()
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   st.Config.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Post("/api/login", s.LoginHandler)
	r.Group(func(r chi.Router) {
		r.Use(s.requireJWT)
		r.Get("/api/datasets", s.DatasetsHandler)
		r.Get("/api/datasets/status", s.DatasetsStatusHandler)
		if s.uploads != nil {
			r.Post("/api/datasets/{key}/upload", s.DatasetUploadHandler)
		}
		r.Post("/api/filters/values", s.FilterValuesHandler)
		r.Post("/api/reports/execute", s.ReportExecuteHandler)
		r.Get("/api/reports/status", s.ReportStatusHandler)
		r.Get("/api/reports/download", s.DownloadReportHandler)
	})
	r.Handle("/*", static.Handler(func() config.ServerConfig {
		return s.State().Config.Server
	}, s.logs.Access.Logger))
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := s.now()
		next.ServeHTTP(ww, r)
		s.logs.API.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", s.now().Sub(start)),
			zap.String("remote", r.RemoteAddr),
		)
	})
}
