package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"adinsight/api"
	"adinsight/app"
	"adinsight/config"
	"adinsight/logging"
	"adinsight/report"
	"adinsight/utils"
	"adinsight/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configFile := flag.String("config", "config.yaml", "config file, relative to the project root")
	flag.Parse()

	st, datasets, err := app.LoadState(*configFile, nil)
	if err != nil {
		log.Fatalf("Failed loading configuration: %v", err)
	}
	cfg := st.Config
	logs, err := logging.NewSet(utils.Resolve(cfg.Server.LogDir), cfg.Server.Debug)
	if err != nil {
		log.Fatalf("Failed opening logs: %v", err)
	}
	defer logs.Close()
	defer zap.RedirectStdLog(logs.API.Logger)()
	logger := logs.API.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := app.OpenData(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("data layer", zap.Error(err))
	}
	catalog := st.Catalog
	service := report.NewService(catalog, data.Cache, logs.Report.Logger)
	pool := worker.NewPool(service, utils.Resolve(cfg.Server.OutputDir), cfg.MaxFileAge(), logs.Report.Logger)
	pool.Start(ctx, cfg.Workers)

	srv := api.NewServer(st, service, pool, data, logs)
	httpSrv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sighup:
				logger.Info("reloading configs")
				datasets = reload(*configFile, srv, catalog, data.Cache, datasets, logger)
			}
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("listen", cfg.Server.Listen), zap.Int("workers", cfg.Workers))
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("listen", zap.Error(err))
	}
	pool.Wait()
	if err := srv.State().Auth.Close(); err != nil {
		logger.Warn("close auth", zap.Error(err))
	}
	logger.Info("server stopped")
}

// reload swaps in the new configuration; on error the running one is kept.
// The remote store, listen address and worker count need a restart.
func reload(configFile string, srv *api.Server, catalog *config.Catalog, cache app.Evicter,
	current *config.DatasetsFile, logger *zap.Logger) *config.DatasetsFile {
	st, datasets, err := app.LoadState(configFile, logger)
	if err != nil {
		logger.Error("reload failed, keeping current configuration", zap.Error(err))
		return current
	}
	old := srv.State()
	catalog.Replace(datasets)
	st.Catalog = catalog
	srv.SetState(st)
	changed, removed := app.Evict(cache, current, datasets)
	if err := old.Auth.Close(); err != nil {
		logger.Warn("close previous auth", zap.Error(err))
	}
	if old.Config.Remote != st.Config.Remote || old.Config.Server.Listen != st.Config.Server.Listen {
		logger.Warn("remote and listen settings apply on restart only")
	}
	logger.Info("configs reloaded",
		zap.Int("datasets", len(datasets.Datasets)),
		zap.Strings("changed", changed),
		zap.Strings("removed", removed),
	)
	return datasets
}
