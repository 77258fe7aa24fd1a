// Package app assemble la configuration, l'authentification et la couche
// de données à partir des fichiers YAML du projet.
package app

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"sort"

	"go.uber.org/zap"

	"adinsight/api"
	"adinsight/auth"
	"adinsight/config"
	"adinsight/dataset"
	"adinsight/remote"
	"adinsight/utils"
)

// LoadState lit config.yaml, le fichier des datasets et, pour le backend
// "file", users.yaml.
func LoadState(configFile string, logger *zap.Logger) (*api.State, *config.DatasetsFile, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	df, err := config.LoadDatasets(cfg.Data.DatasetsFile)
	if err != nil {
		return nil, nil, err
	}
	var users *auth.UsersFile
	if cfg.Auth.UserBackend == "file" {
		if users, err = auth.LoadUsers(utils.Resolve(cfg.Auth.UserFile)); err != nil {
			return nil, nil, &config.Error{File: utils.Resolve(cfg.Auth.UserFile), Err: err}
		}
	}
	authn, err := auth.NewAuthenticator(cfg.Auth, users, logger)
	if err != nil {
		return nil, nil, err
	}
	return &api.State{Config: cfg, Auth: authn, Catalog: config.NewCatalog(df)}, df, nil
}

// Data is the refresh pipeline shared by the server and the CLI.
type Data struct {
	Store *dataset.LocalStore
	Cache *dataset.Cache
}

func OpenData(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Data, error) {
	creds, err := cfg.Credentials()
	if err != nil {
		return nil, err
	}
	rs, err := remote.New(ctx, cfg.Remote.Kind, creds)
	if err != nil {
		return nil, fmt.Errorf("remote store: %w", err)
	}
	return newData(rs, cfg, logger)
}

func newData(rs remote.Store, cfg *config.Config, logger *zap.Logger) (*Data, error) {
	store, err := dataset.NewLocalStore(utils.Resolve(cfg.Data.Dir), rs, cfg.Remote.DownloadTimeout, logger)
	if err != nil {
		return nil, err
	}
	cache := dataset.NewCache(dataset.NewPipeline(store, logger), logger,
		dataset.WithDefaultTTL(cfg.Data.DefaultTTL),
		dataset.WithRetryInterval(cfg.Data.RetryInterval),
	)
	return &Data{Store: store, Cache: cache}, nil
}

// Upload remplace la copie locale par le fichier envoyé puis invalide le
// cache: le prochain rapport lit le fichier envoyé.
func (d *Data) Upload(desc dataset.Descriptor, r io.Reader) (*dataset.Snapshot, error) {
	snap, err := d.Store.Replace(desc, r)
	if err != nil {
		return nil, err
	}
	d.Cache.Invalidate(desc.Key)
	return snap, nil
}

// Evicter is the part of the dataset cache a reload touches.
type Evicter interface {
	Invalidate(key string)
	Forget(key string)
}

// Evict brings cache in line with a new datasets file: changed descriptors
// refresh on next access, removed datasets are dropped with their table.
func Evict(cache Evicter, before, after *config.DatasetsFile) (changed, removed []string) {
	for k, d := range before.Datasets {
		n, ok := after.Datasets[k]
		switch {
		case !ok:
			cache.Forget(k)
			removed = append(removed, k)
		case !reflect.DeepEqual(d, n):
			cache.Invalidate(k)
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	sort.Strings(removed)
	return changed, removed
}
