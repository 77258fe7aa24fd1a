package report

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"adinsight/dataset"
)

var ErrUnknownDataset = errors.New("unknown dataset")

type Catalog interface {
	Lookup(key string) (dataset.Descriptor, bool)
	Sources() Sources
	Columns() Columns
}

type Cache interface {
	Get(ctx context.Context, d dataset.Descriptor) (*dataset.Snapshot, error)
}

// AccessFilters restricts a user to the listed values of each column.
type AccessFilters map[string][]string

// Service runs reports against cached snapshots. It never mutates a snapshot
// table; restrictions produce views.
type Service struct {
	catalog Catalog
	cache   Cache
	logger  *zap.Logger
}

func NewService(catalog Catalog, cache Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{catalog: catalog, cache: cache, logger: logger}
}

func (s *Service) snapshot(ctx context.Context, key string) (dataset.Descriptor, *dataset.Snapshot, error) {
	d, ok := s.catalog.Lookup(key)
	if !ok {
		return d, nil, fmt.Errorf("%w: %q", ErrUnknownDataset, key)
	}
	snap, err := s.cache.Get(ctx, d)
	if err != nil {
		return d, nil, err
	}
	return d, snap, nil
}

// Run builds spec over the dataset its source maps to.
func (s *Service) Run(ctx context.Context, spec Spec, access AccessFilters) (*Result, error) {
	key := s.catalog.Sources().For(spec.Source())
	_, snap, err := s.snapshot(ctx, key)
	if err != nil {
		return nil, err
	}
	cols := s.catalog.Columns().WithDefaults()

	var res *Result
	if snap.Empty() {
		res = &Result{Kind: spec.Kind(), Empty: true, Message: "Base de dados sem registros."}
	} else {
		t, err := Restrict(snap.Table, access)
		if err != nil {
			return nil, err
		}
		if res, err = spec.Build(t, cols); err != nil {
			return nil, fmt.Errorf("%s report: %w", spec.Kind(), err)
		}
	}
	res.Dataset = key
	res.LastUpdated = snap.LastUpdated
	res.Stale = snap.Stale
	s.logger.Debug("report built",
		zap.String("kind", string(spec.Kind())),
		zap.String("dataset", key),
		zap.Bool("stale", res.Stale),
		zap.Bool("empty", res.Empty),
	)
	return res, nil
}

// Values lists the distinct values of column visible to a user.
func (s *Service) Values(ctx context.Context, key, column string, access AccessFilters) ([]string, error) {
	_, snap, err := s.snapshot(ctx, key)
	if err != nil {
		return nil, err
	}
	if snap.Empty() {
		return []string{}, nil
	}
	t, err := Restrict(snap.Table, access)
	if err != nil {
		return nil, err
	}
	return DistinctValues(t, column)
}

// Snapshot exposes the cached snapshot of key, for status listings.
func (s *Service) Snapshot(ctx context.Context, key string) (*dataset.Snapshot, error) {
	_, snap, err := s.snapshot(ctx, key)
	return snap, err
}

// Cached returns the snapshot currently held for key without refreshing it.
// Caches that cannot peek report nothing cached.
func (s *Service) Cached(key string) (*dataset.Snapshot, bool) {
	p, ok := s.cache.(interface {
		Peek(key string) (*dataset.Snapshot, bool)
	})
	if !ok {
		return nil, false
	}
	return p.Peek(key)
}

// Restrict keeps the rows allowed by every filter. A column listed with no
// value hides every row.
func Restrict(t *dataset.Table, access AccessFilters) (*dataset.Table, error) {
	if len(access) == 0 {
		return t, nil
	}
	rows := allRows(t)
	for name, allowed := range access {
		c, err := lookup(t, name)
		if err != nil {
			return nil, err
		}
		rows = setOf(allowed).where(c, rows)
	}
	return t.Take(rows), nil
}

func DistinctValues(t *dataset.Table, column string) ([]string, error) {
	c, err := lookup(t, column)
	if err != nil {
		return nil, err
	}
	if cat, ok := c.(*dataset.CategoricalColumn); ok {
		used := make([]bool, cat.NumLevels())
		for i := 0; i < cat.Len(); i++ {
			if code := cat.Code(i); code >= 0 {
				used[code] = true
			}
		}
		out := make([]string, 0, len(used))
		for code, ok := range used {
			if ok {
				out = append(out, cat.Level(int32(code)))
			}
		}
		sort.Strings(out)
		return out, nil
	}
	return distinct(c, allRows(t)).sorted(), nil
}
