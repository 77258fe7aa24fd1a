package config

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"adinsight/dataset"
	"adinsight/report"
	"adinsight/utils"
)

// DatasetsFile est le contenu de datasets.yaml.
type DatasetsFile struct {
	Datasets map[string]dataset.Descriptor `yaml:"datasets"`
	Reports  report.Sources                `yaml:"reports"`
	Columns  report.Columns                `yaml:"columns"`
}

func LoadDatasets(file string) (*DatasetsFile, error) {
	path := utils.Resolve(file)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{File: path, Err: err}
	}
	df, err := ParseDatasets(data)
	if err != nil {
		return nil, &Error{File: path, Err: err}
	}
	return df, nil
}

func ParseDatasets(data []byte) (*DatasetsFile, error) {
	var df DatasetsFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return nil, err
	}
	for key, d := range df.Datasets {
		d.Key = key
		df.Datasets[key] = d
	}
	df.Columns = df.Columns.WithDefaults()
	if err := df.Validate(); err != nil {
		return nil, err
	}
	return &df, nil
}

func (df *DatasetsFile) Validate() error {
	var errs *multierror.Error
	if len(df.Datasets) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("no dataset declared"))
	}
	keys := make([]string, 0, len(df.Datasets))
	for k := range df.Datasets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		d := df.Datasets[key]
		if d.FileID == "" {
			errs = multierror.Append(errs, fmt.Errorf("dataset %s: file_id is required", key))
		}
		if !d.Format.Valid() {
			errs = multierror.Append(errs, fmt.Errorf("dataset %s: format %q is not parquet or xlsx", key, d.Format))
		}
		if d.TTL < 0 {
			errs = multierror.Append(errs, fmt.Errorf("dataset %s: negative ttl", key))
		}
	}
	for _, ref := range []struct{ name, key string }{
		{"reports.insertions", df.Reports.Insertions},
		{"reports.sales", df.Reports.Sales},
	} {
		if ref.key == "" {
			continue
		}
		if _, ok := df.Datasets[ref.key]; !ok {
			errs = multierror.Append(errs, fmt.Errorf("%s: unknown dataset %q", ref.name, ref.key))
		}
	}
	return errs.ErrorOrNil()
}

// Catalog sert le DatasetsFile courant; Replace l'échange lors d'un SIGHUP.
type Catalog struct {
	mu   sync.RWMutex
	file *DatasetsFile
}

func NewCatalog(df *DatasetsFile) *Catalog {
	return &Catalog{file: df}
}

func (c *Catalog) Replace(df *DatasetsFile) {
	c.mu.Lock()
	c.file = df
	c.mu.Unlock()
}

func (c *Catalog) Lookup(key string) (dataset.Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.file.Datasets[key]
	d.Key = key
	return d, ok
}

// Keys returns the dataset keys, sorted.
func (c *Catalog) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.file.Datasets))
	for k := range c.file.Datasets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Catalog) Sources() report.Sources {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.file.Reports
}

func (c *Catalog) Columns() report.Columns {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.file.Columns
}
