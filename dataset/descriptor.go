package dataset

import (
	"time"
)

type Format string

const (
	FormatParquet Format = "parquet"
	FormatXLSX    Format = "xlsx"
)

func (f Format) Valid() bool {
	return f == FormatParquet || f == FormatXLSX
}

const (
	DefaultTTL           = time.Hour
	DefaultDisplayLayout = "02/01/2006"
	fallbackLayout       = "02/01/2006 15:04"
)

// Descriptor identifies one logical dataset and how to cache and decode it.
type Descriptor struct {
	Key    string        `yaml:"-"`
	FileID string        `yaml:"file_id"`
	Format Format        `yaml:"format"`
	TTL    time.Duration `yaml:"ttl"`

	Categorical   []string `yaml:"categorical,omitempty"`
	Integer       []string `yaml:"integer,omitempty"`
	DateColumn    string   `yaml:"date_column,omitempty"`
	DateOutput    string   `yaml:"date_output,omitempty"`    // défaut: <date_column>_Dt
	DisplayLayout string   `yaml:"display_layout,omitempty"` // layout Go pour "dernière mise à jour"

	DownloadTimeout time.Duration     `yaml:"download_timeout,omitempty"`
	Reserved        []string          `yaml:"reserved,omitempty"`
	AccessQueries   map[string]string `yaml:"access_queries,omitempty"`
}

// LocalName is the deterministic cache file name of the dataset.
func (d Descriptor) LocalName() string {
	return d.Key + "." + string(d.Format)
}

func (d Descriptor) ParsedDateColumn() string {
	if d.DateOutput != "" {
		return d.DateOutput
	}
	if d.DateColumn == "" {
		return ""
	}
	return d.DateColumn + "_Dt"
}

func (d Descriptor) displayLayout() string {
	if d.DisplayLayout != "" {
		return d.DisplayLayout
	}
	return DefaultDisplayLayout
}

func (d Descriptor) ttl(fallback time.Duration) time.Duration {
	if d.TTL > 0 {
		return d.TTL
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultTTL
}

func (d Descriptor) IsReserved(column string) bool {
	for _, r := range d.Reserved {
		if r == column {
			return true
		}
	}
	return false
}
