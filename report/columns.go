package report

// Columns maps the logical fields reports use to dataset column names.
type Columns struct {
	// base d'inserções
	Date       string   `yaml:"date"`
	Market     string   `yaml:"market"`
	Station    string   `yaml:"station"`
	Advertiser string   `yaml:"advertiser"`
	Volume     string   `yaml:"volume"`
	Detail     []string `yaml:"detail,omitempty"`

	// base de vendas
	SalesDate      string            `yaml:"sales_date"`
	Year           string            `yaml:"year"`
	Month          string            `yaml:"month"`
	Client         string            `yaml:"client"`
	Revenue        string            `yaml:"revenue"`
	Insertions     string            `yaml:"insertions"`
	SalesStation   string            `yaml:"sales_station"`
	Executive      string            `yaml:"executive"`
	StationAliases map[string]string `yaml:"station_aliases,omitempty"`
}

func DefaultColumns() Columns {
	return Columns{
		Date:       "Data_Dt",
		Market:     "Praca",
		Station:    "Emissora",
		Advertiser: "Anunciante",
		Volume:     "Volume de Insercoes",
		Detail:     []string{"Data_Dt", "Anunciante", "Anuncio", "Duracao", "Praca", "Emissora", "Tipo", "DayPart", "Volume de Insercoes"},

		SalesDate:    "data_ref_Dt",
		Year:         "ano",
		Month:        "mes",
		Client:       "cliente",
		Revenue:      "faturamento",
		Insertions:   "insercoes",
		SalesStation: "emissora",
		Executive:    "executivo",
		StationAliases: map[string]string{
			"Thathi": "Thathi Tv",
			"Th+":    "Th+ Prime",
		},
	}
}

// WithDefaults fills every empty field from DefaultColumns.
func (c Columns) WithDefaults() Columns {
	d := DefaultColumns()
	set := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	set(&c.Date, d.Date)
	set(&c.Market, d.Market)
	set(&c.Station, d.Station)
	set(&c.Advertiser, d.Advertiser)
	set(&c.Volume, d.Volume)
	set(&c.SalesDate, d.SalesDate)
	set(&c.Year, d.Year)
	set(&c.Month, d.Month)
	set(&c.Client, d.Client)
	set(&c.Revenue, d.Revenue)
	set(&c.Insertions, d.Insertions)
	set(&c.SalesStation, d.SalesStation)
	set(&c.Executive, d.Executive)
	if c.Detail == nil {
		c.Detail = d.Detail
	}
	if c.StationAliases == nil {
		c.StationAliases = d.StationAliases
	}
	return c
}

// detailLabels renames source columns in the detail sheets.
var detailLabels = map[string]string{
	"Data_Dt":             "Data",
	"Praca":               "Praça",
	"Anuncio":             "Anúncio",
	"Duracao":             "Duração",
	"Emissora":            "Veículo",
	"Volume de Insercoes": "Inserções",
}

// Sources names the dataset each family of reports reads.
type Sources struct {
	Insertions string `yaml:"insertions"`
	Sales      string `yaml:"sales"`
}

func (s Sources) For(source Source) string {
	if source == SourceSales {
		return s.Sales
	}
	return s.Insertions
}
