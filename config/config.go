package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"adinsight/remote"
	"adinsight/utils"
)

type Config struct {
	Server          ServerConfig `yaml:"server"`
	JWT             JWTConfig    `yaml:"jwt"`
	Auth            AuthConfig   `yaml:"auth"`
	Data            DataConfig   `yaml:"data"`
	Remote          RemoteConfig `yaml:"remote"`
	Workers         int          `yaml:"workers"`
	MaxFileAgeHours int          `yaml:"max_file_age_hours"` // durée max en heures
}

type ServerConfig struct {
	Listen        string            `yaml:"listen"`
	Static        string            `yaml:"static"`
	StaticDefault string            `yaml:"static_default"`
	StaticAllowed []string          `yaml:"static_allowed"`
	LogDir        string            `yaml:"log_dir"`
	OutputDir     string            `yaml:"output_dir"` // csv/ et xls/ des rapports
	CORSOrigins   []string          `yaml:"cors_origins"`
	TemplateVars  map[string]string `yaml:"template_vars"`
	Debug         bool              `yaml:"debug"`
}

type JWTConfig struct {
	Secret            string `yaml:"secret"`
	ExpirationMinutes int    `yaml:"expiration_minutes"`
}

type AuthConfig struct {
	UserBackend string `yaml:"user_backend"` // "file", "mysql", "postgres", "sqlite"
	UserFile    string `yaml:"user_file"`
	HashMacro   string `yaml:"hash_macro"`
	Salt        string `yaml:"salt"`
	DBDSN       string `yaml:"db_dsn"`
	UserRequest string `yaml:"user_request"` // ex: SELECT hash, salt, is_admin FROM users WHERE name = ? AND pass = ?
	DBHashMacro string `yaml:"db_hash_macro"`
	DBPassHash  bool   `yaml:"db_pass_hash"`
}

type DataConfig struct {
	Dir           string        `yaml:"dir"`
	DatasetsFile  string        `yaml:"datasets_file"`
	DefaultTTL    time.Duration `yaml:"default_ttl"`
	RetryInterval time.Duration `yaml:"retry_interval"` // 0 = nouvel essai au prochain accès
}

type RemoteConfig struct {
	Kind            string        `yaml:"kind"` // drive | gcs
	CredentialsFile string        `yaml:"credentials_file"`
	CredentialsJSON string        `yaml:"credentials_json"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
}

const (
	defaultListen          = ":8080"
	defaultWorkers         = 5
	defaultDownloadTimeout = 2 * time.Minute
)

// LoadConfig lit file (relatif à la racine du projet) et valide le résultat.
func LoadConfig(file string) (*Config, error) {
	path := utils.Resolve(file)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{File: path, Err: err}
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, &Error{File: path, Err: err}
	}
	return cfg, nil
}

func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = defaultListen
	}
	if c.Server.LogDir == "" {
		c.Server.LogDir = "log"
	}
	if c.Server.OutputDir == "" {
		c.Server.OutputDir = "output"
	}
	if c.Data.Dir == "" {
		c.Data.Dir = "data"
	}
	if c.Data.DatasetsFile == "" {
		c.Data.DatasetsFile = "datasets.yaml"
	}
	if c.Remote.Kind == "" {
		c.Remote.Kind = remote.KindDrive
	}
	if c.Remote.DownloadTimeout == 0 {
		c.Remote.DownloadTimeout = defaultDownloadTimeout
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.JWT.ExpirationMinutes <= 0 {
		c.JWT.ExpirationMinutes = 60
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs *multierror.Error
	if c.JWT.Secret == "" {
		errs = multierror.Append(errs, fmt.Errorf("jwt.secret is required"))
	}
	switch c.Auth.UserBackend {
	case "file":
		if c.Auth.UserFile == "" {
			errs = multierror.Append(errs, fmt.Errorf("auth.user_file is required for the file backend"))
		}
		if c.Auth.HashMacro == "" {
			errs = multierror.Append(errs, fmt.Errorf("auth.hash_macro is required for the file backend"))
		}
	case "mysql", "postgres", "sqlite":
		if c.Auth.DBDSN == "" || c.Auth.UserRequest == "" {
			errs = multierror.Append(errs, fmt.Errorf("auth.db_dsn and auth.user_request are required for the %s backend", c.Auth.UserBackend))
		}
	default:
		errs = multierror.Append(errs, fmt.Errorf("auth.user_backend %q is not supported", c.Auth.UserBackend))
	}
	switch c.Remote.Kind {
	case remote.KindDrive, remote.KindGCS:
	default:
		errs = multierror.Append(errs, fmt.Errorf("remote.kind %q is not supported", c.Remote.Kind))
	}
	if c.Remote.CredentialsFile == "" && c.Remote.CredentialsJSON == "" {
		errs = multierror.Append(errs, fmt.Errorf("remote.credentials_file or remote.credentials_json is required"))
	}
	if c.Data.DefaultTTL < 0 || c.Data.RetryInterval < 0 || c.Remote.DownloadTimeout < 0 {
		errs = multierror.Append(errs, fmt.Errorf("durations must not be negative"))
	}
	return errs.ErrorOrNil()
}

// Credentials renvoie le JSON du compte de service (inline prioritaire).
func (c *Config) Credentials() ([]byte, error) {
	if c.Remote.CredentialsJSON != "" {
		return []byte(c.Remote.CredentialsJSON), nil
	}
	path := utils.Resolve(c.Remote.CredentialsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{File: path, Err: err}
	}
	return data, nil
}

// MaxFileAge is how long report outputs are kept, 0 meaning forever.
func (c *Config) MaxFileAge() time.Duration {
	return time.Duration(c.MaxFileAgeHours) * time.Hour
}
