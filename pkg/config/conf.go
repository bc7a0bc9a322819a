package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/riskpulse/pkg/data"
	"github.com/mchmarny/riskpulse/pkg/loan"
	"github.com/mchmarny/riskpulse/pkg/model"
	"github.com/mchmarny/riskpulse/pkg/net"
	"github.com/mchmarny/riskpulse/pkg/policy"
	"github.com/mchmarny/riskpulse/pkg/report"
	"github.com/mchmarny/riskpulse/pkg/risk"
	"github.com/mchmarny/riskpulse/pkg/stress"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "config.yaml"
	AppDirName     = ".riskpulse"

	FormatJSON = "json"
	FormatYAML = "yaml"

	SyntheticRecordsDefault = 1000

	dirMode  = 0700
	fileMode = 0600
)

// Config represents app config object.
type Config struct {
	Model  ModelConfig   `yaml:"model"`
	Risk   RiskConfig    `yaml:"risk"`
	Policy policy.Policy `yaml:"policy"`
	Data   DataConfig    `yaml:"data"`
	Store  StoreConfig   `yaml:"store"`
	Output OutputConfig  `yaml:"output"`
}

type ModelConfig struct {
	Family       string  `yaml:"family"`
	TestFraction float64 `yaml:"test_fraction"`
	Seed         uint64  `yaml:"seed"`
}

type RiskConfig struct {
	LGD    float64 `yaml:"lgd"`
	Stress string  `yaml:"stress"`
	Bins   int     `yaml:"bins"`
}

// DataConfig points at the loan book. An empty Path uses a synthetic book.
type DataConfig struct {
	Path             string `yaml:"path"`
	SyntheticRecords int    `yaml:"synthetic_records"`
	SyntheticSeed    uint64 `yaml:"synthetic_seed"`
}

// StoreConfig selects the run history database. Record saves every
// evaluation.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Record bool   `yaml:"record"`
}

type OutputConfig struct {
	Format   string `yaml:"format"`
	Currency string `yaml:"currency"`
}

// Default returns the configuration used when no file exists. dir holds the
// SQLite database.
func Default(dir string) *Config {
	opts := risk.DefaultOptions()
	return &Config{
		Model: ModelConfig{
			Family:       string(opts.Family),
			TestFraction: opts.TestFraction,
			Seed:         opts.Seed,
		},
		Risk: RiskConfig{
			LGD:    opts.LGD,
			Stress: string(opts.Stress),
			Bins:   opts.Bins,
		},
		Policy: opts.Policy,
		Data: DataConfig{
			SyntheticRecords: SyntheticRecordsDefault,
			SyntheticSeed:    model.DefaultSeed,
		},
		Store: StoreConfig{
			Driver: data.DriverSQLite,
			DSN:    filepath.Join(dir, data.DataFileName),
			Record: true,
		},
		Output: OutputConfig{
			Format:   FormatJSON,
			Currency: report.DefaultCurrency,
		},
	}
}

// Options converts the model, risk and policy sections into evaluation
// options.
func (c *Config) Options() risk.Options {
	return risk.Options{
		Family:       model.Family(c.Model.Family),
		LGD:          c.Risk.LGD,
		Stress:       stress.Level(c.Risk.Stress),
		TestFraction: c.Model.TestFraction,
		Seed:         c.Model.Seed,
		Bins:         c.Risk.Bins,
		Policy:       c.Policy,
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	opts := c.Options()
	if err := opts.Validate(); err != nil {
		return errors.Wrap(err, "invalid model or risk settings")
	}
	if c.Data.Path == "" && c.Data.SyntheticRecords < 1 {
		return errors.Errorf("synthetic records must be positive, got %d", c.Data.SyntheticRecords)
	}
	if c.Store.Driver != data.DriverSQLite && c.Store.Driver != data.DriverPostgres {
		return errors.Wrapf(data.ErrUnknownDriver, "store driver: %q", c.Store.Driver)
	}
	if _, err := ParseFormat(c.Output.Format); err != nil {
		return err
	}
	return nil
}

// ParseFormat normalizes an output format name.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", errors.Errorf("unsupported output format: %q", s)
	}
}

// Dataset loads the configured CSV, local or http(s), or generates the
// synthetic book when no path is set.
func (c *Config) Dataset(ctx context.Context) (*loan.Dataset, error) {
	p := c.Data.Path
	switch {
	case p == "":
		slog.Debug("using synthetic dataset", "records", c.Data.SyntheticRecords, "seed", c.Data.SyntheticSeed)
		return loan.Generate(c.Data.SyntheticRecords, c.Data.SyntheticSeed), nil
	case net.IsURL(p):
		rc, err := net.Fetch(ctx, p)
		if err != nil {
			return nil, errors.Wrap(err, "error fetching dataset")
		}
		defer rc.Close()
		ds, err := loan.ReadCSV(rc)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading dataset: %s", p)
		}
		return ds, nil
	default:
		return loan.LoadFile(p)
	}
}

func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	path := filepath.Join(dirPath, ConfigFileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return errors.Wrapf(err, "failed to write config file: %s", path)
	}
	return nil
}

// Load reads a config file. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config file: %s", path)
	}

	c := Default(filepath.Dir(path))
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, errors.Wrapf(err, "error unmarshalling config file: %s", path)
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file: %s", path)
	}
	return c, nil
}

// ReadOrCreate reads app config from directory or creates a new one.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dirPath, dirMode); err != nil {
			return nil, errors.Wrapf(err, "failed to create dir: %s", dirPath)
		}
	}

	path := filepath.Join(dirPath, ConfigFileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating default config", "path", path)
		if err := Save(dirPath, Default(dirPath)); err != nil {
			return nil, errors.Wrap(err, "failed to create default config")
		}
	}

	return Load(path)
}

// GetOrCreateHomeDir returns the app directory under the user home.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, errors.Wrap(err, "failed to get user home dir")
	}
	slog.Debug("home dir", "path", home)

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, errors.Wrapf(err, "failed to create dir: %s", dir)
		}
		created = true
	}
	return dir, created, nil
}
