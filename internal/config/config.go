package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/osm-wrangle/internal/audit"
	"github.com/sells-group/osm-wrangle/internal/tags"
)

// Config holds the full application configuration.
type Config struct {
	Input       InputConfig       `yaml:"input" mapstructure:"input"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Shape       ShapeConfig       `yaml:"shape" mapstructure:"shape"`
	Corrections CorrectionsConfig `yaml:"corrections" mapstructure:"corrections"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Fetch       FetchConfig       `yaml:"fetch" mapstructure:"fetch"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// InputConfig names the map file to read.
type InputConfig struct {
	Path     string   `yaml:"path" mapstructure:"path"`
	Elements []string `yaml:"elements" mapstructure:"elements"`
}

// OutputConfig configures where shaped rows are written.
type OutputConfig struct {
	Dir       string `yaml:"dir" mapstructure:"dir"`
	Shapefile string `yaml:"shapefile" mapstructure:"shapefile"`
}

// ShapeConfig configures tag classification and value correction.
type ShapeConfig struct {
	ProblemChars string `yaml:"problem_chars" mapstructure:"problem_chars"`
	DefaultType  string `yaml:"default_type" mapstructure:"default_type"`
	StreetField  string `yaml:"street_field" mapstructure:"street_field"`
	FixDateField string `yaml:"fix_date_field" mapstructure:"fix_date_field"`
	Today        string `yaml:"today" mapstructure:"today"` // YYYY-MM-DD, empty means the wall clock
}

// CorrectionsConfig holds the street suffix correction table. File, when
// set, takes precedence over Street.
type CorrectionsConfig struct {
	Street []audit.Correction `yaml:"street" mapstructure:"street"`
	File   string             `yaml:"file" mapstructure:"file"`
}

// PipelineConfig configures a shaping run.
type PipelineConfig struct {
	Validate       bool   `yaml:"validate" mapstructure:"validate"`
	AbortOnInvalid bool   `yaml:"abort_on_invalid" mapstructure:"abort_on_invalid"`
	MetricsFile    string `yaml:"metrics_file" mapstructure:"metrics_file"`
}

// StoreConfig configures the relational store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	PostGIS     bool   `yaml:"postgis" mapstructure:"postgis"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// FetchConfig configures remote input downloads.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml, a .env file and OSMW_ prefixed
// environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OSMW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input.path", "")
	v.SetDefault("input.elements", []string{"node", "way"})
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.shapefile", "")
	v.SetDefault("shape.problem_chars", tags.DefaultProblemChars)
	v.SetDefault("shape.default_type", "regular")
	v.SetDefault("shape.street_field", "addr:street")
	v.SetDefault("shape.fix_date_field", "fixme:date")
	v.SetDefault("shape.today", "")
	v.SetDefault("corrections.file", "")
	v.SetDefault("pipeline.validate", false)
	v.SetDefault("pipeline.abort_on_invalid", false)
	v.SetDefault("pipeline.metrics_file", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "osm.db")
	v.SetDefault("store.postgis", false)
	v.SetDefault("store.batch_size", 5000)
	v.SetDefault("fetch.timeout_secs", 0)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "osm-wrangle/1.0")
	v.SetDefault("fetch.rate_per_sec", 1.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command needs are present and sane.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "shape":
		if c.Input.Path == "" {
			problems = append(problems, "input.path is required")
		}
		if c.Output.Dir == "" {
			problems = append(problems, "output.dir is required")
		}
		if c.Shape.DefaultType == "" {
			problems = append(problems, "shape.default_type is required")
		}
		if _, err := c.Shape.Clock(); err != nil {
			problems = append(problems, err.Error())
		}
	case "load":
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
		if c.Store.BatchSize < 1 {
			problems = append(problems, "store.batch_size must be positive")
		}
		if c.Store.PostGIS && c.Store.Driver != "postgres" {
			problems = append(problems, "store.postgis requires the postgres driver")
		}
	case "input":
		if c.Input.Path == "" {
			problems = append(problems, "input.path is required")
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Clock returns the source of "today" for fix-date correction: the fixed
// Today date when set, otherwise the wall clock.
func (s ShapeConfig) Clock() (func() time.Time, error) {
	if s.Today == "" {
		return time.Now, nil
	}
	today, err := time.ParseInLocation(audit.DateLayout, s.Today, time.Local)
	if err != nil {
		return nil, eris.Wrapf(err, "config: shape.today %q is not YYYY-MM-DD", s.Today)
	}
	return func() time.Time { return today }, nil
}

// StreetCorrections returns the configured correction table: the file when
// one is named, the inline list when it is not empty, the stock table
// otherwise.
func (c *Config) StreetCorrections() ([]audit.Correction, error) {
	if c.Corrections.File != "" {
		return LoadCorrectionsFile(c.Corrections.File)
	}
	if len(c.Corrections.Street) > 0 {
		return c.Corrections.Street, nil
	}
	return audit.DefaultCorrections, nil
}

// LoadCorrectionsFile reads a YAML mapping of suffix to replacement. The
// document order of the mapping is the order corrections are tried in.
func LoadCorrectionsFile(path string) ([]audit.Correction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read corrections %s", path)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "config: parse corrections %s", path)
	}
	if len(doc.Content) == 0 {
		return []audit.Correction{}, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, eris.Errorf("config: corrections %s: line %d: want a mapping of suffix to replacement", path, root.Line)
	}

	out := make([]audit.Correction, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return nil, eris.Errorf("config: corrections %s: line %d: entries must be scalars", path, k.Line)
		}
		out = append(out, audit.Correction{From: k.Value, To: v.Value})
	}
	return out, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
