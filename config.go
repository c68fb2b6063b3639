package conceptgraph

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/conceptgraph/concept"
	"github.com/brunobiangulo/conceptgraph/media"
)

// Environment variables that override the configuration file.
const (
	EnvDBPath = "CONCEPTGRAPH_DB_PATH"
	EnvLang   = "CONCEPTGRAPH_LANG"
)

// ProcessAll marks every concept for question generation when listed in
// Config.Process.
const ProcessAll = "*"

// Config holds all configuration for the concept graph engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.conceptgraph/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.conceptgraph/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir" validate:"omitempty,oneof=home local cwd"`

	// Lang is the default language of definitions that do not set one.
	Lang string `json:"lang" yaml:"lang" validate:"required"`

	// Locales are the accepted language codes, including pseudo-locales
	// such as "ruby" or "sql".
	Locales []string `json:"locales" yaml:"locales" validate:"required,min=1,dive,required"`

	// FormulaWeights are the context, tag and table weights of the
	// nearness score.
	FormulaWeights []float64 `json:"formula_weights" yaml:"formula_weights" validate:"len=3,dive,gte=0"`

	// Concurrency
	GraphConcurrency int `json:"graph_concurrency" yaml:"graph_concurrency" validate:"gte=0"` // owners scored in parallel (default 1)
	ParseConcurrency int `json:"parse_concurrency" yaml:"parse_concurrency" validate:"gte=0"` // files decoded in parallel (default 4)

	// Process lists the concept names or definition file names whose
	// concepts are marked for question generation. "*" marks all.
	Process []string `json:"process" yaml:"process"`

	ImageSearch ImageSearchConfig `json:"image_search" yaml:"image_search"`
}

// ImageSearchConfig configures the image URL search.
type ImageSearchConfig struct {
	Enabled       bool          `json:"enabled" yaml:"enabled"`
	Endpoint      string        `json:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	RatePerSecond float64       `json:"rate_per_second" yaml:"rate_per_second" validate:"gte=0"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout" validate:"gte=0"`
}

// DefaultConfig returns a Config with the default locales and equal weights.
// Database is stored in ~/.conceptgraph/conceptgraph.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:           "conceptgraph",
		StorageDir:       "home",
		Lang:             "en",
		Locales:          []string{"en", "es", "javascript", "math", "python", "ruby", "sql"},
		FormulaWeights:   []float64{1, 1, 1},
		GraphConcurrency: 1,
		ParseConcurrency: 4,
		ImageSearch: ImageSearchConfig{
			Endpoint:      media.DefaultSearchEndpoint,
			RatePerSecond: 1,
			Timeout:       15 * time.Second,
		},
	}
}

// LoadConfig reads a YAML configuration file over the defaults, applies
// environment overrides and validates the result. An empty path loads the
// defaults only.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvLang); v != "" {
		c.Lang = v
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints, that Lang is one of Locales and that the
// formula weights are finite.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !slices.ContainsFunc(c.Locales, func(l string) bool { return strings.EqualFold(l, c.Lang) }) {
		return fmt.Errorf("%w: lang %q is not among locales %v", ErrInvalidConfig, c.Lang, c.Locales)
	}
	if err := c.Weights().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Weights returns FormulaWeights as nearness weights.
func (c Config) Weights() concept.Weights {
	if len(c.FormulaWeights) != 3 {
		return concept.DefaultWeights()
	}
	return concept.Weights{
		Context: c.FormulaWeights[0],
		Tag:     c.FormulaWeights[1],
		Table:   c.FormulaWeights[2],
	}
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "conceptgraph"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db"
		}
		return filepath.Join(home, ".conceptgraph", name+".db")
	}
}
