package phphints

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when no config file exists above a directory.
var ErrConfigNotFound = errors.New("no .php-hints.yaml found")

// TypeMode selects what a hint label shows.
type TypeMode int

const (
	// TypeModeName shows the parameter name only.
	TypeModeName TypeMode = 0
	// TypeModeTypeAndName shows the declared type followed by the name.
	TypeModeTypeAndName TypeMode = 1
	// TypeModeType shows the declared type only, falling back to the name.
	TypeModeType TypeMode = 2
)

// DefaultIndexPath is where the CLI persists the signature index, relative
// to the workspace root, when the config names no path.
const DefaultIndexPath = ".php-hints/index.db"

// DefaultMaxHints bounds the hints returned for a single request.
const DefaultMaxHints = 500

// Settings are the user-facing switches. The names match the
// phpParameterHint section editors send over workspace/didChangeConfiguration.
type Settings struct {
	Enabled                bool     `json:"enabled"                yaml:"enabled"`
	HintOnlyLiterals       bool     `json:"hintOnlyLiterals"       yaml:"hintOnlyLiterals"`
	HintOnlyLine           bool     `json:"hintOnlyLine"           yaml:"hintOnlyLine"`
	HintOnlyVisibleRanges  bool     `json:"hintOnlyVisibleRanges"  yaml:"hintOnlyVisibleRanges"`
	HintTypeName           TypeMode `json:"hintTypeName"           yaml:"hintTypeName"`
	ShowDollarSign         bool     `json:"showDollarSign"         yaml:"showDollarSign"`
	ShowFullType           bool     `json:"showFullType"           yaml:"showFullType"`
	CollapseHintsWhenEqual bool     `json:"collapseHintsWhenEqual" yaml:"collapseHintsWhenEqual"`
	SuppressNamedArguments bool     `json:"suppressNamedArguments" yaml:"suppressNamedArguments"`
	MaxHints               int      `json:"maxHints"               yaml:"maxHints"`
	HintExclude            string   `json:"hintExclude"            yaml:"hintExclude"`
}

// CacheConfig tunes the per-document call group cache.
type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	CheckInterval time.Duration `yaml:"checkInterval"`
	Capacity      int           `yaml:"capacity"`
}

// IndexConfig tunes the workspace signature index.
type IndexConfig struct {
	// Path of the SQLite database. Empty keeps the index in memory.
	Path    string   `yaml:"path,omitempty"`
	Workers int      `yaml:"workers,omitempty"`
	Ignore  []string `yaml:"ignore,omitempty"`
}

// Config represents the .php-hints.yaml configuration file.
type Config struct {
	Settings `yaml:",inline"`

	Cache CacheConfig `yaml:"cache"`
	Index IndexConfig `yaml:"index"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Settings: DefaultSettings(),
		Cache: CacheConfig{
			TTL:           10 * time.Minute,
			CheckInterval: time.Minute,
			Capacity:      512,
		},
		Index: IndexConfig{
			Workers: 4,
		},
	}
}

// DefaultSettings returns the out-of-the-box hint settings.
func DefaultSettings() Settings {
	return Settings{
		Enabled:  true,
		MaxHints: DefaultMaxHints,
	}
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".php-hints.yaml", ".php-hints.yml", "php-hints.yaml", "php-hints.yml"}

// LoadConfig finds and loads the nearest .php-hints.yaml walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path. Keys missing from the
// file keep their defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// ResolveConfig loads the nearest config file (or the defaults when there is
// none) and applies environment overrides, reading dir/.env first.
func ResolveConfig(dir string) (*Config, error) {
	cfg, err := LoadConfig(dir)
	if errors.Is(err, ErrConfigNotFound) {
		cfg, err = DefaultConfig(), nil
	}

	if err != nil {
		return nil, err
	}

	// A missing .env is normal.
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	cfg.ApplyEnv(os.LookupEnv)

	return cfg, nil
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PHP_HINTS_"

// ApplyEnv overrides fields from PHP_HINTS_* variables. Unparsable values are
// ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	boolVar := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}
	intVar := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	durationVar := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
				*dst = d
			}
		}
	}

	boolVar("ENABLED", &c.Enabled)
	boolVar("ONLY_LITERALS", &c.HintOnlyLiterals)
	boolVar("ONLY_LINE", &c.HintOnlyLine)
	boolVar("ONLY_VISIBLE_RANGES", &c.HintOnlyVisibleRanges)
	boolVar("SHOW_DOLLAR_SIGN", &c.ShowDollarSign)
	boolVar("SHOW_FULL_TYPE", &c.ShowFullType)
	boolVar("COLLAPSE_WHEN_EQUAL", &c.CollapseHintsWhenEqual)
	boolVar("SUPPRESS_NAMED", &c.SuppressNamedArguments)
	intVar("MAX_HINTS", &c.MaxHints)
	intVar("CACHE_CAPACITY", &c.Cache.Capacity)
	intVar("INDEX_WORKERS", &c.Index.Workers)
	durationVar("CACHE_TTL", &c.Cache.TTL)
	durationVar("CACHE_CHECK_INTERVAL", &c.Cache.CheckInterval)

	var mode int

	mode = int(c.HintTypeName)
	intVar("TYPE_NAME", &mode)
	c.HintTypeName = TypeMode(mode)

	if v, ok := lookup(EnvPrefix + "EXCLUDE"); ok {
		c.HintExclude = v
	}

	if v, ok := lookup(EnvPrefix + "INDEX_PATH"); ok {
		c.Index.Path = v
	}
}
