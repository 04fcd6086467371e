package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Data        DataConfig        `yaml:"data" envconfig:"DATA"`
	Processing  ProcessingConfig  `yaml:"processing" envconfig:"PROCESSING"`
	Coordinates CoordinatesConfig `yaml:"coordinates" envconfig:"COORDINATES"`
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	Output      OutputConfig      `yaml:"output" envconfig:"OUTPUT"`
}

// DataConfig describes where survey CSV files and vessel tracks live.
type DataConfig struct {
	Dir           string `yaml:"dir" envconfig:"DIR"`
	Pattern       string `yaml:"pattern" envconfig:"PATTERN"`
	PositionsFile string `yaml:"positions_file" envconfig:"POSITIONS_FILE"`
	// PrimaryColumn is the measurement column assumed when a plotting
	// task names no column at all.
	PrimaryColumn string `yaml:"primary_column" envconfig:"PRIMARY_COLUMN"`
}

// Duration is a time.Duration that unmarshals from strings like "5s" in
// both YAML documents and environment variables.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler (used by envconfig).
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// UnmarshalYAML implements yaml.v2 unmarshalling.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(raw))
}

// Std returns the value as a standard time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String formats the duration in time.Duration notation.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// ProcessingConfig controls merging and aggregation defaults.
type ProcessingConfig struct {
	MergeTolerance    Duration `yaml:"merge_tolerance" envconfig:"MERGE_TOLERANCE"`
	MergeInterpolate  bool     `yaml:"merge_interpolate" envconfig:"MERGE_INTERPOLATE"`
	DefaultInterval   string   `yaml:"default_interval" envconfig:"DEFAULT_INTERVAL"`
	DefaultResolution int      `yaml:"default_resolution" envconfig:"DEFAULT_RESOLUTION"`
	LoadRetries       int      `yaml:"load_retries" envconfig:"LOAD_RETRIES"`
}

// CoordinatesConfig controls the dual-CRS coordinate columns kept on the
// merged dataset.
type CoordinatesConfig struct {
	TransformOnLoad bool   `yaml:"transform_on_load" envconfig:"TRANSFORM_ON_LOAD"`
	EastingColumn   string `yaml:"easting_column" envconfig:"EASTING_COLUMN"`
	NorthingColumn  string `yaml:"northing_column" envconfig:"NORTHING_COLUMN"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// OutputConfig holds the artifact directory layout.
type OutputConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	PlotsDir   string `yaml:"plots_dir" envconfig:"PLOTS_DIR"`
	MapsDir    string `yaml:"maps_dir" envconfig:"MAPS_DIR"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
}

// defaultConfig returns the built-in configuration. File and environment
// values are layered on top of it.
func defaultConfig() Config {
	return Config{
		Data: DataConfig{
			Dir:           "data",
			Pattern:       "*.csv",
			PositionsFile: "positions.csv",
			PrimaryColumn: "backscatter",
		},
		Processing: ProcessingConfig{
			MergeTolerance:    Duration(5 * time.Second),
			DefaultInterval:   "5min",
			DefaultResolution: 8,
			LoadRetries:       3,
		},
		Coordinates: CoordinatesConfig{
			TransformOnLoad: true,
			EastingColumn:   "easting",
			NorthingColumn:  "northing",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/echocli.log",
		},
		Output: OutputConfig{
			BaseDir:    "outputs",
			PlotsDir:   "plots",
			MapsDir:    "maps",
			ReportsDir: "reports",
		},
	}
}

// Load builds the configuration in three layers: built-in defaults, then an
// optional YAML file, then environment variables with the ECHO prefix.
// Later layers win.
func Load(configFile string) (*Config, error) {
	cfg := defaultConfig()

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			if err := loadFromFile(configFile, &cfg); err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
		}
	}

	if err := envconfig.Process("ECHO", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile overlays YAML file values onto cfg. Keys absent from the
// file keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Settings flattens the mutable subset of the configuration into the
// key/value map seeded into a fresh session. Keys match the `set` command
// vocabulary.
func (c *Config) Settings() map[string]string {
	return map[string]string{
		"dir":        c.Data.Dir,
		"pattern":    c.Data.Pattern,
		"positions":  c.Data.PositionsFile,
		"interval":   c.Processing.DefaultInterval,
		"resolution": fmt.Sprintf("%d", c.Processing.DefaultResolution),
	}
}

func (c *Config) validate() error {
	if c.Processing.MergeTolerance <= 0 {
		return fmt.Errorf("merge_tolerance must be positive, got %s", c.Processing.MergeTolerance)
	}
	if c.Processing.DefaultResolution < 0 || c.Processing.DefaultResolution > 15 {
		return fmt.Errorf("default_resolution must be within 0..15, got %d", c.Processing.DefaultResolution)
	}
	if c.Processing.LoadRetries < 1 {
		c.Processing.LoadRetries = 1
	}
	return nil
}
