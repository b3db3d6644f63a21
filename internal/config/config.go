package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes is the largest config file Load accepts.
const MaxConfigFileBytes = 1 << 20

// ViewerConfig describes the panorama canvas labels are placed on.
type ViewerConfig struct {
	CanvasWidthPx     int     `yaml:"canvas_width_px"`      // default 720
	CanvasHeightPx    int     `yaml:"canvas_height_px"`     // default 480
	LabelIconRadiusPx float64 `yaml:"label_icon_radius_px"` // hit-test radius of a label icon (default 17)
}

// PredictionConfig configures the mistake-prediction popup.
type PredictionConfig struct {
	Enabled             bool               `yaml:"enabled"`
	Threshold           float64            `yaml:"threshold"`             // score from which the popup shows (default 0.5)
	ClustersPath        string             `yaml:"clusters_path"`         // GeoJSON points with a labelType property
	ClusterThresholdsKm map[string]float64 `yaml:"cluster_thresholds_km"` // per label type; missing types use built-in values
	Weights             []float64          `yaml:"weights"`               // logistic scorer weights, one per feature
	Bias                float64            `yaml:"bias"`
}

// StorageConfig locates the label database.
type StorageConfig struct {
	Path     string `yaml:"path"` // SQLite file (default data/labels.db)
	ReadOnly bool   `yaml:"read_only"`
}

// TasksConfig locates the street edges to audit.
type TasksConfig struct {
	Path               string  `yaml:"path"` // GeoJSON FeatureCollection of LineStrings; empty = no tasks
	RegionID           int     `yaml:"region_id"`
	ConnectThresholdKm float64 `yaml:"connect_threshold_km"` // default 0.01
}

// WebConfig configures the HTTP server.
type WebConfig struct {
	Port int `yaml:"port"` // default 8080
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
}

// Config aggregates all application configuration.
type Config struct {
	Viewer     ViewerConfig     `yaml:"viewer"`
	Prediction PredictionConfig `yaml:"prediction"`
	Storage    StorageConfig    `yaml:"storage"`
	Tasks      TasksConfig      `yaml:"tasks"`
	Web        WebConfig        `yaml:"web"`
	Defaults   DefaultsConfig   `yaml:"defaults"`
}

// ValidateConfigPath checks that path names a .yaml file inside a configs/ directory
// and does not climb out of it.
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	clean := filepath.Clean(path)
	for _, part := range strings.Split(filepath.ToSlash(clean), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain '..'", path)
		}
	}
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", MaxConfigFileBytes)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	_ = cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() error {
	// Viewer
	if cfg.Viewer.CanvasWidthPx < 0 || cfg.Viewer.CanvasHeightPx < 0 {
		return fmt.Errorf("viewer canvas size must be positive, got %dx%d", cfg.Viewer.CanvasWidthPx, cfg.Viewer.CanvasHeightPx)
	}
	if cfg.Viewer.CanvasWidthPx == 0 {
		cfg.Viewer.CanvasWidthPx = 720
	}
	if cfg.Viewer.CanvasHeightPx == 0 {
		cfg.Viewer.CanvasHeightPx = 480
	}
	if cfg.Viewer.LabelIconRadiusPx <= 0 {
		cfg.Viewer.LabelIconRadiusPx = 17
	}

	// Prediction
	if cfg.Prediction.Threshold == 0 {
		cfg.Prediction.Threshold = 0.5
	}
	if cfg.Prediction.Threshold < 0 || cfg.Prediction.Threshold > 1 {
		return fmt.Errorf("prediction.threshold must be between 0 and 1, got %.3f", cfg.Prediction.Threshold)
	}
	for typ, km := range cfg.Prediction.ClusterThresholdsKm {
		if km <= 0 {
			return fmt.Errorf("prediction.cluster_thresholds_km.%s must be > 0, got %g", typ, km)
		}
	}

	// Storage
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = filepath.Join("data", "labels.db")
	}

	// Tasks
	if cfg.Tasks.ConnectThresholdKm < 0 {
		return fmt.Errorf("tasks.connect_threshold_km must be >= 0, got %g", cfg.Tasks.ConnectThresholdKm)
	}
	if cfg.Tasks.ConnectThresholdKm == 0 {
		cfg.Tasks.ConnectThresholdKm = 0.01 // 10 m
	}

	// Web
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Web.Port < 0 || cfg.Web.Port > 65535 {
		return fmt.Errorf("web.port must be 1-65535, got %d", cfg.Web.Port)
	}

	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}
	return nil
}

// CanvasSize returns the default canvas width and height in pixels.
func (c *Config) CanvasSize() (width, height float64) {
	return float64(c.Viewer.CanvasWidthPx), float64(c.Viewer.CanvasHeightPx)
}

// LabelIconRadius returns the label icon radius in pixels.
func (c *Config) LabelIconRadius() float64 {
	return c.Viewer.LabelIconRadiusPx
}

// ClusterThresholdsKm returns the per label type cluster thresholds from the file.
func (c *Config) ClusterThresholdsKm() map[string]float64 {
	out := make(map[string]float64, len(c.Prediction.ClusterThresholdsKm))
	for k, v := range c.Prediction.ClusterThresholdsKm {
		out[k] = v
	}
	return out
}

// ConnectThresholdKm returns the distance under which two street edges connect.
func (c *Config) ConnectThresholdKm() float64 {
	return c.Tasks.ConnectThresholdKm
}

// WebAddr returns the listen address of the web server.
func (c *Config) WebAddr() string {
	return fmt.Sprintf(":%d", c.Web.Port)
}
