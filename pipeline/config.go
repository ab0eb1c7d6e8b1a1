package pipeline

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/forestrie/go-cubetiles/cubemap"
	"github.com/forestrie/go-cubetiles/imagesrc"
	"github.com/forestrie/go-cubetiles/resample"
	"github.com/forestrie/go-cubetiles/tilestore"
)

var (
	ErrConfigInvalid = errors.New("the configuration is invalid")
	ErrNoInputs      = errors.New("no inputs are configured")
)

const (
	DefaultTileSize = 512
	DefaultExt      = ".cube"
)

// Config drives a batch conversion. Angles are in degrees.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	OutputDir string `yaml:"output_dir"`

	TileSize int `yaml:"tile_size"`
	Depth    int `yaml:"depth"`
	// Bits and Signed default to the encoding of each input.
	Bits        int    `yaml:"bits,omitempty"`
	Signed      *bool  `yaml:"signed,omitempty"`
	Coverage    bool   `yaml:"coverage"`
	Dilate      bool   `yaml:"dilate"`
	ProbeGrid   int    `yaml:"probe_grid"`
	Workers     int    `yaml:"workers,omitempty"`
	Description string `yaml:"description,omitempty"`

	Inputs []InputSpec `yaml:"inputs"`
}

type InputSpec struct {
	Path string `yaml:"path"`
	// Output defaults to the input name, with DefaultExt, in OutputDir.
	Output     string         `yaml:"output,omitempty"`
	Projection ProjectionSpec `yaml:"projection"`
	// Normalize is the raw value range mapped to 0..1, defaulting to the
	// range of the input encoding.
	Normalize []float64 `yaml:"normalize,omitempty"`
}

type ProjectionSpec struct {
	Kind imagesrc.Kind `yaml:"kind"`

	CenterLat    float64 `yaml:"center_lat,omitempty"`
	CenterLon    float64 `yaml:"center_lon,omitempty"`
	Radius       float64 `yaml:"radius,omitempty"`
	Scale        float64 `yaml:"scale,omitempty"`
	LineOffset   float64 `yaml:"line_offset,omitempty"`
	SampleOffset float64 `yaml:"sample_offset,omitempty"`

	// Bounds of a LatLonGrid subset. All zero is the whole sphere.
	West  float64 `yaml:"west,omitempty"`
	East  float64 `yaml:"east,omitempty"`
	South float64 `yaml:"south,omitempty"`
	North float64 `yaml:"north,omitempty"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		LogLevel:  "INFO",
		OutputDir: ".",
		TileSize:  DefaultTileSize,
		ProbeGrid: resample.DefaultProbeGrid,
	}
}

// Normalize fills in unset values.
func (c *Config) Normalize() {
	c.LogLevel = strings.ToUpper(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.TileSize == 0 {
		c.TileSize = DefaultTileSize
	}
	if c.ProbeGrid == 0 {
		c.ProbeGrid = resample.DefaultProbeGrid
	}
	for i := range c.Inputs {
		in := &c.Inputs[i]
		if in.Output == "" && in.Path != "" {
			base := filepath.Base(in.Path)
			in.Output = filepath.Join(c.OutputDir, strings.TrimSuffix(base, filepath.Ext(base))+DefaultExt)
		}
		p := &in.Projection
		if p.Kind == imagesrc.LatLonGrid && p.West == 0 && p.East == 0 && p.South == 0 && p.North == 0 {
			p.West, p.East, p.South, p.North = -180, 180, -90, 90
		}
	}
}

func (c Config) Validate() error {
	if len(c.Inputs) == 0 {
		return ErrNoInputs
	}
	if c.TileSize < 1 || c.TileSize > tilestore.MaxTileSize {
		return fmt.Errorf("%w: tile_size %d", ErrConfigInvalid, c.TileSize)
	}
	if c.Depth < 0 || c.Depth > cubemap.MaxDepth {
		return fmt.Errorf("%w: depth %d", ErrConfigInvalid, c.Depth)
	}
	switch c.Bits {
	case 0, 8, 16, 32:
	default:
		return fmt.Errorf("%w: bits %d", ErrConfigInvalid, c.Bits)
	}
	if !cubemap.IsPow2(uint64(c.ProbeGrid)) || c.ProbeGrid > resample.MaxProbeGrid {
		return fmt.Errorf("%w: probe_grid %d", ErrConfigInvalid, c.ProbeGrid)
	}
	seen := map[string]bool{}
	for i, in := range c.Inputs {
		if in.Path == "" {
			return fmt.Errorf("%w: input %d has no path", ErrConfigInvalid, i)
		}
		if seen[in.Output] {
			return fmt.Errorf("%w: output %s is written twice", ErrConfigInvalid, in.Output)
		}
		seen[in.Output] = true
		if len(in.Normalize) != 0 && len(in.Normalize) != 2 {
			return fmt.Errorf("%w: input %d normalize needs two values", ErrConfigInvalid, i)
		}
		if err := in.Projection.Projection().Validate(); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
	}
	return nil
}

// Projection converts the configured angles to radians.
func (p ProjectionSpec) Projection() imagesrc.Projection {
	rad := math.Pi / 180
	return imagesrc.Projection{
		Kind:         p.Kind,
		CenterLat:    p.CenterLat * rad,
		CenterLon:    p.CenterLon * rad,
		Radius:       p.Radius,
		Scale:        p.Scale,
		LineOffset:   p.LineOffset,
		SampleOffset: p.SampleOffset,
		West:         p.West * rad,
		East:         p.East * rad,
		South:        p.South * rad,
		North:        p.North * rad,
	}
}
