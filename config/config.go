// Package config holds the viewer and converter settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"envcube/envmap"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type EnvironmentType string

const (
	TypeHdr     EnvironmentType = "hdr"
	TypeCubeMap EnvironmentType = "cubemap"
	TypeDump    EnvironmentType = "envcube"
)

type Environment struct {
	Name string          `toml:"name"`
	Type EnvironmentType `toml:"type"`
	// Path is the panorama or cube dump file. For cube maps it is the
	// directory holding px/nx/py/ny/pz/nz faces, unless Faces is set.
	Path       string    `toml:"path"`
	Projection string    `toml:"projection,omitempty"`
	Faces      [6]string `toml:"faces,omitempty"`
	// Ext is the face file extension used with Path, defaults to .png
	Ext string `toml:"ext,omitempty"`
}

// Source converts the entry into an environment source.
func (e Environment) Source() (envmap.Source, error) {
	switch e.Type {
	case TypeHdr, "":
		projection, err := envmap.ParseProjection(e.Projection)
		if err != nil {
			return nil, fmt.Errorf("environment %q: %w", e.Name, err)
		}
		return envmap.PanoramaSource{Path: e.Path, Projection: projection}, nil
	case TypeCubeMap:
		if e.Faces != [6]string{} {
			return envmap.CubeMapSource{Faces: e.Faces}, nil
		}
		ext := e.Ext
		if ext == "" {
			ext = ".png"
		}
		return envmap.CubeMapFaces(e.Path, ext), nil
	case TypeDump:
		return envmap.DumpSource{Path: e.Path}, nil
	}
	return nil, fmt.Errorf("environment %q: unknown type %q", e.Name, e.Type)
}

type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type Config struct {
	// AssetRoot is the directory all asset paths are relative to.
	AssetRoot string `toml:"asset_root"`
	// Size is the edge length of the environment cube map.
	Size          int      `toml:"size"`
	SweepInterval Duration `toml:"sweep_interval"`
	StatsInterval Duration `toml:"stats_interval"`
	LogLevel      string   `toml:"log_level"`
	// ShaderPath is the atmosphere fragment shader, reloaded when it changes.
	ShaderPath   string        `toml:"shader_path"`
	Default      string        `toml:"default"`
	Environments []Environment `toml:"environment"`
}

func Default() *Config {
	return &Config{
		AssetRoot:     "assets",
		Size:          envmap.DefaultSize,
		SweepInterval: Duration(10 * time.Second),
		StatsInterval: Duration(2 * time.Second),
		LogLevel:      "info",
		ShaderPath:    "shaders/atmosphere.glsl",
		Default:       "Stars",
		Environments: []Environment{
			{Name: "Dikhololo Night", Type: TypeHdr, Path: "environmentMaps/dikhololo_night_1k.hdr"},
			{Name: "San Giuseppe Bridge", Type: TypeHdr, Path: "environmentMaps/san_giuseppe_bridge_1k.hdr"},
			{Name: "Uffizi Gallery", Type: TypeHdr, Path: "environmentMaps/uffizi_probe_1k.hdr"},
			{Name: "Stars", Type: TypeHdr, Path: "environmentMaps/starmap_2020_1k.hdr"},
		},
	}
}

// Load reads a TOML file on top of Default. A missing file is not an error.
// A leading ~ in path and in the asset root expands to the home directory.
func Load(path string) (*Config, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	} else if err != nil {
		return nil, err
	}
	if err := cfg.Decode(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.AssetRoot, err = homedir.Expand(cfg.AssetRoot); err != nil {
		return nil, fmt.Errorf("%s: asset_root: %w", path, err)
	}
	return cfg, nil
}

// Decode merges TOML data into cfg. Environments in data replace the
// defaults as a whole.
func (cfg *Config) Decode(data []byte) error {
	defaults := cfg.Environments
	cfg.Environments = nil

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	err := dec.Decode(cfg)
	if cfg.Environments == nil {
		cfg.Environments = defaults
	}
	if err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fmt.Errorf("line %d column %d: %w", row, col, err)
		}
		return err
	}
	return cfg.Validate()
}

func (cfg *Config) Encode() ([]byte, error) {
	return toml.Marshal(cfg)
}

func (cfg *Config) Validate() error {
	if cfg.Size <= 0 {
		return fmt.Errorf("size must be positive, got %d", cfg.Size)
	}
	if cfg.SweepInterval <= 0 || cfg.StatsInterval <= 0 {
		return fmt.Errorf("intervals must be positive")
	}
	seen := map[string]bool{}
	for _, e := range cfg.Environments {
		if e.Name == "" {
			return fmt.Errorf("environment without a name")
		}
		if seen[e.Name] {
			return fmt.Errorf("duplicate environment %q", e.Name)
		}
		seen[e.Name] = true
		if _, err := e.Source(); err != nil {
			return err
		}
	}
	if _, ok := cfg.Environment(cfg.Default); !ok && len(cfg.Environments) > 0 {
		return fmt.Errorf("default environment %q is not defined", cfg.Default)
	}
	return nil
}

func (cfg *Config) Environment(name string) (Environment, bool) {
	for _, e := range cfg.Environments {
		if e.Name == name {
			return e, true
		}
	}
	return Environment{}, false
}

// Names returns the environment names in sorted order.
func (cfg *Config) Names() []string {
	byName := make(map[string]Environment, len(cfg.Environments))
	for _, e := range cfg.Environments {
		byName[e.Name] = e
	}
	names := maps.Keys(byName)
	slices.Sort(names)
	return names
}

func (cfg *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}
