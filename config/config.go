// Package config loads optimizer run settings from YAML or INI files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rwcarlsen/fabso"
	"github.com/rwcarlsen/fabso/fdr"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Config stores the settings of an optimization run.
type Config struct {
	Swarm SwarmConfig `yaml:"swarm"`
	// Params must hold the keys w, c1, c2 and c3.
	Params map[string]float64 `yaml:"params"`
	Run    RunConfig          `yaml:"run"`
	Log    LogConfig          `yaml:"log"`
	Output OutputConfig       `yaml:"output"`
}

// SwarmConfig holds the search space and optimizer sizes.  When Min is not
// below Max the objective's own bounds are used.
type SwarmConfig struct {
	Min         float64 `yaml:"min" ini:"min"`
	Max         float64 `yaml:"max" ini:"max"`
	Particles   int     `yaml:"particles" ini:"particles"`
	Dimensions  int     `yaml:"dimensions" ini:"dimensions"`
	ArchiveSize int     `yaml:"archive_size" ini:"archive_size"`
	Generations int     `yaml:"generations" ini:"generations"`
	RestartFreq int     `yaml:"restart_freq" ini:"restart_freq"` // 0 = never restart
	Seed        int64   `yaml:"seed" ini:"seed"`
}

// RunConfig selects the objective and how many trials to run.
type RunConfig struct {
	Function  string `yaml:"function" ini:"function"`
	Trials    int    `yaml:"trials" ini:"trials"`
	CacheSize int    `yaml:"cache_size" ini:"cache_size"` // 0 = no cache
}

type LogConfig struct {
	Level  string `yaml:"level" ini:"level"`
	Format string `yaml:"format" ini:"format"` // "json" or "console"
}

// OutputConfig names the files written after a run.  Empty paths are
// skipped.
type OutputConfig struct {
	Plot string `yaml:"plot" ini:"plot"`
	CSV  string `yaml:"csv" ini:"csv"`
	DB   string `yaml:"db" ini:"db"`
}

// Default returns the settings used when a file leaves them out.  Params
// has no default.
func Default() Config {
	return Config{
		Swarm: SwarmConfig{
			Particles:   30,
			Dimensions:  2,
			ArchiveSize: 5,
			Generations: 50,
			Seed:        1,
		},
		Run: RunConfig{
			Function: "sphere",
			Trials:   1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a configuration file.  The format is chosen by extension:
// .yaml/.yml or .ini.
func Load(path string) (Config, error) {
	var (
		c   Config
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		c, err = loadYAML(path)
	case ".ini":
		c, err = loadINI(path)
	default:
		return Config{}, fmt.Errorf("%w: unsupported config format %q", fabso.ErrConfig, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to load config file '%s': %w", path, err)
	}

	if _, err := c.FDRParams(); err != nil {
		return Config{}, fmt.Errorf("config file '%s': %w", path, err)
	}
	return c, nil
}

func loadYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

func loadINI(path string) (Config, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		UnescapeValueCommentSymbols: true,
	}, path)
	if err != nil {
		return Config{}, err
	}

	c := Default()
	sections := map[string]interface{}{
		"swarm":  &c.Swarm,
		"run":    &c.Run,
		"log":    &c.Log,
		"output": &c.Output,
	}
	for name, dst := range sections {
		if !f.HasSection(name) {
			continue
		}
		if err := f.Section(name).MapTo(dst); err != nil {
			return Config{}, fmt.Errorf("section [%s]: %w", name, err)
		}
	}

	if f.HasSection("params") {
		c.Params = map[string]float64{}
		for _, k := range f.Section("params").Keys() {
			v, err := k.Float64()
			if err != nil {
				return Config{}, fmt.Errorf("%w: params.%s: %v", fabso.ErrConfig, k.Name(), err)
			}
			c.Params[k.Name()] = v
		}
	}
	return c, nil
}

// FDRParams validates and converts the params bag.
func (c Config) FDRParams() (fdr.Params, error) {
	return fdr.ParseParams(c.Params)
}
