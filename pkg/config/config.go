// Package config loads the YAML configuration of a vortex run: the flow
// condition, kernel settings, synthetic lattice, worker count and log level.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-vortex/pkg/influence"
	"github.com/dd0wney/cluso-vortex/pkg/logging"
	"github.com/dd0wney/cluso-vortex/pkg/parallel"
	"github.com/dd0wney/cluso-vortex/pkg/validation"
	"github.com/dd0wney/cluso-vortex/pkg/vortex"
)

// Config is the top-level configuration file.
type Config struct {
	Flow      FlowConfig               `yaml:"flow"`
	Kernel    KernelConfig             `yaml:"kernel"`
	Lattice   influence.LatticeOptions `yaml:"lattice"`
	Influence InfluenceConfig          `yaml:"influence"`
	Logging   LoggingConfig            `yaml:"logging"`
}

// FlowConfig describes the free stream.
type FlowConfig struct {
	Mach     float64    `yaml:"mach" validate:"gte=0,lte=5"`
	Velocity [3]float64 `yaml:"velocity"`
	Density  float64    `yaml:"density" validate:"gt=0"`
}

// KernelConfig mirrors vortex.Settings.
type KernelConfig struct {
	CoreRatio        float64 `yaml:"core_ratio" validate:"gt=0,lte=1"`
	CollocationRatio float64 `yaml:"collocation_ratio" validate:"gt=0,lt=1"`
	TransitionFactor float64 `yaml:"transition_factor" validate:"gt=1"`
}

// InfluenceConfig sizes the influence assembly. Zero workers means one per CPU.
type InfluenceConfig struct {
	Workers int `yaml:"workers" validate:"gte=0,lte=1024"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns sea-level incompressible flow along +x with default kernel
// settings.
func Default() Config {
	s := vortex.DefaultSettings()
	return Config{
		Flow: FlowConfig{
			Mach:     0,
			Velocity: [3]float64{1, 0, 0},
			Density:  1.225,
		},
		Kernel: KernelConfig{
			CoreRatio:        s.CoreRatio,
			CollocationRatio: s.CollocationRatio,
			TransitionFactor: s.TransitionFactor,
		},
		Lattice: influence.DefaultLatticeOptions(),
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads and validates a configuration file. Keys missing from the file
// keep their Default values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads and validates a configuration document.
func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	}

	cfg.Logging.Level = validation.DefaultOr(cfg.Logging.Level, "info")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags first, then the cross-field rules the domain
// constructors enforce.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	return validation.NewConfigValidator("Config").
		Custom("Flow", func() error {
			_, err := c.FlowCondition()
			return err
		}).
		Custom("Kernel", func() error {
			return c.Settings().Validate()
		}).
		Custom("Logging.Level", func() error {
			_, err := logging.LookupLevel(c.Logging.Level)
			return err
		}).
		Validate()
}

// FlowCondition builds the domain flow condition.
func (c *Config) FlowCondition() (vortex.FlowCondition, error) {
	v := c.Flow.Velocity
	return vortex.NewFlowCondition(c.Flow.Mach, r3.Vec{X: v[0], Y: v[1], Z: v[2]}, c.Flow.Density)
}

// Settings returns the kernel settings.
func (c *Config) Settings() vortex.Settings {
	return vortex.Settings{
		CoreRatio:        c.Kernel.CoreRatio,
		CollocationRatio: c.Kernel.CollocationRatio,
		TransitionFactor: c.Kernel.TransitionFactor,
	}
}

// Workers resolves the configured worker count, defaulting to one per CPU.
func (c *Config) Workers() int {
	n := validation.DefaultOr(c.Influence.Workers, runtime.NumCPU())
	return validation.Clamp(n, 1, parallel.MaxWorkers)
}

// Logger builds a JSON logger on w at the configured level.
func (c *Config) Logger(w io.Writer) logging.Logger {
	return logging.NewJSONLogger(w, logging.ParseLevel(c.Logging.Level))
}
