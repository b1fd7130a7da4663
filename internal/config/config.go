package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/cosim/internal/cosim"
)

const (
	DefaultModel      = "lag"
	DefaultStopTime   = 10.0
	DefaultStepSize   = 0.1
	DefaultSpeed      = 1.0
	DefaultSliderMin  = 0.0
	DefaultSliderMax  = 10.0
	DefaultSliderStep = 0.1
	DefaultInitial    = 5.0
	DefaultHTTPAddr   = "127.0.0.1:8080"
	EnvPrefix         = "COSIM_"
)

const (
	SurfaceAuto   = "auto"
	SurfaceSlider = "slider"
	SurfaceHTTP   = "http"
	SurfaceStdin  = "stdin"
	SurfaceScript = "script"
	SurfaceNone   = "none"
)

type Config struct {
	Model      string             `yaml:"model"`
	Integrator string             `yaml:"integrator,omitempty"`
	MaxSubStep float64            `yaml:"max_sub_step,omitempty"`
	Params     map[string]float64 `yaml:"params,omitempty"`

	StartTime float64 `yaml:"start_time"`
	StopTime  float64 `yaml:"stop_time"`
	StepSize  float64 `yaml:"step_size"`
	// Tolerance is passed to the model when positive.
	Tolerance float64 `yaml:"tolerance,omitempty"`
	Speed     float64 `yaml:"speed"`

	// Input and Output name a variable of a built-in model or give a value
	// reference as a number.
	Input  string `yaml:"input"`
	Output string `yaml:"output"`

	Surface string       `yaml:"surface"`
	Slider  SliderConfig `yaml:"slider"`
	HTTP    HTTPConfig   `yaml:"http"`
	Script  string       `yaml:"script,omitempty"`
	Log     LogConfig    `yaml:"log"`
}

type SliderConfig struct {
	Min          float64 `yaml:"min"`
	Max          float64 `yaml:"max"`
	Step         float64 `yaml:"step"`
	Coarse       float64 `yaml:"coarse"`
	Initial      float64 `yaml:"initial"`
	ApplyInitial bool    `yaml:"apply_initial"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
	Open bool   `yaml:"open"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:    DefaultModel,
		StopTime: DefaultStopTime,
		StepSize: DefaultStepSize,
		Speed:    DefaultSpeed,
		Input:    "0",
		Output:   "1",
		Surface:  SurfaceAuto,
		Slider: SliderConfig{
			Min:          DefaultSliderMin,
			Max:          DefaultSliderMax,
			Step:         DefaultSliderStep,
			Coarse:       1.0,
			Initial:      DefaultInitial,
			ApplyInitial: true,
		},
		HTTP: HTTPConfig{Addr: DefaultHTTPAddr},
		Log:  LogConfig{Level: "info", Format: "console"},
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of base, so keys missing from the file keep
// the base values. Params are merged key by key. base is modified.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from COSIM_* variables found by lookup,
// typically os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"MODEL":      &c.Model,
		"INTEGRATOR": &c.Integrator,
		"INPUT":      &c.Input,
		"OUTPUT":     &c.Output,
		"SURFACE":    &c.Surface,
		"SCRIPT":     &c.Script,
		"HTTP_ADDR":  &c.HTTP.Addr,
		"LOG_LEVEL":  &c.Log.Level,
		"LOG_FORMAT": &c.Log.Format,
		"LOG_FILE":   &c.Log.File,
	}
	for key, dst := range str {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	num := map[string]*float64{
		"START_TIME": &c.StartTime,
		"STOP_TIME":  &c.StopTime,
		"STEP_SIZE":  &c.StepSize,
		"TOLERANCE":  &c.Tolerance,
		"SPEED":      &c.Speed,
	}
	for key, dst := range num {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = f
	}
	return nil
}

// Validate checks the fields the engine does not check itself.
func (c *Config) Validate() error {
	if c.Model == "" {
		return errors.New("config: model is required")
	}
	if err := c.Engine(0, 0).Validate(); err != nil {
		return err
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("config: tolerance must not be negative, got %g", c.Tolerance)
	}
	s := c.Slider
	if s.Max <= s.Min {
		return fmt.Errorf("config: slider max %g must be above min %g", s.Max, s.Min)
	}
	if s.Step <= 0 || s.Coarse <= 0 {
		return errors.New("config: slider steps must be positive")
	}
	if s.Initial < s.Min || s.Initial > s.Max {
		return fmt.Errorf("config: slider initial %g outside [%g, %g]", s.Initial, s.Min, s.Max)
	}
	switch c.Surface {
	case SurfaceAuto, SurfaceSlider, SurfaceHTTP, SurfaceStdin, SurfaceNone:
	case SurfaceScript:
		if c.Script == "" {
			return errors.New("config: script surface needs a script file")
		}
	default:
		return fmt.Errorf("config: unknown surface %q", c.Surface)
	}
	return nil
}

// Engine returns the engine configuration for the resolved value references.
func (c *Config) Engine(input, output cosim.ValueRef) cosim.Config {
	return cosim.Config{
		StartTime:        c.StartTime,
		StopTime:         c.StopTime,
		StepSize:         c.StepSize,
		Tolerance:        c.Tolerance,
		ToleranceDefined: c.Tolerance > 0,
		Input:            input,
		Output:           output,
		Speed:            c.Speed,
	}
}
