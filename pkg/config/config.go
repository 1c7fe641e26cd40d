// Package config loads generator settings from YAML files.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/edp1096/lblmc/internal/consts"
	"github.com/edp1096/lblmc/pkg/generator"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("pow2", isPowerOfTwo); err != nil {
		panic(err)
	}
}

func isPowerOfTwo(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return false
	}
	frac, _ := math.Frexp(v)
	return frac == 0.5
}

// Generator mirrors generator.Options.
type Generator struct {
	TemplateFunction bool `yaml:"template_function"`
	TemplateRealType bool `yaml:"template_real_type"`

	TargetPragmas bool    `yaml:"target_pragmas"`
	ClockPeriod   float64 `yaml:"clock_period" validate:"gt=0"`
	Latency       int     `yaml:"latency" validate:"gte=0"`

	FixedPoint bool `yaml:"fixed_point"`
	WordWidth  int  `yaml:"word_width" validate:"gte=1,lte=1024"`
	IntWidth   int  `yaml:"int_width" validate:"gte=1,ltefield=WordWidth"`

	RescaleInverse bool    `yaml:"rescale_inverse"`
	RescaleDivisor float64 `yaml:"rescale_divisor" validate:"pow2"`

	SignalOutputs         bool `yaml:"signal_outputs"`
	RawSourceVectorOutput bool `yaml:"raw_source_vector_output"`
	ComponentSourceOutput bool `yaml:"component_source_output"`

	ZeroBound float64 `yaml:"zero_bound" validate:"gte=0"`
}

type Config struct {
	Generator   Generator `yaml:"generator"`
	OutputDir   string    `yaml:"output_dir" validate:"required"`
	LogLevel    string    `yaml:"log_level" validate:"oneof=debug info warn error"`
	MetricsFile string    `yaml:"metrics_file"`

	// Subsystems lists the netlists of a decomposed system. Relative paths
	// are resolved against the directory of the file they were loaded from.
	Subsystems []string `yaml:"subsystems" validate:"omitempty,dive,required"`
}

func Default() *Config {
	opts := generator.DefaultOptions()
	return &Config{
		Generator: Generator{
			ClockPeriod:    opts.ClockPeriod,
			WordWidth:      opts.WordWidth,
			IntWidth:       opts.IntWidth,
			RescaleDivisor: opts.RescaleDivisor,
			ZeroBound:      opts.ZeroBound,
		},
		OutputDir: consts.DefaultOutputDir,
		LogLevel:  "info",
	}
}

// Decode reads YAML from r over the defaults. Unknown keys are rejected.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i, s := range cfg.Subsystems {
		if !filepath.IsAbs(s) {
			cfg.Subsystems[i] = filepath.Join(base, s)
		}
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}
	e := errs[0]
	field := strings.TrimPrefix(e.Namespace(), "Config.")
	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s: field is required", field)
	case "pow2":
		return fmt.Errorf("%s: %v is not a power of two", field, e.Value())
	case "oneof":
		return fmt.Errorf("%s: must be one of %s", field, e.Param())
	case "gt", "gte":
		return fmt.Errorf("%s: must be at least %s", field, e.Param())
	case "lte", "ltefield":
		return fmt.Errorf("%s: must not exceed %s", field, e.Param())
	default:
		return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
	}
}

// Level maps LogLevel onto slog.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func (c *Config) Options(logger *slog.Logger) generator.Options {
	g := c.Generator
	return generator.Options{
		TemplateFunction:      g.TemplateFunction,
		TemplateRealType:      g.TemplateRealType,
		TargetPragmas:         g.TargetPragmas,
		ClockPeriod:           g.ClockPeriod,
		Latency:               g.Latency,
		FixedPoint:            g.FixedPoint,
		WordWidth:             g.WordWidth,
		IntWidth:              g.IntWidth,
		RescaleInverse:        g.RescaleInverse,
		RescaleDivisor:        g.RescaleDivisor,
		SignalOutputs:         g.SignalOutputs,
		RawSourceVectorOutput: g.RawSourceVectorOutput,
		ComponentSourceOutput: g.ComponentSourceOutput,
		ZeroBound:             g.ZeroBound,
		Logger:                logger,
	}
}
