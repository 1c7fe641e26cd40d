package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/lblmc/pkg/generator"
)

func TestDefaultMatchesGenerator(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	opts := cfg.Options(nil)
	assert.Equal(t, generator.DefaultOptions(), opts)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestDecode(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
generator:
  template_function: true
  target_pragmas: true
  latency: 4
  fixed_point: true
  word_width: 24
  int_width: 8
  rescale_inverse: true
  rescale_divisor: 1024
  zero_bound: 1e-9
output_dir: out
log_level: debug
metrics_file: gen.prom
`))
	require.NoError(t, err)

	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "gen.prom", cfg.MetricsFile)

	opts := cfg.Options(slog.Default())
	assert.True(t, opts.TemplateFunction)
	assert.True(t, opts.TargetPragmas)
	assert.Equal(t, 4, opts.Latency)
	assert.Equal(t, 24, opts.WordWidth)
	assert.Equal(t, 8, opts.IntWidth)
	assert.Equal(t, 1024.0, opts.RescaleDivisor)
	assert.Equal(t, 1e-9, opts.ZeroBound)
	// untouched keys keep their defaults
	assert.Equal(t, 10.0, opts.ClockPeriod)
	assert.NotNil(t, opts.Logger)

	_, err = generator.New("check", 1, opts)
	assert.NoError(t, err)
}

func TestDecodeEmpty(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDecodeInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"divisor not power of two", "generator:\n  rescale_divisor: 1000\n", "Generator.RescaleDivisor"},
		{"negative zero bound", "generator:\n  zero_bound: -1\n", "Generator.ZeroBound"},
		{"int width over word width", "generator:\n  word_width: 8\n  int_width: 16\n", "Generator.IntWidth"},
		{"log level", "log_level: loud\n", "LogLevel"},
		{"empty output dir", "output_dir: \"\"\n", "OutputDir"},
		{"empty subsystem", "subsystems: [a.net, \"\"]\n", "Subsystems"},
		{"unknown key", "generator:\n  zero_bond: 1\n", "zero_bond"},
		{"not yaml", "generator: [\n", "decoding config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadResolvesSubsystems(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	abs := filepath.Join(dir, "abs.net")
	require.NoError(t, os.WriteFile(path, []byte("subsystems:\n  - a.net\n  - "+abs+"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.net"), abs}, cfg.Subsystems)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
