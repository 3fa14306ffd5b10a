package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/nowhere-man/VMA/bd"
	"github.com/nowhere-man/VMA/common"
	"github.com/nowhere-man/VMA/report"
	"github.com/pelletier/go-toml/v2"
	"github.com/samber/lo"
)

const EnvPrefix = "VMA_"

type Config struct {
	BD     BDConfig     `toml:"bd"`
	Report ReportConfig `toml:"report"`
	Log    LogConfig    `toml:"log"`
}

type BDConfig struct {
	Mode             string `toml:"mode"`
	Degree           int    `toml:"degree"`
	PiecewiseSamples int    `toml:"piecewise_samples"`
	MinPairs         int    `toml:"min_pairs"`
}

type ReportConfig struct {
	MinDistinctPoints int    `toml:"min_distinct_points"`
	Workers           int    `toml:"workers"`
	Format            string `toml:"format"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

func Default() *Config {
	return &Config{
		BD: BDConfig{
			Mode:             string(bd.ExactMode),
			Degree:           bd.FitDegree,
			PiecewiseSamples: bd.PiecewiseSamples,
			MinPairs:         bd.MinSamplePairs,
		},
		Report: ReportConfig{
			MinDistinctPoints: report.MinDistinctPoints,
			Workers:           report.DefaultWorkers,
			Format:            report.FormatTable,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load applies, in increasing precedence, the defaults, the TOML file at path
// (skipped when path is empty) and VMA_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"BD_MODE":       &c.BD.Mode,
		"REPORT_FORMAT": &c.Report.Format,
		"LOG_LEVEL":     &c.Log.Level,
	}
	for key, field := range strs {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*field = v
		}
	}

	ints := map[string]*int{
		"BD_DEGREE":                  &c.BD.Degree,
		"BD_PIECEWISE_SAMPLES":       &c.BD.PiecewiseSamples,
		"BD_MIN_PAIRS":               &c.BD.MinPairs,
		"REPORT_MIN_DISTINCT_POINTS": &c.Report.MinDistinctPoints,
		"REPORT_WORKERS":             &c.Report.Workers,
	}
	for key, field := range ints {
		v := os.Getenv(EnvPrefix + key)
		if v == "" {
			continue
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s=%q: %w", EnvPrefix, key, v, common.ErrorInvalidValue)
		}
		*field = i
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.BDOptions().Validate(); err != nil {
		return err
	}
	if c.Report.Workers <= 0 {
		return fmt.Errorf("workers %d: %w", c.Report.Workers, common.ErrorInvalidValue)
	}
	if c.Report.MinDistinctPoints < 0 {
		return fmt.Errorf("min distinct points %d: %w", c.Report.MinDistinctPoints, common.ErrorInvalidValue)
	}
	if !lo.Contains(report.AllFormats, c.Report.Format) {
		return fmt.Errorf("format %q: %w", c.Report.Format, common.ErrorInvalidValue)
	}
	return nil
}

func (c *Config) BDOptions() bd.Options {
	return bd.Options{
		Mode:             bd.Mode(c.BD.Mode),
		Degree:           c.BD.Degree,
		PiecewiseSamples: c.BD.PiecewiseSamples,
		MinPairs:         c.BD.MinPairs,
	}
}

func (c *Config) ReportOptions() report.Options {
	return report.Options{
		BD:                c.BDOptions(),
		MinDistinctPoints: c.Report.MinDistinctPoints,
		Workers:           c.Report.Workers,
	}
}
