// Package config handles YAML configuration parsing.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"camstress/internal/collector"
	"camstress/internal/probe"
)

var ErrInvalid = errors.New("invalid config")

// Config is the root configuration structure. Zero-valued fields in a file
// keep their defaults.
type Config struct {
	BaseURL         string        `yaml:"baseURL"`
	Timeout         time.Duration `yaml:"timeout"`
	LivenessTimeout time.Duration `yaml:"livenessTimeout"`
	// StrictBusy treats 429 from capture endpoints as a failure.
	StrictBusy    bool                  `yaml:"strictBusy"`
	StageDelay    time.Duration         `yaml:"stageDelay"`
	StreamSettle  time.Duration         `yaml:"streamSettle"`
	Stages        Stages                `yaml:"stages"`
	ConfigPayload probe.ConfigPayload   `yaml:"configPayload"`
	Thresholds    *collector.Thresholds `yaml:"thresholds,omitempty"`
}

// Stage sizes one burst of the scenario.
type Stage struct {
	Requests int           `yaml:"requests"`
	Workers  int           `yaml:"workers"`
	Settle   time.Duration `yaml:"settle"`
	RPS      float64       `yaml:"rps"`
}

// Stages holds one entry per scenario stage.
type Stages struct {
	LightReads   Stage `yaml:"lightReads"`
	MixedReads   Stage `yaml:"mixedReads"`
	ConfigWrites Stage `yaml:"configWrites"`
	Capture      Stage `yaml:"capture"`
	FullCapture  Stage `yaml:"fullCapture"`
	ExtremeMix   Stage `yaml:"extremeMix"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		BaseURL:         "http://localhost:8080",
		Timeout:         10 * time.Second,
		LivenessTimeout: 5 * time.Second,
		StageDelay:      time.Second,
		StreamSettle:    2 * time.Second,
		Stages: Stages{
			LightReads:   Stage{Requests: 50, Workers: 10},
			MixedReads:   Stage{Requests: 30, Workers: 15},
			ConfigWrites: Stage{Requests: 10, Workers: 5},
			Capture:      Stage{Requests: 20, Workers: 5, Settle: 2 * time.Second},
			FullCapture:  Stage{Requests: 10, Workers: 5, Settle: 3 * time.Second},
			ExtremeMix:   Stage{Requests: 100, Workers: 20, Settle: 2 * time.Second},
		},
		ConfigPayload: probe.DefaultConfigPayload(),
	}
}

// Load reads a YAML file and merges it onto Default. The result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the scenario cannot run.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: baseURL %q must be an absolute http(s) URL", ErrInvalid, c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalid, c.Timeout)
	}
	if c.LivenessTimeout <= 0 {
		return fmt.Errorf("%w: livenessTimeout must be positive, got %v", ErrInvalid, c.LivenessTimeout)
	}
	if c.StageDelay < 0 || c.StreamSettle < 0 {
		return fmt.Errorf("%w: delays must not be negative", ErrInvalid)
	}

	for _, s := range c.Stages.list() {
		if err := s.stage.validate(s.name); err != nil {
			return err
		}
	}

	p := c.ConfigPayload
	if p.Width <= 0 || p.Height <= 0 || p.FPS <= 0 {
		return fmt.Errorf("%w: configPayload needs positive width, height and fps", ErrInvalid)
	}
	if p.Quality < 1 || p.Quality > 100 {
		return fmt.Errorf("%w: configPayload quality must be in 1..100, got %d", ErrInvalid, p.Quality)
	}

	if c.Thresholds != nil {
		if err := c.Thresholds.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	return nil
}

func (s Stage) validate(name string) error {
	if s.Requests <= 0 {
		return fmt.Errorf("%w: stage %s: requests must be positive, got %d", ErrInvalid, name, s.Requests)
	}
	if s.Workers <= 0 {
		return fmt.Errorf("%w: stage %s: workers must be positive, got %d", ErrInvalid, name, s.Workers)
	}
	if s.Settle < 0 || s.RPS < 0 {
		return fmt.Errorf("%w: stage %s: settle and rps must not be negative", ErrInvalid, name)
	}
	return nil
}

// MaxWorkers is the largest worker count of any stage.
func (s Stages) MaxWorkers() int {
	n := 0
	for _, ns := range s.list() {
		n = max(n, ns.stage.Workers)
	}
	return n
}

type namedStage struct {
	name  string
	stage Stage
}

func (s Stages) list() []namedStage {
	return []namedStage{
		{"lightReads", s.LightReads},
		{"mixedReads", s.MixedReads},
		{"configWrites", s.ConfigWrites},
		{"capture", s.Capture},
		{"fullCapture", s.FullCapture},
		{"extremeMix", s.ExtremeMix},
	}
}
