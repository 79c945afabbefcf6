package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Config struct {
	Listen   string   `yaml:"listen"`
	Logger   Logger   `yaml:"logger"`
	Upstream Upstream `yaml:"upstream"`
	Auth     Auth     `yaml:"auth"`
	Poll     Poll     `yaml:"poll"`
	Cache    Cache    `yaml:"cache"`
	CORS     CORS     `yaml:"cors"`
}

// Logger selects the log level and an optional file sink; with no file
// configured logs go to the process's standard streams.
type Logger struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Upstream points at the host site and the two auxiliary data sources: the
// historical rating snapshot service and the external prediction source.
type Upstream struct {
	BaseURL        string `yaml:"base_url"`
	RatingURL      string `yaml:"rating_url"`
	PredictorURL   string `yaml:"predictor_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (u Upstream) Timeout() time.Duration {
	if u.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(u.TimeoutSeconds) * time.Second
}

type Auth struct {
	JWT    JWT    `yaml:"jwt"`
	APIKey string `yaml:"api_key"`
}

type JWT struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

// Poll controls the submission-status polling loop: the delay grows linearly
// as base + attempt*step and the loop gives up after max_attempts checks.
type Poll struct {
	BaseDelayMS int `yaml:"base_delay_ms"`
	StepMS      int `yaml:"step_ms"`
	MaxAttempts int `yaml:"max_attempts"`
}

func (p Poll) BaseDelay() time.Duration {
	if p.BaseDelayMS <= 0 {
		return time.Second
	}
	return time.Duration(p.BaseDelayMS) * time.Millisecond
}

func (p Poll) Step() time.Duration {
	if p.StepMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(p.StepMS) * time.Millisecond
}

func (p Poll) Attempts() int {
	if p.MaxAttempts <= 0 {
		return 10
	}
	return p.MaxAttempts
}

type Cache struct {
	HistorySize int `yaml:"history_size"`
}

func (c Cache) Size() int {
	if c.HistorySize <= 0 {
		return 512
	}
	return c.HistorySize
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
