package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	m "stockforecast/models"
)

const (
	SourceAlphaVantage = "alphavantage"
	SourceQuandl       = "quandl"
)

type Config struct {
	Source string `yaml:"source" default:"alphavantage" validate:"oneof=alphavantage quandl"`

	AlphaVantage struct {
		Host       string `yaml:"host" default:"www.alphavantage.co" validate:"required"`
		ApiKey     string `yaml:"api_key"`
		TimeSeries string `yaml:"time_series" default:"TIME_SERIES_DAILY_ADJUSTED" validate:"oneof=TIME_SERIES_DAILY TIME_SERIES_DAILY_ADJUSTED"`
		OutputSize string `yaml:"output_size" default:"full" validate:"oneof=full compact"`
	} `yaml:"alpha_vantage"`

	Quandl struct {
		Host      string `yaml:"host" default:"data.nasdaq.com" validate:"required"`
		ApiKey    string `yaml:"api_key"`
		Collapse  string `yaml:"collapse" validate:"omitempty,oneof=none daily weekly monthly quarterly annual"`
		Transform string `yaml:"transform" validate:"omitempty,oneof=none diff rdiff rdiff_from cumul normalize"`
	} `yaml:"quandl"`

	Database struct {
		Url string `yaml:"url"`
	} `yaml:"database"`

	Forecast m.ForecastSettings `yaml:"forecast"`

	Chart struct {
		Dir string `yaml:"dir" default:"charts"`
	} `yaml:"chart"`

	Server struct {
		Addr string `yaml:"addr" default:":8080"`
	} `yaml:"server"`

	Sync struct {
		Cron        string        `yaml:"cron" default:"0 0 22 * * 1-5"`
		Symbols     []string      `yaml:"symbols"`
		MinInterval time.Duration `yaml:"min_interval" default:"24h" validate:"gt=0"`
		Workers     int           `yaml:"workers" default:"4" validate:"gte=1,lte=64"`
	} `yaml:"sync"`

	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	} `yaml:"log"`
}

// Load reads .env, then the yaml file at path when it exists, then environment overrides.
// Defaults fill whatever is still unset.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg(".env not loaded")
	}

	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(cfg)

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FORECAST_SOURCE"); v != "" {
		cfg.Source = strings.ToLower(v)
	}
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		cfg.AlphaVantage.ApiKey = v
	}
	if v := os.Getenv("NASDAQ_DATA_LINK_API_KEY"); v != "" {
		cfg.Quandl.ApiKey = v
	} else if v := os.Getenv("QUANDL_API_KEY"); v != "" {
		cfg.Quandl.ApiKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.Url = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}

// Validate checks field rules and that the selected source has a key
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Source {
	case SourceAlphaVantage:
		if c.AlphaVantage.ApiKey == "" {
			return errors.New("alpha_vantage.api_key or ALPHAVANTAGE_API_KEY is required")
		}
	case SourceQuandl:
		if c.Quandl.ApiKey == "" {
			return errors.New("quandl.api_key or NASDAQ_DATA_LINK_API_KEY is required")
		}
	}
	return nil
}

func (c *Config) HasDatabase() bool {
	return c.Database.Url != ""
}
