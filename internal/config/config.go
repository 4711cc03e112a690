// Package config loads campaign settings from defaults, an optional YAML
// file and APPLYLOAD_* environment variables, in that order of precedence.
//
// Example YAML:
//
//	sessions: 250
//	duration: 10m
//	baseUrl: "http://localhost:8080/api/v1"
//	pollTimeout: 2m
//	maxRps: 400
//	log:
//	  level: debug
//	  format: json
package config

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/applyload/internal/campaign"
	"github.com/wesleyorama2/applyload/internal/session"
	"github.com/wesleyorama2/applyload/internal/throttle"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "APPLYLOAD_"

// Config is the complete campaign configuration.
type Config struct {
	// Sessions is the number of sessions launched during ramp-up.
	Sessions int `json:"sessions" yaml:"sessions" env:"SESSIONS"`

	// Duration is how long finished sessions are replaced.
	Duration Duration `json:"duration" yaml:"duration" env:"DURATION"`

	// DurationMinutes, when set, overrides Duration. It matches the
	// interactive prompt, which asks for minutes. An explicit 0 is kept so
	// that Validate rejects it.
	DurationMinutes *float64 `json:"durationMinutes,omitempty" yaml:"durationMinutes,omitempty" env:"DURATION_MINUTES"`

	// BaseURL is the form service API root.
	BaseURL string `json:"baseUrl" yaml:"baseUrl" env:"BASE_URL"`

	Product    string `json:"product" yaml:"product" env:"PRODUCT"`
	Brand      string `json:"brand" yaml:"brand" env:"BRAND"`
	ArrivalURL string `json:"arrivalUrl" yaml:"arrivalUrl" env:"ARRIVAL_URL"`
	OfferType  string `json:"offerType" yaml:"offerType" env:"OFFER_TYPE"`

	// RampDelay separates launches during ramp-up.
	RampDelay Duration `json:"rampDelay" yaml:"rampDelay" env:"RAMP_DELAY"`

	// StepDwell is the pause before and after each form page.
	StepDwell Duration `json:"stepDwell" yaml:"stepDwell" env:"STEP_DWELL"`

	// PollInterval separates decision fetches while PROCESSING.
	PollInterval Duration `json:"pollInterval" yaml:"pollInterval" env:"POLL_INTERVAL"`

	// MaxPollAttempts and PollTimeout bound the decision poll (0 = unbounded).
	MaxPollAttempts int      `json:"maxPollAttempts,omitempty" yaml:"maxPollAttempts,omitempty" env:"MAX_POLL_ATTEMPTS"`
	PollTimeout     Duration `json:"pollTimeout,omitempty" yaml:"pollTimeout,omitempty" env:"POLL_TIMEOUT"`

	// RequestTimeout bounds each HTTP request (0 = none).
	RequestTimeout Duration `json:"requestTimeout,omitempty" yaml:"requestTimeout,omitempty" env:"REQUEST_TIMEOUT"`

	// MaxRPS caps requests per second across all sessions (0 = unlimited).
	MaxRPS float64 `json:"maxRps,omitempty" yaml:"maxRps,omitempty" env:"MAX_RPS"`

	// ValidateResponses checks service responses against JSON schemas.
	ValidateResponses bool `json:"validateResponses" yaml:"validateResponses" env:"VALIDATE_RESPONSES"`

	Report ReportConfig `json:"report" yaml:"report" envPrefix:"REPORT_"`
	Log    Logger       `json:"log" yaml:"log" envPrefix:"LOG_"`
}

// ReportConfig controls progress and summary output.
type ReportConfig struct {
	// ShowActive adds the live session count to the progress line.
	ShowActive bool `json:"showActive" yaml:"showActive" env:"SHOW_ACTIVE"`

	// Format of the final summary: text, json or yaml.
	Format string `json:"format" yaml:"format" env:"FORMAT"`
}

// Default returns the configuration of the stock sandbox campaign.
func Default() *Config {
	opts := session.DefaultOptions()
	return &Config{
		Sessions:          1000,
		Duration:          Duration(time.Minute),
		BaseURL:           opts.BaseURL,
		Product:           opts.Product,
		Brand:             opts.Brand,
		ArrivalURL:        opts.ArrivalURL,
		OfferType:         opts.OfferType,
		RampDelay:         Duration(time.Second),
		StepDwell:         Duration(opts.StepDwell),
		PollInterval:      Duration(opts.Poll.Interval),
		ValidateResponses: opts.ValidateResponses,
		Report:            ReportConfig{Format: "text"},
		Log:               Logger{Level: "info", Format: "text"},
	}
}

// Load reads the YAML file at path over the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// ApplyEnv overlays APPLYLOAD_* environment variables onto cfg. Unset
// variables leave their field untouched.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	cfg.normalize()
	return nil
}

// SetDurationMinutes sets the duration from a number of minutes.
func (c *Config) SetDurationMinutes(minutes float64) {
	c.DurationMinutes = &minutes
	c.normalize()
}

// normalize folds DurationMinutes into Duration.
func (c *Config) normalize() {
	if c.DurationMinutes != nil {
		c.Duration = Duration(time.Duration(*c.DurationMinutes * float64(time.Minute)))
		c.DurationMinutes = nil
	}
}

// Campaign returns the scheduler settings.
func (c *Config) Campaign() campaign.Config {
	return campaign.Config{
		Sessions:  c.Sessions,
		Duration:  c.Duration.Std(),
		RampDelay: c.RampDelay.Std(),
	}
}

// Transport returns the shared HTTP client settings.
func (c *Config) Transport() campaign.TransportConfig {
	t := campaign.DefaultTransportConfig()
	t.Timeout = c.RequestTimeout.Std()
	if c.Sessions > t.MaxIdleConnsPerHost {
		t.MaxIdleConns = c.Sessions
		t.MaxIdleConnsPerHost = c.Sessions
	}
	return t
}

// Limiter returns the campaign-wide request limiter, or nil when MaxRPS
// is unset.
func (c *Config) Limiter() *throttle.LeakyBucket {
	if c.MaxRPS <= 0 {
		return nil
	}
	return throttle.NewLeakyBucket(c.MaxRPS)
}

// Session returns the per-session options. hc is the shared client and
// limiter may be nil.
func (c *Config) Session(hc *http.Client, limiter *throttle.LeakyBucket) session.Options {
	opts := session.Options{
		BaseURL:    c.BaseURL,
		Product:    c.Product,
		Brand:      c.Brand,
		ArrivalURL: c.ArrivalURL,
		OfferType:  c.OfferType,
		StepDwell:  c.StepDwell.Std(),
		Poll: session.PollPolicy{
			Interval:    c.PollInterval.Std(),
			MaxAttempts: c.MaxPollAttempts,
			Timeout:     c.PollTimeout.Std(),
		},
		RequestTimeout:    c.RequestTimeout.Std(),
		ValidateResponses: c.ValidateResponses,
		HTTPClient:        hc,
	}
	if limiter != nil {
		opts.Limiter = limiter
	}
	return opts
}
