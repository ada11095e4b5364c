package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"

	"github.com/herratomsiili/portwatch/internal/reconciler"
)

// Config holds everything portwatch reads from config.toml.
type Config struct {
	APIBaseURL        string
	FunctionKey       string
	AuthToken         string
	AISURL            string
	PageDelay         time.Duration
	PollInterval      time.Duration
	MaxPages          int
	DrainTimeout      time.Duration
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	MissingPolicy     string
	StaleAfter        time.Duration
	LogLevel          string
	LogFile           string
	MetricsAddr       string
}

const (
	defaultConfigPath        = "~/.config/portwatch/config.toml"
	defaultAPIBaseURL        = "http://localhost:7071"
	defaultAISURL            = "https://meri.digitraffic.fi/api/ais/v1/locations"
	defaultPageDelay         = 300 * time.Millisecond
	defaultPollInterval      = 60 * time.Second
	defaultRequestTimeout    = 15 * time.Second
	defaultRequestsPerSecond = 5
	defaultMissingPolicy     = "remove"
	defaultStaleAfter        = 10 * time.Minute
	defaultLogLevel          = "info"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIBaseURL:        defaultAPIBaseURL,
		AISURL:            defaultAISURL,
		PageDelay:         defaultPageDelay,
		PollInterval:      defaultPollInterval,
		RequestTimeout:    defaultRequestTimeout,
		RequestsPerSecond: defaultRequestsPerSecond,
		MissingPolicy:     defaultMissingPolicy,
		StaleAfter:        defaultStaleAfter,
		LogLevel:          defaultLogLevel,
	}
}

type rawConfig struct {
	APIBaseURL        string   `toml:"api_base_url"`
	FunctionKey       string   `toml:"function_key"`
	AuthToken         string   `toml:"auth_token"`
	AISURL            string   `toml:"ais_url"`
	PageDelay         string   `toml:"page_delay"`
	PollInterval      string   `toml:"poll_interval"`
	MaxPages          int      `toml:"max_pages"`
	DrainTimeout      string   `toml:"drain_timeout"`
	RequestTimeout    string   `toml:"request_timeout"`
	RequestsPerSecond *float64 `toml:"requests_per_second"`
	MissingPolicy     string   `toml:"missing_policy"`
	StaleAfter        string   `toml:"stale_after"`
	LogLevel          string   `toml:"log_level"`
	LogFile           string   `toml:"log_file"`
	MetricsAddr       string   `toml:"metrics_addr"`
}

// Load reads the config at path, or the default location when path is empty.
// A missing file yields the defaults; empty values keep their defaults.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.apply(raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", resolved, err)
	}
	return cfg, nil
}

func (c *Config) apply(raw rawConfig) error {
	setString(&c.APIBaseURL, raw.APIBaseURL)
	setString(&c.FunctionKey, raw.FunctionKey)
	setString(&c.AuthToken, raw.AuthToken)
	setString(&c.AISURL, raw.AISURL)
	setString(&c.MissingPolicy, raw.MissingPolicy)
	setString(&c.LogLevel, raw.LogLevel)
	setString(&c.MetricsAddr, raw.MetricsAddr)
	if logFile := strings.TrimSpace(raw.LogFile); logFile != "" {
		c.LogFile = mustExpand(logFile)
	}
	c.MaxPages = raw.MaxPages
	if raw.RequestsPerSecond != nil {
		c.RequestsPerSecond = *raw.RequestsPerSecond
	}

	var err error
	err = multierr.Append(err, setDuration(&c.PageDelay, "page_delay", raw.PageDelay))
	err = multierr.Append(err, setDuration(&c.PollInterval, "poll_interval", raw.PollInterval))
	err = multierr.Append(err, setDuration(&c.DrainTimeout, "drain_timeout", raw.DrainTimeout))
	err = multierr.Append(err, setDuration(&c.RequestTimeout, "request_timeout", raw.RequestTimeout))
	err = multierr.Append(err, setDuration(&c.StaleAfter, "stale_after", raw.StaleAfter))
	return err
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var err error
	if _, perr := url.Parse(c.APIBaseURL); perr != nil || strings.TrimSpace(c.APIBaseURL) == "" {
		err = multierr.Append(err, fmt.Errorf("api_base_url %q is not a valid url", c.APIBaseURL))
	}
	if u, perr := url.Parse(c.AISURL); perr != nil || u.Scheme == "" || u.Host == "" {
		err = multierr.Append(err, fmt.Errorf("ais_url %q must be an absolute url", c.AISURL))
	}
	if c.PageDelay < 0 {
		err = multierr.Append(err, fmt.Errorf("page_delay must not be negative"))
	}
	if c.PollInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("poll_interval must be positive"))
	}
	if c.MaxPages < 0 {
		err = multierr.Append(err, fmt.Errorf("max_pages must not be negative"))
	}
	if c.DrainTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("drain_timeout must not be negative"))
	}
	if c.RequestTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("request_timeout must be positive"))
	}
	if c.RequestsPerSecond < 0 {
		err = multierr.Append(err, fmt.Errorf("requests_per_second must not be negative"))
	}
	if _, perr := reconciler.ParsePolicy(c.MissingPolicy); perr != nil {
		err = multierr.Append(err, perr)
	}
	if c.StaleAfter <= 0 {
		err = multierr.Append(err, fmt.Errorf("stale_after must be positive"))
	}
	if _, perr := log.ParseLevel(strings.ToLower(c.LogLevel)); perr != nil {
		err = multierr.Append(err, fmt.Errorf("log_level %q is not a known level", c.LogLevel))
	}
	return err
}

// Policy returns the parsed missing-entity policy.
func (c Config) Policy() reconciler.Policy {
	p, err := reconciler.ParsePolicy(c.MissingPolicy)
	if err != nil {
		return reconciler.RemoveMissing
	}
	return p
}

func setString(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name, value string) error {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
