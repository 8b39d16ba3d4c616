// Package config holds the settings shared by every request a client
// makes, and the Factory that turns paths into requests.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/adamwoolhether/httptask/transport"
)

const (
	DefaultRequestTimeout       = 60 * time.Second
	DefaultConnectivityInterval = 2 * time.Second
	DefaultMaxRetries           = 3
	DefaultCacheEntries         = 256
)

// Config is the client configuration. It can be built in code, decoded
// from YAML, or read from the environment.
type Config struct {
	BaseURL              string            `yaml:"base_url" envconfig:"BASE_URL" validate:"omitempty,abs_http_url"`
	DefaultHeaders       map[string]string `yaml:"default_headers" envconfig:"DEFAULT_HEADERS"`
	Languages            []string          `yaml:"languages" envconfig:"LANGUAGES" validate:"dive,bcp47_language_tag"`
	UserAgent            string            `yaml:"user_agent" envconfig:"USER_AGENT"`
	RequestTimeout       time.Duration     `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"60s" validate:"gt=0"`
	WaitsForConnectivity bool              `yaml:"waits_for_connectivity" envconfig:"WAITS_FOR_CONNECTIVITY" default:"true"`
	ConnectivityInterval time.Duration     `yaml:"connectivity_interval" envconfig:"CONNECTIVITY_INTERVAL" default:"2s" validate:"gt=0"`
	MaxRetries           int               `yaml:"max_retries" envconfig:"MAX_RETRIES" default:"3" validate:"gte=0"`
	MaxConcurrent        int               `yaml:"max_concurrent" envconfig:"MAX_CONCURRENT" validate:"gte=0"`
	CacheEntries         int               `yaml:"cache_entries" envconfig:"CACHE_ENTRIES" default:"256" validate:"gte=0"`
	Throttle             Throttle          `yaml:"throttle" envconfig:"THROTTLE"`
}

// Throttle configures outbound rate limiting. A zero RPS disables it.
type Throttle struct {
	RPS   int `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst int `yaml:"burst" envconfig:"BURST" validate:"required_with=RPS,gte=0"`
}

// Default returns the configuration used when nothing else is given.
func Default() Config {
	return Config{
		RequestTimeout:       DefaultRequestTimeout,
		WaitsForConnectivity: true,
		ConnectivityInterval: DefaultConnectivityInterval,
		MaxRetries:           DefaultMaxRetries,
		CacheEntries:         DefaultCacheEntries,
	}
}

// Load decodes YAML from r on top of Default and validates the result.
// Unknown keys are rejected.
func Load(r io.Reader) (Config, error) {
	cfg := Default()

	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFile is Load for the YAML file at path.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// FromEnv reads the configuration from environment variables named
// PREFIX_BASE_URL, PREFIX_MAX_RETRIES and so on.
func FromEnv(prefix string) (Config, error) {
	var cfg Config

	if err := envconfig.Process(prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// FromEnvFiles loads the given dotenv files into the environment, then
// calls FromEnv. Variables already set take precedence over the files.
// Without files, ".env" in the working directory is read.
func FromEnvFiles(prefix string, files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		return Config{}, fmt.Errorf("loading env files: %w", err)
	}

	return FromEnv(prefix)
}

// Header returns the headers added to every request: the configured
// defaults, plus Accept-Language when Languages is set.
func (c Config) Header() (http.Header, error) {
	h := make(http.Header, len(c.DefaultHeaders)+1)
	for k, v := range c.DefaultHeaders {
		h.Set(k, v)
	}

	if len(c.Languages) > 0 && h.Get("Accept-Language") == "" {
		v, err := AcceptLanguage(c.Languages)
		if err != nil {
			return nil, err
		}
		h.Set("Accept-Language", v)
	}

	return h, nil
}

// TransportOptions translates the configuration into options for
// [transport.NewHTTPSession].
func (c Config) TransportOptions() ([]transport.Option, error) {
	h, err := c.Header()
	if err != nil {
		return nil, err
	}

	opts := []transport.Option{
		transport.WithDefaultHeaders(h),
		transport.WithMaxConcurrent(c.MaxConcurrent),
		transport.WithCache(c.CacheEntries),
	}
	if c.UserAgent != "" {
		opts = append(opts, transport.WithUserAgent(c.UserAgent))
	}
	if c.WaitsForConnectivity {
		interval := c.ConnectivityInterval
		if interval <= 0 {
			interval = DefaultConnectivityInterval
		}
		opts = append(opts, transport.WithWaitsForConnectivity(interval))
	}
	if c.Throttle.RPS > 0 {
		opts = append(opts, transport.WithThrottle(c.Throttle.RPS, c.Throttle.Burst))
	}

	return opts, nil
}
