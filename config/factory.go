package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/adamwoolhether/httptask/request"
)

var (
	// ErrMissingBaseURL is returned for relative requests when no base URL
	// is configured.
	ErrMissingBaseURL = errors.New("no base url configured")
	// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs.
	ErrInvalidURL = request.ErrInvalidURL
)

// Factory creates requests carrying the configuration's defaults.
type Factory struct {
	cfg     Config
	baseURL *url.URL
	logger  *slog.Logger
}

// FactoryOption is a functional option for [NewFactory].
type FactoryOption func(*Factory) error

// WithLogger injects a custom [slog.Logger] into the [Factory].
func WithLogger(logger *slog.Logger) FactoryOption {
	return func(f *Factory) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		f.logger = logger
		return nil
	}
}

// NewFactory validates cfg and returns a Factory for it. An invalid base
// URL is a configuration error.
func NewFactory(cfg Config, optFns ...FactoryOption) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	f := &Factory{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range optFns {
		if err := opt(f); err != nil {
			return nil, fmt.Errorf("applying factory option: %w", err)
		}
	}

	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
		}
		if err := request.CheckURL(u); err != nil {
			return nil, err
		}
		f.baseURL = u
	}

	return f, nil
}

// Config returns the configuration the factory was built from.
func (f *Factory) Config() Config {
	return f.cfg
}

// BaseURL returns a copy of the configured base URL, or nil.
func (f *Factory) BaseURL() *url.URL {
	if f.baseURL == nil {
		return nil
	}
	u := *f.baseURL
	return &u
}

// Request creates a request for path relative to the base URL. A query
// string on path is kept.
func (f *Factory) Request(path string, m request.Method, opts ...request.Option) (*request.Request, error) {
	u, err := f.relative(path)
	if err != nil {
		return nil, err
	}
	return f.AbsoluteRequest(u, m, opts...)
}

// AbsoluteRequest creates a request for u, which must be an absolute
// http or https URL.
func (f *Factory) AbsoluteRequest(u *url.URL, m request.Method, opts ...request.Option) (*request.Request, error) {
	defaults := []request.Option{request.WithTimeout(f.cfg.RequestTimeout)}

	r, err := request.New(u, m, append(defaults, opts...)...)
	if err != nil {
		return nil, err
	}

	switch {
	case m == request.Get && len(r.Body) > 0:
		f.logger.Debug("GET request carries a body that will not be sent", "url", u.String())
	case m.ExpectsBody() && len(r.Body) == 0:
		f.logger.Debug("request has no body", "method", m, "url", u.String())
	}

	return r, nil
}

// Resolve returns urlOrPath as an absolute URL, resolving anything that
// is not already absolute against the base URL.
func (f *Factory) Resolve(urlOrPath string) (*url.URL, error) {
	u, err := url.Parse(urlOrPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.IsAbs() {
		if err := request.CheckURL(u); err != nil {
			return nil, err
		}
		return u, nil
	}
	return f.relative(urlOrPath)
}

func (f *Factory) relative(path string) (*url.URL, error) {
	if f.baseURL == nil {
		return nil, ErrMissingBaseURL
	}

	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return nil, fmt.Errorf("%w: %q is not a relative path", ErrInvalidURL, path)
	}

	u := f.baseURL.JoinPath(ref.Path)
	if ref.RawQuery != "" {
		u.RawQuery = strings.TrimPrefix(u.RawQuery+"&"+ref.RawQuery, "&")
	}
	return u, nil
}
