package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/adamwoolhether/httptask/transport/throttle"
)

// Option is a functional option for configuring an [HTTPSession].
type Option func(*options) error
type options struct {
	client               *http.Client
	rt                   http.RoundTripper
	logger               *slog.Logger
	clock                clock.Clock
	headers              http.Header
	userAgent            string
	throttle             *throttle.Config
	waitsForConnectivity bool
	connectivityInterval time.Duration
	probe                ProbeFunc
	maxConcurrent        int
	cacheEntries         int
}

// ProbeFunc reports whether addr (host:port) is reachable.
type ProbeFunc func(ctx context.Context, addr string) error

// WithClient replaces the [http.Client] used for exchanges. The client is
// copied; its Transport is used as the base of the round-trip chain unless
// [WithTransport] is also given.
func WithClient(hc *http.Client) Option {
	return func(o *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		o.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		o.rt = rt
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the session.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithClock replaces the clock used for cache freshness and connectivity
// polling.
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		if clk == nil {
			return errors.New("clock must not be nil")
		}
		o.clock = clk
		return nil
	}
}

// WithDefaultHeaders adds headers to every outgoing request that does not
// already carry them.
func WithDefaultHeaders(h http.Header) Option {
	return func(o *options) error {
		if o.headers == nil {
			o.headers = make(http.Header)
		}
		for k, v := range h {
			for _, e := range v {
				o.headers.Add(k, e)
			}
		}
		return nil
	}
}

// WithUserAgent sets the User-Agent header for requests that do not set one.
func WithUserAgent(ua string) Option {
	return func(o *options) error {
		o.userAgent = ua
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting with the given requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		o.throttle = &throttle.Config{RPS: rps, Burst: burst}
		return nil
	}
}

// WithWaitsForConnectivity makes handles wait for the host to become
// reachable instead of failing on dial errors. The host is probed every
// interval until it answers or the request times out.
func WithWaitsForConnectivity(interval time.Duration) Option {
	return func(o *options) error {
		if interval <= 0 {
			return errors.New("connectivity interval must be positive")
		}
		o.waitsForConnectivity = true
		o.connectivityInterval = interval
		return nil
	}
}

// WithProbe replaces the TCP dial used to detect connectivity.
func WithProbe(fn ProbeFunc) Option {
	return func(o *options) error {
		if fn == nil {
			return errors.New("probe must not be nil")
		}
		o.probe = fn
		return nil
	}
}

// WithMaxConcurrent limits the number of exchanges in flight. Waiting
// handles are admitted by priority, then in resume order.
func WithMaxConcurrent(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.New("max concurrent must not be negative")
		}
		o.maxConcurrent = n
		return nil
	}
}

// WithCache enables the response cache holding up to entries responses.
func WithCache(entries int) Option {
	return func(o *options) error {
		if entries < 0 {
			return errors.New("cache entries must not be negative")
		}
		o.cacheEntries = entries
		return nil
	}
}
