// Package throttle provides an [http.RoundTripper] that rate-limits
// outbound exchanges with the token bucket from [golang.org/x/time/rate].
//
//	rt, err := throttle.New(throttle.Config{RPS: 10, Burst: 5}, slog.Default, http.DefaultTransport)
//
// When the bucket is empty, a round trip blocks until a token is available
// or the request context ends.
package throttle

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// Config defines the limiter's sustained requests per second and its
// burst capacity.
type Config struct {
	RPS   int
	Burst int
}

// Validate reports whether both limits are positive.
func (c Config) Validate() error {
	if c.RPS <= 0 || c.Burst <= 0 {
		return fmt.Errorf("rps[%d] and burst[%d] %w", c.RPS, c.Burst, ErrMustNotBeZero)
	}
	return nil
}

type limiter struct {
	bucket *rate.Limiter
	cfg    Config
	next   http.RoundTripper
	logFn  func() *slog.Logger
}

// New wraps next with a limiter built from cfg. logFn is resolved on every
// round trip; a nil logger disables wait logging.
func New(cfg Config, logFn func() *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if next == nil {
		next = http.DefaultTransport
	}
	if logFn == nil {
		logFn = func() *slog.Logger { return nil }
	}

	return &limiter{
		bucket: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		cfg:    cfg,
		next:   next,
		logFn:  logFn,
	}, nil
}

func (l *limiter) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	if l.bucket.Allow() {
		return l.next.RoundTrip(r)
	}

	logger := l.logFn()
	if logger != nil {
		logger.Debug("throttle tokens exhausted", "rate", l.cfg.RPS, "burst", l.cfg.Burst, "host", r.URL.Host)
	}

	start := time.Now()
	if err := l.bucket.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}
	if logger != nil {
		logger.Debug("throttle wait complete", "waited", time.Since(start).String(), "host", r.URL.Host)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return l.next.RoundTrip(r)
}
