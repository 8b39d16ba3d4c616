package client

import (
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/httptask/config"
	"github.com/adamwoolhether/httptask/transport"
)

// SessionFactory creates the transport session a Client submits to. The
// session must report to d.
type SessionFactory func(d transport.Delegate) (transport.Session, error)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	cfg             *config.Config
	factory         *config.Factory
	session         SessionFactory
	transportOpts   []transport.Option
	logger          *slog.Logger
	tracer          trace.Tracer
	propagator      propagation.TextMapPropagator
	maxRetries      *int
	dispatcher      Dispatcher
	requestDelegate RequestDelegate
	taskDelegate    TaskDelegate
}

// WithConfig sets the configuration used for the request factory and the
// default session.
func WithConfig(cfg config.Config) Option {
	return func(o *options) error {
		o.cfg = &cfg
		return nil
	}
}

// WithFactory uses an existing request factory. Its configuration takes
// precedence over WithConfig.
func WithFactory(f *config.Factory) Option {
	return func(o *options) error {
		if f == nil {
			return errors.New("factory must not be nil")
		}
		o.factory = f
		return nil
	}
}

// WithSession replaces the default [transport.HTTPSession].
func WithSession(fn SessionFactory) Option {
	return func(o *options) error {
		if fn == nil {
			return errors.New("session factory must not be nil")
		}
		o.session = fn
		return nil
	}
}

// WithTransportOptions passes extra options to the default session.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(o *options) error {
		o.transportOpts = append(o.transportOpts, opts...)
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithTracer injects the tracer used for per-attempt spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

// WithPropagator sets the propagator that writes trace context into
// outgoing requests. The global propagator is used by default.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(o *options) error {
		o.propagator = p
		return nil
	}
}

// WithMaxRetries overrides the configured attempt ceiling.
func WithMaxRetries(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.New("max retries must not be negative")
		}
		o.maxRetries = &n
		return nil
	}
}

// WithDispatcher sets where completion callbacks run.
func WithDispatcher(d Dispatcher) Option {
	return func(o *options) error {
		if d == nil {
			return errors.New("dispatcher must not be nil")
		}
		o.dispatcher = d
		return nil
	}
}

// WithRequestDelegate installs a RequestDelegate.
func WithRequestDelegate(d RequestDelegate) Option {
	return func(o *options) error {
		o.requestDelegate = d
		return nil
	}
}

// WithTaskDelegate installs a TaskDelegate.
func WithTaskDelegate(d TaskDelegate) Option {
	return func(o *options) error {
		o.taskDelegate = d
		return nil
	}
}
