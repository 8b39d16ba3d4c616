// Package httptask exposes the client builder.
//
// Most of the API lives in [github.com/adamwoolhether/httptask/client];
// the helpers here only pick where the configuration comes from.
package httptask

import (
	"fmt"

	"github.com/adamwoolhether/httptask/client"
	"github.com/adamwoolhether/httptask/config"
)

// NewClient instantiates a new *client.Client with the provided options.
// If not specified, [config.Default] and a [transport.HTTPSession] are used.
//
// [transport.HTTPSession]: https://pkg.go.dev/github.com/adamwoolhether/httptask/transport#HTTPSession
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}

// NewClientFromEnv reads the configuration from environment variables
// with the given prefix, e.g. HTTPTASK_BASE_URL.
func NewClientFromEnv(prefix string, opts ...client.Option) (*client.Client, error) {
	cfg, err := config.FromEnv(prefix)
	if err != nil {
		return nil, fmt.Errorf("loading config from env: %w", err)
	}
	return client.Build(append([]client.Option{client.WithConfig(cfg)}, opts...)...)
}

// NewClientFromFile reads the configuration from a YAML file.
func NewClientFromFile(path string, opts ...client.Option) (*client.Client, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	return client.Build(append([]client.Option{client.WithConfig(cfg)}, opts...)...)
}
