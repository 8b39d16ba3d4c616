package client

import (
	"context"
	"net/url"

	"github.com/adamwoolhether/httptask/request"
)

// Get creates a GET Task for urlOrPath. Anything that is not an absolute
// URL is resolved against the configured base URL. Configuration errors
// are returned before a Task exists.
func (c *Client) Get(ctx context.Context, urlOrPath string, startManually bool, onComplete CompletionFunc, opts ...request.Option) (*Task, error) {
	return c.do(ctx, request.Get, urlOrPath, startManually, onComplete, opts)
}

// Post creates a POST Task. See [Client.Get].
func (c *Client) Post(ctx context.Context, urlOrPath string, startManually bool, onComplete CompletionFunc, opts ...request.Option) (*Task, error) {
	return c.do(ctx, request.Post, urlOrPath, startManually, onComplete, opts)
}

// Put creates a PUT Task. See [Client.Get].
func (c *Client) Put(ctx context.Context, urlOrPath string, startManually bool, onComplete CompletionFunc, opts ...request.Option) (*Task, error) {
	return c.do(ctx, request.Put, urlOrPath, startManually, onComplete, opts)
}

// Delete creates a DELETE Task. See [Client.Get].
func (c *Client) Delete(ctx context.Context, urlOrPath string, startManually bool, onComplete CompletionFunc, opts ...request.Option) (*Task, error) {
	return c.do(ctx, request.Delete, urlOrPath, startManually, onComplete, opts)
}

// Patch creates a PATCH Task. See [Client.Get].
func (c *Client) Patch(ctx context.Context, urlOrPath string, startManually bool, onComplete CompletionFunc, opts ...request.Option) (*Task, error) {
	return c.do(ctx, request.Patch, urlOrPath, startManually, onComplete, opts)
}

func (c *Client) do(ctx context.Context, m request.Method, urlOrPath string, startManually bool, onComplete CompletionFunc, opts []request.Option) (*Task, error) {
	u, err := c.factory.Resolve(urlOrPath)
	if err != nil {
		return nil, err
	}

	r, err := c.factory.AbsoluteRequest(u, m, opts...)
	if err != nil {
		return nil, err
	}

	return c.Submit(ctx, r, startManually, onComplete), nil
}

// Request creates a request for path relative to the base URL.
// It's just a convenience method that wraps [config.Factory.Request].
func (c *Client) Request(path string, m request.Method, opts ...request.Option) (*request.Request, error) {
	return c.factory.Request(path, m, opts...)
}

// AbsoluteRequest creates a request for the absolute URL u.
// It's just a convenience method that wraps [config.Factory.AbsoluteRequest].
func (c *Client) AbsoluteRequest(u *url.URL, m request.Method, opts ...request.Option) (*request.Request, error) {
	return c.factory.AbsoluteRequest(u, m, opts...)
}
