package client_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/httptask/client"
	"github.com/adamwoolhether/httptask/config"
	"github.com/adamwoolhether/httptask/request"
	"github.com/adamwoolhether/httptask/retry"
	"github.com/adamwoolhether/httptask/transport"
)

type outcome struct {
	resp *client.Response
	err  error
}

func await(t *testing.T) (client.CompletionFunc, func() outcome) {
	t.Helper()
	ch := make(chan outcome, 1)
	onComplete := func(resp *client.Response, err error) { ch <- outcome{resp, err} }
	return onComplete, func() outcome {
		t.Helper()
		select {
		case o := <-ch:
			return o
		case <-time.After(5 * time.Second):
			t.Fatal("task never completed")
			return outcome{}
		}
	}
}

func build(t *testing.T, srv *httptest.Server, opts ...client.Option) *client.Client {
	t.Helper()
	cfg := config.Default()
	cfg.BaseURL = srv.URL + "/v1"
	cfg.WaitsForConnectivity = false
	cfg.UserAgent = "httptask-test"
	cfg.Languages = []string{"en-US", "de"}

	c, err := client.Build(append([]client.Option{client.WithConfig(cfg)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestIntegration_Post(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Path", r.URL.Path)
		w.Header().Set("X-UA", r.UserAgent())
		w.Header().Set("X-Lang", r.Header.Get("Accept-Language"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	c := build(t, srv)

	onComplete, wait := await(t)
	task, err := c.Post(t.Context(), "/items", false, onComplete, request.WithBody([]byte(`{"name":"a"}`)))
	require.NoError(t, err)

	o := wait()
	require.NoError(t, o.err)
	assert.Equal(t, client.StatusSuccess, o.resp.State())
	assert.Equal(t, `{"name":"a"}`, string(o.resp.Body()))
	assert.Equal(t, "/v1/items", o.resp.Header().Get("X-Path"))
	assert.Equal(t, "httptask-test", o.resp.Header().Get("X-UA"))
	assert.Equal(t, "en-US;q=1.0, de;q=0.9", o.resp.Header().Get("X-Lang"))
	assert.Equal(t, client.Completed, task.State())
	assert.Empty(t, c.InFlight())
}

func TestIntegration_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	defer close(release)
	c := build(t, srv)

	onComplete, wait := await(t)
	_, err := c.Get(t.Context(), "/slow", false, onComplete, request.WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	o := wait()
	assert.ErrorIs(t, o.err, context.DeadlineExceeded)
	assert.Nil(t, o.resp)
}

func TestIntegration_ConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	cfg := config.Default()
	cfg.BaseURL = "http://" + addr
	cfg.RequestTimeout = 3 * time.Second
	require.True(t, cfg.WaitsForConnectivity)

	c, err := client.Build(client.WithConfig(cfg))
	require.NoError(t, err)
	t.Cleanup(c.Close)

	start := time.Now()
	onComplete, wait := await(t)
	_, err = c.Get(t.Context(), "/items", false, onComplete)
	require.NoError(t, err)

	o := wait()
	assert.ErrorIs(t, o.err, syscall.ECONNREFUSED)
	assert.NotErrorIs(t, o.err, context.DeadlineExceeded)
	assert.Equal(t, retry.ConnRefused, retry.Categorize(o.err))
	assert.Less(t, time.Since(start), time.Second)
}

type basicAuth struct{}

func (basicAuth) WillCacheResponse(_ *client.Task, proposed *transport.CachedResponse, decide func(*transport.CachedResponse)) {
	decide(proposed)
}

func (basicAuth) WaitingForConnectivity(*client.Task) {}

func (basicAuth) DidReceiveChallenge(_ *client.Task, c *transport.Challenge, decide func(transport.ChallengeDisposition, *transport.Credential)) {
	if c.Scheme != "Basic" || c.Failures > 0 {
		decide(transport.CancelChallenge, nil)
		return
	}
	decide(transport.UseCredential, &transport.Credential{User: "gopher", Password: "secret"})
}

func TestIntegration_Challenge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "gopher" || pass != "secret" {
			w.Header().Set("WWW-Authenticate", `Basic realm="test"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("welcome"))
	}))
	t.Cleanup(srv.Close)

	t.Run("default handling delivers the 401", func(t *testing.T) {
		c := build(t, srv)
		onComplete, wait := await(t)
		_, err := c.Get(t.Context(), "/me", false, onComplete)
		require.NoError(t, err)

		o := wait()
		require.NoError(t, o.err)
		assert.Equal(t, http.StatusUnauthorized, o.resp.StatusCode())
		assert.Equal(t, client.StatusClientError, o.resp.State())
	})

	t.Run("task delegate answers", func(t *testing.T) {
		c := build(t, srv, client.WithTaskDelegate(basicAuth{}))
		onComplete, wait := await(t)
		_, err := c.Get(t.Context(), "/me", false, onComplete)
		require.NoError(t, err)

		o := wait()
		require.NoError(t, o.err)
		assert.Equal(t, "welcome", string(o.resp.Body()))
	})
}

func TestIntegration_Submit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.RawQuery))
	}))
	t.Cleanup(srv.Close)
	c := build(t, srv)

	r, err := c.Request("/search", request.Get, request.WithQuery(map[string]string{"q": "x", "lang": "go"}))
	require.NoError(t, err)

	onComplete, wait := await(t)
	task := c.Submit(t.Context(), r, true, onComplete)
	task.SetPriority(0.9)
	task.Resume()

	o := wait()
	require.NoError(t, o.err)
	assert.Equal(t, "lang=go&q=x", string(o.resp.Body()))
	assert.Equal(t, 1, task.Attempts())
}
