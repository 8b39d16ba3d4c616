package config_test

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/adamwoolhether/httptask/config"
	"github.com/adamwoolhether/httptask/request"
	"github.com/adamwoolhether/httptask/transport"
)

func newFactory(t *testing.T, base string) *config.Factory {
	t.Helper()
	cfg := config.Default()
	cfg.BaseURL = base
	f, err := config.NewFactory(cfg)
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}
	return f
}

func TestFactory_Request(t *testing.T) {
	f := newFactory(t, "https://api.example.com/v1")

	r, err := f.Request("/items", request.Get, request.WithQuery(map[string]string{"q": "x"}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	full, err := r.FullURL()
	if err != nil {
		t.Fatalf("full url: %v", err)
	}
	if got, exp := full.String(), "https://api.example.com/v1/items?q=x"; got != exp {
		t.Errorf("exp %s; got %s", exp, got)
	}
	if r.Body != nil {
		t.Errorf("exp no body; got %q", r.Body)
	}
	if r.CachePolicy.String() != "useProtocolCachePolicy" {
		t.Errorf("exp default cache policy; got %s", r.CachePolicy)
	}
	if r.Timeout != 60*time.Second {
		t.Errorf("exp configured timeout; got %v", r.Timeout)
	}
}

func TestFactory_RequestOverrides(t *testing.T) {
	f := newFactory(t, "https://api.example.com")

	r, err := f.Request("things?page=2", request.Post,
		request.WithBody([]byte("{}")),
		request.WithTimeout(time.Second),
		request.WithCachePolicy(transport.ReloadIgnoringLocalCacheData),
	)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if got, exp := r.URL.String(), "https://api.example.com/things?page=2"; got != exp {
		t.Errorf("exp %s; got %s", exp, got)
	}
	if r.Timeout != time.Second {
		t.Errorf("exp per-call timeout; got %v", r.Timeout)
	}
	if r.CachePolicy != transport.ReloadIgnoringLocalCacheData {
		t.Errorf("exp per-call cache policy; got %s", r.CachePolicy)
	}
}

func TestFactory_Errors(t *testing.T) {
	noBase := newFactory(t, "")

	if _, err := noBase.Request("/items", request.Get); !errors.Is(err, config.ErrMissingBaseURL) {
		t.Errorf("exp ErrMissingBaseURL; got %v", err)
	}
	if _, err := noBase.Resolve("items"); !errors.Is(err, config.ErrMissingBaseURL) {
		t.Errorf("exp ErrMissingBaseURL from Resolve; got %v", err)
	}

	ftp, _ := url.Parse("ftp://example.com/file")
	if _, err := noBase.AbsoluteRequest(ftp, request.Get); !errors.Is(err, config.ErrInvalidURL) {
		t.Errorf("exp ErrInvalidURL; got %v", err)
	}

	withBase := newFactory(t, "https://api.example.com")
	if _, err := withBase.Request("https://other.example.com/x", request.Get); !errors.Is(err, config.ErrInvalidURL) {
		t.Errorf("exp absolute path to be rejected by Request; got %v", err)
	}

	cfg := config.Default()
	cfg.BaseURL = "not a url"
	if _, err := config.NewFactory(cfg); err == nil {
		t.Error("exp invalid base url to fail")
	}
}

func TestFactory_Resolve(t *testing.T) {
	f := newFactory(t, "https://api.example.com/v1")

	testCases := []struct {
		in  string
		exp string
	}{
		{in: "/users", exp: "https://api.example.com/v1/users"},
		{in: "users/7", exp: "https://api.example.com/v1/users/7"},
		{in: "http://elsewhere.example.com/a", exp: "http://elsewhere.example.com/a"},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			u, err := f.Resolve(tc.in)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if u.String() != tc.exp {
				t.Errorf("exp %s; got %s", tc.exp, u)
			}
		})
	}
}
