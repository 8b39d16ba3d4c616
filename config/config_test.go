package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/httptask/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	if cfg.RequestTimeout != 60*time.Second {
		t.Errorf("exp 60s request timeout; got %v", cfg.RequestTimeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("exp 3 retries; got %d", cfg.MaxRetries)
	}
	if !cfg.WaitsForConnectivity {
		t.Error("exp WaitsForConnectivity by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	const doc = `
base_url: https://api.example.com/v1
default_headers:
  X-Client: httptask
languages: [en-US, de]
request_timeout: 15s
max_retries: 5
throttle:
  rps: 10
  burst: 2
`
	cfg, err := config.Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	exp := config.Default()
	exp.BaseURL = "https://api.example.com/v1"
	exp.DefaultHeaders = map[string]string{"X-Client": "httptask"}
	exp.Languages = []string{"en-US", "de"}
	exp.RequestTimeout = 15 * time.Second
	exp.MaxRetries = 5
	exp.Throttle = config.Throttle{RPS: 10, Burst: 2}

	if diff := cmp.Diff(exp, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Empty(t *testing.T) {
	cfg, err := config.Load(strings.NewReader(""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(config.Default(), cfg); diff != "" {
		t.Errorf("exp defaults (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		doc      string
		expField string
	}{
		{name: "unknown key", doc: "base_uri: https://example.com"},
		{name: "relative base url", doc: "base_url: /v1", expField: "base_url"},
		{name: "ftp base url", doc: "base_url: ftp://example.com", expField: "base_url"},
		{name: "bad language", doc: "languages: [\"not a tag!\"]", expField: "languages[0]"},
		{name: "burst missing", doc: "throttle: {rps: 3}", expField: "throttle.burst"},
		{name: "negative retries", doc: "max_retries: -1", expField: "max_retries"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(strings.NewReader(tc.doc))
			if err == nil {
				t.Fatal("exp error")
			}
			if tc.expField == "" {
				return
			}

			var fe config.FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("exp FieldErrors; got %T: %v", err, err)
			}
			if _, ok := fe.Fields()[tc.expField]; !ok {
				t.Errorf("exp error for %q; got %v", tc.expField, fe.Fields())
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "httptask.yaml")
	if err := os.WriteFile(path, []byte("user_agent: test-agent\n"), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.UserAgent != "test-agent" {
		t.Errorf("exp user agent test-agent; got %q", cfg.UserAgent)
	}

	if _, err := config.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("exp error for missing file")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("HTTPTASK_BASE_URL", "http://localhost:8080")
	t.Setenv("HTTPTASK_MAX_RETRIES", "1")
	t.Setenv("HTTPTASK_LANGUAGES", "fr,en")
	t.Setenv("HTTPTASK_THROTTLE_RPS", "4")
	t.Setenv("HTTPTASK_THROTTLE_BURST", "4")

	cfg, err := config.FromEnv("HTTPTASK")
	if err != nil {
		t.Fatalf("from env: %v", err)
	}

	exp := config.Default()
	exp.BaseURL = "http://localhost:8080"
	exp.MaxRetries = 1
	exp.Languages = []string{"fr", "en"}
	exp.Throttle = config.Throttle{RPS: 4, Burst: 4}

	if diff := cmp.Diff(exp, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestFromEnvFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.env")
	data := "DOTENV_MAX_RETRIES=7\nDOTENV_USER_AGENT=from-file\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("writing env file: %v", err)
	}
	t.Setenv("DOTENV_USER_AGENT", "from-env")
	t.Cleanup(func() { os.Unsetenv("DOTENV_MAX_RETRIES") })

	cfg, err := config.FromEnvFiles("DOTENV", path)
	if err != nil {
		t.Fatalf("from env files: %v", err)
	}
	if cfg.MaxRetries != 7 {
		t.Errorf("exp max retries from file; got %d", cfg.MaxRetries)
	}
	if cfg.UserAgent != "from-env" {
		t.Errorf("exp environment to win over file; got %q", cfg.UserAgent)
	}

	if _, err := config.FromEnvFiles("DOTENV", filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("exp error for missing env file")
	}
}

func TestHeader(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultHeaders = map[string]string{"x-api-key": "k"}
	cfg.Languages = []string{"en-US", "de", "fr"}

	h, err := cfg.Header()
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if got := h.Get("X-Api-Key"); got != "k" {
		t.Errorf("exp canonical default header; got %q", got)
	}
	if got, exp := h.Get("Accept-Language"), "en-US;q=1.0, de;q=0.9, fr;q=0.8"; got != exp {
		t.Errorf("exp %q; got %q", exp, got)
	}
}

func TestAcceptLanguage_Floor(t *testing.T) {
	tags := make([]string, 12)
	for i := range tags {
		tags[i] = "en"
	}

	v, err := config.AcceptLanguage(tags)
	if err != nil {
		t.Fatalf("accept language: %v", err)
	}
	if !strings.HasSuffix(v, "en;q=0.1, en;q=0.1") {
		t.Errorf("exp weights to bottom out at 0.1; got %q", v)
	}
}

func TestTransportOptions(t *testing.T) {
	cfg := config.Default()
	cfg.UserAgent = "ua"
	cfg.Throttle = config.Throttle{RPS: 1, Burst: 1}

	opts, err := cfg.TransportOptions()
	if err != nil {
		t.Fatalf("transport options: %v", err)
	}
	// headers, concurrency, cache, user agent, connectivity, throttle
	if len(opts) != 6 {
		t.Errorf("exp 6 options; got %d", len(opts))
	}
}
