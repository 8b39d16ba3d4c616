package httptask_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adamwoolhether/httptask"
	"github.com/adamwoolhether/httptask/request"
)

func TestNewClientFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	data := "base_url: https://api.example.com/v1\nmax_retries: 5\nrequest_timeout: 10s\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	c, err := httptask.NewClientFromFile(path)
	if err != nil {
		t.Fatalf("exp no error; got %v", err)
	}
	defer c.Close()

	if c.MaxRetries() != 5 {
		t.Errorf("exp max retries 5; got %d", c.MaxRetries())
	}

	r, err := c.Request("/items", request.Get)
	if err != nil {
		t.Fatalf("exp request; got %v", err)
	}
	if r.Timeout != 10*time.Second {
		t.Errorf("exp timeout 10s; got %s", r.Timeout)
	}
	u, err := r.FullURL()
	if err != nil {
		t.Fatalf("composing url: %v", err)
	}
	if got := u.String(); got != "https://api.example.com/v1/items" {
		t.Errorf("unexpected url %s", got)
	}
}

func TestNewClientFromFile_Missing(t *testing.T) {
	if _, err := httptask.NewClientFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("exp error for missing file")
	}
}

func TestNewClientFromEnv(t *testing.T) {
	t.Setenv("APP_MAX_RETRIES", "1")

	c, err := httptask.NewClientFromEnv("APP")
	if err != nil {
		t.Fatalf("exp no error; got %v", err)
	}
	defer c.Close()

	if c.MaxRetries() != 1 {
		t.Errorf("exp max retries 1; got %d", c.MaxRetries())
	}

	t.Setenv("APP_MAX_RETRIES", "many")
	if _, err := httptask.NewClientFromEnv("APP"); err == nil {
		t.Error("exp error for malformed env")
	}
}
