package main

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/backoffice/internal/config"
	"github.com/vango-dev/backoffice/internal/errors"
)

// run executes the CLI with args and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRoutesCommand(t *testing.T) {
	path := writeConfig(t, `{}`)

	out, err := run(t, "routes", "-c", path)
	if err != nil {
		t.Fatalf("routes error = %v", err)
	}
	for _, want := range []string{"ID", "home", "customers.index", "users.edit", "reports"} {
		if !strings.Contains(out, want) {
			t.Errorf("routes output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "routes", "users.show", "-c", path)
	if err != nil {
		t.Fatalf("routes users.show error = %v", err)
	}
	if !strings.Contains(out, "users.show") || strings.Contains(out, "customers.index") {
		t.Errorf("routes users.show output:\n%s", out)
	}

	_, err = run(t, "routes", "invoices.show", "-c", path)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "E122" {
		t.Errorf("routes unknown id error = %v, want E122", err)
	}
}

func TestResolveCommand(t *testing.T) {
	path := writeConfig(t, `{}`)

	out, err := run(t, "resolve", "/customers/42?tab=orders", "-c", path)
	if err != nil {
		t.Fatalf("resolve error = %v", err)
	}
	if !strings.Contains(out, "Route:  customers.show") || !strings.Contains(out, "Param:  id=42") {
		t.Errorf("resolve output:\n%s", out)
	}
	if !strings.Contains(out, "Trail:  ") || !strings.Contains(out, "(/customers)") {
		t.Errorf("resolve output missing trail:\n%s", out)
	}

	_, err = run(t, "resolve", "/inventory", "-c", path)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "E121" {
		t.Errorf("resolve unmatched error = %v, want E121", err)
	}

	if _, err := run(t, "resolve", "-c", path); err == nil {
		t.Error("resolve without a location should fail")
	}
}

func TestInvalidConfig(t *testing.T) {
	path := writeConfig(t, `{"log": {"level": "loud"}}`)

	_, err := run(t, "routes", "-c", path)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "E105" {
		t.Errorf("error = %v, want E105", err)
	}
}

func TestConfigInitAndCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.ConfigFileName)

	out, err := run(t, "config", "init", "-c", path)
	if err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if !strings.Contains(out, "Wrote "+path) {
		t.Errorf("config init output = %q", out)
	}

	if _, err := run(t, "config", "init", "-c", path); err == nil {
		t.Error("config init should refuse to overwrite")
	}
	if _, err := run(t, "config", "init", "-c", path, "--force"); err != nil {
		t.Errorf("config init --force error = %v", err)
	}

	out, err = run(t, "config", "check", "-c", path)
	if err != nil {
		t.Fatalf("config check error = %v", err)
	}
	for _, want := range []string{"Configuration is valid", "localhost:8080", "sqlite", "disk"} {
		if !strings.Contains(out, want) {
			t.Errorf("config check output missing %q:\n%s", want, out)
		}
	}
}

func TestSeedCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `{
  "database": {"driver": "sqlite", "dsn": "`+filepath.ToSlash(filepath.Join(dir, "clinic.db"))+`"},
  "log": {"level": "error"}
}`)

	out, err := run(t, "seed", "-c", path)
	if err != nil {
		t.Fatalf("seed error = %v", err)
	}
	if !strings.Contains(out, "Seeded") {
		t.Errorf("first seed output = %q", out)
	}

	out, err = run(t, "seed", "-c", path)
	if err != nil {
		t.Fatalf("second seed error = %v", err)
	}
	if !strings.Contains(out, "nothing seeded") {
		t.Errorf("second seed output = %q", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("version --short = %q", out)
	}
}

func TestNewLogger(t *testing.T) {
	cfg := config.New()
	cfg.Name = "clinic"
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	logger, err := newLogger(cfg, &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "kind", "orders")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line logged at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"app":"clinic"`) {
		t.Errorf("log output = %q", out)
	}
}

func TestNewUploadStore(t *testing.T) {
	cfg := config.New()
	cfg.Uploads.Dir = t.TempDir()

	s, err := newUploadStore(cfg)
	if err != nil || s == nil {
		t.Fatalf("disk store = %v, %v", s, err)
	}

	cfg.Uploads.Backend = "none"
	if s, err := newUploadStore(cfg); s != nil || err != nil {
		t.Errorf("none store = %v, %v", s, err)
	}

	cfg.Uploads.Backend = "s3"
	cfg.Uploads.S3 = config.S3Config{Bucket: "receipts", Region: "ap-southeast-1"}
	if s, err := newUploadStore(cfg); s == nil || err != nil {
		t.Errorf("s3 store = %v, %v", s, err)
	}
}
