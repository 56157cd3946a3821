package config

import (
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/backoffice/internal/errors"
	"github.com/vango-dev/backoffice/pkg/auth"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func code(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != DefaultDatabase || !cfg.Database.Seed {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Uploads.Backend != "disk" || cfg.Uploads.Dir != DefaultUploadDir {
		t.Errorf("Uploads = %+v", cfg.Uploads)
	}
	if cfg.I18n.DefaultLanguage != "vi" || cfg.Navigation.HomePath != "/" {
		t.Errorf("I18n = %+v, Navigation = %+v", cfg.I18n, cfg.Navigation)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad(t *testing.T) {
	if _, err := Load(t.TempDir()); code(err) != "E100" {
		t.Errorf("missing config error = %v, want E100", err)
	}

	dir := writeConfig(t, `{
  "name": "Phòng khám Hoa Sen",
  "server": {
    "host": "0.0.0.0",
    "port": 9090,
    "trustedProxies": ["10.0.0.0/8"],
    "maxSessions": 200
  },
  "navigation": {"homePath": "/customers", "minDelay": "150ms"},
  "session": {"readTimeout": "30s", "confirmTimeout": "2m", "navigateRate": 5},
  "database": {"driver": "postgres", "dsn": "postgres://bao@localhost/clinic", "seed": false},
  "uploads": {"backend": "s3", "s3": {"bucket": "receipts", "region": "ap-southeast-1"}},
  "log": {"level": "debug", "format": "json"},
  "metrics": {"enabled": true},
  "auth": {"defaultUser": "bao", "defaultRoles": ["admin"]}
}
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Address() != "0.0.0.0:9090" {
		t.Errorf("Address() = %q", cfg.Address())
	}
	if cfg.Database.Seed {
		t.Error("Database.Seed should be false")
	}
	if cfg.DatabaseDSN() != "postgres://bao@localhost/clinic" {
		t.Errorf("DatabaseDSN() = %q", cfg.DatabaseDSN())
	}
	if cfg.Uploads.Dir != DefaultUploadDir {
		t.Errorf("Uploads.Dir = %q, want default", cfg.Uploads.Dir)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Namespace != "backoffice" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if cfg.Path() != filepath.Join(dir, ConfigFileName) || cfg.Dir() != dir {
		t.Errorf("Path() = %q, Dir() = %q", cfg.Path(), cfg.Dir())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	level, err := cfg.LogLevel()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("LogLevel() = %v, %v", level, err)
	}

	p := cfg.Principal()
	if p.ID != "bao" || !p.HasRole(auth.RoleAdmin) {
		t.Errorf("Principal() = %+v", p)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := writeConfig(t, "{\n  \"server\": {\n    \"port\": 8080,,\n  }\n}\n")

	_, err := Load(dir)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "E101" {
		t.Fatalf("Load() error = %v, want E101", err)
	}
	if e.Location == nil || e.Location.Line != 3 {
		t.Errorf("Location = %+v, want line 3", e.Location)
	}
}

func TestLoadWrongType(t *testing.T) {
	dir := writeConfig(t, "{\n  \"server\": {\"port\": \"8080\"}\n}\n")

	_, err := Load(dir)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "E101" {
		t.Fatalf("Load() error = %v, want E101", err)
	}
	if e.Location == nil || e.Location.Line != 2 {
		t.Errorf("Location = %+v, want line 2", e.Location)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "E102"},
		{"port negative", func(c *Config) { c.Server.Port = -1 }, "E102"},
		{"relative home", func(c *Config) { c.Navigation.HomePath = "customers" }, "E103"},
		{"bad duration", func(c *Config) { c.Session.ReadTimeout = "soon" }, "E104"},
		{"negative duration", func(c *Config) { c.Navigation.MinDelay = "-1s" }, "E104"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "E105"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "E105"},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "E106"},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres"; c.Database.DSN = "" }, "E106"},
		{"bad backend", func(c *Config) { c.Uploads.Backend = "ftp" }, "E107"},
		{"s3 without bucket", func(c *Config) { c.Uploads.Backend = "s3" }, "E107"},
		{"negative file size", func(c *Config) { c.Uploads.MaxFileSize = -1 }, "E107"},
		{"negative sessions", func(c *Config) { c.Server.MaxSessions = -1 }, "E109"},
		{"valid", func(c *Config) {}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.modify(cfg)
			err := cfg.Validate()
			if got := code(err); got != tt.want {
				t.Errorf("Validate() = %v, want code %q", err, tt.want)
			}
		})
	}
}

func TestServerConfig(t *testing.T) {
	cfg := New()
	cfg.Navigation.MinDelay = "150ms"
	cfg.Session.ConfirmTimeout = "2m"
	cfg.Session.NavigateRate = 5
	cfg.Server.TrustedProxies = []string{"10.0.0.0/8"}

	sc, err := cfg.ServerConfig()
	if err != nil {
		t.Fatalf("ServerConfig() error = %v", err)
	}
	if sc.Address != "localhost:8080" || sc.HomePath != "/" {
		t.Errorf("Address = %q, HomePath = %q", sc.Address, sc.HomePath)
	}
	if sc.MinDelay != 150*time.Millisecond || sc.ShutdownTimeout != 10*time.Second {
		t.Errorf("MinDelay = %v, ShutdownTimeout = %v", sc.MinDelay, sc.ShutdownTimeout)
	}
	if sc.SessionConfig.ConfirmTimeout != 2*time.Minute || sc.SessionConfig.NavigateRate != 5 {
		t.Errorf("SessionConfig = %+v", sc.SessionConfig)
	}
	if sc.SessionConfig.ReadTimeout != 0 {
		t.Error("unset durations should stay zero for the server defaults")
	}

	cfg.Session.WriteTimeout = "later"
	if _, err := cfg.ServerConfig(); code(err) != "E104" {
		t.Errorf("ServerConfig() error = %v, want E104", err)
	}
}

func TestPaths(t *testing.T) {
	dir := writeConfig(t, `{"uploads": {"dir": "files"}}`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	if got := cfg.DatabaseDSN(); got != filepath.Join(dir, DefaultDatabase) {
		t.Errorf("DatabaseDSN() = %q", got)
	}
	if got := cfg.UploadPath(); got != filepath.Join(dir, "files") {
		t.Errorf("UploadPath() = %q", got)
	}

	cfg.Database.DSN = ":memory:"
	if got := cfg.DatabaseDSN(); got != ":memory:" {
		t.Errorf("DatabaseDSN() = %q", got)
	}
	cfg.Uploads.Dir = "/srv/uploads"
	if got := cfg.UploadPath(); got != "/srv/uploads" {
		t.Errorf("UploadPath() = %q", got)
	}
}

func TestUploadSettings(t *testing.T) {
	cfg := New()
	uc := cfg.UploadConfig()
	if uc.MaxFileSize != 10<<20 || len(uc.AllowedTypes) == 0 {
		t.Errorf("default UploadConfig() = %+v", uc)
	}

	cfg.Uploads.MaxFileSize = 1 << 20
	cfg.Uploads.AllowedTypes = []string{"application/pdf"}
	cfg.Uploads.S3 = S3Config{Bucket: "receipts", Region: "ap-southeast-1", Endpoint: "http://minio:9000", PathStyle: true}

	uc = cfg.UploadConfig()
	if uc.MaxFileSize != 1<<20 || len(uc.AllowedTypes) != 1 {
		t.Errorf("UploadConfig() = %+v", uc)
	}
	s3 := cfg.S3()
	if s3.Region != "ap-southeast-1" || s3.Endpoint != "http://minio:9000" || !s3.PathStyle {
		t.Errorf("S3() = %+v", s3)
	}
}

func TestPrincipalUnset(t *testing.T) {
	if p := New().Principal(); !p.IsZero() {
		t.Errorf("Principal() = %+v, want zero", p)
	}
}

func TestSaveAndReload(t *testing.T) {
	cfg := New()
	if err := cfg.Save(); err == nil {
		t.Error("Save() without a path should fail")
	}

	path := filepath.Join(t.TempDir(), ConfigFileName)
	cfg.Database.Seed = false
	cfg.Server.Port = 9000
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q", cfg.Path())
	}

	data, _ := os.ReadFile(path)
	if !strings.HasSuffix(string(data), "}\n") {
		t.Error("saved file should end with a newline")
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9000 || loaded.Database.Seed {
		t.Errorf("reloaded = %+v", loaded)
	}

	loaded.Log.Level = "warn"
	if err := loaded.Save(); err != nil {
		t.Fatal(err)
	}
	again, _ := LoadFile(path)
	if again.Log.Level != "warn" {
		t.Errorf("Log.Level = %q after Save()", again.Log.Level)
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := writeConfig(t, `{}`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatal(err)
	}
	if got != root {
		t.Errorf("FindProjectRoot() = %q, want %q", got, root)
	}
	if !Exists(root) || Exists(nested) {
		t.Error("Exists() mismatch")
	}
}
