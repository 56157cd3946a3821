package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vango-dev/backoffice/internal/errors"
	"github.com/vango-dev/backoffice/pkg/auth"
	"github.com/vango-dev/backoffice/pkg/server"
	"github.com/vango-dev/backoffice/pkg/upload"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "backoffice.json"

	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultDatabase is the SQLite file used when no DSN is configured.
	DefaultDatabase = "backoffice.db"

	// DefaultUploadDir is where attachments go with the disk backend.
	DefaultUploadDir = "uploads"

	// DefaultLanguage is the catalog used when a request names none.
	DefaultLanguage = "vi"
)

// Config represents the complete backoffice.json configuration.
type Config struct {
	// Name is shown in logs and traces.
	Name string `json:"name,omitempty"`

	// Server contains listener and session admission settings.
	Server ServerConfig `json:"server"`

	// Navigation contains page lifecycle settings.
	Navigation NavigationConfig `json:"navigation"`

	// Session contains live session settings.
	Session SessionConfig `json:"session"`

	// Database contains record store settings.
	Database DatabaseConfig `json:"database"`

	// Uploads contains attachment store settings.
	Uploads UploadsConfig `json:"uploads"`

	// I18n contains language settings.
	I18n I18nConfig `json:"i18n"`

	// Log contains logging settings.
	Log LogConfig `json:"log"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics"`

	// Tracing contains OpenTelemetry settings.
	Tracing TracingConfig `json:"tracing"`

	// Auth contains the principal used for requests without one.
	Auth AuthConfig `json:"auth"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	// Host is the interface to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// TrustedProxies lists addresses or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string `json:"trustedProxies,omitempty"`

	// MaxSessions caps live sessions. 0 means unlimited.
	MaxSessions int `json:"maxSessions,omitempty"`

	// MaxSessionsPerIP caps live sessions per client. 0 means unlimited.
	MaxSessionsPerIP int `json:"maxSessionsPerIP,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "10s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`
}

// NavigationConfig contains page lifecycle settings.
type NavigationConfig struct {
	// HomePath is where unmatched paths and recovered errors lead.
	HomePath string `json:"homePath,omitempty"`

	// MinDelay keeps the progress indicator visible (e.g., "150ms").
	MinDelay string `json:"minDelay,omitempty"`
}

// SessionConfig contains live session settings. Durations are strings
// such as "60s".
type SessionConfig struct {
	ReadTimeout    string  `json:"readTimeout,omitempty"`
	WriteTimeout   string  `json:"writeTimeout,omitempty"`
	PingInterval   string  `json:"pingInterval,omitempty"`
	ConfirmTimeout string  `json:"confirmTimeout,omitempty"`
	SendQueueSize  int     `json:"sendQueueSize,omitempty"`
	NavigateRate   float64 `json:"navigateRate,omitempty"`
	NavigateBurst  int     `json:"navigateBurst,omitempty"`
}

// DatabaseConfig contains record store settings.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `json:"driver,omitempty"`

	// DSN is the data source name. For SQLite, a file path.
	DSN string `json:"dsn,omitempty"`

	// Seed fills an empty database with demo records on start.
	Seed bool `json:"seed"`
}

// UploadsConfig contains attachment store settings.
type UploadsConfig struct {
	// Backend is "disk", "s3" or "none".
	Backend string `json:"backend,omitempty"`

	// Dir is the disk backend directory.
	Dir string `json:"dir,omitempty"`

	// MaxFileSize is the largest accepted attachment in bytes.
	MaxFileSize int64 `json:"maxFileSize,omitempty"`

	// AllowedTypes lists accepted MIME types. Empty keeps the defaults.
	AllowedTypes []string `json:"allowedTypes,omitempty"`

	// S3 configures the s3 backend.
	S3 S3Config `json:"s3,omitempty"`
}

// S3Config describes the attachment bucket.
type S3Config struct {
	Bucket          string `json:"bucket,omitempty"`
	Prefix          string `json:"prefix,omitempty"`
	Region          string `json:"region,omitempty"`
	Endpoint        string `json:"endpoint,omitempty"`
	AccessKeyID     string `json:"accessKeyId,omitempty"`
	SecretAccessKey string `json:"secretAccessKey,omitempty"`
	PathStyle       bool   `json:"pathStyle,omitempty"`
}

// I18nConfig contains language settings.
type I18nConfig struct {
	// DefaultLanguage is used when the request names no supported language.
	DefaultLanguage string `json:"defaultLanguage,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled exposes /metrics.
	Enabled bool `json:"enabled,omitempty"`

	// Namespace prefixes metric names. Default: "backoffice".
	Namespace string `json:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled traces every navigation with the global tracer provider.
	Enabled bool `json:"enabled,omitempty"`

	// IncludeUserID records the principal ID on spans.
	IncludeUserID bool `json:"includeUserId,omitempty"`
}

// AuthConfig names the principal used when a request carries none.
// Leave DefaultUser empty in production: requests then need the identity
// headers set by the front proxy.
type AuthConfig struct {
	DefaultUser  string   `json:"defaultUser,omitempty"`
	DefaultRoles []string `json:"defaultRoles,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := blank()
	cfg.applyDefaults()
	return cfg
}

// blank returns the values that cannot be told apart from "unset" after
// decoding.
func blank() *Config {
	return &Config{Database: DatabaseConfig{Seed: true}}
}

// Load reads configuration from the specified directory.
// It looks for backoffice.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No " + filepath.Base(path) + " found in " + filepath.Dir(path)).
				WithSuggestion("Run 'backoffice config init' to write one with the defaults")
		}
		return nil, errors.New("E101").Wrap(err)
	}

	cfg := blank()
	if err := json.Unmarshal(data, cfg); err != nil {
		e := errors.New("E101").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON")
		var syntax *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case stderrors.As(err, &syntax):
			e.WithOffset(path, data, syntax.Offset)
		case stderrors.As(err, &typeErr):
			e.WithOffset(path, data, typeErr.Offset)
		}
		return nil, e
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E101").Wrap(err)
	}

	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.New("E101").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}

	if c.Navigation.HomePath == "" {
		c.Navigation.HomePath = "/"
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = DefaultDatabase
	}

	if c.Uploads.Backend == "" {
		c.Uploads.Backend = "disk"
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = DefaultUploadDir
	}

	if c.I18n.DefaultLanguage == "" {
		c.I18n.DefaultLanguage = DefaultLanguage
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "backoffice"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("E102").
			WithDetail("Port must be between 1 and 65535, got " + strconv.Itoa(c.Server.Port))
	}
	if !strings.HasPrefix(c.Navigation.HomePath, "/") {
		return errors.New("E103").
			WithDetail("homePath is " + strconv.Quote(c.Navigation.HomePath))
	}

	durations := []struct {
		field string
		value string
	}{
		{"server.shutdownTimeout", c.Server.ShutdownTimeout},
		{"navigation.minDelay", c.Navigation.MinDelay},
		{"session.readTimeout", c.Session.ReadTimeout},
		{"session.writeTimeout", c.Session.WriteTimeout},
		{"session.pingInterval", c.Session.PingInterval},
		{"session.confirmTimeout", c.Session.ConfirmTimeout},
	}
	for _, d := range durations {
		if _, err := parseDuration(d.value); err != nil {
			return errors.New("E104").
				WithDetail(d.field + " is " + strconv.Quote(d.value)).
				Wrap(err)
		}
	}

	if c.Server.MaxSessions < 0 || c.Server.MaxSessionsPerIP < 0 ||
		c.Session.SendQueueSize < 0 || c.Session.NavigateRate < 0 || c.Session.NavigateBurst < 0 {
		return errors.New("E109")
	}

	if _, err := c.LogLevel(); err != nil {
		return errors.New("E105").Wrap(err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("E105").WithDetail("format is " + strconv.Quote(c.Log.Format))
	}

	switch c.Database.Driver {
	case "sqlite", "sqlite3", "postgres", "postgresql", "pgx":
	default:
		return errors.New("E106").WithDetail("driver is " + strconv.Quote(c.Database.Driver))
	}
	if c.Database.DSN == "" {
		return errors.New("E106").
			WithDetail("A dsn is required for " + c.Database.Driver).
			WithSuggestion("Set database.dsn, e.g. postgres://user@localhost/backoffice")
	}

	switch c.Uploads.Backend {
	case "disk", "none":
	case "s3":
		if c.Uploads.S3.Bucket == "" || c.Uploads.S3.Region == "" {
			return errors.New("E107").
				WithDetail("The s3 backend needs uploads.s3.bucket and uploads.s3.region")
		}
	default:
		return errors.New("E107").WithDetail("backend is " + strconv.Quote(c.Uploads.Backend))
	}
	if c.Uploads.MaxFileSize < 0 {
		return errors.New("E107").WithDetail("maxFileSize cannot be negative")
	}

	return nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// URL returns the base URL of the server.
func (c *Config) URL() string {
	return "http://" + c.Address()
}

// DatabaseDSN returns the data source name, resolving a relative SQLite
// path against the config directory.
func (c *Config) DatabaseDSN() string {
	dsn := c.Database.DSN
	if c.Database.Driver != "sqlite" && c.Database.Driver != "sqlite3" {
		return dsn
	}
	if strings.HasPrefix(dsn, "file:") || dsn == ":memory:" || filepath.IsAbs(dsn) {
		return dsn
	}
	return filepath.Join(c.Dir(), dsn)
}

// UploadPath returns the absolute path to the attachment directory.
func (c *Config) UploadPath() string {
	if filepath.IsAbs(c.Uploads.Dir) {
		return c.Uploads.Dir
	}
	return filepath.Join(c.Dir(), c.Uploads.Dir)
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.Log.Level, err)
	}
	return level, nil
}

// Principal returns the fallback principal, or the zero principal when
// none is configured.
func (c *Config) Principal() auth.Principal {
	if c.Auth.DefaultUser == "" {
		return auth.Principal{}
	}
	return auth.Principal{
		ID:    c.Auth.DefaultUser,
		Name:  c.Auth.DefaultUser,
		Roles: c.Auth.DefaultRoles,
	}
}

// UploadConfig returns the upload handler settings.
func (c *Config) UploadConfig() *upload.Config {
	out := upload.DefaultConfig()
	if c.Uploads.MaxFileSize > 0 {
		out.MaxFileSize = c.Uploads.MaxFileSize
	}
	if len(c.Uploads.AllowedTypes) > 0 {
		out.AllowedTypes = c.Uploads.AllowedTypes
	}
	return out
}

// S3 returns the S3 client settings.
func (c *Config) S3() upload.S3Config {
	s := c.Uploads.S3
	return upload.S3Config{
		Region:          s.Region,
		Endpoint:        s.Endpoint,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
		PathStyle:       s.PathStyle,
	}
}

// ServerConfig converts the file settings into server settings. Unset
// values keep the server defaults. Call Validate first.
func (c *Config) ServerConfig() (*server.ServerConfig, error) {
	var err error
	dur := func(field, value string) time.Duration {
		d, perr := parseDuration(value)
		if perr != nil && err == nil {
			err = errors.New("E104").WithDetail(field + " is " + strconv.Quote(value)).Wrap(perr)
		}
		return d
	}

	out := &server.ServerConfig{
		Address:          c.Address(),
		HomePath:         c.Navigation.HomePath,
		MinDelay:         dur("navigation.minDelay", c.Navigation.MinDelay),
		ShutdownTimeout:  dur("server.shutdownTimeout", c.Server.ShutdownTimeout),
		MaxSessions:      c.Server.MaxSessions,
		MaxSessionsPerIP: c.Server.MaxSessionsPerIP,
		TrustedProxies:   c.Server.TrustedProxies,
		SessionConfig: &server.SessionConfig{
			ReadTimeout:    dur("session.readTimeout", c.Session.ReadTimeout),
			WriteTimeout:   dur("session.writeTimeout", c.Session.WriteTimeout),
			PingInterval:   dur("session.pingInterval", c.Session.PingInterval),
			ConfirmTimeout: dur("session.confirmTimeout", c.Session.ConfirmTimeout),
			SendQueueSize:  c.Session.SendQueueSize,
			NavigateRate:   rate.Limit(c.Session.NavigateRate),
			NavigateBurst:  c.Session.NavigateBurst,
		},
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// parseDuration accepts an empty string as zero.
func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", value)
	}
	return d, nil
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the directory containing
// backoffice.json.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E100").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'backoffice config init' to write one with the defaults")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working
// directory or its nearest parent that has one.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
