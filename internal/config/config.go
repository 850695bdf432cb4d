// Package config provides configuration loading and management for the history sync service.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/thv-history-sync/internal/telemetry"
)

// EnvPrefix is the prefix used for every environment variable read by the service
const EnvPrefix = "THV_HISTORY"

const (
	// StorageTypePostgres stores each thread in its own PostgreSQL table
	StorageTypePostgres = "postgres"

	// StorageTypeMongo stores each thread in its own MongoDB collection
	StorageTypeMongo = "mongo"

	// StorageTypeSQLite stores each thread in its own table of a local SQLite file
	StorageTypeSQLite = "sqlite"

	// StorageTypeMemory keeps everything in process memory (development and tests)
	StorageTypeMemory = "memory"
)

const (
	// ThreadSourceConfig enumerates threads from the static list in the config file
	ThreadSourceConfig = "config"

	// ThreadSourceRemote enumerates threads by asking the remote API
	ThreadSourceRemote = "remote"
)

const (
	// AuthTypeNone sends unauthenticated requests to the remote
	AuthTypeNone = "none"

	// AuthTypeBearer sends a static bearer token
	AuthTypeBearer = "bearer"

	// AuthTypeOAuth2 uses the OAuth2 client credentials grant
	AuthTypeOAuth2 = "oauth2"
)

const (
	// DefaultSyncInterval is how often a full synchronization run is scheduled
	DefaultSyncInterval = 3 * time.Hour

	// DefaultMaxMessagesPerRequest caps the page size requested from the remote
	DefaultMaxMessagesPerRequest = 500

	// DefaultRemoteTimeout bounds a single remote HTTP request
	DefaultRemoteTimeout = 30 * time.Second

	// DefaultRemoteMaxRetries is the number of attempts made for a transient remote failure
	DefaultRemoteMaxRetries = 3

	// DefaultCaptureTimeout bounds a single live-capture insert
	DefaultCaptureTimeout = 10 * time.Second

	// DefaultMongoDatabase is the MongoDB database used when none is configured
	DefaultMongoDatabase = "thv_history"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks; this also cleans the path.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Remote    RemoteConfig      `yaml:"remote"`
	Threads   ThreadsConfig     `yaml:"threads"`
	Sync      SyncConfig        `yaml:"sync,omitempty"`
	Storage   StorageConfig     `yaml:"storage"`
	Capture   *CaptureConfig    `yaml:"capture,omitempty"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// RemoteConfig describes the remote chat API that history is mirrored from
type RemoteConfig struct {
	// Endpoint is the base URL of the remote API, without a trailing path.
	// The client appends /threads, /threads/{id} and /threads/{id}/messages.
	Endpoint string `yaml:"endpoint"`

	// Timeout bounds a single HTTP request (e.g. "30s")
	Timeout string `yaml:"timeout,omitempty"`

	// MaxRetries is the number of attempts for transient failures (429, 5xx, transport)
	MaxRetries int `yaml:"maxRetries,omitempty"`

	Auth   *RemoteAuthConfig `yaml:"auth,omitempty"`
	Fields *FieldsConfig     `yaml:"fields,omitempty"`
}

// RemoteAuthConfig configures how requests to the remote are authenticated
type RemoteAuthConfig struct {
	// Type is one of none, bearer or oauth2
	Type string `yaml:"type"`

	// TokenFile holds a static bearer token (bearer auth)
	TokenFile string `yaml:"tokenFile,omitempty"`

	// ClientID, ClientSecretFile, TokenURL and Scopes configure oauth2 auth
	ClientID         string   `yaml:"clientId,omitempty"`
	ClientSecretFile string   `yaml:"clientSecretFile,omitempty"`
	TokenURL         string   `yaml:"tokenUrl,omitempty"`
	Scopes           []string `yaml:"scopes,omitempty"`
}

// FieldsConfig tells the remote client where to find values in the JSON responses.
// Every field is a gjson path.
type FieldsConfig struct {
	Count     string `yaml:"count,omitempty"`
	Messages  string `yaml:"messages,omitempty"`
	Key       string `yaml:"key,omitempty"`
	Timestamp string `yaml:"timestamp,omitempty"`
	Threads   string `yaml:"threads,omitempty"`
}

// ThreadsConfig selects how the set of threads to synchronize is obtained
type ThreadsConfig struct {
	// Source is either "config" (use IDs) or "remote" (GET /threads)
	Source string   `yaml:"source,omitempty"`
	IDs    []string `yaml:"ids,omitempty"`
}

// SyncConfig defines the synchronization schedule and paging limits
type SyncConfig struct {
	Interval              string `yaml:"interval,omitempty"`
	ExecuteOnStart        *bool  `yaml:"executeOnStart,omitempty"`
	MaxMessagesPerRequest int    `yaml:"maxMessagesPerRequest,omitempty"`

	// MaxConcurrentThreads limits how many threads are synchronized at once; 0 means unlimited
	MaxConcurrentThreads int `yaml:"maxConcurrentThreads,omitempty"`
}

// StorageConfig selects and configures the local message store
type StorageConfig struct {
	Type     string          `yaml:"type"`
	Database *DatabaseConfig `yaml:"database,omitempty"`
	Mongo    *MongoConfig    `yaml:"mongo,omitempty"`
	SQLite   *SQLiteConfig   `yaml:"sqlite,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password.
	// The file should contain only the password with optional trailing whitespace.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// Schema holds the per-thread tables; defaults to public
	Schema string `yaml:"schema,omitempty"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// MaxIdleConns is the minimum number of connections kept in the pool
	MaxIdleConns int32 `yaml:"maxIdleConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`

	// DynamicAuth replaces the static password with short-lived credentials
	DynamicAuth *DynamicAuthConfig `yaml:"dynamicAuth,omitempty"`
}

// DynamicAuthConfig selects a dynamic database authentication method
type DynamicAuthConfig struct {
	AWSRDSIAM *AWSRDSIAMConfig `yaml:"awsRdsIam,omitempty"`
}

// AWSRDSIAMConfig configures AWS RDS IAM authentication
type AWSRDSIAMConfig struct {
	// Region is the AWS region of the instance, or "detect" to read it from IMDS
	Region string `yaml:"region"`
}

// MongoConfig defines MongoDB connection settings
type MongoConfig struct {
	// URIFile is the path to a file containing the connection URI
	URIFile string `yaml:"uriFile,omitempty"`

	Database    string `yaml:"database,omitempty"`
	MaxPoolSize uint64 `yaml:"maxPoolSize,omitempty"`
}

// SQLiteConfig defines the SQLite database file
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// CaptureConfig controls the live capture write path
type CaptureConfig struct {
	Enabled bool   `yaml:"enabled"`
	Timeout string `yaml:"timeout,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from THV_HISTORY_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	return readSecret(d.PasswordFile, EnvPrefix+"_DATABASE_PASSWORD", "database password")
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}
	return d.ConnectionString(password), nil
}

// ConnectionString builds a PostgreSQL connection string using the given password
func (d *DatabaseConfig) ConnectionString(password string) string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)
}

// GetSchema returns the schema holding the thread tables
func (d *DatabaseConfig) GetSchema() string {
	if d.Schema == "" {
		return "public"
	}
	return d.Schema
}

// GetURI returns the MongoDB connection URI from URIFile or THV_HISTORY_MONGO_URI
func (m *MongoConfig) GetURI() (string, error) {
	return readSecret(m.URIFile, EnvPrefix+"_MONGO_URI", "mongo uri")
}

// GetDatabase returns the MongoDB database name
func (m *MongoConfig) GetDatabase() string {
	if m.Database == "" {
		return DefaultMongoDatabase
	}
	return m.Database
}

// GetToken returns the static bearer token from TokenFile or THV_HISTORY_REMOTE_TOKEN
func (a *RemoteAuthConfig) GetToken() (string, error) {
	return readSecret(a.TokenFile, EnvPrefix+"_REMOTE_TOKEN", "remote token")
}

// GetClientSecret returns the OAuth2 client secret from ClientSecretFile or
// THV_HISTORY_REMOTE_CLIENT_SECRET
func (a *RemoteAuthConfig) GetClientSecret() (string, error) {
	return readSecret(a.ClientSecretFile, EnvPrefix+"_REMOTE_CLIENT_SECRET", "remote client secret")
}

// GetType returns the auth type, "none" when unset
func (a *RemoteAuthConfig) GetType() string {
	if a == nil || a.Type == "" {
		return AuthTypeNone
	}
	return a.Type
}

func readSecret(path, envVar, what string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return "", fmt.Errorf("failed to read %s from file %s: %w", what, path, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if v := os.Getenv(envVar); v != "" {
		return v, nil
	}

	return "", fmt.Errorf("no %s configured: set the file option or the %s environment variable", what, envVar)
}

// GetTimeout returns the per-request timeout for the remote API
func (r *RemoteConfig) GetTimeout() time.Duration {
	return durationOr(r.Timeout, DefaultRemoteTimeout)
}

// GetMaxRetries returns the number of attempts for transient remote failures
func (r *RemoteConfig) GetMaxRetries() int {
	if r.MaxRetries <= 0 {
		return DefaultRemoteMaxRetries
	}
	return r.MaxRetries
}

// GetFields returns the JSON paths with defaults filled in
func (r *RemoteConfig) GetFields() FieldsConfig {
	f := FieldsConfig{
		Count:     "messageCount",
		Key:       "messageID",
		Timestamp: "timestamp",
	}
	if r.Fields == nil {
		return f
	}
	if r.Fields.Count != "" {
		f.Count = r.Fields.Count
	}
	if r.Fields.Key != "" {
		f.Key = r.Fields.Key
	}
	if r.Fields.Timestamp != "" {
		f.Timestamp = r.Fields.Timestamp
	}
	f.Messages = r.Fields.Messages
	f.Threads = r.Fields.Threads
	return f
}

// GetSource returns the thread source, "config" when unset
func (t *ThreadsConfig) GetSource() string {
	if t.Source == "" {
		return ThreadSourceConfig
	}
	return t.Source
}

// GetInterval returns the scheduling interval
func (s *SyncConfig) GetInterval() time.Duration {
	return durationOr(s.Interval, DefaultSyncInterval)
}

// GetExecuteOnStart reports whether a run is started right after startup
func (s *SyncConfig) GetExecuteOnStart() bool {
	if s.ExecuteOnStart == nil {
		return true
	}
	return *s.ExecuteOnStart
}

// GetMaxMessagesPerRequest returns the maximum page size
func (s *SyncConfig) GetMaxMessagesPerRequest() int {
	if s.MaxMessagesPerRequest <= 0 {
		return DefaultMaxMessagesPerRequest
	}
	return s.MaxMessagesPerRequest
}

// GetTimeout returns the per-insert timeout for live capture
func (c *CaptureConfig) GetTimeout() time.Duration {
	return durationOr(c.Timeout, DefaultCaptureTimeout)
}

// IsCaptureEnabled reports whether the live capture endpoint is mounted
func (c *Config) IsCaptureEnabled() bool {
	return c.Capture != nil && c.Capture.Enabled
}

// durationOr parses s, falling back to def when s is empty. Values are
// validated at load time so a parse error cannot happen here.
func durationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
