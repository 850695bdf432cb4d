package config

import (
	"fmt"
	"net/url"
	"time"
)

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateRemote(&c.Remote); err != nil {
		return err
	}

	if err := validateThreads(&c.Threads); err != nil {
		return err
	}

	if err := validateSync(&c.Sync); err != nil {
		return err
	}

	if err := validateStorage(&c.Storage); err != nil {
		return err
	}

	if c.Capture != nil {
		if err := validateDuration(c.Capture.Timeout, "capture.timeout"); err != nil {
			return err
		}
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}

func validateRemote(r *RemoteConfig) error {
	if r.Endpoint == "" {
		return fmt.Errorf("remote.endpoint is required")
	}

	u, err := url.Parse(r.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("remote.endpoint must be an absolute URL, got %q", r.Endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("remote.endpoint must use http or https, got %q", u.Scheme)
	}

	if err := validateDuration(r.Timeout, "remote.timeout"); err != nil {
		return err
	}

	if r.MaxRetries < 0 {
		return fmt.Errorf("remote.maxRetries cannot be negative")
	}

	return validateAuth(r.Auth)
}

func validateAuth(a *RemoteAuthConfig) error {
	switch a.GetType() {
	case AuthTypeNone, AuthTypeBearer:
		return nil
	case AuthTypeOAuth2:
		if a.ClientID == "" {
			return fmt.Errorf("remote.auth.clientId is required for oauth2")
		}
		if a.TokenURL == "" {
			return fmt.Errorf("remote.auth.tokenUrl is required for oauth2")
		}
		return nil
	default:
		return fmt.Errorf("remote.auth.type must be one of %s, %s or %s, got %q",
			AuthTypeNone, AuthTypeBearer, AuthTypeOAuth2, a.Type)
	}
}

func validateThreads(t *ThreadsConfig) error {
	switch t.GetSource() {
	case ThreadSourceConfig:
		if len(t.IDs) == 0 {
			return fmt.Errorf("threads.ids must list at least one thread when threads.source is %s", ThreadSourceConfig)
		}
		for i, id := range t.IDs {
			if id == "" {
				return fmt.Errorf("threads.ids[%d] cannot be empty", i)
			}
		}
		return nil
	case ThreadSourceRemote:
		return nil
	default:
		return fmt.Errorf("threads.source must be %s or %s, got %q", ThreadSourceConfig, ThreadSourceRemote, t.Source)
	}
}

func validateSync(s *SyncConfig) error {
	if err := validateDuration(s.Interval, "sync.interval"); err != nil {
		return err
	}
	if s.Interval != "" && s.GetInterval() <= 0 {
		return fmt.Errorf("sync.interval must be positive")
	}
	if s.MaxMessagesPerRequest < 0 {
		return fmt.Errorf("sync.maxMessagesPerRequest cannot be negative")
	}
	if s.MaxConcurrentThreads < 0 {
		return fmt.Errorf("sync.maxConcurrentThreads cannot be negative")
	}
	return nil
}

func validateStorage(s *StorageConfig) error {
	switch s.Type {
	case StorageTypePostgres:
		return validateDatabase(s.Database)
	case StorageTypeMongo:
		if s.Mongo == nil {
			return fmt.Errorf("storage.mongo is required when storage.type is %s", StorageTypeMongo)
		}
		return nil
	case StorageTypeSQLite:
		if s.SQLite == nil || s.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required when storage.type is %s", StorageTypeSQLite)
		}
		return nil
	case StorageTypeMemory:
		return nil
	case "":
		return fmt.Errorf("storage.type is required")
	default:
		return fmt.Errorf("storage.type must be one of %s, %s, %s or %s, got %q",
			StorageTypePostgres, StorageTypeMongo, StorageTypeSQLite, StorageTypeMemory, s.Type)
	}
}

func validateDatabase(d *DatabaseConfig) error {
	if d == nil {
		return fmt.Errorf("storage.database is required when storage.type is %s", StorageTypePostgres)
	}
	if d.Host == "" {
		return fmt.Errorf("storage.database.host is required")
	}
	if d.Port == 0 {
		return fmt.Errorf("storage.database.port is required")
	}
	if d.User == "" {
		return fmt.Errorf("storage.database.user is required")
	}
	if d.Database == "" {
		return fmt.Errorf("storage.database.database is required")
	}
	if d.DynamicAuth != nil {
		if d.DynamicAuth.AWSRDSIAM == nil {
			return fmt.Errorf("storage.database.dynamicAuth must configure awsRdsIam")
		}
		if d.DynamicAuth.AWSRDSIAM.Region == "" {
			return fmt.Errorf("storage.database.dynamicAuth.awsRdsIam.region is required")
		}
	}
	return validateDuration(d.ConnMaxLifetime, "storage.database.connMaxLifetime")
}

func validateDuration(value, field string) error {
	if value == "" {
		return nil
	}
	if _, err := time.ParseDuration(value); err != nil {
		return fmt.Errorf("%s must be a valid duration (e.g., '30m', '1h'): %w", field, err)
	}
	return nil
}
