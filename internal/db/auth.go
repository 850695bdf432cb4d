package db

import (
	"context"
	"fmt"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"
	"github.com/jackc/pgx/v5"

	"github.com/stacklok/thv-history-sync/internal/config"
)

const awsRegionDetect = "detect"

// tokenFunc returns a short-lived database password
type tokenFunc func(ctx context.Context) (string, error)

// newTokenFunc returns the token source for the configured dynamic auth
// method, or nil when the static password is used.
func newTokenFunc(ctx context.Context, cfg *config.DatabaseConfig) (tokenFunc, error) {
	if cfg.DynamicAuth == nil {
		return nil, nil
	}
	if cfg.DynamicAuth.AWSRDSIAM == nil {
		return nil, fmt.Errorf("dynamic auth is configured but no supported auth method (e.g., awsRdsIam) is specified")
	}

	region, err := awsRegion(ctx, cfg.DynamicAuth.AWSRDSIAM.Region)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return func(ctx context.Context) (string, error) {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			return "", fmt.Errorf("failed to load AWS config: %w", err)
		}
		token, err := auth.BuildAuthToken(ctx, endpoint, region, cfg.User, awsCfg.Credentials)
		if err != nil {
			return "", fmt.Errorf("failed to build RDS authentication token: %w", err)
		}
		return token, nil
	}, nil
}

// awsRegion resolves "detect" through the instance metadata service
func awsRegion(ctx context.Context, region string) (string, error) {
	switch region {
	case "":
		return "", fmt.Errorf("AWS RDS IAM region is not configured")
	case awsRegionDetect:
		client := imds.New(imds.Options{HTTPClient: &http.Client{Timeout: 2 * time.Second}})
		out, err := client.GetRegion(ctx, &imds.GetRegionInput{})
		if err != nil {
			return "", fmt.Errorf("failed to get region from IMDS: %w", err)
		}
		return out.Region, nil
	default:
		return region, nil
	}
}

// beforeConnect sets a fresh token as the password of every new pool connection
func beforeConnect(token tokenFunc) func(context.Context, *pgx.ConnConfig) error {
	return func(ctx context.Context, cc *pgx.ConnConfig) error {
		password, err := token(ctx)
		if err != nil {
			return err
		}
		cc.Password = password
		return nil
	}
}

// MigrationConnectionString returns a connection string for one-off
// connections such as migrations, resolving a dynamic token if configured.
func MigrationConnectionString(ctx context.Context, cfg *config.DatabaseConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("database configuration is required")
	}

	token, err := newTokenFunc(ctx, cfg)
	if err != nil {
		return "", err
	}
	if token == nil {
		return cfg.GetConnectionString()
	}

	password, err := token(ctx)
	if err != nil {
		return "", err
	}
	return cfg.ConnectionString(password), nil
}
