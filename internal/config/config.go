package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/opensandbox/sqlsteal/internal/fetch"
	"github.com/opensandbox/sqlsteal/internal/storage"
)

// Config holds all settings for a retrieval. Values come from defaults, an
// optional YAML file, secret stores and SQLSTEAL_* environment variables,
// in that order. Command-line flags are applied on top by the caller.
type Config struct {
	Driver   string `yaml:"driver"` // "mysql" or "postgres"
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Port     int    `yaml:"port"` // 0 = driver default
	Database string `yaml:"database"`

	Escape   bool   `yaml:"escape"`   // quote-escape the path before interpolation
	Compress bool   `yaml:"compress"` // zstd-compress saved files
	LogLevel string `yaml:"log_level"`

	JournalPath string `yaml:"journal"`      // SQLite retrieval journal, empty = off
	MetricsFile string `yaml:"metrics_file"` // Prometheus textfile, empty = off

	// S3-compatible storage for s3:// destinations
	S3Endpoint        string `yaml:"s3_endpoint"`
	S3Region          string `yaml:"s3_region"`
	S3AccessKeyID     string `yaml:"s3_access_key_id"`
	S3SecretAccessKey string `yaml:"s3_secret_access_key"`
	S3ForcePathStyle  bool   `yaml:"s3_force_path_style"` // true for MinIO/R2

	// Azure Blob Storage account for azblob:// destinations
	AzureAccountURL string `yaml:"azure_account_url"`

	// AWS Secrets Manager: JSON object of env var names, env vars win.
	SecretsARN string `yaml:"secrets_arn"`

	// Azure Key Vault secret holding the database password.
	KeyVaultURL    string `yaml:"keyvault_url"`
	KeyVaultSecret string `yaml:"keyvault_secret"`
}

// Load builds the configuration. file may be empty.
func Load(file string, log zerolog.Logger) (*Config, error) {
	cfg := &Config{
		Driver:   fetch.DriverMySQL,
		User:     currentUser(),
		LogLevel: "warn",
		S3Region: "us-east-1",
	}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", file, err)
		}
	}

	// Fetch secrets from AWS Secrets Manager if configured.
	// This populates the process environment so the env overlay picks them up.
	if arn := envOrDefault("SQLSTEAL_SECRETS_ARN", cfg.SecretsARN); arn != "" {
		if err := loadSecretsManager(context.Background(), arn, log); err != nil {
			return nil, fmt.Errorf("failed to load secrets from %s: %w", arn, err)
		}
	}

	cfg.Driver = envOrDefault("SQLSTEAL_DRIVER", cfg.Driver)
	cfg.User = envOrDefault("SQLSTEAL_USER", cfg.User)
	cfg.Password = envOrDefault("SQLSTEAL_PASSWORD", cfg.Password)
	cfg.Database = envOrDefault("SQLSTEAL_DATABASE", cfg.Database)
	cfg.LogLevel = envOrDefault("SQLSTEAL_LOG_LEVEL", cfg.LogLevel)
	cfg.JournalPath = envOrDefault("SQLSTEAL_JOURNAL", cfg.JournalPath)
	cfg.MetricsFile = envOrDefault("SQLSTEAL_METRICS_FILE", cfg.MetricsFile)

	cfg.S3Endpoint = envOrDefault("SQLSTEAL_S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3Region = envOrDefault("SQLSTEAL_S3_REGION", cfg.S3Region)
	cfg.S3AccessKeyID = envOrDefault("SQLSTEAL_S3_ACCESS_KEY_ID", cfg.S3AccessKeyID)
	cfg.S3SecretAccessKey = envOrDefault("SQLSTEAL_S3_SECRET_ACCESS_KEY", cfg.S3SecretAccessKey)
	if v := os.Getenv("SQLSTEAL_S3_FORCE_PATH_STYLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SQLSTEAL_S3_FORCE_PATH_STYLE %q: %w", v, err)
		}
		cfg.S3ForcePathStyle = b
	}
	cfg.AzureAccountURL = envOrDefault("SQLSTEAL_AZURE_ACCOUNT_URL", cfg.AzureAccountURL)
	cfg.KeyVaultURL = envOrDefault("SQLSTEAL_KEYVAULT_URL", cfg.KeyVaultURL)
	cfg.KeyVaultSecret = envOrDefault("SQLSTEAL_KEYVAULT_SECRET", cfg.KeyVaultSecret)

	if portStr := os.Getenv("SQLSTEAL_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid SQLSTEAL_PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	if cfg.Password == "" && cfg.KeyVaultURL != "" && cfg.KeyVaultSecret != "" {
		pw, err := loadKeyVaultSecret(cfg.KeyVaultURL, cfg.KeyVaultSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to load password from %s: %w", cfg.KeyVaultURL, err)
		}
		cfg.Password = pw
		log.Debug().Str("vault", cfg.KeyVaultURL).Msg("config: loaded password from Key Vault")
	}

	return cfg, nil
}

// Validate checks the settings that cannot be caught at parse time.
func (c *Config) Validate() error {
	if _, err := fetch.NewBackend(c.Driver); err != nil {
		return err
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// Target returns the fetch target for host.
func (c *Config) Target(host string) fetch.Target {
	db := c.Database
	if db == "" && c.Driver == fetch.DriverPostgres {
		db = "postgres"
	}
	return fetch.Target{
		Host:     host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: db,
	}
}

// StorageOptions returns the options for storage.Open.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Compress: c.Compress,
		S3: storage.S3Config{
			Endpoint:        c.S3Endpoint,
			Region:          c.S3Region,
			AccessKeyID:     c.S3AccessKeyID,
			SecretAccessKey: c.S3SecretAccessKey,
			ForcePathStyle:  c.S3ForcePathStyle,
		},
		Azure: storage.AzureConfig{AccountURL: c.AzureAccountURL},
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// currentUser mirrors the mysql client, which logs in as the OS user when
// no user is given.
func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		// Windows reports DOMAIN\user
		if i := strings.LastIndex(u.Username, `\`); i >= 0 {
			return u.Username[i+1:]
		}
		return u.Username
	}
	return os.Getenv("USER")
}

// loadSecretsManager overlays a JSON secret of SQLSTEAL_* variables onto
// the environment. Variables already set are left alone.
func loadSecretsManager(ctx context.Context, arn string, log zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var opts []func(*awsconfig.LoadOptions) error
	if region := regionFromARN(arn); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}

	out, err := secretsmanager.NewFromConfig(awsCfg).GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &arn,
	})
	if err != nil {
		return fmt.Errorf("GetSecretValue: %w", err)
	}
	if out.SecretString == nil {
		return fmt.Errorf("secret %s has no string value", arn)
	}

	applied, total, err := applySecrets(*out.SecretString)
	if err != nil {
		return err
	}
	log.Debug().Int("applied", applied).Int("keys", total).Msg("config: loaded secrets from Secrets Manager")
	return nil
}

// regionFromARN returns the region field of
// arn:aws:secretsmanager:REGION:ACCOUNT:secret:NAME, or "" for a bare name.
func regionFromARN(arn string) string {
	parts := strings.SplitN(arn, ":", 5)
	if len(parts) < 5 || parts[0] != "arn" {
		return ""
	}
	return parts[3]
}

// applySecrets sets each key of a JSON object as an env var unless it is
// already set.
func applySecrets(secretJSON string) (applied, total int, err error) {
	var secrets map[string]string
	if err := json.Unmarshal([]byte(secretJSON), &secrets); err != nil {
		return 0, 0, fmt.Errorf("parse secret JSON: %w", err)
	}
	for key, value := range secrets {
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
			applied++
		}
	}
	return applied, len(secrets), nil
}

func loadKeyVaultSecret(vaultURL, name string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return "", fmt.Errorf("load Azure credentials: %w", err)
	}
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return "", fmt.Errorf("create Key Vault client: %w", err)
	}
	resp, err := client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", fmt.Errorf("GetSecret: %w", err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret %s has no value", name)
	}
	return *resp.Value, nil
}
