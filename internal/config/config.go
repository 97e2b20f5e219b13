package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spst-logistics/spst-api/internal/secrets"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	TrackingFeed TrackingFeedConfig
	Auth         AuthConfig
	ApiKey       ApiKeyConfig
	Storage      StorageConfig
	Secrets      SecretsConfig
	Logging      LoggingConfig
	Server       ServerConfig
	CORS         CORSConfig
	Security     SecurityConfig
	RateLimit    RateLimitConfig
	Mail         MailConfig
	Payments     PaymentsConfig
	Jobs         JobsConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// TrackingFeedConfig holds configuration for the carrier TMS mirror on MS SQL Server.
// This connection is optional and read-only.
type TrackingFeedConfig struct {
	// Enabled controls whether the tracking feed connection is attempted
	Enabled bool
	// URL is the connection URL in format host:port/database
	URL string
	// User is the database username
	User string
	// Password is the database password
	Password string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	// QueryTimeout is the default timeout for queries (seconds)
	QueryTimeout int
}

// AuthConfig holds settings for validating session tokens from the hosted auth provider
type AuthConfig struct {
	Issuer    string
	Audience  string
	JWTSecret SecretRef
	// BreakGlassEmails is a comma-separated operator allow-list that is
	// treated as staff even without a staff_users row
	BreakGlassEmails string
}

// SecretRef is a secret that may be resolved from the vault or environment
type SecretRef struct {
	SecretName string
	Value      string
}

type ApiKeyConfig struct {
	SecretName string
	Value      string // Loaded from secrets or environment
}

type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
	MaxUploadSizeMB       int64
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// MailConfig holds SMTP settings for outbound notifications
type MailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password SecretRef
	From     string
	// FallbackRecipients receives wave notifications when no carrier
	// address can be resolved
	FallbackRecipients []string
}

// PaymentsConfig holds Stripe webhook settings for customs duty payments
type PaymentsConfig struct {
	Enabled       bool
	WebhookSecret SecretRef
}

// JobsConfig holds cron schedules for background jobs
type JobsConfig struct {
	Enabled                bool
	TrackingSyncSchedule   string
	PickupReminderSchedule string
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge is the max age (in seconds) for preflight cache
	MaxAge int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	// FrameOptions sets the X-Frame-Options header (DENY, SAMEORIGIN, or empty to disable)
	FrameOptions       string
	ContentTypeNosniff bool
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute is the default rate limit for unauthenticated requests (per IP)
	RequestsPerMinute int
	// RequestsPerMinuteAuth is the rate limit for authenticated requests (per user)
	RequestsPerMinuteAuth int
	BurstSize             int
	WhitelistIPs          []string
	WhitelistPaths        []string
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (t *TrackingFeedConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(t.ConnMaxLifetime) * time.Second
}

// QueryTimeoutDuration returns query timeout as duration
func (t *TrackingFeedConfig) QueryTimeoutDuration() time.Duration {
	return time.Duration(t.QueryTimeout) * time.Second
}

// Load loads configuration from file and environment variables.
// This is a basic load that doesn't fetch secrets from vault;
// use LoadWithSecrets for full secret resolution.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.ApiKey.Value == "" {
		cfg.ApiKey.Value = v.GetString("ADMIN_API_KEY")
	}
	if cfg.Auth.JWTSecret.Value == "" {
		cfg.Auth.JWTSecret.Value = v.GetString("AUTH_JWT_SECRET")
	}
	if cfg.Auth.BreakGlassEmails == "" {
		cfg.Auth.BreakGlassEmails = v.GetString("BREAK_GLASS_EMAILS")
	}
	if cfg.Mail.Password.Value == "" {
		cfg.Mail.Password.Value = v.GetString("SMTP_PASSWORD")
	}
	if cfg.Payments.WebhookSecret.Value == "" {
		cfg.Payments.WebhookSecret.Value = v.GetString("STRIPE_WEBHOOK_SECRET")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}
	if v.GetBool("TRACKINGFEED_ENABLED") {
		cfg.TrackingFeed.Enabled = true
	}

	return &cfg, nil
}

// LoadWithSecrets loads configuration and resolves secrets from the configured source.
// In development (or when secrets.source = "environment"), secrets come from env vars.
// In staging/production with USE_AZURE_KEY_VAULT=true, secrets come from Azure Key Vault.
//
// Tracking feed credentials are loaded from Key Vault whenever the feed is
// enabled and a vault is configured, regardless of environment.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	if cfg.TrackingFeed.Enabled && cfg.Secrets.KeyVaultName != "" {
		if err := loadTrackingFeedSecrets(ctx, cfg, logger); err != nil {
			logger.Warn("Failed to load tracking feed secrets from Key Vault",
				zap.Error(err),
				zap.String("environment", cfg.App.Environment),
			)
			// Don't fail startup - the tracking feed is optional
		}
	}

	if !useKeyVault {
		logger.Info("USE_AZURE_KEY_VAULT not enabled, using environment variables for main secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if !isValidEnv {
		logger.Warn("USE_AZURE_KEY_VAULT is enabled but environment is not staging or production, using environment variables for main secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	logger.Info("Azure Key Vault enabled for secrets",
		zap.String("environment", cfg.App.Environment),
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
	)

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider: %w", err)
	}

	if !provider.IsVaultEnabled() {
		return nil, fmt.Errorf("vault provider not enabled despite USE_AZURE_KEY_VAULT=true")
	}

	logger.Info("Loading secrets from Azure Key Vault")

	if host, err := provider.GetSecretOrEnv(ctx, "POSTGRES-MAIN-HOST", "DATABASE_HOST"); err == nil && host != "" {
		cfg.Database.Host = host
	}
	if defaultDB := os.Getenv("DEFAULT_DATABASE"); defaultDB != "" {
		cfg.Database.Name = defaultDB
	}
	if user, err := provider.GetSecretOrEnv(ctx, "POSTGRES-MAIN-USER", "DATABASE_USER"); err == nil && user != "" {
		cfg.Database.User = user
	}
	if password, err := provider.GetSecretOrEnv(ctx, "POSTGRES-MAIN-PASSWORD", "DATABASE_PASSWORD"); err == nil && password != "" {
		cfg.Database.Password = password
	}
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}

	if jwtSecret, err := provider.GetSecretOrEnv(ctx, "auth-jwt-secret", "AUTH_JWT_SECRET"); err == nil && jwtSecret != "" {
		cfg.Auth.JWTSecret.Value = jwtSecret
	}

	if apiKey, err := provider.GetSecretOrEnv(ctx, "admin-api-key", "ADMIN_API_KEY"); err == nil && apiKey != "" {
		cfg.ApiKey.Value = apiKey
	}

	if smtpPassword, err := provider.GetSecretOrEnv(ctx, "smtp-password", "SMTP_PASSWORD"); err == nil && smtpPassword != "" {
		cfg.Mail.Password.Value = smtpPassword
	}

	if whSecret, err := provider.GetSecretOrEnv(ctx, "stripe-webhook-secret", "STRIPE_WEBHOOK_SECRET"); err == nil && whSecret != "" {
		cfg.Payments.WebhookSecret.Value = whSecret
	}

	if connStr, err := provider.GetSecretOrEnv(ctx, "storage-connection-string", "STORAGE_CLOUDCONNECTIONSTRING"); err == nil && connStr != "" {
		cfg.Storage.CloudConnectionString = connStr
	}

	logger.Info("Secrets loaded from vault successfully")
	return cfg, nil
}

// loadTrackingFeedSecrets loads tracking feed credentials from Azure Key Vault.
// The feed credentials only come from Key Vault, never from environment variables.
func loadTrackingFeedSecrets(ctx context.Context, cfg *Config, logger *zap.Logger) error {
	logger.Info("Loading tracking feed secrets from Key Vault",
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
		zap.String("environment", cfg.App.Environment),
	)

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client for tracking feed: %w", err)
	}

	url, err := provider.GetSecret(ctx, "TRACKING-FEED-URL")
	if err != nil {
		return fmt.Errorf("failed to get TRACKING-FEED-URL from Key Vault: %w", err)
	}
	cfg.TrackingFeed.URL = url

	user, err := provider.GetSecret(ctx, "TRACKING-FEED-USERNAME")
	if err != nil {
		return fmt.Errorf("failed to get TRACKING-FEED-USERNAME from Key Vault: %w", err)
	}
	cfg.TrackingFeed.User = user

	password, err := provider.GetSecret(ctx, "TRACKING-FEED-PASSWORD")
	if err != nil {
		return fmt.Errorf("failed to get TRACKING-FEED-PASSWORD from Key Vault: %w", err)
	}
	cfg.TrackingFeed.Password = password

	logger.Info("Tracking feed credentials loaded from Key Vault successfully")
	return nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "SPST Logistics API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "spst")
	v.SetDefault("database.user", "spst_user")
	v.SetDefault("database.password", "spst_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	// Tracking feed defaults (MS SQL Server mirror - optional, read-only)
	v.SetDefault("trackingFeed.enabled", false)
	v.SetDefault("trackingFeed.maxOpenConns", 10)
	v.SetDefault("trackingFeed.maxIdleConns", 2)
	v.SetDefault("trackingFeed.connMaxLifetime", 300)
	v.SetDefault("trackingFeed.queryTimeout", 30)

	// Auth defaults
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")

	// Secrets defaults
	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300) // 5 minutes

	// Storage defaults
	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.cloudContainer", "shipment-docs")
	v.SetDefault("storage.maxUploadSizeMB", 25)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.requestTimeout", 60)
	v.SetDefault("server.enableSwagger", true)

	// Mail defaults
	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.host", "smtp.spst.it")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", "notifiche@spst.it")
	v.SetDefault("mail.fallbackRecipients", []string{})

	// Payments defaults
	v.SetDefault("payments.enabled", false)

	// Jobs defaults
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.trackingSyncSchedule", "*/15 * * * *")
	v.SetDefault("jobs.pickupReminderSchedule", "0 7 * * *")

	// CORS defaults - restrictive by default
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300) // 5 minutes

	// Security header defaults - secure by default
	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000) // 1 year
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.xssProtection", "1; mode=block")
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.permissionsPolicy", "geolocation=(), microphone=(), camera=()")

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 60)
	v.SetDefault("rateLimit.requestsPerMinuteAuth", 120)
	v.SetDefault("rateLimit.burstSize", 10)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready"})
}
