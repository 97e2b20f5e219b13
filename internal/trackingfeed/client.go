// Package trackingfeed provides read-only connectivity to the carrier tracking
// feed, an MS SQL Server database replicated from the carriers' scan events.
// The API never writes to the feed; it only polls for new events.
package trackingfeed

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb" // MS SQL Server driver
	"github.com/spst-logistics/spst-api/internal/config"
	"go.uber.org/zap"
)

const (
	// Retry configuration for connection attempts
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 10 * time.Second
	defaultBackoffFactor  = 2.0

	defaultHealthCheckTimeout = 5 * time.Second
)

// Event is a single carrier scan event from the feed.
type Event struct {
	TrackingCode string    `json:"tracking_code"`
	CarrierCode  string    `json:"carrier_code"`
	StatusCode   string    `json:"status_code"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Client provides read-only access to the carrier tracking feed.
// It manages connection pooling and query timeouts.
type Client struct {
	db           *sql.DB
	config       *config.TrackingFeedConfig
	logger       *zap.Logger
	queryTimeout time.Duration
}

// HealthStatus represents the health check result for the feed connection
type HealthStatus struct {
	Status     string        `json:"status"`
	Latency    time.Duration `json:"latency_ms"`
	Error      string        `json:"error,omitempty"`
	MaxOpen    int           `json:"max_open_connections"`
	Open       int           `json:"open_connections"`
	InUse      int           `json:"in_use"`
	Idle       int           `json:"idle"`
	WaitCount  int64         `json:"wait_count"`
	WaitTimeMs int64         `json:"wait_time_ms"`
}

// NewClient creates a new tracking feed client with the given configuration.
// Returns nil if the feed is not enabled or not configured.
// The client establishes a connection pool with retry logic for transient failures.
func NewClient(cfg *config.TrackingFeedConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("Tracking feed connection disabled")
		return nil, nil
	}

	if cfg.URL == "" || cfg.User == "" || cfg.Password == "" {
		logger.Warn("Tracking feed enabled but missing credentials, skipping connection",
			zap.Bool("url_present", cfg.URL != ""),
			zap.Bool("user_present", cfg.User != ""),
			zap.Bool("password_present", cfg.Password != ""),
		)
		return nil, nil
	}

	logger.Info("Initializing tracking feed connection",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Int("conn_max_lifetime_seconds", cfg.ConnMaxLifetime),
		zap.Int("query_timeout_seconds", cfg.QueryTimeout),
	)

	connStr, err := buildConnectionString(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build connection string: %w", err)
	}

	var db *sql.DB
	backoff := defaultInitialBackoff

	for attempt := 1; attempt <= defaultMaxRetries; attempt++ {
		logger.Info("Attempting tracking feed connection",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", defaultMaxRetries),
		)

		db, err = sql.Open("sqlserver", connStr)
		if err != nil {
			logger.Warn("Failed to open tracking feed connection",
				zap.Error(err),
				zap.Int("attempt", attempt),
			)
			if attempt < defaultMaxRetries {
				time.Sleep(backoff)
				backoff = min(time.Duration(float64(backoff)*defaultBackoffFactor), defaultMaxBackoff)
			}
			continue
		}

		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

		ctx, cancel := context.WithTimeout(context.Background(), defaultHealthCheckTimeout)
		err = db.PingContext(ctx)
		cancel()

		if err != nil {
			logger.Warn("Tracking feed ping failed",
				zap.Error(err),
				zap.Int("attempt", attempt),
			)
			_ = db.Close()
			if attempt < defaultMaxRetries {
				time.Sleep(backoff)
				backoff = min(time.Duration(float64(backoff)*defaultBackoffFactor), defaultMaxBackoff)
			}
			continue
		}

		logger.Info("Tracking feed connection established successfully",
			zap.Int("attempts_taken", attempt),
		)

		return &Client{
			db:           db,
			config:       cfg,
			logger:       logger,
			queryTimeout: cfg.QueryTimeoutDuration(),
		}, nil
	}

	return nil, fmt.Errorf("failed to connect to tracking feed after %d attempts: %w", defaultMaxRetries, err)
}

// buildConnectionString constructs a SQL Server connection string from the config.
// URL format expected: host:port/database or host:port (uses default database)
func buildConnectionString(cfg *config.TrackingFeedConfig) (string, error) {
	urlParts := strings.SplitN(cfg.URL, "/", 2)
	hostPort := urlParts[0]
	database := ""
	if len(urlParts) > 1 {
		database = urlParts[1]
	}

	hostParts := strings.SplitN(hostPort, ":", 2)
	host := hostParts[0]
	port := "1433" // Default SQL Server port
	if len(hostParts) > 1 {
		port = hostParts[1]
	}

	query := url.Values{}
	query.Add("encrypt", "true")
	query.Add("TrustServerCertificate", "false")
	query.Add("connection timeout", "30")
	if database != "" {
		query.Add("database", database)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%s", host, port),
		RawQuery: query.Encode(),
	}

	return u.String(), nil
}

// Close gracefully closes the tracking feed connection.
// Should be called during application shutdown.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}

	c.logger.Info("Closing tracking feed connection")

	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close tracking feed connection", zap.Error(err))
		return fmt.Errorf("failed to close tracking feed connection: %w", err)
	}

	return nil
}

// HealthCheck performs a health check on the tracking feed connection.
// Returns detailed status including connection pool statistics.
func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	if c == nil || c.db == nil {
		return &HealthStatus{
			Status: "disabled",
		}
	}

	start := time.Now()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultHealthCheckTimeout)
		defer cancel()
	}

	err := c.db.PingContext(ctx)
	latency := time.Since(start)

	stats := c.db.Stats()
	status := &HealthStatus{
		Latency:    latency,
		MaxOpen:    stats.MaxOpenConnections,
		Open:       stats.OpenConnections,
		InUse:      stats.InUse,
		Idle:       stats.Idle,
		WaitCount:  stats.WaitCount,
		WaitTimeMs: stats.WaitDuration.Milliseconds(),
	}

	if err != nil {
		c.logger.Warn("Tracking feed health check failed",
			zap.Error(err),
			zap.Duration("latency", latency),
		)
		status.Status = "unhealthy"
		status.Error = err.Error()
	} else {
		status.Status = "healthy"
	}

	return status
}

// LatestEvents returns the scan events recorded after the given cutoff for the
// given tracking codes, oldest first. Tracking codes not present in the feed
// simply produce no rows.
func (c *Client) LatestEvents(ctx context.Context, trackingCodes []string, since time.Time) ([]Event, error) {
	if c == nil || c.db == nil {
		return nil, fmt.Errorf("tracking feed client not initialized")
	}
	if len(trackingCodes) == 0 {
		return nil, nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	placeholders := make([]string, 0, len(trackingCodes))
	args := make([]interface{}, 0, len(trackingCodes)+1)
	args = append(args, sql.Named("since", since))
	for i, code := range trackingCodes {
		name := fmt.Sprintf("code%d", i)
		placeholders = append(placeholders, "@"+name)
		args = append(args, sql.Named(name, code))
	}

	query := fmt.Sprintf(`SELECT tracking_code, carrier_code, status_code, description, location, occurred_at
FROM dbo.carrier_scan_events
WHERE occurred_at > @since AND tracking_code IN (%s)
ORDER BY occurred_at ASC`, strings.Join(placeholders, ", "))

	c.logger.Debug("Executing tracking feed query",
		zap.Int("tracking_codes", len(trackingCodes)),
		zap.Time("since", since),
	)

	start := time.Now()

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		c.logger.Error("Tracking feed query failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.TrackingCode, &ev.CarrierCode, &ev.StatusCode, &ev.Description, &ev.Location, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	c.logger.Debug("Tracking feed query completed",
		zap.Int("events_returned", len(events)),
		zap.Duration("duration", time.Since(start)),
	)

	return events, nil
}

// LastEventFor returns the most recent scan event for a single tracking code,
// or nil if the feed has none.
func (c *Client) LastEventFor(ctx context.Context, trackingCode string) (*Event, error) {
	if c == nil || c.db == nil {
		return nil, fmt.Errorf("tracking feed client not initialized")
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	query := `SELECT TOP 1 tracking_code, carrier_code, status_code, description, location, occurred_at
FROM dbo.carrier_scan_events
WHERE tracking_code = @code
ORDER BY occurred_at DESC`

	row := c.db.QueryRowContext(ctx, query, sql.Named("code", trackingCode))

	var ev Event
	err := row.Scan(&ev.TrackingCode, &ev.CarrierCode, &ev.StatusCode, &ev.Description, &ev.Location, &ev.OccurredAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &ev, nil
}

// IsEnabled returns true if the client is initialized and ready for queries.
func (c *Client) IsEnabled() bool {
	return c != nil && c.db != nil
}
