package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Token lifetimes
const (
	SessionTokenTTL    = 7 * 24 * time.Hour
	ResetTokenTTL      = time.Hour
	InvitationTTL      = 7 * 24 * time.Hour
	SubscriptionPeriod = 30 * 24 * time.Hour
)

// Outbound calls
const EmailSendTimeout = 10 * time.Second

// Rate limiting
const (
	DefaultRateLimitPerMin = 60
	AuthRateLimitPerMin    = 10
)

// Request body limits
const (
	DefaultMaxBodySize = 1 << 20
	ImportMaxBodySize  = 5 << 20
)

// Spending queries
const (
	DefaultSpendingLimit = 100
	MaxSpendingLimit     = 1000
	DefaultSummaryDays   = 30
)
