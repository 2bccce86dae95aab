// Package constants provides shared constants used throughout the concord codebase.
// This includes timeouts, retry policy, page sizes, file permissions, and other
// configuration values that should be consistent across the application.
package constants

import "time"

// Timeout and retry constants define the remote-call time budget
const (
	// DefaultHTTPTimeout is the standard timeout for a single HTTP request to a directory API
	DefaultHTTPTimeout = 30 * time.Second

	// RetryBackoff is the base backoff duration for retries
	RetryBackoff = 1 * time.Second

	// MaxRetryBackoff is the maximum backoff duration for retries
	MaxRetryBackoff = 30 * time.Second

	// MaxRetryAttempts is the maximum number of attempts for a transient-failing request
	MaxRetryAttempts = 5
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SecureFilePermissions is for sensitive files like API tokens (rw-------)
	SecureFilePermissions = 0600
)

// Paging constants for directory list calls
const (
	// SourcePageSize is the page size for source directory list requests
	SourcePageSize = 1000

	// TargetPageSize is the page size for target directory list requests
	TargetPageSize = 100
)

// Default values
const (
	// DefaultDatabaseFile is the default mapping store location
	DefaultDatabaseFile = "concord.db"

	// DefaultLogFile is the default log file location, empty disables file logging
	DefaultLogFile = ""

	// DefaultFieldSelection enables every syncable field group
	DefaultFieldSelection = "all"
)

// Logging constants
const (
	// LogRotationSizeMB is the maximum size of a log file before rotation
	LogRotationSizeMB = 10

	// LogRotationAgeDays is the maximum age of rotated log files before deletion
	LogRotationAgeDays = 7

	// LogRotationBackups is the maximum number of old log files to retain
	LogRotationBackups = 5
)
