package constants

// Default dispatch configuration values
const (
	DefaultSignalDurationMinutes = 120
	DefaultServerPort            = 8084
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultMaxAttempts           = 5
)

// Batched lookups against the store
const (
	LookupBatchSize = 10
)

// Push transport values
const (
	PushBatchChunkSize       = 100
	DefaultPushTimeoutSec    = 30
	DefaultPushPriority      = "high"
	DefaultNotificationTitle = "Signal!"
	DefaultNotificationBody  = "Someone nearby sent a signal"
	PushBreakerMaxFailures   = 5
	PushBreakerCooldownSec   = 30
)

// Default timeout values
const (
	DefaultHTTPTimeoutSec        = 30
	DefaultDatabaseRetryAttempts = 3
	DefaultGracefulShutdownSec   = 30
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
)

// Expiry sweeper defaults
const (
	DefaultExpirySweepIntervalMin = 5
)

// Location tracker defaults
const (
	DefaultTrackerIntervalSec    = 60
	DefaultMinDisplacementMeters = 25
)

// Crew membership cache
const (
	CrewCacheTTLMinutes   = 5
	CrewCacheSweepMinutes = 10
)

// Validation bounds
const (
	MaxMessageLength = 500
	MinLatitude      = -90.0
	MaxLatitude      = 90.0
	MinLongitude     = -180.0
	MaxLongitude     = 180.0
)

// Server internals
const (
	ServerErrorChannelSize = 1
	EventBufferSize        = 16
)
