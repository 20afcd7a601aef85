package constants

// Storage collection keys. These are fixed: they name the persisted JSON
// collections and must not change between releases or queued records
// become unreachable.
const (
	StorageKeyCitations   = "offline_multas"
	StorageKeyTowRequests = "gruas_solicitadas"
	StorageKeySession     = "session_usuario"
)

// Citation capture limits
const (
	MaxCitationPhotos = 3
	FolioPrefix       = "MUL-"
)

// Default timeout values
const (
	DefaultSubmitTimeoutSec      = 60
	DefaultProbeTimeoutSec       = 5
	DefaultGracefulShutdownSec   = 30
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
)

// Default retry/backoff configuration values
const (
	DefaultDatabaseRetryAttempts = 3
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultBackoffInitialMs      = 500
)

// Circuit breaker defaults for the citation API
const (
	DefaultBreakerMaxFailures     = 5
	DefaultBreakerResetTimeoutSec = 30
)

// Default server and storage configuration values
const (
	DefaultServerPort   = 8181
	DefaultMaxPayloadKB = 2048
)

// Encryption key derivation salts. Changing either invalidates every
// payload written with encryption enabled.
const (
	EncryptionSalt = "multasync-record-store-v1"
)

// Privacy settings
const (
	DefaultPlateMaskVisible = 3
	DefaultIDMaskVisible    = 4
)
