package config

// DefaultHTTPAddr is the default bind address for the heartbeat server
// (localhost only, matching the teacher's bind-to-loopback default).
const DefaultHTTPAddr = "127.0.0.1:7677"

// DefaultLogLevel is the default log level.
const DefaultLogLevel = "info"

// DefaultDataDir is the default data directory (before tilde expansion).
const DefaultDataDir = "~/.botfleet"

// DefaultConfigFilename is the name of the config file.
const DefaultConfigFilename = "botfleet.toml"

// DefaultDSN is the default sqlite database path (before tilde expansion).
const DefaultDSN = "~/.botfleet/botfleet.db"

// DefaultReadTimeout is the default HTTP server read timeout in seconds.
const DefaultReadTimeout = 10

// DefaultWriteTimeout is the default HTTP server write timeout in seconds.
const DefaultWriteTimeout = 10

// DefaultIdleTimeout is the default HTTP server idle timeout in seconds.
const DefaultIdleTimeout = 120

// DefaultShutdownTimeout is the default graceful-shutdown deadline in seconds.
const DefaultShutdownTimeout = 15

// DefaultMaxInFlight is the default load-shed ceiling: the number of
// heartbeat requests allowed in flight before new ones are rejected with
// 503.
const DefaultMaxInFlight = 512

// DefaultRequestTimeout is the default per-request handler timeout in seconds.
const DefaultRequestTimeout = 5

// DefaultPlatformRequestTimeout is the default upstream platform call
// timeout in seconds.
const DefaultPlatformRequestTimeout = 8

// DefaultRetryMaxAttempts is the default maximum number of retry attempts per platform call.
const DefaultRetryMaxAttempts = 3

// DefaultRetryBaseDelayMs is the default base delay for exponential backoff in milliseconds.
const DefaultRetryBaseDelayMs = 500

// DefaultRetryMaxDelayMs is the default maximum delay for exponential backoff in milliseconds.
const DefaultRetryMaxDelayMs = 30000

// DefaultCBFailureThreshold is the default number of consecutive failures before opening the circuit.
const DefaultCBFailureThreshold = 5

// DefaultCBResetTimeout is the default circuit breaker reset timeout in seconds.
const DefaultCBResetTimeout = 60

// DefaultCBHalfOpenMax is the default number of successful calls in half-open state to close the circuit.
const DefaultCBHalfOpenMax = 1

// DefaultIdempotencyCacheSize is the default number of entries kept in the
// idempotency cache.
const DefaultIdempotencyCacheSize = 4096

// DefaultIdempotencyCacheTTLSeconds is the default idempotency claim lifetime.
const DefaultIdempotencyCacheTTLSeconds = 90

// DefaultTickPeriodSeconds is the default worker tick period (spec.md §3).
const DefaultTickPeriodSeconds = 60

// DefaultHeartbeatTimeoutSeconds is the default staleness deadline for a
// worker's heartbeat (spec.md §3).
const DefaultHeartbeatTimeoutSeconds = 30

// DefaultMinHeartbeatIntervalSeconds is the default minimum spacing
// between accepted heartbeats for the same license (spec.md §3).
const DefaultMinHeartbeatIntervalSeconds = 5

// DefaultInitialAccountFloor is the default minimum account-capacity hint
// used when the account store reports fewer accounts than this floor.
const DefaultInitialAccountFloor = 1

// DefaultTracingExporter is the default tracing exporter type.
const DefaultTracingExporter = "otlp-grpc"

// DefaultTracingEndpoint is the default OTLP collector endpoint.
const DefaultTracingEndpoint = "localhost:4317"

// DefaultTracingServiceName is the default service name for traces.
const DefaultTracingServiceName = "botfleet"

// DefaultTracingSampleRate is the default sampling rate (1.0 = 100%).
const DefaultTracingSampleRate = 1.0

// ValidLogLevels lists the allowed log level values.
var ValidLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal"}

// ValidTracingExporters lists the allowed tracing exporter values.
var ValidTracingExporters = []string{"stdout", "otlp-grpc", "otlp-http"}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:        DefaultHTTPAddr,
			LogLevel:        DefaultLogLevel,
			DataDir:         DefaultDataDir,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			MaxInFlight:     DefaultMaxInFlight,
			RequestTimeout:  DefaultRequestTimeout,
		},
		Storage: StorageConfig{
			DSN: DefaultDSN,
		},
		Platform: PlatformConfig{
			EntitlementURL:       "",
			TicketURL:            "",
			RequestTimeout:       DefaultPlatformRequestTimeout,
			ProxyURL:             "",
			ProxyUsername:        "",
			ProxyKeyRef:          "keyring://botfleet/proxy",
			ExtraParams:          map[string]string{},
			RetryMaxAttempts:     DefaultRetryMaxAttempts,
			RetryBaseDelayMs:     DefaultRetryBaseDelayMs,
			RetryMaxDelayMs:      DefaultRetryMaxDelayMs,
			CBFailureThreshold:   DefaultCBFailureThreshold,
			CBResetTimeoutSec:    DefaultCBResetTimeout,
			CBHalfOpenMax:        DefaultCBHalfOpenMax,
			IdempotencyCacheSize: DefaultIdempotencyCacheSize,
			IdempotencyCacheTTLS: DefaultIdempotencyCacheTTLSeconds,
		},
		WLSC: WLSCConfig{
			TickPeriodSeconds:          DefaultTickPeriodSeconds,
			HeartbeatTimeoutSeconds:    DefaultHeartbeatTimeoutSeconds,
			MinHeartbeatIntervalSecond: DefaultMinHeartbeatIntervalSeconds,
			InitialAccountFloor:        DefaultInitialAccountFloor,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Exporter:    DefaultTracingExporter,
			Endpoint:    DefaultTracingEndpoint,
			ServiceName: DefaultTracingServiceName,
			SampleRate:  DefaultTracingSampleRate,
			Insecure:    false,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
