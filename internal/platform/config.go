package platform

import "time"

// Config is internal/config's [platform] section, handed to New once at
// startup (spec.md §6).
type Config struct {
	EntitlementURL string
	TicketURL      string
	RequestTimeout time.Duration

	// ProxyURL routes ticket-creation calls, matching the upstream
	// protocol's requirement that ticket creation (unlike entitlement
	// validation) go through a residential proxy. ProxyURL itself carries no
	// credentials; ProxyUsername/ProxyPassword are resolved by the caller
	// (internal/daemon) via internal/vault before Config is built, and New
	// adds them to the transport's copy of the proxy URL.
	ProxyURL      string
	ProxyUsername string
	ProxyPassword string

	// ExtraParams carries upstream form fields that are protocol-fixed
	// constants rather than per-account data (e.g. a client identifier or
	// game name the platform expects on every call). These are
	// deployment-specific and config-sourced, never literals in source.
	ExtraParams map[string]string

	CircuitBreakerFailureThreshold int
	CircuitBreakerResetTimeout     time.Duration
	CircuitBreakerHalfOpenMax      int

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	IdempotencyCacheSize int
	IdempotencyCacheTTL  time.Duration
}
