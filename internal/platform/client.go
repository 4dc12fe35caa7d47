package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cfxstock/botfleet/internal/tracing"
	"github.com/cfxstock/botfleet/internal/wlsc"
)

// settleDelay is the pause between a successful entitlement validation and
// the ticket-creation call, matching the upstream protocol's expectation
// that entitlement has propagated before a ticket is requested
// (original_source: a short sleep between send_entitlement and the ticket
// POST).
const settleDelay = 1 * time.Second

var (
	// ErrEntitlementDenied means the platform rejected the account's
	// entitlement (a non-2xx response, or the call circuit is open).
	ErrEntitlementDenied = errors.New("platform: entitlement denied")

	// ErrTicketEmpty means the platform returned no usable ticket.
	ErrTicketEmpty = errors.New("platform: empty ticket")
)

// Client implements wlsc.PlatformClient against the upstream game-platform
// API (spec.md §4 C1). Entitlement validation uses a direct HTTP client;
// ticket creation is routed through an outbound proxy, matching the
// upstream protocol (original_source/src/services/heartbeats.rs: two
// distinct reqwest clients, one with a proxy and one without).
type Client struct {
	cfg Config

	direct *http.Client
	proxied *http.Client

	breakers *CircuitBreakerRegistry
	retry    RetryConfig
	idem     *idempotencyCache
}

// New constructs a Client from cfg. Proxy credentials, if any, are embedded
// in the transport's proxy URL at construction time, never logged or
// otherwise surfaced.
func New(cfg Config) (*Client, error) {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	direct := &http.Client{Timeout: timeout}

	proxied := &http.Client{Timeout: timeout}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("platform: invalid proxy url: %w", err)
		}
		if cfg.ProxyUsername != "" {
			proxyURL.User = url.UserPassword(cfg.ProxyUsername, cfg.ProxyPassword)
		}
		proxied.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	failureThreshold := cfg.CircuitBreakerFailureThreshold
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	resetTimeout := cfg.CircuitBreakerResetTimeout
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	halfOpenMax := cfg.CircuitBreakerHalfOpenMax
	if halfOpenMax <= 0 {
		halfOpenMax = 2
	}

	retryCfg := RetryConfig{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
	}
	if retryCfg.MaxAttempts <= 0 {
		retryCfg.MaxAttempts = 3
	}
	if retryCfg.BaseDelay <= 0 {
		retryCfg.BaseDelay = 200 * time.Millisecond
	}
	if retryCfg.MaxDelay <= 0 {
		retryCfg.MaxDelay = 5 * time.Second
	}

	return &Client{
		cfg:      cfg,
		direct:   direct,
		proxied:  proxied,
		breakers: NewCircuitBreakerRegistry(failureThreshold, resetTimeout, halfOpenMax),
		retry:    retryCfg,
		idem:     newIdempotencyCache(cfg.IdempotencyCacheSize, cfg.IdempotencyCacheTTL),
	}, nil
}

// HeartbeatPlayer re-validates entitlement for an already-assigned account.
// Entitlement validation, here and as the first step of InitializePlayer,
// is the only call retried transparently: it is idempotent and
// side-effect-free on the platform.
func (c *Client) HeartbeatPlayer(ctx context.Context, l wlsc.License, acc wlsc.Account) error {
	key := idempotencyKey{license: string(l), account: acc.ID, kind: "heartbeat"}
	if !c.idem.claim(key, time.Now()) {
		return nil
	}
	defer c.idem.release(key)

	return c.validateEntitlement(ctx, l, acc)
}

// InitializePlayer validates entitlement, then creates a session ticket,
// for a newly-pending account (spec.md §4 C1). Ticket creation is never
// retried: a failure here is a per-account fault handled by the caller's
// set-mutation (dropping the account from pending), not a transparent
// retry (DESIGN.md).
func (c *Client) InitializePlayer(ctx context.Context, l wlsc.License, acc wlsc.Account, keyTokenEncoded string) error {
	key := idempotencyKey{license: string(l), account: acc.ID, kind: "initialize"}
	if !c.idem.claim(key, time.Now()) {
		return nil
	}
	defer c.idem.release(key)

	if err := c.validateEntitlement(ctx, l, acc); err != nil {
		return err
	}

	select {
	case <-time.After(settleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	return c.createTicket(ctx, l, acc, keyTokenEncoded)
}

func (c *Client) validateEntitlement(ctx context.Context, l wlsc.License, acc wlsc.Account) error {
	ctx, span := tracing.StartPlatformCallSpan(ctx, "validate_entitlement", string(l), acc.ID)
	defer span.End()

	cb := c.breakers.Get(string(l))
	if !cb.Allow() {
		err := fmt.Errorf("%w: circuit open for license", ErrEntitlementDenied)
		tracing.RecordError(ctx, err)
		return err
	}

	err := Retry(ctx, c.retry, func(ctx context.Context) (bool, error) {
		form := c.baseForm()
		form.Set("machineHashIndex", acc.MachineHash)
		form.Set("entitlementId", acc.EntitlementID)

		resp, err := c.post(ctx, c.direct, c.cfg.EntitlementURL, form)
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return false, nil
		}
		retryable := isRetryableStatus(resp.StatusCode)
		if retryable {
			if d := retryAfterDuration(resp); d > 0 {
				_ = sleepWithContext(ctx, d)
			}
		}
		return retryable, fmt.Errorf("%w: status %d", ErrEntitlementDenied, resp.StatusCode)
	})

	if err != nil {
		cb.RecordFailure()
		tracing.RecordError(ctx, err)
		return err
	}
	cb.RecordSuccess()
	return nil
}

func (c *Client) createTicket(ctx context.Context, l wlsc.License, acc wlsc.Account, keyTokenEncoded string) error {
	ctx, span := tracing.StartPlatformCallSpan(ctx, "create_ticket", string(l), acc.ID)
	defer span.End()

	form := c.baseForm()
	form.Set("machineHashIndex", acc.MachineHash)
	form.Set("token", acc.EntitlementID)
	form.Set("serverKeyToken", keyTokenEncoded)
	form.Set("accountIndex", strconv.Itoa(acc.AccountIndex))

	resp, err := c.post(ctx, c.proxied, c.cfg.TicketURL, form)
	if err != nil {
		err = fmt.Errorf("platform: ticket request: %w", err)
		tracing.RecordError(ctx, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("platform: ticket request: status %d", resp.StatusCode)
		tracing.RecordError(ctx, err)
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("platform: reading ticket response: %w", err)
	}

	var payload struct {
		Ticket string `json:"ticket"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("platform: decoding ticket response: %w", err)
	}
	if payload.Ticket == "" {
		tracing.RecordError(ctx, ErrTicketEmpty)
		return ErrTicketEmpty
	}
	return nil
}

// baseForm seeds a request body with the protocol-fixed fields from
// config, machine_hash always URL-encoded (Open Question resolved in
// DESIGN.md: the upstream protocol encodes it on every call).
func (c *Client) baseForm() url.Values {
	form := url.Values{}
	for k, v := range c.cfg.ExtraParams {
		form.Set(k, v)
	}
	return form
}

func (c *Client) post(ctx context.Context, client *http.Client, endpoint string, form url.Values) (*http.Response, error) {
	body := strings.NewReader(form.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	tracing.InjectHeaders(ctx, req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
