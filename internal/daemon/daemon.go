package daemon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cfxstock/botfleet/internal/config"
	"github.com/cfxstock/botfleet/internal/httpapi"
	"github.com/cfxstock/botfleet/internal/metrics"
	"github.com/cfxstock/botfleet/internal/platform"
	"github.com/cfxstock/botfleet/internal/repo"
	"github.com/cfxstock/botfleet/internal/store"
	"github.com/cfxstock/botfleet/internal/tracing"
	"github.com/cfxstock/botfleet/internal/vault"
	"github.com/cfxstock/botfleet/internal/version"
	"github.com/cfxstock/botfleet/internal/wlsc"
)

// activeWorkerPollInterval is how often the active-worker gauge is
// refreshed from the registry (internal/metrics has no push hook for it,
// since the registry lives inside internal/wlsc and is not reachable from
// the HTTP layer).
const activeWorkerPollInterval = 5 * time.Second

// Run is the main daemon orchestrator. It initializes all subsystems,
// starts the heartbeat server, and blocks until a shutdown signal is
// received.
func Run(cfg *config.Config, foreground bool) error {
	// 1. Set up zerolog logger.
	dataDir := expandHome(cfg.Server.DataDir)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory %s: %w", dataDir, err)
	}

	logLevel := parseLogLevel(cfg.Server.LogLevel)
	zerolog.SetGlobalLevel(logLevel)

	writers := []io.Writer{}

	logPath := filepath.Join(dataDir, "botfleet.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", logPath, err)
	}
	defer logFile.Close()
	writers = append(writers, logFile)

	if foreground {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
		writers = append(writers, consoleWriter)
	}

	multi := zerolog.MultiLevelWriter(writers...)
	log.Logger = zerolog.New(multi).With().Timestamp().Str("service", "botfleet").Logger()

	log.Info().
		Str("version", version.Version).
		Str("data_dir", dataDir).
		Bool("foreground", foreground).
		Msg("botfleet starting")

	// 2. Check if already running.
	if IsRunning(dataDir) {
		return fmt.Errorf("botfleet is already running (PID file exists at %s)", filepath.Join(dataDir, pidFilename))
	}

	// 3. Open store.
	dbPath := expandHome(cfg.Storage.DSN)
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	log.Info().Str("db_path", dbPath).Msg("store opened")

	serverRepo := repo.NewServerRepo(st)
	accountRepo := repo.NewAccountRepo(st)

	// 4. Resolve the proxy credential through the vault, never a literal.
	v := vault.New()
	proxyPassword := ""
	if cfg.Platform.ProxyKeyRef != "" {
		pw, resolveErr := v.ResolveKeyRef(cfg.Platform.ProxyKeyRef)
		if resolveErr != nil {
			log.Warn().Err(resolveErr).Str("key_ref", cfg.Platform.ProxyKeyRef).
				Msg("failed to resolve proxy credential; proxy calls will be made without one")
		} else {
			proxyPassword = pw
		}
	}

	platformClient, err := platform.New(platformConfigFrom(cfg.Platform, proxyPassword))
	if err != nil {
		return fmt.Errorf("constructing platform client: %w", err)
	}

	// 5. Create metrics collector.
	collector := metrics.NewCollector()

	// 6. Write PID file.
	if err := WritePID(dataDir); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer func() {
		if err := RemovePID(dataDir); err != nil {
			log.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	log.Info().Int("pid", os.Getpid()).Msg("PID file written")

	// 7. Construct the WLSC facade and HTTP layer.
	wlscCfg := wlsc.Config{AccountFloor: cfg.WLSC.InitialAccountFloor}
	facade := wlsc.New(serverRepo, accountRepo, platformClient, nil, wlscCfg)

	handler := httpapi.NewHandler(facade)
	serverCfg := httpapi.ServerConfig{
		Addr:           cfg.Server.HTTPAddr,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(cfg.Server.IdleTimeout) * time.Second,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		MaxInFlight:    cfg.Server.MaxInFlight,
		TracingEnabled: cfg.Tracing.Enabled,
	}
	httpServer := httpapi.NewServer(handler, serverCfg, collector)

	// 8. Start tracing, if enabled.
	var tracingShutdown func(context.Context) error
	if cfg.Tracing.Enabled {
		shutdown, tracingErr := tracing.Init(
			context.Background(),
			cfg.Tracing.ServiceName, version.Version,
			cfg.Tracing.Exporter, cfg.Tracing.Endpoint,
			cfg.Tracing.SampleRate, cfg.Tracing.Insecure,
		)
		if tracingErr != nil {
			log.Warn().Err(tracingErr).Msg("failed to start tracing; continuing without it")
		} else {
			tracingShutdown = shutdown
			log.Info().Str("exporter", cfg.Tracing.Exporter).Msg("tracing initialized")
		}
	}

	// 9. Start the config watcher: hot-reload the log level. Tick cadence
	// is baked into already-running worker goroutines at construction and
	// is not reloaded mid-flight (DESIGN.md).
	configFile := config.ConfigFilePath()
	var watcher *config.Watcher
	if configFile != "" {
		if _, statErr := os.Stat(configFile); statErr == nil {
			w, watchErr := config.Watch(configFile)
			if watchErr != nil {
				log.Warn().Err(watchErr).Msg("failed to start config watcher; continuing without hot-reload")
			} else {
				watcher = w
				defer watcher.Close()
				watcher.OnChange(func(old, newCfg *config.Config) {
					zerolog.SetGlobalLevel(parseLogLevel(newCfg.Server.LogLevel))
					log.Info().Str("log_level", newCfg.Server.LogLevel).
						Msg("configuration reloaded; tick cadence is fixed at startup (DESIGN.md)")
				})
				log.Info().Str("file", configFile).Msg("config watcher started")
			}
		}
	}

	// 10. Poll the active-worker gauge periodically; the registry itself
	// lives inside internal/wlsc and has no push hook into metrics.
	pollCtx, pollCancel := context.WithCancel(context.Background())
	defer pollCancel()
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		runActiveWorkerPoll(pollCtx, facade, collector)
	}()

	// 11. Start the HTTP server.
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("heartbeat server starting")
		if err := httpServer.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("heartbeat server: %w", err)
		}
	}()

	log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("botfleet is ready")
	if foreground {
		fmt.Printf("\n  botfleet is running!\n")
		fmt.Printf("  Heartbeat: http://%s/heartbeat/{cfx_license}\n\n", cfg.Server.HTTPAddr)
	}

	// 12. Wait for a shutdown signal or a fatal server error.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("fatal server error")
		return err
	}

	// 13. Graceful shutdown with a timeout.
	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	log.Info().Msg("shutting down heartbeat server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("heartbeat server shutdown error")
	}

	// 14. Clean up: wait for the active-worker poller, then close the store.
	pollCancel()
	<-pollDone

	if tracingShutdown != nil {
		if err := tracingShutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("tracing shutdown error")
		}
	}

	st.Close()
	if err := RemovePID(dataDir); err != nil {
		log.Error().Err(err).Msg("failed to remove PID file during shutdown")
	}

	log.Info().Msg("botfleet stopped")
	return nil
}

// platformConfigFrom translates the [platform] config section into
// internal/platform's Config, resolving the proxy credential out of band
// (the vault lookup in Run) so no secret ever passes through config.Config
// itself.
func platformConfigFrom(p config.PlatformConfig, proxyPassword string) platform.Config {
	return platform.Config{
		EntitlementURL: p.EntitlementURL,
		TicketURL:      p.TicketURL,
		RequestTimeout: p.RequestTimeoutDuration(),

		ProxyURL:      p.ProxyURL,
		ProxyUsername: p.ProxyUsername,
		ProxyPassword: proxyPassword,

		ExtraParams: p.ExtraParams,

		CircuitBreakerFailureThreshold: p.CBFailureThreshold,
		CircuitBreakerResetTimeout:     time.Duration(p.CBResetTimeoutSec) * time.Second,
		CircuitBreakerHalfOpenMax:      p.CBHalfOpenMax,

		RetryMaxAttempts: p.RetryMaxAttempts,
		RetryBaseDelay:   time.Duration(p.RetryBaseDelayMs) * time.Millisecond,
		RetryMaxDelay:    time.Duration(p.RetryMaxDelayMs) * time.Millisecond,

		IdempotencyCacheSize: p.IdempotencyCacheSize,
		IdempotencyCacheTTL:  time.Duration(p.IdempotencyCacheTTLS) * time.Second,
	}
}

// runActiveWorkerPoll refreshes the active-worker gauge on a fixed cadence
// until ctx is canceled.
func runActiveWorkerPoll(ctx context.Context, facade *wlsc.WLSC, collector *metrics.Collector) {
	ticker := time.NewTicker(activeWorkerPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			collector.SetActiveWorkers(facade.ActiveCount())
		}
	}
}

// Stop reads the PID file and sends SIGTERM to the running daemon.
func Stop() error {
	dataDir := expandHome(config.Get().Server.DataDir)

	pid, err := ReadPID(dataDir)
	if err != nil {
		return fmt.Errorf("botfleet does not appear to be running: %w", err)
	}

	if !isProcessAlive(pid) {
		if rmErr := RemovePID(dataDir); rmErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to remove stale PID file: %v\n", rmErr)
		}
		return fmt.Errorf("botfleet is not running (stale PID file removed)")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending SIGTERM to process %d: %w", pid, err)
	}

	fmt.Printf("Sent SIGTERM to botfleet (PID %d)\n", pid)

	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if !isProcessAlive(pid) {
			return nil
		}
	}

	return nil
}

// Status checks whether the daemon is running and prints a short summary.
// Unlike the teacher, there is no dashboard API to query: botfleet exposes
// only /healthz and /metrics, so Status reports PID liveness and hits
// /healthz directly rather than decoding a stats payload (DESIGN.md).
func Status() error {
	cfg := config.Get()
	dataDir := expandHome(cfg.Server.DataDir)

	if !IsRunning(dataDir) {
		fmt.Println("botfleet is not running")
		return nil
	}

	pid, _ := ReadPID(dataDir)
	fmt.Printf("botfleet is running (PID %d)\n", pid)

	healthzURL := fmt.Sprintf("http://%s/healthz", cfg.Server.HTTPAddr)
	client := &http.Client{Timeout: 3 * time.Second}

	resp, err := client.Get(healthzURL)
	if err != nil {
		fmt.Println("  (heartbeat server unreachable)")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		fmt.Println("  heartbeat server: healthy")
	} else {
		fmt.Printf("  heartbeat server: unhealthy (status %d)\n", resp.StatusCode)
	}

	return nil
}

// parseLogLevel converts a string log level to a zerolog.Level.
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
