package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"marketfront/cmd/internal/bootstrap"
	"marketfront/cmd/internal/passphrase"
	"marketfront/core/session"
	"marketfront/gateway/config"
	"marketfront/gateway/middleware"
	"marketfront/gateway/routes"
	"marketfront/observability"
	"marketfront/observability/logging"
	telemetry "marketfront/observability/otel"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to marketfront daemon configuration")
	flag.Parse()

	if err := run(cfgPath); err != nil {
		slog.Error("marketfront exited", "error", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	env := strings.TrimSpace(os.Getenv("MARKETFRONT_ENV"))
	logger := logging.Setup(cfg.Observability.ServiceName, env, logging.Options{Level: cfg.Observability.LogLevel})

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.FromEnv(telemetry.Config{
		ServiceName: cfg.Observability.ServiceName,
		Environment: env,
		Traces:      cfg.Observability.Tracing,
		Metrics:     cfg.Observability.Tracing,
	}))
	if err != nil {
		return fmt.Errorf("initialise telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	for name, raw := range map[string]string{"ledger.endpoint": cfg.Ledger.Endpoint, "ipfs.api": cfg.IPFS.API} {
		target, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		if err := config.EnforceSecureScheme(env, target); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	pass, err := passphrase.NewSource(cfg.Account.PassphraseEnv).Get()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configDir := ""
	if strings.TrimSpace(cfgPath) != "" {
		configDir = filepath.Dir(cfgPath)
	}
	dialCtx, cancelDial := context.WithTimeout(ctx, 15*time.Second)
	rt, err := bootstrap.Open(dialCtx, bootstrap.Params{
		LedgerEndpoint:  cfg.Ledger.Endpoint,
		Contract:        cfg.ContractAddress(),
		ChainID:         cfg.Ledger.ChainID,
		KeystorePath:    resolvePath(configDir, cfg.Account.Keystore),
		Passphrase:      pass,
		IPFSAPI:         cfg.IPFS.API,
		CheckTimeout:    cfg.IPFS.CheckTimeout,
		SnapshotBackend: cfg.Snapshots.Backend,
		SnapshotPath:    resolvePath(configDir, cfg.Snapshots.Path),
		PollInterval:    cfg.Ledger.ReceiptPollInterval,
		ReceiptTimeout:  cfg.Ledger.ReceiptTimeout,
		Logger:          logger,
		Metrics:         observability.Contract(),
		Emitter:         observability.Events(),
	})
	cancelDial()
	if err != nil {
		return err
	}
	defer rt.Close()
	logger.Info("account ready", "account", rt.Account.Hex(), "contract", cfg.Ledger.Contract)

	// The first load happens before serving; a failure leaves the restored or
	// empty snapshot in place and is retried through POST /v1/refresh.
	if _, err := rt.Session.Dispatch(ctx, session.Load{}); err != nil {
		logger.Warn("initial load failed", "error", err)
	}

	rateLimits := make(map[string]middleware.RateLimit, len(cfg.RateLimits))
	for _, entry := range cfg.RateLimits {
		rateLimits[entry.ID] = middleware.RateLimit{RequestsPerMinute: entry.RequestsPerMinute, Burst: entry.Burst}
	}
	var obs *middleware.Observability
	if cfg.Observability.Metrics {
		obs = middleware.NewObservability(middleware.ObservabilityConfig{
			MetricsPrefix: cfg.Observability.MetricsPrefix,
			LogRequests:   cfg.Observability.LogRequests,
			Enabled:       true,
		}, logger, prometheus.DefaultGatherer)
	}
	router := routes.New(routes.Config{
		Session:        rt.Session,
		Logger:         logger,
		Metrics:        observability.Commands(),
		MaxUploadBytes: cfg.MaxUploadSize,
		CommandTimeout: cfg.Ledger.ReceiptTimeout + 30*time.Second,
		HealthCheck:    rt.Healthy,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:    cfg.Auth.Enabled,
			HMACSecret: cfg.Auth.Secret(),
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ScopeClaim: cfg.Auth.ScopeClaim,
			ClockSkew:  cfg.Auth.ClockSkew,
		}, logger),
		RateLimiter:   middleware.NewRateLimiter(rateLimits, logger),
		Observability: obs,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedHeaders: cfg.CORS.AllowedHeaders,
		},
	})

	handler := router
	if cfg.Observability.Tracing {
		handler = otelhttp.NewHandler(router, "marketfront")
	}

	tlsConfig, err := buildTLSConfig(configDir, cfg.Security)
	if err != nil {
		return fmt.Errorf("configure TLS: %w", err)
	}
	server := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		TLSConfig:    tlsConfig,
	}
	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		scheme := "http"
		if tlsConfig != nil {
			scheme = "https"
			listener = tls.NewListener(listener, tlsConfig)
		}
		logger.Info("listening", "endpoint", scheme+"://"+listener.Addr().String())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	return nil
}

func buildTLSConfig(baseDir string, sec config.SecurityConfig) (*tls.Config, error) {
	certPath := resolvePath(baseDir, sec.TLSCertFile)
	keyPath := resolvePath(baseDir, sec.TLSKeyFile)
	if certPath == "" && keyPath == "" {
		return nil, nil
	}
	if certPath == "" || keyPath == "" {
		return nil, fmt.Errorf("security.tlsCertFile and security.tlsKeyFile must both be provided")
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("load TLS key pair: %w", err)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}, nil
}

func resolvePath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || baseDir == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(baseDir, trimmed)
}
