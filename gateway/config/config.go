package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

type LedgerConfig struct {
	Endpoint            string        `yaml:"endpoint"`
	Contract            string        `yaml:"contract"`
	ChainID             uint64        `yaml:"chainID"`
	ReceiptPollInterval time.Duration `yaml:"receiptPollInterval"`
	ReceiptTimeout      time.Duration `yaml:"receiptTimeout"`
}

type AccountConfig struct {
	Keystore      string `yaml:"keystore"`
	PassphraseEnv string `yaml:"passphraseEnv"`
}

type IPFSConfig struct {
	API          string        `yaml:"api"`
	CheckTimeout time.Duration `yaml:"checkTimeout"`
}

type SnapshotConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type RateLimitConfig struct {
	ID                string  `yaml:"id"`
	RequestsPerMinute float64 `yaml:"requestsPerMinute"`
	Burst             int     `yaml:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
	AllowedHeaders []string `yaml:"allowedHeaders"`
}

type ObservabilityConfig struct {
	ServiceName   string `yaml:"serviceName"`
	Metrics       bool   `yaml:"metrics"`
	Tracing       bool   `yaml:"tracing"`
	LogRequests   bool   `yaml:"logRequests"`
	LogLevel      string `yaml:"logLevel"`
	MetricsPrefix string `yaml:"metricsPrefix"`
}

type AuthConfig struct {
	Enabled    bool          `yaml:"enabled"`
	HMACSecret string        `yaml:"hmacSecret"`
	SecretEnv  string        `yaml:"secretEnv"`
	Issuer     string        `yaml:"issuer"`
	Audience   string        `yaml:"audience"`
	ScopeClaim string        `yaml:"scopeClaim"`
	ClockSkew  time.Duration `yaml:"clockSkew"`
	enabledSet bool          `yaml:"-"`
}

func (a *AuthConfig) UnmarshalYAML(node *yaml.Node) error {
	type rawAuthConfig struct {
		Enabled    *bool         `yaml:"enabled"`
		HMACSecret string        `yaml:"hmacSecret"`
		SecretEnv  string        `yaml:"secretEnv"`
		Issuer     string        `yaml:"issuer"`
		Audience   string        `yaml:"audience"`
		ScopeClaim string        `yaml:"scopeClaim"`
		ClockSkew  time.Duration `yaml:"clockSkew"`
	}
	var raw rawAuthConfig
	if err := node.Decode(&raw); err != nil {
		return err
	}
	a.Enabled = raw.Enabled != nil && *raw.Enabled
	a.enabledSet = raw.Enabled != nil
	a.HMACSecret = raw.HMACSecret
	a.SecretEnv = raw.SecretEnv
	a.Issuer = raw.Issuer
	a.Audience = raw.Audience
	a.ScopeClaim = raw.ScopeClaim
	a.ClockSkew = raw.ClockSkew
	return nil
}

// Secret resolves the HMAC secret, preferring the named environment variable.
func (a AuthConfig) Secret() string {
	if env := strings.TrimSpace(a.SecretEnv); env != "" {
		if value := strings.TrimSpace(os.Getenv(env)); value != "" {
			return value
		}
	}
	return strings.TrimSpace(a.HMACSecret)
}

type SecurityConfig struct {
	TLSCertFile string `yaml:"tlsCertFile"`
	TLSKeyFile  string `yaml:"tlsKeyFile"`
}

// Config is the marketfront daemon configuration.
type Config struct {
	ListenAddress string              `yaml:"listen"`
	ReadTimeout   time.Duration       `yaml:"readTimeout"`
	WriteTimeout  time.Duration       `yaml:"writeTimeout"`
	IdleTimeout   time.Duration       `yaml:"idleTimeout"`
	MaxUploadSize int64               `yaml:"maxUploadBytes"`
	Ledger        LedgerConfig        `yaml:"ledger"`
	Account       AccountConfig       `yaml:"account"`
	IPFS          IPFSConfig          `yaml:"ipfs"`
	Snapshots     SnapshotConfig      `yaml:"snapshots"`
	RateLimits    []RateLimitConfig   `yaml:"rateLimits"`
	CORS          CORSConfig          `yaml:"cors"`
	Observability ObservabilityConfig `yaml:"observability"`
	Auth          AuthConfig          `yaml:"auth"`
	Security      SecurityConfig      `yaml:"security"`
}

func defaults() Config {
	return Config{
		ListenAddress: "127.0.0.1:8080",
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  3 * time.Minute,
		IdleTimeout:   120 * time.Second,
		MaxUploadSize: 10 << 20,
		Ledger: LedgerConfig{
			Endpoint:            "http://127.0.0.1:8545",
			ReceiptPollInterval: time.Second,
			ReceiptTimeout:      2 * time.Minute,
		},
		Account: AccountConfig{
			Keystore:      "account.keystore",
			PassphraseEnv: "MARKETFRONT_PASSPHRASE",
		},
		IPFS: IPFSConfig{
			API:          "http://127.0.0.1:5001",
			CheckTimeout: 3 * time.Second,
		},
		Snapshots: SnapshotConfig{Backend: "bolt", Path: "marketfront-snapshots.db"},
		RateLimits: []RateLimitConfig{
			{ID: "read", RequestsPerMinute: 600, Burst: 60},
			{ID: "write", RequestsPerMinute: 60, Burst: 10},
		},
		Observability: ObservabilityConfig{
			ServiceName:   "marketfront",
			Metrics:       true,
			Tracing:       false,
			LogRequests:   true,
			LogLevel:      "info",
			MetricsPrefix: "marketfront_http",
		},
		Auth: AuthConfig{
			ScopeClaim: "scope",
			ClockSkew:  2 * time.Minute,
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path yields the
// defaults alone.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("decode config: %w", err)
		}
	}
	cfg.applyAuthDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) applyAuthDefaults() {
	if cfg.Auth.ClockSkew <= 0 {
		cfg.Auth.ClockSkew = 2 * time.Minute
	}
	if cfg.Auth.ScopeClaim == "" {
		cfg.Auth.ScopeClaim = "scope"
	}
}

var ErrAuthEnabledNotConfigured = errors.New("auth.enabled must be explicitly set when listening beyond loopback or serving TLS")

// Validate checks the configuration for values the daemon cannot run with.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return fmt.Errorf("listen address required")
	}
	if cfg.isSensitiveDeployment() && !cfg.Auth.enabledSet {
		return ErrAuthEnabledNotConfigured
	}
	if cfg.Auth.Enabled && cfg.Auth.Secret() == "" {
		return fmt.Errorf("auth.hmacSecret or auth.secretEnv required when auth is enabled")
	}
	if _, err := url.ParseRequestURI(cfg.Ledger.Endpoint); err != nil {
		return fmt.Errorf("ledger.endpoint: %w", err)
	}
	if !common.IsHexAddress(cfg.Ledger.Contract) {
		return fmt.Errorf("ledger.contract must be a hex address")
	}
	if cfg.Ledger.ReceiptPollInterval <= 0 || cfg.Ledger.ReceiptTimeout < cfg.Ledger.ReceiptPollInterval {
		return fmt.Errorf("ledger.receiptTimeout must be at least ledger.receiptPollInterval")
	}
	if strings.TrimSpace(cfg.Account.Keystore) == "" {
		return fmt.Errorf("account.keystore required")
	}
	if _, err := url.ParseRequestURI(cfg.IPFS.API); err != nil {
		return fmt.Errorf("ipfs.api: %w", err)
	}
	switch cfg.Snapshots.Backend {
	case "memory", "bolt", "leveldb":
	default:
		return fmt.Errorf("snapshots.backend %q unsupported", cfg.Snapshots.Backend)
	}
	if cfg.MaxUploadSize <= 0 {
		return fmt.Errorf("maxUploadBytes must be positive")
	}
	seen := make(map[string]struct{}, len(cfg.RateLimits))
	for i, limit := range cfg.RateLimits {
		id := strings.TrimSpace(limit.ID)
		if id == "" {
			return fmt.Errorf("rateLimits[%d].id cannot be empty", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("rateLimits[%d].id %q duplicated", i, id)
		}
		seen[id] = struct{}{}
		if limit.RequestsPerMinute <= 0 {
			return fmt.Errorf("rateLimits[%d].requestsPerMinute must be positive", i)
		}
	}
	return nil
}

// ContractAddress returns the parsed marketplace address.
func (cfg Config) ContractAddress() common.Address {
	return common.HexToAddress(cfg.Ledger.Contract)
}

func (cfg *Config) isSensitiveDeployment() bool {
	if strings.TrimSpace(cfg.Security.TLSCertFile) != "" || strings.TrimSpace(cfg.Security.TLSKeyFile) != "" {
		return true
	}
	host, _, err := net.SplitHostPort(cfg.ListenAddress)
	if err != nil {
		return true
	}
	if host == "localhost" {
		return false
	}
	ip := net.ParseIP(host)
	return ip == nil || !ip.IsLoopback()
}

// EnforceSecureScheme ensures the supplied upstream URL uses HTTPS outside of
// the dev environment. Loopback hosts are always allowed over HTTP.
func EnforceSecureScheme(env string, target *url.URL) error {
	if target == nil {
		return fmt.Errorf("target URL is nil")
	}
	switch strings.ToLower(strings.TrimSpace(target.Scheme)) {
	case "https", "wss":
		return nil
	case "http", "ws":
		if isDevEnv(env) || isLoopbackHost(target.Hostname()) {
			return nil
		}
		if strings.TrimSpace(env) == "" {
			env = "(unset)"
		}
		return fmt.Errorf("plaintext endpoint %s not permitted for environment %s", target.Host, env)
	case "":
		return fmt.Errorf("URL scheme is required")
	default:
		return fmt.Errorf("unsupported URL scheme %q", target.Scheme)
	}
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func isDevEnv(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), "dev")
}
