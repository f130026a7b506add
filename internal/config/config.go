// Package config loads the wallet configuration and keeps the active snapshot.
package config

import (
	"errors"
	"fmt"
	"github.com/spf13/viper"
	"strings"
	"time"
	"wallet/internal/form"
	"wallet/internal/models"
	"wallet/internal/signer"
)

var (
	ErrDuplicateDelegate = errors.New("duplicate delegate address")
	ErrEmptyDelegateHost = errors.New("delegate host is required")
	ErrInvalidPollDelay  = errors.New("poll delay must be positive")

	ErrInvalidAccountAddress = errors.New("default account address must be 40 hex characters")
	ErrAccountKeyMismatch    = errors.New("default account address does not match its private key")
)

type Config struct {
	Env            string         `mapstructure:"env"`
	StoragePath    string         `mapstructure:"storage_path"`
	HTTPServer     `mapstructure:"http_server"`
	Node           Node           `mapstructure:"node"`
	Poll           Poll           `mapstructure:"poll"`
	Toast          Toast          `mapstructure:"toast"`
	DefaultAccount models.Account `mapstructure:"default_account"`
	Delegates      []models.Node  `mapstructure:"delegates"`
	Etcd           Etcd           `mapstructure:"etcd"`
}

type HTTPServer struct {
	Address     string        `mapstructure:"address"`
	Timeout     time.Duration `mapstructure:"timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// Node configures the client talking to delegate nodes.
type Node struct {
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Poll configures status polling. MaxAttempts 0 polls until a terminal status.
type Poll struct {
	Delay       time.Duration `mapstructure:"delay"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

type Toast struct {
	Duration time.Duration   `mapstructure:"duration"`
	Position models.Position `mapstructure:"position"`
}

// Etcd is optional; the delegate registry is used only when Endpoints is set.
type Etcd struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	Prefix      string        `mapstructure:"prefix"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// Load reads the configuration from configPath.
// config.yaml is tried first, config.example.yaml is the fallback.
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return read(v)
}

func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()
	v.AddConfigPath(configPath)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("WALLET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "development")
	v.SetDefault("storage_path", ":memory:")
	v.SetDefault("http_server.address", "0.0.0.0:8080")
	v.SetDefault("http_server.timeout", "4s")
	v.SetDefault("http_server.idle_timeout", "60s")
	v.SetDefault("node.port", 1975)
	v.SetDefault("node.timeout", "10s")
	v.SetDefault("poll.delay", "500ms")
	v.SetDefault("poll.max_attempts", 600)
	v.SetDefault("toast.duration", "3000ms")
	v.SetDefault("toast.position", string(models.PositionTop))
	v.SetDefault("default_account.address", "")
	v.SetDefault("default_account.private_key", "")
	v.SetDefault("etcd.prefix", "/wallet/delegates/")
	v.SetDefault("etcd.dial_timeout", "5s")

	if err := v.ReadInConfig(); err != nil {
		v.SetConfigName("config.example")
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

func read(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := parseDurations(v, &cfg); err != nil {
		return nil, err
	}

	if cfg.DefaultAccount.Address == "" && cfg.DefaultAccount.PrivateKey != "" {
		address, err := signer.AddressFromKey(cfg.DefaultAccount.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to derive default account address: %w", err)
		}
		cfg.DefaultAccount.Address = address
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseDurations converts the string timeouts to time.Duration.
func parseDurations(v *viper.Viper, cfg *Config) error {
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"http_server.timeout", &cfg.HTTPServer.Timeout},
		{"http_server.idle_timeout", &cfg.HTTPServer.IdleTimeout},
		{"node.timeout", &cfg.Node.Timeout},
		{"poll.delay", &cfg.Poll.Delay},
		{"toast.duration", &cfg.Toast.Duration},
		{"etcd.dial_timeout", &cfg.Etcd.DialTimeout},
	}

	for _, d := range durations {
		parsed, err := time.ParseDuration(v.GetString(d.key))
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

// Validate checks the invariants the send flow relies on.
func (c *Config) Validate() error {
	if c.Poll.Delay <= 0 {
		return ErrInvalidPollDelay
	}
	if err := validateAccount(c.DefaultAccount); err != nil {
		return err
	}
	return validateDelegates(c.Delegates)
}

// validateAccount rejects addresses that yaml turned into numbers and
// addresses that do not belong to the configured key.
func validateAccount(account models.Account) error {
	if account.Address != "" && form.ValidateRecipient(account.Address) != nil {
		return fmt.Errorf("%w: %q", ErrInvalidAccountAddress, account.Address)
	}
	if account.PrivateKey == "" {
		return nil
	}

	derived, err := signer.AddressFromKey(account.PrivateKey)
	if err != nil {
		return fmt.Errorf("default account: %w", err)
	}
	if !strings.EqualFold(derived, account.Address) {
		return fmt.Errorf("%w: %s, key belongs to %s", ErrAccountKeyMismatch, account.Address, derived)
	}
	return nil
}

func validateDelegates(nodes []models.Node) error {
	seen := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if n.Endpoint.Host == "" {
			return fmt.Errorf("%w: %q", ErrEmptyDelegateHost, n.Address)
		}
		if _, ok := seen[n.Address]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateDelegate, n.Address)
		}
		seen[n.Address] = struct{}{}
	}
	return nil
}

func (c *Config) clone() *Config {
	cp := *c
	cp.Delegates = append([]models.Node(nil), c.Delegates...)
	cp.Etcd.Endpoints = append([]string(nil), c.Etcd.Endpoints...)
	return &cp
}
