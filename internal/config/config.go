// Package config loads the vigild daemon configuration from a JSON file and
// the environment. Precedence is defaults < file < environment, so a
// deployment can ship a base file and override secrets via env.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/vigild/vigild/internal/daemon"
	"github.com/vigild/vigild/internal/oracle"
	"github.com/vigild/vigild/pkg/vigilib"
)

const (
	DefaultListenAddr     = "127.0.0.1:3939"
	DefaultWorkers        = 8
	DefaultOracleDeadline = 30 * time.Second
	DefaultCycleTimeout   = 2 * time.Minute

	// EnvPrefix namespaces every environment override.
	EnvPrefix = "VIGILD_"
)

var ErrMissingSecret = errors.New("rpc secret is not configured")

// Duration marshals as a Go duration string ("30s", "2m") so config files
// stay readable; bare numbers are taken as seconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("duration must be a string like %q or a number of seconds", "30s")
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// GasAssetEntry extends the per-chain gas allow-list beyond the conventional
// native markers.
type GasAssetEntry struct {
	Chain vigilib.ChainID `json:"chain"`
	Token string          `json:"token"`
}

// Config is the complete daemon configuration.
type Config struct {
	// ListenAddr is the host:port the RPC server binds to.
	ListenAddr string `json:"listen_addr"`

	// DataDir holds the sqlite database. Empty means the user config dir.
	DataDir string `json:"data_dir"`

	// RPCSecret is the bearer token required on every RPC and websocket
	// request. Required; prefer setting it via VIGILD_RPC_SECRET.
	RPCSecret string `json:"rpc_secret"`

	// Workers bounds concurrent check cycles.
	Workers int `json:"workers"`

	// OracleDeadline bounds one oracle consultation.
	OracleDeadline Duration `json:"oracle_deadline"`

	// OraclePolicy is "fail_safe" or "fail_deadly".
	OraclePolicy string `json:"oracle_policy"`

	// Chains is the set of chains swept for balances.
	Chains []vigilib.ChainID `json:"chains"`

	// TargetToken and TargetChain describe the consolidation asset.
	TargetToken string          `json:"target_token"`
	TargetChain vigilib.ChainID `json:"target_chain"`

	// GasAssets extends the gas allow-list beyond the native markers.
	GasAssets []GasAssetEntry `json:"gas_assets"`

	// Collaborator endpoints. Empty URLs wire inert local fallbacks so the
	// daemon still runs in a partial deployment.
	OnchainSourceURL string `json:"onchain_source_url"`
	SocialSourceURL  string `json:"social_source_url"`
	BalanceSourceURL string `json:"balance_source_url"`
	QuoteSourceURL   string `json:"quote_source_url"`

	// ReconcileCron is the schedule for the store/scheduler reconcile job.
	ReconcileCron string `json:"reconcile_cron"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout Duration `json:"shutdown_timeout"`

	// CycleTimeout bounds one whole check-and-trigger cycle.
	CycleTimeout Duration `json:"cycle_timeout"`
}

// Default returns the baseline configuration before file and env overlays.
func Default() *Config {
	return &Config{
		ListenAddr:     DefaultListenAddr,
		Workers:        DefaultWorkers,
		OracleDeadline: Duration(DefaultOracleDeadline),
		OraclePolicy:   "fail_safe",
		Chains:         []vigilib.ChainID{1},
		TargetToken:    vigilib.NativeAssetMarker,
		TargetChain:    1,
		ReconcileCron:  daemon.DefaultReconcileCron,
		CycleTimeout:   Duration(DefaultCycleTimeout),
	}
}

// Load builds the effective configuration. path may be empty, in which case
// only defaults and the environment apply; a named file that does not exist
// is an error.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvPrefix + "LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv(EnvPrefix + "DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvPrefix + "RPC_SECRET"); v != "" {
		c.RPCSecret = v
	}
	if v := os.Getenv(EnvPrefix + "WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Workers = n
		}
	}
	if v := os.Getenv(EnvPrefix + "ORACLE_POLICY"); v != "" {
		c.OraclePolicy = v
	}
	if v := os.Getenv(EnvPrefix + "ONCHAIN_SOURCE_URL"); v != "" {
		c.OnchainSourceURL = v
	}
	if v := os.Getenv(EnvPrefix + "SOCIAL_SOURCE_URL"); v != "" {
		c.SocialSourceURL = v
	}
	if v := os.Getenv(EnvPrefix + "BALANCE_SOURCE_URL"); v != "" {
		c.BalanceSourceURL = v
	}
	if v := os.Getenv(EnvPrefix + "QUOTE_SOURCE_URL"); v != "" {
		c.QuoteSourceURL = v
	}
	if v := os.Getenv(EnvPrefix + "RECONCILE_CRON"); v != "" {
		c.ReconcileCron = v
	}
}

func (c *Config) validate() error {
	if c.RPCSecret == "" {
		return ErrMissingSecret
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if len(c.Chains) == 0 {
		return errors.New("at least one chain must be configured")
	}
	if c.TargetToken != vigilib.NativeAssetMarker && !vigilib.IsValidAddress(c.TargetToken) {
		return fmt.Errorf("%w: target token %q", vigilib.ErrInvalidAddress, c.TargetToken)
	}
	return nil
}

// Policy maps the configured oracle policy string onto the oracle type.
func (c *Config) Policy() (oracle.FailurePolicy, error) {
	switch c.OraclePolicy {
	case "", "fail_safe":
		return oracle.FailSafe, nil
	case "fail_deadly":
		return oracle.FailDeadly, nil
	default:
		return oracle.FailSafe, fmt.Errorf("unknown oracle policy %q", c.OraclePolicy)
	}
}

// Target returns the consolidation asset.
func (c *Config) Target() vigilib.TargetAsset {
	return vigilib.TargetAsset{Token: c.TargetToken, Chain: c.TargetChain}
}

// GasAllowList builds the effective gas allow-list: the native markers for
// every configured chain plus the configured extensions.
func (c *Config) GasAllowList() vigilib.GasAssets {
	gas := vigilib.DefaultGasAssets(c.Chains)
	for _, e := range c.GasAssets {
		gas.Add(e.Chain, e.Token)
	}
	return gas
}
