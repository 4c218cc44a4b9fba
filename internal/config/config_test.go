package config

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/vigild/vigild/internal/oracle"
	"github.com/vigild/vigild/pkg/vigilib"
)

func TestLoad_DefaultsRequireSecret(t *testing.T) {
	fs := afero.NewMemMapFs()
	if _, err := Load(fs, ""); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("Load() error = %v, want ErrMissingSecret", err)
	}

	t.Setenv(EnvPrefix+"RPC_SECRET", "s3cret")
	cfg, err := Load(fs, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want default %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.OracleDeadline.Std() != DefaultOracleDeadline {
		t.Errorf("OracleDeadline = %v, want %v", cfg.OracleDeadline.Std(), DefaultOracleDeadline)
	}
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	fs := afero.NewMemMapFs()
	file := `{
		"listen_addr": "0.0.0.0:9000",
		"rpc_secret": "from-file",
		"workers": 4,
		"oracle_deadline": "45s",
		"oracle_policy": "fail_deadly",
		"chains": [1, 8453],
		"target_token": "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		"target_chain": 1,
		"gas_assets": [{"chain": 8453, "token": "0x4200000000000000000000000000000000000006"}]
	}`
	if err := afero.WriteFile(fs, "/etc/vigild.json", []byte(file), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvPrefix+"RPC_SECRET", "from-env")
	t.Setenv(EnvPrefix+"WORKERS", "16")

	cfg, err := Load(fs, "/etc/vigild.json")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RPCSecret != "from-env" {
		t.Errorf("RPCSecret = %q; env must win over file", cfg.RPCSecret)
	}
	if cfg.Workers != 16 {
		t.Errorf("Workers = %d; env must win over file", cfg.Workers)
	}
	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Errorf("ListenAddr = %q; file must win over default", cfg.ListenAddr)
	}
	if cfg.OracleDeadline.Std() != 45*time.Second {
		t.Errorf("OracleDeadline = %v, want 45s", cfg.OracleDeadline.Std())
	}

	policy, err := cfg.Policy()
	if err != nil || policy != oracle.FailDeadly {
		t.Errorf("Policy() = %v, %v; want FailDeadly", policy, err)
	}

	gas := cfg.GasAllowList()
	if !gas.IsGasAsset(8453, "0x4200000000000000000000000000000000000006") {
		t.Error("configured gas asset extension not present in allow-list")
	}
	if !gas.IsGasAsset(1, vigilib.NativeAssetMarker) {
		t.Error("native marker missing from allow-list")
	}
}

func TestLoad_MissingFileIsAnError(t *testing.T) {
	t.Setenv(EnvPrefix+"RPC_SECRET", "s")
	if _, err := Load(afero.NewMemMapFs(), "/nope.json"); err == nil {
		t.Fatal("Load() succeeded for a missing file")
	}
}

func TestLoad_RejectsBadPolicyAndTarget(t *testing.T) {
	t.Setenv(EnvPrefix+"RPC_SECRET", "s")
	t.Setenv(EnvPrefix+"ORACLE_POLICY", "fail_open")
	if _, err := Load(afero.NewMemMapFs(), ""); err == nil {
		t.Fatal("Load() accepted an unknown oracle policy")
	}
	t.Setenv(EnvPrefix+"ORACLE_POLICY", "fail_safe")

	fs := afero.NewMemMapFs()
	bad := `{"rpc_secret": "s", "target_token": "usdc"}`
	if err := afero.WriteFile(fs, "/c.json", []byte(bad), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(fs, "/c.json"); !errors.Is(err, vigilib.ErrInvalidAddress) {
		t.Fatalf("Load() error = %v, want ErrInvalidAddress", err)
	}
}

func TestDuration_UnmarshalForms(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{`"2m"`, 2 * time.Minute},
		{`"1h30m"`, 90 * time.Minute},
		{`30`, 30 * time.Second},
		{`0.5`, 500 * time.Millisecond},
	}
	for _, tt := range tests {
		var d Duration
		if err := d.UnmarshalJSON([]byte(tt.in)); err != nil {
			t.Errorf("UnmarshalJSON(%s) error = %v", tt.in, err)
			continue
		}
		if d.Std() != tt.want {
			t.Errorf("UnmarshalJSON(%s) = %v, want %v", tt.in, d.Std(), tt.want)
		}
	}

	var d Duration
	if err := d.UnmarshalJSON([]byte(`"soon"`)); err == nil {
		t.Error("UnmarshalJSON accepted a malformed duration")
	}
}
