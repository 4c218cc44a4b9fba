package vigilib

import "testing"

func TestIsValidAddress(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", true},
		{"0xA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48", true},
		{ZeroAddress, true},
		{NativeAssetMarker, true},
		{"a0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", false},   // no prefix
		{"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb4", false},  // short
		{"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb4g", false}, // non-hex
		{"", false},
		{"alice.eth", false},
	}
	for _, tt := range tests {
		if got := IsValidAddress(tt.addr); got != tt.want {
			t.Errorf("IsValidAddress(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestNormalizeAddress(t *testing.T) {
	got := NormalizeAddress("0xA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48")
	if got != "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48" {
		t.Errorf("NormalizeAddress() = %q", got)
	}
}

func TestGasAssets(t *testing.T) {
	gas := DefaultGasAssets([]ChainID{1, 8453})
	if !gas.IsGasAsset(1, NativeAssetMarker) {
		t.Error("native marker on chain 1 should be a gas asset")
	}
	if gas.IsGasAsset(10, NativeAssetMarker) {
		t.Error("unconfigured chain should have no gas assets")
	}

	weth := "0x4200000000000000000000000000000000000006"
	gas.Add(8453, weth)
	if !gas.IsGasAsset(8453, weth) {
		t.Error("added asset not reported as gas asset")
	}
	if !gas.IsGasAsset(8453, "0x4200000000000000000000000000000000000006") {
		t.Error("gas asset lookup must be case-insensitive via normalization")
	}
	if gas.IsGasAsset(1, weth) {
		t.Error("gas asset on one chain must not leak to another")
	}
}

func TestDelegationValidate(t *testing.T) {
	valid := Delegation{
		UserAddress:        "0xab00000000000000000000000000000000000001",
		BeneficiaryAddress: "0xab00000000000000000000000000000000000002",
		TimeoutSeconds:     3600,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v for a valid delegation", err)
	}

	d := valid
	d.TimeoutSeconds = 0
	if err := d.Validate(); err != ErrInvalidTimeout {
		t.Errorf("zero timeout: error = %v, want ErrInvalidTimeout", err)
	}

	d = valid
	d.BeneficiaryAddress = d.UserAddress
	if err := d.Validate(); err != ErrSameBeneficiary {
		t.Errorf("self beneficiary: error = %v, want ErrSameBeneficiary", err)
	}

	d = valid
	d.UserAddress = "bogus"
	if err := d.Validate(); err != ErrInvalidAddress {
		t.Errorf("bad address: error = %v, want ErrInvalidAddress", err)
	}
}
