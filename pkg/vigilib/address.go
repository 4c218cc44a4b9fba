package vigilib

import "strings"

// NativeAssetMarker is the conventional pseudo-address collaborators use for
// a chain's native gas asset (ETH, MATIC, BNB, ...).
const NativeAssetMarker = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

// ZeroAddress is the all-zero address, also used by some quote providers to
// denote the native asset.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// IsValidAddress reports whether s is a 0x-prefixed 20-byte hex address.
func IsValidAddress(s string) bool {
	if len(s) != 42 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// NormalizeAddress lowercases an address for map keys and comparisons.
func NormalizeAddress(s string) string {
	return strings.ToLower(s)
}

// GasAssets is a per-chain allow-list of native/gas asset addresses.
// Tokens on this list never receive an approval intent: there is no token
// contract to approve against.
type GasAssets map[ChainID]map[string]struct{}

// DefaultGasAssets returns an allow-list seeded with the two conventional
// native-asset markers for every chain in chains.
func DefaultGasAssets(chains []ChainID) GasAssets {
	g := make(GasAssets, len(chains))
	for _, c := range chains {
		g[c] = map[string]struct{}{
			NativeAssetMarker: {},
			ZeroAddress:       {},
		}
	}
	return g
}

// Add records token as a gas asset on chain.
func (g GasAssets) Add(chain ChainID, token string) {
	if g[chain] == nil {
		g[chain] = make(map[string]struct{})
	}
	g[chain][NormalizeAddress(token)] = struct{}{}
}

// IsGasAsset reports whether token is on the allow-list for chain.
func (g GasAssets) IsGasAsset(chain ChainID, token string) bool {
	set, ok := g[chain]
	if !ok {
		return false
	}
	_, ok = set[NormalizeAddress(token)]
	return ok
}
