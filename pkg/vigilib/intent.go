package vigilib

import (
	"encoding/hex"
	"math/big"
	"time"
)

// TransactionIntent is one signable transaction of a sweep bundle.
// Value is a decimal string of native units; Data is 0x-prefixed calldata.
// Ordering within a bundle is significant: an approval must precede the
// swap/bridge call that spends it on the same chain.
type TransactionIntent struct {
	ChainID ChainID `json:"chainId"`
	To      string  `json:"to"`
	Value   string  `json:"value"`
	Data    string  `json:"data"`
}

// SkippedToken records a balance the planner left untouched because it is
// already in target form.
type SkippedToken struct {
	Token  string  `json:"token"`
	Symbol string  `json:"symbol,omitempty"`
	Chain  ChainID `json:"chain"`
	Reason string  `json:"reason"`
}

// FailedToken records a balance the planner could not route.
type FailedToken struct {
	Token  string  `json:"token"`
	Symbol string  `json:"symbol,omitempty"`
	Chain  ChainID `json:"chain"`
	Reason string  `json:"reason"`
}

// SweepPlan is the ordered, signable bundle produced for one Triggered
// transition. It is a preparation artifact: the core hands it to an external
// signer and never executes or re-executes it.
type SweepPlan struct {
	UserAddress        string              `json:"userAddress"`
	BeneficiaryAddress string              `json:"beneficiaryAddress"`
	Intents            []TransactionIntent `json:"intents"`
	Skipped            []SkippedToken      `json:"skipped,omitempty"`
	Failed             []FailedToken       `json:"failed,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
}

// erc20ApproveSelector is the 4-byte selector of approve(address,uint256).
const erc20ApproveSelector = "095ea7b3"

// ApproveIntent builds the standard token approval granting spender the
// full amount, addressed at the token contract itself.
func ApproveIntent(chain ChainID, token, spender string, amount *big.Int) TransactionIntent {
	data := make([]byte, 0, 4+32+32)
	sel, _ := hex.DecodeString(erc20ApproveSelector)
	data = append(data, sel...)
	data = append(data, leftPadAddress(spender)...)
	data = append(data, leftPadBig(amount)...)
	return TransactionIntent{
		ChainID: chain,
		To:      NormalizeAddress(token),
		Value:   "0",
		Data:    "0x" + hex.EncodeToString(data),
	}
}

// leftPadAddress encodes a 0x-prefixed address as a 32-byte ABI word.
func leftPadAddress(addr string) []byte {
	word := make([]byte, 32)
	raw, err := hex.DecodeString(NormalizeAddress(addr)[2:])
	if err != nil || len(raw) != 20 {
		return word
	}
	copy(word[12:], raw)
	return word
}

// leftPadBig encodes a non-negative big.Int as a 32-byte ABI word.
func leftPadBig(n *big.Int) []byte {
	word := make([]byte, 32)
	if n == nil || n.Sign() <= 0 {
		return word
	}
	raw := n.Bytes()
	if len(raw) > 32 {
		raw = raw[len(raw)-32:]
	}
	copy(word[32-len(raw):], raw)
	return word
}

// ParseAmount parses a collaborator-supplied decimal balance string.
func ParseAmount(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	return n, nil
}
