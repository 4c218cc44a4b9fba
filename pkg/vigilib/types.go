package vigilib

import "time"

// ChainID identifies an EVM network by its numeric chain id.
type ChainID int64

// Delegation is a user's switch configuration: who receives the funds,
// which account executes the sweep, and how long the user may stay silent.
// The core reads delegations and only ever flips Active.
type Delegation struct {
	UserAddress         string `json:"userAddress"`
	BeneficiaryAddress  string `json:"beneficiaryAddress"`
	ExecutionAccountRef string `json:"executionAccountRef,omitempty"`
	TimeoutSeconds      int64  `json:"timeoutSeconds"`
	Active              bool   `json:"active"`
	ENSName             string `json:"ensName,omitempty"`
}

// Validate checks the delegation invariants: positive timeout, well-formed
// addresses, and a beneficiary distinct from the user.
func (d *Delegation) Validate() error {
	if !IsValidAddress(d.UserAddress) {
		return ErrInvalidAddress
	}
	if !IsValidAddress(d.BeneficiaryAddress) {
		return ErrInvalidAddress
	}
	if d.TimeoutSeconds <= 0 {
		return ErrInvalidTimeout
	}
	if NormalizeAddress(d.UserAddress) == NormalizeAddress(d.BeneficiaryAddress) {
		return ErrSameBeneficiary
	}
	return nil
}

// Timeout returns the delegation timeout as a duration.
func (d *Delegation) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// Balance is one non-zero token holding reported by the balance collaborator.
// Amount is a decimal string of the raw (unscaled) token units.
type Balance struct {
	Token  string  `json:"token"`
	Symbol string  `json:"symbol,omitempty"`
	Chain  ChainID `json:"chain"`
	Amount string  `json:"amount"`
}

// TargetAsset is the token/chain pair a sweep consolidates into.
type TargetAsset struct {
	Token string  `json:"token"`
	Chain ChainID `json:"chain"`
}

// Matches reports whether a balance is already in target form.
func (t TargetAsset) Matches(b Balance) bool {
	return b.Chain == t.Chain && NormalizeAddress(b.Token) == NormalizeAddress(t.Token)
}

// SwitchState is the lifecycle state of one arm cycle.
type SwitchState string

const (
	// StateArmed means a scheduled check is outstanding for the user.
	StateArmed SwitchState = "armed"
	// StateChecking means a fired check is being resolved right now.
	StateChecking SwitchState = "checking"
	// StateTriggered is terminal for the cycle; a new arm call is required.
	StateTriggered SwitchState = "triggered"
	// StateIdle means no cycle exists for the user.
	StateIdle SwitchState = "idle"
)
