package vigilib

import "time"

// Evidence records which sources reported recent activity for a user.
type Evidence struct {
	Onchain bool `json:"onchain"`
	Social  bool `json:"social"`
}

// ActivityResult is the oracle's decision for one check cycle. It is
// ephemeral: produced, consumed by the state machine, never persisted.
// Errors carries per-source failure descriptions so a policy-resolved
// outcome can be told apart from genuine evidence downstream.
type ActivityResult struct {
	Found     bool      `json:"found"`
	Evidence  Evidence  `json:"evidence"`
	Timestamp time.Time `json:"timestamp"`
	Errors    []string  `json:"errors,omitempty"`
}

// Degraded reports whether any source failed while producing this result.
func (r *ActivityResult) Degraded() bool {
	return len(r.Errors) > 0
}
