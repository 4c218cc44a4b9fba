package common

import (
	"time"

	"github.com/vigild/vigild/pkg/vigilib"
)

type ArmParams struct {
	UserAddress        string `json:"user_address"`
	TimeoutSeconds     int64  `json:"timeout_seconds"`
	BeneficiaryAddress string `json:"beneficiary_address"`
}

type ArmResult struct {
	JobID string    `json:"job_id"`
	DueAt time.Time `json:"due_at"`
}

type CancelParams struct {
	UserAddress string `json:"user_address"`
}

type CancelResult struct {
	Cancelled bool `json:"cancelled"`
}

type StatusParams struct {
	UserAddress string `json:"user_address"`
}

type StatusResult struct {
	UserAddress    string     `json:"user_address"`
	State          string     `json:"state"`
	DueAt          *time.Time `json:"due_at,omitempty"`
	TimeoutSeconds int64      `json:"timeout_seconds,omitempty"`
	Beneficiary    string     `json:"beneficiary,omitempty"`
}

type VersionResult struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildType string `json:"buildType,omitempty"`
}

// CheckStartedEvent is emitted when a fired check enters the Checking state.
type CheckStartedEvent struct {
	UserAddress   string    `json:"user_address"`
	JobID         string    `json:"job_id"`
	WindowSeconds int64     `json:"window_seconds"`
	At            time.Time `json:"at"`
}

// TimerResetEvent is emitted when activity was found and the switch re-armed.
type TimerResetEvent struct {
	UserAddress string                 `json:"user_address"`
	JobID       string                 `json:"job_id"`
	DueAt       time.Time              `json:"due_at"`
	Result      vigilib.ActivityResult `json:"result"`
}

// SwitchTriggeredEvent is emitted when no activity was found and a sweep
// plan was built. Plan is the full signable bundle for the external signer.
type SwitchTriggeredEvent struct {
	UserAddress string                 `json:"user_address"`
	Result      vigilib.ActivityResult `json:"result"`
	Plan        *vigilib.SweepPlan     `json:"plan"`
	PlanError   string                 `json:"plan_error,omitempty"`
}
