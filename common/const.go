// Package common provides shared types and constants used across the vigil
// client-server communication layer.
package common

// EventType identifies a notification emitted by the switch engine.
type EventType string

const (
	EventCheckStarted    EventType = "check_started"
	EventTimerReset      EventType = "timer_reset"
	EventSwitchTriggered EventType = "switch_triggered"
)

// JSON-RPC method names exposed by the daemon.
const (
	MethodArm        = "switch.arm"
	MethodCancel     = "switch.cancel"
	MethodStatus     = "switch.status"
	MethodGetVersion = "system.getVersion"
)

// JSON-RPC notification methods pushed to websocket clients.
const (
	NotifyCheckStarted    = "switch.checkStarted"
	NotifyTimerReset      = "switch.timerReset"
	NotifySwitchTriggered = "switch.triggered"
)
