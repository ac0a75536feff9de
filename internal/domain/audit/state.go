package audit

// State represents a per-invoice position in the audit lifecycle
type State string

const (
	StatePending       State = "PENDING"
	StateAuditing      State = "AUDITING"
	StateBlocked       State = "BLOCKED"
	StateCorrected     State = "CORRECTED_PENDING_ADMIN"
	StateAuditComplete State = "AUDIT_COMPLETE"
	StateDispatched    State = "DISPATCHED"
)

var validStates = map[State]bool{
	StatePending:       true,
	StateAuditing:      true,
	StateBlocked:       true,
	StateCorrected:     true,
	StateAuditComplete: true,
	StateDispatched:    true,
}

var terminalStates = map[State]bool{
	StateDispatched: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid audit state
func (s State) IsValid() bool {
	return validStates[s]
}

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	// TriggerFirstScan moves a pending invoice into active auditing.
	TriggerFirstScan Trigger = "FIRST_SCAN"
	// TriggerBlock is fired on a cross-source mismatch or a
	// duplicate/over-scan condition surfaced by the scan store.
	TriggerBlock Trigger = "BLOCK"
	// TriggerAdminClear is fired only by an out-of-band admin action;
	// the scan UI has no client-side unblock.
	TriggerAdminClear Trigger = "ADMIN_CLEAR"
	// TriggerCompleteAudit fires when every logical item satisfies the
	// completeness rule.
	TriggerCompleteAudit Trigger = "COMPLETE_AUDIT"
	// TriggerDispatch fires only after a confirmed remote dispatch.
	TriggerDispatch Trigger = "DISPATCH"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
