package audit

import (
	"context"

	"github.com/anandvel/dispatch-hub/internal/domain/entity"
)

// CompletenessCheck reports whether every logical item of the invoice
// satisfies the completeness rule. Evaluated as the guard on
// TriggerCompleteAudit.
type CompletenessCheck func(invoiceID string) bool

// Lifecycle owns one state machine per invoice and is the single writer of
// invoice audit/blocked/dispatched flags.
type Lifecycle struct {
	machines map[string]Machine
	complete CompletenessCheck
}

// NewLifecycle builds a lifecycle tracker over the given invoices. Initial
// states are derived from the persisted invoice flags so a rehydrated
// session resumes where the server left it.
func NewLifecycle(invoices []*entity.Invoice, complete CompletenessCheck) *Lifecycle {
	l := &Lifecycle{
		machines: make(map[string]Machine, len(invoices)),
		complete: complete,
	}

	b := NewBuilder()
	b.Configure(StatePending).
		Permit(TriggerFirstScan, StateAuditing).
		Permit(TriggerBlock, StateBlocked)
	b.Configure(StateAuditing).
		Permit(TriggerBlock, StateBlocked).
		Permit(TriggerCompleteAudit, StateAuditComplete)
	b.Configure(StateBlocked).
		Permit(TriggerAdminClear, StateCorrected)
	b.Configure(StateCorrected).
		Permit(TriggerBlock, StateBlocked).
		Permit(TriggerCompleteAudit, StateAuditComplete)
	b.Configure(StateAuditComplete).
		Permit(TriggerBlock, StateBlocked).
		Permit(TriggerDispatch, StateDispatched)

	for _, inv := range invoices {
		l.machines[inv.ID] = b.Build(initialState(inv))
	}
	return l
}

func initialState(inv *entity.Invoice) State {
	switch {
	case inv.Dispatched:
		return StateDispatched
	case inv.Blocked:
		return StateBlocked
	case inv.AuditCompleted:
		return StateAuditComplete
	default:
		return StatePending
	}
}

// StateOf returns the current state for an invoice, or StatePending for an
// invoice the lifecycle does not track.
func (l *Lifecycle) StateOf(invoiceID string) State {
	m, ok := l.machines[invoiceID]
	if !ok {
		return StatePending
	}
	return m.State()
}

// AcceptsScans reports whether the invoice may accept further scans.
func (l *Lifecycle) AcceptsScans(invoiceID string) bool {
	switch l.StateOf(invoiceID) {
	case StateBlocked, StateDispatched:
		return false
	}
	return true
}

// NoteScan records that a scan was accepted for the invoice, moving a
// pending invoice into auditing and firing completeness when reached.
func (l *Lifecycle) NoteScan(ctx context.Context, invoiceID string) error {
	m, ok := l.machines[invoiceID]
	if !ok {
		return nil
	}
	if m.State() == StatePending {
		if err := m.Fire(ctx, TriggerFirstScan); err != nil {
			return err
		}
	}
	return l.TryComplete(ctx, invoiceID)
}

// TryComplete fires the audit-complete transition when the completeness
// check passes. Not reaching completeness is not an error.
func (l *Lifecycle) TryComplete(ctx context.Context, invoiceID string) error {
	m, ok := l.machines[invoiceID]
	if !ok {
		return nil
	}
	if !m.CanFire(TriggerCompleteAudit) {
		return nil
	}
	if l.complete != nil && !l.complete(invoiceID) {
		return nil
	}
	return m.Fire(ctx, TriggerCompleteAudit)
}

// Block transitions the invoice to blocked. A blocked or dispatched invoice
// stays where it is.
func (l *Lifecycle) Block(ctx context.Context, invoiceID string) error {
	m, ok := l.machines[invoiceID]
	if !ok {
		return nil
	}
	if !m.CanFire(TriggerBlock) {
		return nil
	}
	return m.Fire(ctx, TriggerBlock)
}

// AdminClear moves a blocked invoice to corrected-pending-admin. Only the
// admin surface calls this.
func (l *Lifecycle) AdminClear(ctx context.Context, invoiceID string) error {
	m, ok := l.machines[invoiceID]
	if !ok {
		return nil
	}
	if err := m.Fire(ctx, TriggerAdminClear); err != nil {
		return err
	}
	// The invoice may already have been complete when it was blocked.
	return l.TryComplete(ctx, invoiceID)
}

// Dispatch marks the invoice dispatched after a confirmed remote dispatch.
func (l *Lifecycle) Dispatch(ctx context.Context, invoiceID string) error {
	m, ok := l.machines[invoiceID]
	if !ok {
		return nil
	}
	return m.Fire(ctx, TriggerDispatch)
}

// ApplyTo writes the lifecycle state back onto the invoice record. This is
// the only place audit flags are mutated.
func (l *Lifecycle) ApplyTo(inv *entity.Invoice) {
	state := l.StateOf(inv.ID)
	inv.Blocked = state == StateBlocked
	inv.AuditCompleted = state == StateAuditComplete || state == StateDispatched
	inv.Dispatched = state == StateDispatched
}
