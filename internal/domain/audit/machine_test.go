package audit

import (
	"context"
	"errors"
	"testing"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StatePending, false},
		{StateAuditing, false},
		{StateBlocked, false},
		{StateCorrected, false},
		{StateAuditComplete, false},
		{StateDispatched, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"pending", StatePending, true},
		{"dispatched", StateDispatched, true},
		{"invalid state", State("INVALID"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	builder.Configure(State("INVALID"))
}

func TestMachine_Fire(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePending).
		Permit(TriggerFirstScan, StateAuditing)
	builder.Configure(StateAuditing).
		Permit(TriggerBlock, StateBlocked)

	m := builder.Build(StatePending)
	ctx := context.Background()

	if err := m.Fire(ctx, TriggerFirstScan); err != nil {
		t.Fatalf("Fire(FirstScan) error = %v", err)
	}
	if m.State() != StateAuditing {
		t.Errorf("State() = %v, want %v", m.State(), StateAuditing)
	}

	err := m.Fire(ctx, TriggerDispatch)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire(Dispatch) error = %v, want ErrInvalidTransition", err)
	}
	if m.State() != StateAuditing {
		t.Errorf("State() = %v after failed fire, want %v", m.State(), StateAuditing)
	}
}

func TestMachine_GuardFailed(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateAuditing).
		PermitIf(TriggerCompleteAudit, StateAuditComplete, func(ctx context.Context) bool {
			return false
		})

	m := builder.Build(StateAuditing)

	if !m.CanFire(TriggerCompleteAudit) {
		t.Error("CanFire() = false, want true for configured trigger")
	}

	err := m.Fire(context.Background(), TriggerCompleteAudit)
	if !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want ErrGuardFailed", err)
	}
	if m.State() != StateAuditing {
		t.Errorf("State() = %v after guard failure, want %v", m.State(), StateAuditing)
	}
}

func TestBuilder_BuildIndependentMachines(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePending).
		Permit(TriggerFirstScan, StateAuditing)

	m1 := builder.Build(StatePending)
	m2 := builder.Build(StatePending)

	if err := m1.Fire(context.Background(), TriggerFirstScan); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}

	if m2.State() != StatePending {
		t.Errorf("machines share state: m2.State() = %v, want %v", m2.State(), StatePending)
	}
}
