package audit

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")
)

// GuardFunc evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// Machine tracks the current audit state of one invoice and validates
// transitions against the configured lifecycle.
type Machine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) error
}

// Builder assembles a configured lifecycle shared by many machines.
type Builder interface {
	// Configure returns the transition configuration for the given state
	Configure(state State) StateConfig

	// Build creates an independent machine starting at the given state
	Build(initial State) Machine
}

// StateConfig configures outgoing transitions for one state.
type StateConfig interface {
	// Permit allows a trigger to transition to the target state
	Permit(trigger Trigger, to State) StateConfig

	// PermitIf allows the transition only when the guard passes
	PermitIf(trigger Trigger, to State, guard GuardFunc) StateConfig
}

type transition struct {
	to    State
	guard GuardFunc
}

type stateConfig struct {
	transitions map[Trigger][]transition
}

type builder struct {
	configs map[State]*stateConfig
}

type machine struct {
	current State
	configs map[State]*stateConfig
}

// NewBuilder creates an empty lifecycle builder
func NewBuilder() Builder {
	return &builder{configs: make(map[State]*stateConfig)}
}

// Configure returns the transition configuration for the given state
func (b *builder) Configure(state State) StateConfig {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	cfg, ok := b.configs[state]
	if !ok {
		cfg = &stateConfig{transitions: make(map[Trigger][]transition)}
		b.configs[state] = cfg
	}
	return cfg
}

// Build creates an independent machine starting at the given state. The
// configuration is copied so machines built from one builder never share
// mutable state.
func (b *builder) Build(initial State) Machine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}

	configs := make(map[State]*stateConfig, len(b.configs))
	for state, cfg := range b.configs {
		transitions := make(map[Trigger][]transition, len(cfg.transitions))
		for trigger, ts := range cfg.transitions {
			transitions[trigger] = append([]transition{}, ts...)
		}
		configs[state] = &stateConfig{transitions: transitions}
	}

	return &machine{current: initial, configs: configs}
}

// Permit allows a trigger to transition to the target state
func (c *stateConfig) Permit(trigger Trigger, to State) StateConfig {
	return c.PermitIf(trigger, to, nil)
}

// PermitIf allows the transition only when the guard passes
func (c *stateConfig) PermitIf(trigger Trigger, to State, guard GuardFunc) StateConfig {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", to))
	}

	c.transitions[trigger] = append(c.transitions[trigger], transition{to: to, guard: guard})
	return c
}

// State returns the current state
func (m *machine) State() State {
	return m.current
}

// CanFire returns true if the trigger is permitted in the current state.
// Guards are not evaluated here; any configured transition counts.
func (m *machine) CanFire(trigger Trigger) bool {
	cfg, ok := m.configs[m.current]
	if !ok {
		return false
	}
	return len(cfg.transitions[trigger]) > 0
}

// Fire attempts to execute the trigger, transitioning to the new state if allowed
func (m *machine) Fire(ctx context.Context, trigger Trigger) error {
	cfg, ok := m.configs[m.current]
	if !ok {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	ts, ok := cfg.transitions[trigger]
	if !ok || len(ts) == 0 {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	for _, t := range ts {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.to
			return nil
		}
	}

	return fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, m.current)
}
