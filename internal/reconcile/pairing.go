package reconcile

import (
	"github.com/anandvel/dispatch-hub/internal/domain/entity"
)

// PairingState names the position of the two-phase doc-audit capture.
type PairingState string

const (
	PairAwaitingFirst  PairingState = "awaiting_first"
	PairAwaitingSecond PairingState = "awaiting_second"
	PairResolved       PairingState = "resolved"
)

// Pairing holds the short-lived state of the document-audit two-phase
// capture: a customer label and an internal label, in either order, must
// both arrive before matching runs. State is cleared on accept, reject, or
// an explicit abandon; there is no timeout expiry, so a stale half-pair
// persists until one of those events occurs.
type Pairing struct {
	state    PairingState
	customer *entity.Barcode
	internal *entity.Barcode
}

// NewPairing creates an empty pairing.
func NewPairing() *Pairing {
	return &Pairing{state: PairAwaitingFirst}
}

// State returns the current pairing state.
func (p *Pairing) State() PairingState {
	return p.state
}

// Submit records one decoded barcode. Re-scanning the same label type
// replaces the previous capture. It returns true once both sources are
// present and the pair is ready to match.
func (p *Pairing) Submit(bc entity.Barcode) bool {
	switch bc.Type {
	case entity.LabelCustomer:
		p.customer = &bc
	case entity.LabelInternal:
		p.internal = &bc
	default:
		return false
	}

	if p.customer != nil && p.internal != nil {
		p.state = PairResolved
		return true
	}
	p.state = PairAwaitingSecond
	return false
}

// Pair returns the captured pair once both sources are present.
func (p *Pairing) Pair() (customer, internal entity.Barcode, ok bool) {
	if p.state != PairResolved {
		return entity.Barcode{}, entity.Barcode{}, false
	}
	return *p.customer, *p.internal, true
}

// Clear resets the pairing. Called after the pair was accepted or rejected,
// or by the operator's explicit clear-scan action.
func (p *Pairing) Clear() {
	p.state = PairAwaitingFirst
	p.customer = nil
	p.internal = nil
}
