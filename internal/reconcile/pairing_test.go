package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anandvel/dispatch-hub/internal/domain/entity"
)

func TestPairing_EitherOrderCompletes(t *testing.T) {
	t.Run("customer first", func(t *testing.T) {
		p := NewPairing()
		assert.False(t, p.Submit(customerBarcode("C100", "B1", "5")))
		assert.Equal(t, PairAwaitingSecond, p.State())
		assert.True(t, p.Submit(internalBarcode("C100")))
		assert.Equal(t, PairResolved, p.State())

		customer, internal, ok := p.Pair()
		require.True(t, ok)
		assert.Equal(t, entity.LabelCustomer, customer.Type)
		assert.Equal(t, entity.LabelInternal, internal.Type)
	})

	t.Run("internal first", func(t *testing.T) {
		p := NewPairing()
		assert.False(t, p.Submit(internalBarcode("C100")))
		assert.True(t, p.Submit(customerBarcode("C100", "B1", "5")))
	})
}

func TestPairing_RescanReplacesSameType(t *testing.T) {
	p := NewPairing()
	p.Submit(customerBarcode("C100", "B1", "5"))
	p.Submit(customerBarcode("C200", "B2", "3"))
	assert.Equal(t, PairAwaitingSecond, p.State())

	require.True(t, p.Submit(internalBarcode("C200")))
	customer, _, ok := p.Pair()
	require.True(t, ok)
	assert.Equal(t, "C200", customer.PartCode)
}

func TestPairing_PairUnavailableUntilResolved(t *testing.T) {
	p := NewPairing()
	_, _, ok := p.Pair()
	assert.False(t, ok)

	p.Submit(customerBarcode("C100", "B1", "5"))
	_, _, ok = p.Pair()
	assert.False(t, ok)
}

func TestPairing_Clear(t *testing.T) {
	p := NewPairing()
	p.Submit(customerBarcode("C100", "B1", "5"))
	p.Submit(internalBarcode("C100"))
	p.Clear()

	assert.Equal(t, PairAwaitingFirst, p.State())
	_, _, ok := p.Pair()
	assert.False(t, ok)
}
