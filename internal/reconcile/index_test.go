package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anandvel/dispatch-hub/internal/domain/entity"
)

func testInvoice(id string, items ...entity.InvoiceLineItem) *entity.Invoice {
	return &entity.Invoice{ID: id, LineItems: items}
}

func line(customerItem, itemNumber string, qty float64, bins int) entity.InvoiceLineItem {
	return entity.InvoiceLineItem{
		CustomerItem: customerItem,
		ItemNumber:   itemNumber,
		InvoicedQty:  qty,
		ExpectedBins: bins,
	}
}

func TestItemIndex_Resolve(t *testing.T) {
	idx := NewItemIndex([]*entity.Invoice{
		testInvoice("INV-1", line("C100", "I-1", 10, 2), line("C200", "I-2", 5, 1)),
		testInvoice("INV-2", line("C200", "I-3", 8, 2)),
	})

	t.Run("single candidate", func(t *testing.T) {
		cands := idx.Resolve("C100", []string{"INV-1", "INV-2"})
		require.Len(t, cands, 1)
		assert.Equal(t, "INV-1", cands[0].InvoiceID)
		assert.Equal(t, "I-1", cands[0].Line.ItemNumber)
	})

	t.Run("selection order preserved", func(t *testing.T) {
		cands := idx.Resolve("C200", []string{"INV-2", "INV-1"})
		require.Len(t, cands, 2)
		assert.Equal(t, "INV-2", cands[0].InvoiceID)
		assert.Equal(t, "INV-1", cands[1].InvoiceID)
	})

	t.Run("restricted to selection", func(t *testing.T) {
		cands := idx.Resolve("C200", []string{"INV-1"})
		require.Len(t, cands, 1)
		assert.Equal(t, "INV-1", cands[0].InvoiceID)
	})

	t.Run("whitespace trimmed", func(t *testing.T) {
		cands := idx.Resolve("  C100  ", []string{"INV-1"})
		assert.Len(t, cands, 1)
	})

	t.Run("case preserved", func(t *testing.T) {
		cands := idx.Resolve("c100", []string{"INV-1"})
		assert.Empty(t, cands)
	})

	t.Run("unknown code", func(t *testing.T) {
		assert.Empty(t, idx.Resolve("C999", []string{"INV-1", "INV-2"}))
	})

	t.Run("empty code", func(t *testing.T) {
		assert.Empty(t, idx.Resolve("   ", []string{"INV-1"}))
	})
}

func TestItemIndex_ResolveDuplicateLines(t *testing.T) {
	// Upstream data repeats logical keys across distinct lines.
	idx := NewItemIndex([]*entity.Invoice{
		testInvoice("INV-1", line("C100", "I-1", 10, 2), line("C100", "I-1", 4, 1)),
	})

	cands := idx.Resolve("C100", []string{"INV-1"})
	assert.Len(t, cands, 2)
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"12", 12},
		{"3.5", 3.5},
		{"  7 ", 7},
		{"", 0},
		{"abc", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseQuantity(tt.input), "input %q", tt.input)
	}
}
