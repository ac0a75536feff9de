package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anandvel/dispatch-hub/internal/domain/entity"
)

func customerBarcode(partCode, bin, qty string) entity.Barcode {
	return entity.Barcode{
		PartCode:  partCode,
		BinNumber: bin,
		Quantity:  qty,
		RawValue:  "CUST|" + partCode + "|" + bin,
		Type:      entity.LabelCustomer,
	}
}

func internalBarcode(partCode string) entity.Barcode {
	return entity.Barcode{
		PartCode: partCode,
		RawValue: "INT|" + partCode,
		Type:     entity.LabelInternal,
	}
}

func newTestMatcher(invoices ...*entity.Invoice) *Matcher {
	m := NewMatcher(NewItemIndex(invoices))
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return at }
	return m
}

func TestMatchLoading(t *testing.T) {
	inv := testInvoice("INV-1", line("C100", "I-1", 10, 2))
	selection := []string{"INV-1"}

	t.Run("accepts customer label", func(t *testing.T) {
		m := newTestMatcher(inv)
		match, reason := m.MatchLoading(customerBarcode("C100", "B1", "5"), selection, NewBinLedger())
		require.Empty(t, reason)
		assert.Equal(t, "INV-1", match.InvoiceID)
		assert.False(t, match.Ambiguous)
		assert.Equal(t, entity.ContextLoading, match.Record.Context)
		assert.Equal(t, "B1", match.Record.BinNumber)
		assert.Equal(t, 5.0, match.Record.BinQuantity)
	})

	t.Run("rejects internal label", func(t *testing.T) {
		m := newTestMatcher(inv)
		match, reason := m.MatchLoading(internalBarcode("C100"), selection, NewBinLedger())
		assert.Nil(t, match)
		assert.Equal(t, RejectWrongLabelType, reason)
	})

	t.Run("rejects duplicate bin", func(t *testing.T) {
		m := newTestMatcher(inv)
		ledger := NewBinLedger()

		match, reason := m.MatchLoading(customerBarcode("C100", "B1", "5"), selection, ledger)
		require.Empty(t, reason)
		ledger.Append(match.Record)

		_, reason = m.MatchLoading(customerBarcode("C100", "B1", "5"), selection, ledger)
		assert.Equal(t, RejectDuplicateBin, reason)

		// A different bin of the same item is fine.
		match, reason = m.MatchLoading(customerBarcode("C100", "B2", "5"), selection, ledger)
		require.Empty(t, reason)
		assert.Equal(t, "B2", match.Record.BinNumber)
	})

	t.Run("rejects repeated raw payload", func(t *testing.T) {
		m := newTestMatcher(inv)
		ledger := NewBinLedger()

		bc := customerBarcode("C100", "", "5")
		match, reason := m.MatchLoading(bc, selection, ledger)
		require.Empty(t, reason)
		ledger.Append(match.Record)

		_, reason = m.MatchLoading(bc, selection, ledger)
		assert.Equal(t, RejectAlreadyLoaded, reason)
	})

	t.Run("rejects unknown item", func(t *testing.T) {
		m := newTestMatcher(inv)
		_, reason := m.MatchLoading(customerBarcode("C999", "B1", "5"), selection, NewBinLedger())
		assert.Equal(t, RejectItemNotFound, reason)
	})
}

func TestMatchLoading_AmbiguousResolution(t *testing.T) {
	m := newTestMatcher(
		testInvoice("INV-1", line("C200", "I-1", 5, 1)),
		testInvoice("INV-2", line("C200", "I-2", 8, 2)),
	)

	// First invoice in selection order wins, deterministically.
	for i := 0; i < 5; i++ {
		match, reason := m.MatchLoading(
			customerBarcode("C200", "B1", "5"), []string{"INV-1", "INV-2"}, NewBinLedger())
		require.Empty(t, reason)
		assert.Equal(t, "INV-1", match.InvoiceID)
		assert.True(t, match.Ambiguous)
	}

	match, _ := m.MatchLoading(
		customerBarcode("C200", "B1", "5"), []string{"INV-2", "INV-1"}, NewBinLedger())
	assert.Equal(t, "INV-2", match.InvoiceID)
}

func TestMatchAudit(t *testing.T) {
	inv := testInvoice("INV-1", line("C100", "I-1", 10, 2))
	selection := []string{"INV-1"}

	t.Run("agreeing pair accepted", func(t *testing.T) {
		m := newTestMatcher(inv)
		match, mismatch, reason := m.MatchAudit(
			customerBarcode("C100", "B1", "5"), internalBarcode("C100"), selection, NewBinLedger())
		require.Empty(t, reason)
		require.Nil(t, mismatch)
		assert.Equal(t, "INV-1", match.InvoiceID)
		assert.Equal(t, entity.ContextDocAudit, match.Record.Context)
	})

	t.Run("wrong label types rejected", func(t *testing.T) {
		m := newTestMatcher(inv)
		_, _, reason := m.MatchAudit(
			internalBarcode("C100"), internalBarcode("C100"), selection, NewBinLedger())
		assert.Equal(t, RejectWrongLabelType, reason)
	})

	t.Run("disagreeing pair escalates", func(t *testing.T) {
		m := newTestMatcher(
			testInvoice("INV-1", line("C100", "I-1", 10, 2)),
			testInvoice("INV-2", line("C300", "I-3", 4, 1)),
		)
		match, mismatch, reason := m.MatchAudit(
			customerBarcode("C100", "B1", "5"), internalBarcode("C300"),
			[]string{"INV-1", "INV-2"}, NewBinLedger())
		assert.Empty(t, reason, "a mismatch is an escalation, not a rejection")
		assert.Nil(t, match)
		require.NotNil(t, mismatch)
		assert.Equal(t, "INV-1", mismatch.CustomerMatch.InvoiceID)
		assert.Equal(t, "INV-2", mismatch.InternalMatch.InvoiceID)
		assert.NotEmpty(t, mismatch.CustomerRaw)
		assert.NotEmpty(t, mismatch.InternalRaw)
	})

	t.Run("internal label bin already loaded", func(t *testing.T) {
		m := newTestMatcher(inv)
		ledger := NewBinLedger()
		ledger.Append(entity.ScanRecord{InvoiceID: "INV-1", BinNumber: "B1", RawValue: "seed"})

		internal := internalBarcode("C100")
		internal.BinNumber = "B1"
		_, _, reason := m.MatchAudit(
			customerBarcode("C100", "B2", "5"), internal, selection, ledger)
		assert.Equal(t, RejectDuplicateBin, reason)
	})

	t.Run("repeated internal label rejected", func(t *testing.T) {
		m := newTestMatcher(inv)
		ledger := NewBinLedger()

		internal := internalBarcode("C100")
		match, _, reason := m.MatchAudit(
			customerBarcode("C100", "B1", "5"), internal, selection, NewBinLedger())
		require.Empty(t, reason)
		ledger.Append(entity.ScanRecord{InvoiceID: "INV-1", Item: match.Record.Item, RawValue: internal.RawValue})

		_, _, reason = m.MatchAudit(
			customerBarcode("C100", "B2", "5"), internal, selection, ledger)
		assert.Equal(t, RejectAlreadyLoaded, reason)
	})
}
