package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anandvel/dispatch-hub/internal/domain/entity"
)

func rec(invoiceID, customerItem, itemNumber, bin string, qty float64, at time.Time) entity.ScanRecord {
	return entity.ScanRecord{
		InvoiceID:   invoiceID,
		Item:        entity.ItemKey{CustomerItem: customerItem, ItemNumber: itemNumber},
		BinNumber:   bin,
		BinQuantity: qty,
		RawValue:    invoiceID + "/" + customerItem + "/" + bin,
		CapturedAt:  at,
	}
}

func TestBinLedger_ProgressAggregatesDuplicateKeys(t *testing.T) {
	inv := testInvoice("INV-1",
		line("C100", "I-1", 10, 2),
		line("C100", "I-1", 4, 1),
	)

	l := NewBinLedger()
	now := time.Now()
	l.Append(rec("INV-1", "C100", "I-1", "B1", 5, now))

	p := l.ProgressFor(inv, entity.ItemKey{CustomerItem: "C100", ItemNumber: "I-1"})
	assert.Equal(t, 3, p.ExpectedBins)
	assert.Equal(t, 14.0, p.ExpectedQty)
	assert.Equal(t, 1, p.ScannedBins)
	assert.Equal(t, 5.0, p.ScannedQty)
	assert.False(t, p.Complete())
	assert.True(t, p.InProgress())
}

func TestBinLedger_InvoiceComplete(t *testing.T) {
	now := time.Now()

	t.Run("bin count rule", func(t *testing.T) {
		inv := testInvoice("INV-1", line("C100", "I-1", 10, 2))
		l := NewBinLedger()

		l.Append(rec("INV-1", "C100", "I-1", "B1", 5, now))
		assert.False(t, l.InvoiceComplete(inv))

		l.Append(rec("INV-1", "C100", "I-1", "B2", 5, now))
		assert.True(t, l.InvoiceComplete(inv))
	})

	t.Run("quantity fallback without bin metadata", func(t *testing.T) {
		inv := testInvoice("INV-1", line("C100", "I-1", 10, 0))
		l := NewBinLedger()

		l.Append(rec("INV-1", "C100", "I-1", "", 6, now))
		assert.False(t, l.InvoiceComplete(inv))

		l.Append(rec("INV-1", "C100", "I-1", "", 4, now))
		assert.True(t, l.InvoiceComplete(inv))
	})

	t.Run("no line items means never complete", func(t *testing.T) {
		inv := testInvoice("INV-1")
		assert.False(t, NewBinLedger().InvoiceComplete(inv))
	})
}

func TestBinLedger_CompletenessPersists(t *testing.T) {
	now := time.Now()
	key := entity.ItemKey{CustomerItem: "C100", ItemNumber: "I-1"}

	// Scan counters only grow, so a completed item cannot fall back to
	// incomplete when more bins arrive.
	t.Run("bin count rule", func(t *testing.T) {
		inv := testInvoice("INV-1", line("C100", "I-1", 10, 2))
		l := NewBinLedger()
		l.Append(rec("INV-1", "C100", "I-1", "B1", 5, now))
		l.Append(rec("INV-1", "C100", "I-1", "B2", 5, now))
		require.True(t, l.ProgressFor(inv, key).Complete())

		l.Append(rec("INV-1", "C100", "I-1", "B3", 5, now))
		assert.True(t, l.ProgressFor(inv, key).Complete())
		assert.True(t, l.InvoiceComplete(inv))
	})

	t.Run("quantity fallback rule", func(t *testing.T) {
		inv := testInvoice("INV-1", line("C100", "I-1", 10, 0))
		l := NewBinLedger()
		l.Append(rec("INV-1", "C100", "I-1", "", 10, now))
		require.True(t, l.ProgressFor(inv, key).Complete())

		l.Append(rec("INV-1", "C100", "I-1", "", 2, now))
		assert.True(t, l.ProgressFor(inv, key).Complete())
		assert.True(t, l.InvoiceComplete(inv))
	})
}

func TestBinLedger_HasBinIsGlobal(t *testing.T) {
	l := NewBinLedger()
	l.Append(rec("INV-1", "C100", "I-1", "B1", 5, time.Now()))

	// Bin numbers are physical containers and unique across the whole
	// session, not per invoice.
	assert.True(t, l.HasBin("B1"))
	assert.False(t, l.HasBin("B2"))
	assert.False(t, l.HasBin(""))
}

func TestBinLedger_ReplaceIsAuthoritative(t *testing.T) {
	now := time.Now()
	l := NewBinLedger()
	l.Append(rec("INV-1", "C100", "I-1", "B1", 5, now))
	l.Append(rec("INV-2", "C200", "I-2", "B2", 3, now))

	l.Replace([]string{"INV-1"}, []entity.ScanRecord{
		rec("INV-1", "C100", "I-1", "B9", 5, now),
	})

	require.Len(t, l.Records(), 2)
	assert.False(t, l.HasBin("B1"))
	assert.True(t, l.HasBin("B9"))
	assert.True(t, l.HasBin("B2"), "other invoices untouched")
}

func TestBinLedger_Remove(t *testing.T) {
	now := time.Now()
	l := NewBinLedger()
	r := rec("INV-1", "C100", "I-1", "B1", 5, now)
	r.ScanID = "scan-1"
	l.Append(r)

	assert.True(t, l.Remove("INV-1", "scan-1"))
	assert.False(t, l.Remove("INV-1", "scan-1"), "second removal reports missing")
	assert.Empty(t, l.Records())
}

func TestBinLedger_RemoveAt(t *testing.T) {
	now := time.Now()
	l := NewBinLedger()
	l.Append(rec("INV-1", "C100", "I-1", "B1", 5, now))
	l.Append(rec("INV-2", "C200", "I-2", "B2", 3, now))
	l.Append(rec("INV-1", "C100", "I-1", "B3", 5, now))

	assert.True(t, l.RemoveAt("INV-1", 1))
	assert.False(t, l.HasBin("B3"))
	assert.True(t, l.HasBin("B1"))
	assert.False(t, l.RemoveAt("INV-1", 5))
}

func TestBinLedger_GroupOrdering(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := NewBinLedger()
	l.Append(rec("INV-1", "C100", "I-1", "B1", 1, base))
	l.Append(rec("INV-2", "C300", "I-3", "B2", 1, base.Add(2*time.Minute)))
	l.Append(rec("INV-1", "C200", "I-2", "B3", 1, base.Add(3*time.Minute)))
	l.Append(rec("INV-1", "C100", "I-1", "B4", 1, base.Add(1*time.Minute)))

	groups := l.GroupByInvoiceThenItem()
	require.Len(t, groups, 2)

	// INV-1 has the most recent scan overall.
	assert.Equal(t, "INV-1", groups[0].InvoiceID)
	assert.Equal(t, "INV-2", groups[1].InvoiceID)

	// Within INV-1, C200 was touched last.
	require.Len(t, groups[0].Items, 2)
	assert.Equal(t, "C200", groups[0].Items[0].Key.CustomerItem)
	assert.Equal(t, "C100", groups[0].Items[1].Key.CustomerItem)

	// Scans within an item are newest first.
	scans := groups[0].Items[1].Scans
	require.Len(t, scans, 2)
	assert.Equal(t, "B4", scans[0].BinNumber)
	assert.Equal(t, "B1", scans[1].BinNumber)
}

func TestBinLedger_GroupOrderingTieBreaks(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := NewBinLedger()
	l.Append(rec("INV-1", "A100", "I-1", "B1", 1, at))
	l.Append(rec("INV-1", "Z100", "I-9", "B2", 1, at))
	l.Append(rec("INV-2", "C100", "I-2", "B3", 1, at))

	groups := l.GroupByInvoiceThenItem()
	require.Len(t, groups, 2)

	// Equal timestamps: greater invoice id first, greater item key first.
	assert.Equal(t, "INV-2", groups[0].InvoiceID)
	assert.Equal(t, "Z100", groups[1].Items[0].Key.CustomerItem)
	assert.Equal(t, "A100", groups[1].Items[1].Key.CustomerItem)
}

func TestBinLedger_FocusedItem(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("latest scan wins", func(t *testing.T) {
		l := NewBinLedger()
		l.Append(rec("INV-1", "C100", "I-1", "B1", 1, base))
		l.Append(rec("INV-2", "C200", "I-2", "B2", 1, base.Add(time.Minute)))

		invoiceID, key, ok := l.FocusedItem()
		require.True(t, ok)
		assert.Equal(t, "INV-2", invoiceID)
		assert.Equal(t, "C200", key.CustomerItem)
	})

	t.Run("valid timestamp beats zero", func(t *testing.T) {
		l := NewBinLedger()
		l.Append(rec("INV-1", "Z900", "I-9", "B1", 1, time.Time{}))
		l.Append(rec("INV-2", "A100", "I-1", "B2", 1, base))

		invoiceID, _, ok := l.FocusedItem()
		require.True(t, ok)
		assert.Equal(t, "INV-2", invoiceID)
	})

	t.Run("timestamp tie breaks to greater key", func(t *testing.T) {
		l := NewBinLedger()
		l.Append(rec("INV-1", "A100", "I-1", "B1", 1, base))
		l.Append(rec("INV-1", "Z100", "I-9", "B2", 1, base))

		_, key, ok := l.FocusedItem()
		require.True(t, ok)
		assert.Equal(t, "Z100", key.CustomerItem)
	})

	t.Run("empty ledger", func(t *testing.T) {
		_, _, ok := NewBinLedger().FocusedItem()
		assert.False(t, ok)
	})
}
