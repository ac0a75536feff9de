package reconcile

import (
	"sort"
	"time"

	"github.com/anandvel/dispatch-hub/internal/domain/entity"
)

// BinLedger is the session-authoritative, append-only record of accepted
// scans. Deduplication happens in the matcher before commit; the ledger
// itself never rejects an append.
type BinLedger struct {
	records []entity.ScanRecord
}

// NewBinLedger creates an empty ledger.
func NewBinLedger() *BinLedger {
	return &BinLedger{}
}

// Append adds one accepted scan record.
func (l *BinLedger) Append(rec entity.ScanRecord) {
	l.records = append(l.records, rec)
}

// Replace discards all records belonging to the given invoices and installs
// the server-returned set instead. Last full read wins.
func (l *BinLedger) Replace(invoiceIDs []string, records []entity.ScanRecord) {
	drop := make(map[string]bool, len(invoiceIDs))
	for _, id := range invoiceIDs {
		drop[id] = true
	}

	kept := l.records[:0]
	for _, rec := range l.records {
		if !drop[rec.InvoiceID] {
			kept = append(kept, rec)
		}
	}
	l.records = append(kept, records...)
}

// Remove deletes the record with the given scan id. It returns false when no
// such record exists, which callers treat as already removed.
func (l *BinLedger) Remove(invoiceID, scanID string) bool {
	for i, rec := range l.records {
		if rec.InvoiceID == invoiceID && rec.ScanID == scanID {
			l.records = append(l.records[:i], l.records[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveAt deletes the record at the given position within an invoice's
// records, in append order. Used when a record was never persisted and has
// no scan id.
func (l *BinLedger) RemoveAt(invoiceID string, index int) bool {
	n := 0
	for i, rec := range l.records {
		if rec.InvoiceID != invoiceID {
			continue
		}
		if n == index {
			l.records = append(l.records[:i], l.records[i+1:]...)
			return true
		}
		n++
	}
	return false
}

// HasBin reports whether any record already carries the given bin number.
func (l *BinLedger) HasBin(binNumber string) bool {
	if binNumber == "" {
		return false
	}
	for _, rec := range l.records {
		if rec.BinNumber == binNumber {
			return true
		}
	}
	return false
}

// HasRaw reports whether any record already carries the given raw barcode
// text.
func (l *BinLedger) HasRaw(raw string) bool {
	for _, rec := range l.records {
		if rec.RawValue == raw {
			return true
		}
	}
	return false
}

// Records returns a copy of all ledger records in append order.
func (l *BinLedger) Records() []entity.ScanRecord {
	out := make([]entity.ScanRecord, len(l.records))
	copy(out, l.records)
	return out
}

// RecordsFor returns the records belonging to one invoice in append order.
func (l *BinLedger) RecordsFor(invoiceID string) []entity.ScanRecord {
	var out []entity.ScanRecord
	for _, rec := range l.records {
		if rec.InvoiceID == invoiceID {
			out = append(out, rec)
		}
	}
	return out
}

// ProgressFor computes the bin/quantity completeness of one logical item.
// Expected values aggregate every line of the invoice sharing the key, since
// upstream data repeats logical keys across distinct lines.
func (l *BinLedger) ProgressFor(inv *entity.Invoice, key entity.ItemKey) entity.ItemProgress {
	var p entity.ItemProgress
	for _, line := range inv.LineItems {
		if line.Key() == key {
			p.ExpectedBins += line.ExpectedBins
			p.ExpectedQty += line.InvoicedQty
		}
	}
	for _, rec := range l.records {
		if rec.InvoiceID == inv.ID && rec.Item == key {
			p.ScannedBins++
			p.ScannedQty += rec.BinQuantity
		}
	}
	return p
}

// InvoiceComplete reports whether every logical item of the invoice
// satisfies the completeness rule.
func (l *BinLedger) InvoiceComplete(inv *entity.Invoice) bool {
	seen := make(map[entity.ItemKey]bool)
	for _, line := range inv.LineItems {
		key := line.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		if !l.ProgressFor(inv, key).Complete() {
			return false
		}
	}
	return len(seen) > 0
}

// ItemGroup is the scans of one logical item, newest first.
type ItemGroup struct {
	Key      entity.ItemKey
	Scans    []entity.ScanRecord
	LatestAt time.Time
}

// InvoiceGroup is the grouped scans of one invoice.
type InvoiceGroup struct {
	InvoiceID string
	Items     []ItemGroup
	LatestAt  time.Time
}

// GroupByInvoiceThenItem produces the user-facing nested grouping: invoices
// ordered by most-recent scan timestamp descending, items within an invoice
// likewise, scans within an item newest first. Timestamp ties break toward
// the lexicographically greater key so the order is stable across runs.
func (l *BinLedger) GroupByInvoiceThenItem() []InvoiceGroup {
	type itemSlot struct {
		group ItemGroup
	}
	byInvoice := make(map[string]map[entity.ItemKey]*itemSlot)
	var invoiceOrder []string

	for _, rec := range l.records {
		items, ok := byInvoice[rec.InvoiceID]
		if !ok {
			items = make(map[entity.ItemKey]*itemSlot)
			byInvoice[rec.InvoiceID] = items
			invoiceOrder = append(invoiceOrder, rec.InvoiceID)
		}
		slot, ok := items[rec.Item]
		if !ok {
			slot = &itemSlot{group: ItemGroup{Key: rec.Item}}
			items[rec.Item] = slot
		}
		slot.group.Scans = append(slot.group.Scans, rec)
		if rec.CapturedAt.After(slot.group.LatestAt) {
			slot.group.LatestAt = rec.CapturedAt
		}
	}

	out := make([]InvoiceGroup, 0, len(byInvoice))
	for _, invoiceID := range invoiceOrder {
		items := byInvoice[invoiceID]
		ig := InvoiceGroup{InvoiceID: invoiceID}
		for _, slot := range items {
			group := slot.group
			sort.SliceStable(group.Scans, func(i, j int) bool {
				return group.Scans[i].CapturedAt.After(group.Scans[j].CapturedAt)
			})
			ig.Items = append(ig.Items, group)
			if group.LatestAt.After(ig.LatestAt) {
				ig.LatestAt = group.LatestAt
			}
		}
		sort.SliceStable(ig.Items, func(i, j int) bool {
			a, b := ig.Items[i], ig.Items[j]
			if !a.LatestAt.Equal(b.LatestAt) {
				return a.LatestAt.After(b.LatestAt)
			}
			return b.Key.Less(a.Key)
		})
		out = append(out, ig)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.LatestAt.Equal(b.LatestAt) {
			return a.LatestAt.After(b.LatestAt)
		}
		return a.InvoiceID > b.InvoiceID
	})
	return out
}

// FocusedItem returns the logical item actively being worked: the one with
// the globally most-recent scan timestamp. A record with a valid timestamp
// always beats one without; timestamp ties break toward the
// lexicographically greater key.
func (l *BinLedger) FocusedItem() (invoiceID string, key entity.ItemKey, ok bool) {
	var best *entity.ScanRecord
	for i := range l.records {
		rec := &l.records[i]
		if best == nil {
			best = rec
			continue
		}
		switch {
		case rec.CapturedAt.After(best.CapturedAt):
			best = rec
		case rec.CapturedAt.Equal(best.CapturedAt) && best.Item.Less(rec.Item):
			best = rec
		}
	}
	if best == nil {
		return "", entity.ItemKey{}, false
	}
	return best.InvoiceID, best.Item, true
}
