// Package gatepass folds scan records into the tamper-evident exit record
// and provides its compact QR wire encoding.
package gatepass

import (
	"sort"
	"strconv"
	"time"

	"github.com/anandvel/dispatch-hub/internal/domain/entity"
)

// ScanLine is the normalized shape every scan source reduces to before the
// fold. Local ledger records and the authoritative server list both map here
// so the summary is identical regardless of where the scans came from.
type ScanLine struct {
	InvoiceID    string
	CustomerItem string
	ItemNumber   string
	Quantity     float64
}

// NormalizeRecords reduces scan records to fold input. One record is one
// physical bin.
func NormalizeRecords(records []entity.ScanRecord) []ScanLine {
	out := make([]ScanLine, 0, len(records))
	for _, rec := range records {
		out = append(out, ScanLine{
			InvoiceID:    rec.InvoiceID,
			CustomerItem: rec.Item.CustomerItem,
			ItemNumber:   rec.Item.ItemNumber,
			Quantity:     rec.BinQuantity,
		})
	}
	return out
}

// BuildInput carries everything the fold needs besides the scan lines.
type BuildInput struct {
	// GatepassNumber may be empty; a GP- placeholder derived from the
	// current time is synthesized until the server issues the real number.
	GatepassNumber string
	VehicleNumber  string
	IssuedBy       string
	CustomerCode   string
	// DispatchedAt zero means "now".
	DispatchedAt time.Time
	// Delivery maps invoice id to its delivery metadata, when known.
	Delivery map[string]*entity.DeliveryInfo
	Lines    []ScanLine
}

// Builder folds scan lines into a GatepassSummary. The only wall-clock
// dependence is the dispatch timestamp and the placeholder gatepass number;
// everything else is a pure, order-independent function of the input
// multiset.
type Builder struct {
	now func() time.Time
}

// NewBuilder creates a summary builder.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// Build groups lines by invoice, then by logical item: qtyLoaded sums the
// quantities, binsLoaded counts the records. Invoices and items are emitted
// in ascending key order so equal input multisets serialize identically.
func (b *Builder) Build(in BuildInput) entity.GatepassSummary {
	type itemAgg struct {
		key  entity.ItemKey
		bins int
		qty  float64
	}
	type invoiceAgg struct {
		items map[entity.ItemKey]*itemAgg
	}

	byInvoice := make(map[string]*invoiceAgg)
	for _, line := range in.Lines {
		inv, ok := byInvoice[line.InvoiceID]
		if !ok {
			inv = &invoiceAgg{items: make(map[entity.ItemKey]*itemAgg)}
			byInvoice[line.InvoiceID] = inv
		}
		key := entity.ItemKey{CustomerItem: line.CustomerItem, ItemNumber: line.ItemNumber}
		item, ok := inv.items[key]
		if !ok {
			item = &itemAgg{key: key}
			inv.items[key] = item
		}
		item.bins++
		item.qty += line.Quantity
	}

	invoiceIDs := make([]string, 0, len(byInvoice))
	for id := range byInvoice {
		invoiceIDs = append(invoiceIDs, id)
	}
	sort.Strings(invoiceIDs)

	summary := entity.GatepassSummary{
		GatepassNumber: in.GatepassNumber,
		VehicleNumber:  in.VehicleNumber,
		IssuedBy:       in.IssuedBy,
		CustomerCode:   in.CustomerCode,
		DispatchedAt:   in.DispatchedAt,
	}
	if summary.GatepassNumber == "" {
		// Placeholder only; replaced by the server-issued number.
		summary.GatepassNumber = "GP-" + strconv.FormatInt(b.now().UnixMilli(), 10)
	}
	if summary.DispatchedAt.IsZero() {
		summary.DispatchedAt = b.now()
	}

	for _, id := range invoiceIDs {
		agg := byInvoice[id]
		gi := entity.GatepassInvoice{InvoiceID: id}
		if in.Delivery != nil {
			gi.Delivery = in.Delivery[id]
		}

		items := make([]*itemAgg, 0, len(agg.items))
		for _, item := range agg.items {
			items = append(items, item)
		}
		sort.Slice(items, func(i, j int) bool { return items[i].key.Less(items[j].key) })

		for _, item := range items {
			gi.Items = append(gi.Items, entity.GatepassItem{
				CustomerItem: item.key.CustomerItem,
				ItemNumber:   item.key.ItemNumber,
				BinsLoaded:   item.bins,
				QtyLoaded:    item.qty,
			})
			gi.BinsLoaded += item.bins
			gi.QtyLoaded += item.qty
		}

		summary.Invoices = append(summary.Invoices, gi)
		summary.TotalBins += gi.BinsLoaded
		summary.TotalQty += gi.QtyLoaded
	}

	return summary
}
