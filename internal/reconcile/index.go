// Package reconcile implements the scan-reconciliation core: resolving a
// physical barcode to exactly one invoice line item, the session ledger of
// accepted scans, and the two-phase pairing used by the document audit.
package reconcile

import (
	"strconv"
	"strings"

	"github.com/anandvel/dispatch-hub/internal/domain/entity"
)

// Candidate is one possible resolution of a scanned customer item code.
type Candidate struct {
	InvoiceID string
	Line      entity.InvoiceLineItem
}

// ItemIndex maps a scanned customer item code to its candidate invoice line
// items. The index is rebuilt whenever the invoice selection changes.
type ItemIndex struct {
	byInvoice map[string]map[string][]entity.InvoiceLineItem
}

// NewItemIndex builds an index over the given invoices.
func NewItemIndex(invoices []*entity.Invoice) *ItemIndex {
	idx := &ItemIndex{byInvoice: make(map[string]map[string][]entity.InvoiceLineItem, len(invoices))}
	for _, inv := range invoices {
		byItem := make(map[string][]entity.InvoiceLineItem)
		for _, line := range inv.LineItems {
			code := strings.TrimSpace(line.CustomerItem)
			byItem[code] = append(byItem[code], line)
		}
		idx.byInvoice[inv.ID] = byItem
	}
	return idx
}

// Resolve returns the line items whose customer item equals the scanned
// code, restricted to the given candidate invoices and preserving their
// selection order. Matching trims whitespace but keeps case: source data is
// inconsistent in case and case-folding would silently merge distinct SKUs.
func (idx *ItemIndex) Resolve(customerItem string, candidateInvoiceIDs []string) []Candidate {
	code := strings.TrimSpace(customerItem)
	if code == "" {
		return nil
	}

	var out []Candidate
	for _, invoiceID := range candidateInvoiceIDs {
		byItem, ok := idx.byInvoice[invoiceID]
		if !ok {
			continue
		}
		for _, line := range byItem[code] {
			out = append(out, Candidate{InvoiceID: invoiceID, Line: line})
		}
	}
	return out
}

// ParseQuantity converts a decoded quantity field to a number. Missing or
// unparseable quantities count as zero rather than failing the scan.
func ParseQuantity(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	qty, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return qty
}
