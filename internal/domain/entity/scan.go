package entity

import "time"

// LabelType discriminates the two independent barcode sources.
type LabelType string

const (
	// LabelCustomer is the label printed by the customer; its part code is
	// the primary join key to an invoice line item.
	LabelCustomer LabelType = "customer"
	// LabelInternal is the factory's own label, used as the second source
	// during the document audit.
	LabelInternal LabelType = "internal"
)

// ScanContext names the workflow stage a scan belongs to.
type ScanContext string

const (
	ContextDocAudit ScanContext = "doc-audit"
	ContextLoading  ScanContext = "loading-dispatch"
)

// Barcode is one decoded barcode event as delivered by the capture device.
type Barcode struct {
	PartCode  string    `json:"part_code"`
	Quantity  string    `json:"quantity"`
	BinNumber string    `json:"bin_number"`
	RawValue  string    `json:"raw_value"`
	Type      LabelType `json:"type"`
}

// ScanRecord is one accepted barcode decode bound to an invoice line item.
// ScanID is empty until the record has been persisted by the scan store.
type ScanRecord struct {
	ScanID      string      `json:"scan_id,omitempty"`
	InvoiceID   string      `json:"invoice_id"`
	Item        ItemKey     `json:"item"`
	BinNumber   string      `json:"bin_number,omitempty"`
	BinQuantity float64     `json:"bin_quantity,omitempty"`
	RawValue    string      `json:"raw_value"`
	Context     ScanContext `json:"context"`
	CapturedAt  time.Time   `json:"captured_at"`
}

// ItemProgress is the derived bin/quantity completeness state of one logical
// item. It is computed on demand and never stored.
type ItemProgress struct {
	ExpectedBins int     `json:"expected_bins"`
	ExpectedQty  float64 `json:"expected_qty"`
	ScannedBins  int     `json:"scanned_bins"`
	ScannedQty   float64 `json:"scanned_qty"`
}

// Complete reports whether the item satisfies the completeness rule: the
// expected bin count is met, or, when no bin metadata exists, the invoiced
// quantity is covered.
func (p ItemProgress) Complete() bool {
	if p.ExpectedBins > 0 {
		return p.ScannedBins >= p.ExpectedBins
	}
	return p.ExpectedQty > 0 && p.ScannedQty >= p.ExpectedQty
}

// InProgress reports whether scanning has started without reaching
// completeness.
func (p ItemProgress) InProgress() bool {
	return p.ScannedBins > 0 && !p.Complete()
}

// AlertSeverity grades a mismatch alert.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// MismatchAlert records a cross-source mismatch: the customer label and the
// internal label resolved to different invoice line items. The owning
// invoices are blocked until an admin clears the alert.
type MismatchAlert struct {
	ID              int64         `json:"id"`
	InvoiceIDs      []string      `json:"invoice_ids"`
	CustomerBarcode string        `json:"customer_barcode"`
	InternalBarcode string        `json:"internal_barcode"`
	Severity        AlertSeverity `json:"severity"`
	Cleared         bool          `json:"cleared"`
	CreatedAt       time.Time     `json:"created_at"`
}
