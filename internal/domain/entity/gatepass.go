package entity

import "time"

// GatepassSummary is the deterministic projection of everything loaded onto
// one vehicle. Built the same way from local ledger records or from the
// authoritative server scan list; only DispatchedAt and a synthesized
// gatepass number depend on wall-clock time.
type GatepassSummary struct {
	GatepassNumber string            `json:"gatepass_number"`
	VehicleNumber  string            `json:"vehicle_number"`
	IssuedBy       string            `json:"issued_by"`
	CustomerCode   string            `json:"customer_code"`
	DispatchedAt   time.Time         `json:"dispatched_at"`
	Invoices       []GatepassInvoice `json:"invoices"`
	TotalBins      int               `json:"total_bins"`
	TotalQty       float64           `json:"total_qty"`
}

// GatepassInvoice is the per-invoice section of a gatepass summary.
type GatepassInvoice struct {
	InvoiceID  string         `json:"invoice_id"`
	Delivery   *DeliveryInfo  `json:"delivery,omitempty"`
	Items      []GatepassItem `json:"items"`
	BinsLoaded int            `json:"bins_loaded"`
	QtyLoaded  float64        `json:"qty_loaded"`
}

// GatepassItem is the per-logical-item total within one invoice.
type GatepassItem struct {
	CustomerItem string  `json:"customer_item"`
	ItemNumber   string  `json:"item_number"`
	BinsLoaded   int     `json:"bins_loaded"`
	QtyLoaded    float64 `json:"qty_loaded"`
}

// DispatchResult is the authoritative server response to a dispatch call.
// LoadedBinsCount and LoadedQty are optional cross-check totals; a zero
// pointer means the server did not report them.
type DispatchResult struct {
	GatepassNumber  string                   `json:"gatepass_number"`
	CustomerCode    string                   `json:"customer_code"`
	DispatchDate    time.Time                `json:"dispatch_date"`
	TotalBins       int                      `json:"total_bins"`
	SupplyDates     map[string]*DeliveryInfo `json:"supply_dates"`
	InvoiceIDs      []string                 `json:"invoice_ids"`
	LoadedScans     []*ScanRecord            `json:"loaded_scans"`
	LoadedBinsCount *int                     `json:"loaded_bins_count,omitempty"`
	LoadedQty       *float64                 `json:"loaded_qty,omitempty"`
}
