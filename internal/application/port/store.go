// Package port defines the interfaces the scan session depends on: the
// authoritative scan store reached over persistence, and the repositories
// for invoices, alerts and gatepasses.
package port

import (
	"context"
	"errors"
	"fmt"

	"github.com/anandvel/dispatch-hub/internal/domain/entity"
)

// ErrorCode is the structured failure condition of a store call. Callers
// branch on codes, never on message text.
type ErrorCode string

const (
	CodeDuplicate      ErrorCode = "DUPLICATE"
	CodeOverScan       ErrorCode = "OVER_SCAN"
	CodeInvoiceBlocked ErrorCode = "INVOICE_BLOCKED"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeInternal       ErrorCode = "INTERNAL"
)

// StoreError is a store failure with its structured code.
type StoreError struct {
	Code    ErrorCode
	Message string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewStoreError creates a StoreError.
func NewStoreError(code ErrorCode, format string, args ...any) *StoreError {
	return &StoreError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the structured code from an error chain, defaulting to
// CodeInternal for anything that is not a StoreError.
func CodeOf(err error) ErrorCode {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeInternal
}

// RecordScanRequest is the persistence payload for one accepted scan.
type RecordScanRequest struct {
	CustomerBarcode string             `json:"customer_barcode"`
	InternalBarcode string             `json:"internal_barcode,omitempty"`
	CustomerItem    string             `json:"customer_item"`
	ItemNumber      string             `json:"item_number"`
	PartDescription string             `json:"part_description"`
	Quantity        float64            `json:"quantity"`
	BinQuantity     float64            `json:"bin_quantity,omitempty"`
	BinNumber       string             `json:"bin_number,omitempty"`
	Status          string             `json:"status"`
	ScanContext     entity.ScanContext `json:"scan_context"`
}

// RecordScanResult carries the server-assigned id plus, when the store knows
// them, the expected and loaded bin counts for the scanned item.
type RecordScanResult struct {
	ScanID       string `json:"scan_id"`
	ExpectedBins *int   `json:"expected_bins,omitempty"`
	LoadedBins   *int   `json:"loaded_bins,omitempty"`
}

// DispatchRequest asks the store to close out the selected invoices onto one
// vehicle.
type DispatchRequest struct {
	InvoiceIDs     []string `json:"invoice_ids"`
	VehicleNumber  string   `json:"vehicle_number"`
	LoadedBarcodes []string `json:"loaded_barcodes"`
	IssuedBy       string   `json:"issued_by"`
}

// ScanStore is the authoritative persistence collaborator. Every call is a
// suspension point; callers must not mutate local ledger state until the
// call has succeeded.
type ScanStore interface {
	RecordScan(ctx context.Context, invoiceID string, req RecordScanRequest) (*RecordScanResult, error)
	GetScans(ctx context.Context, invoiceID string, scanCtx entity.ScanContext) ([]*entity.ScanRecord, error)
	DeleteScan(ctx context.Context, invoiceID, scanID string) error
	Dispatch(ctx context.Context, req DispatchRequest) (*entity.DispatchResult, error)
}

// InvoiceRepository defines persistence operations for invoices.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetByIDs(ctx context.Context, ids []string) ([]*entity.Invoice, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Invoice, error)
	UpdateFlags(ctx context.Context, id string, auditCompleted, dispatched, blocked bool) error
	SetDelivery(ctx context.Context, id string, delivery *entity.DeliveryInfo) error
}

// AlertRepository defines persistence operations for mismatch alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *entity.MismatchAlert) error
	ListOpen(ctx context.Context) ([]*entity.MismatchAlert, error)
	Clear(ctx context.Context, id int64) error
}

// GatepassRepository defines persistence operations for issued gatepasses.
type GatepassRepository interface {
	Save(ctx context.Context, summary *entity.GatepassSummary) error
	GetByNumber(ctx context.Context, number string) (*entity.GatepassSummary, error)
}
