package port

import (
	"strings"

	"github.com/anandvel/dispatch-hub/internal/domain/entity"
)

// ParseResult is the tagged outcome of validating a loosely-typed inbound
// record at the API boundary. Downstream components only ever see fully
// typed values.
type ParseResult[T any] struct {
	OK      bool
	Value   T
	Invalid string
}

func ok[T any](v T) ParseResult[T] {
	return ParseResult[T]{OK: true, Value: v}
}

func invalid[T any](reason string) ParseResult[T] {
	return ParseResult[T]{Invalid: reason}
}

// ParseBarcode validates one decoded barcode event. A scan without a part
// code or raw value can never resolve and is rejected here, before the
// matcher runs.
func ParseBarcode(bc entity.Barcode) ParseResult[entity.Barcode] {
	bc.PartCode = strings.TrimSpace(bc.PartCode)
	bc.BinNumber = strings.TrimSpace(bc.BinNumber)
	if bc.PartCode == "" {
		return invalid[entity.Barcode]("barcode has no part code")
	}
	if strings.TrimSpace(bc.RawValue) == "" {
		return invalid[entity.Barcode]("barcode has no raw value")
	}
	switch bc.Type {
	case entity.LabelCustomer, entity.LabelInternal:
	default:
		return invalid[entity.Barcode]("unknown label type: " + string(bc.Type))
	}
	return ok(bc)
}

// ParseScanRecord validates a persisted scan record returned by the store
// before it is admitted into the session ledger.
func ParseScanRecord(rec *entity.ScanRecord) ParseResult[entity.ScanRecord] {
	if rec == nil {
		return invalid[entity.ScanRecord]("nil scan record")
	}
	if strings.TrimSpace(rec.InvoiceID) == "" {
		return invalid[entity.ScanRecord]("scan record has no invoice id")
	}
	if strings.TrimSpace(rec.Item.CustomerItem) == "" {
		return invalid[entity.ScanRecord]("scan record has no customer item")
	}
	return ok(*rec)
}
