// Package ingest loads invoices and their line items from the planning
// department's Excel workbook.
package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/anandvel/dispatch-hub/internal/domain/entity"
)

// Expected column layout of the invoice sheet, after one header row:
// invoice id, customer name, customer code, customer item, item number,
// description, invoiced quantity, expected bins.
const (
	colInvoiceID = iota
	colCustomerName
	colCustomerCode
	colCustomerItem
	colItemNumber
	colDescription
	colInvoicedQty
	colExpectedBins
	columnCount
)

// LoadWorkbook reads the invoice sheet and groups consecutive rows by
// invoice id. Rows without an invoice id or customer item are skipped.
func LoadWorkbook(path, sheet string) ([]*entity.Invoice, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %s has no data rows", sheet)
	}

	byID := make(map[string]*entity.Invoice)
	var order []string

	for i, row := range rows[1:] {
		if len(row) < columnCount {
			padded := make([]string, columnCount)
			copy(padded, row)
			row = padded
		}

		invoiceID := strings.TrimSpace(row[colInvoiceID])
		customerItem := strings.TrimSpace(row[colCustomerItem])
		if invoiceID == "" || customerItem == "" {
			continue
		}

		inv, ok := byID[invoiceID]
		if !ok {
			inv = &entity.Invoice{
				ID:           invoiceID,
				CustomerName: strings.TrimSpace(row[colCustomerName]),
				CustomerCode: strings.TrimSpace(row[colCustomerCode]),
			}
			byID[invoiceID] = inv
			order = append(order, invoiceID)
		}

		qty, err := parseFloat(row[colInvoicedQty])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid quantity %q: %w", i+2, row[colInvoicedQty], err)
		}
		bins, err := parseInt(row[colExpectedBins])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid bin count %q: %w", i+2, row[colExpectedBins], err)
		}

		inv.LineItems = append(inv.LineItems, entity.InvoiceLineItem{
			CustomerItem: customerItem,
			ItemNumber:   strings.TrimSpace(row[colItemNumber]),
			Description:  strings.TrimSpace(row[colDescription]),
			InvoicedQty:  qty,
			ExpectedBins: bins,
		})
	}

	out := make([]*entity.Invoice, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, nil
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
