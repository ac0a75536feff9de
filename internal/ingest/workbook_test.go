package ingest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	header := []interface{}{
		"Invoice", "Customer Name", "Customer Code", "Customer Item",
		"Item Number", "Description", "Qty", "Bins",
	}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	path := filepath.Join(t.TempDir(), "invoices.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadWorkbook(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"INV-1", "Acme Motors", "ACM", "C100", "I-1", "Bracket", "10", "2"},
		{"INV-1", "Acme Motors", "ACM", "C200", "I-2", "Clip", "5.5", "1"},
		{"INV-2", "Beta Forge", "BTF", "C300", "I-3", "Shaft", "8", ""},
	})

	invoices, err := LoadWorkbook(path, "Sheet1")
	require.NoError(t, err)
	require.Len(t, invoices, 2)

	inv1 := invoices[0]
	assert.Equal(t, "INV-1", inv1.ID)
	assert.Equal(t, "Acme Motors", inv1.CustomerName)
	assert.Equal(t, "ACM", inv1.CustomerCode)
	require.Len(t, inv1.LineItems, 2)
	assert.Equal(t, "C100", inv1.LineItems[0].CustomerItem)
	assert.Equal(t, 10.0, inv1.LineItems[0].InvoicedQty)
	assert.Equal(t, 2, inv1.LineItems[0].ExpectedBins)
	assert.Equal(t, 5.5, inv1.LineItems[1].InvoicedQty)

	inv2 := invoices[1]
	assert.Equal(t, "INV-2", inv2.ID)
	require.Len(t, inv2.LineItems, 1)
	assert.Zero(t, inv2.LineItems[0].ExpectedBins, "missing bin count defaults to zero")
}

func TestLoadWorkbook_SkipsIncompleteRows(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"INV-1", "Acme Motors", "ACM", "C100", "I-1", "Bracket", "10", "2"},
		{"", "", "", "C900", "I-9", "Orphan line", "1", "1"},
		{"INV-3", "Gamma Works", "GMW", "", "", "No item code", "4", "1"},
	})

	invoices, err := LoadWorkbook(path, "Sheet1")
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "INV-1", invoices[0].ID)
}

func TestLoadWorkbook_InvalidNumbers(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"INV-1", "Acme Motors", "ACM", "C100", "I-1", "Bracket", "ten", "2"},
	})

	_, err := LoadWorkbook(path, "Sheet1")
	assert.Error(t, err)
}

func TestLoadWorkbook_MissingSheet(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"INV-1", "Acme Motors", "ACM", "C100", "I-1", "Bracket", "10", "2"},
	})

	_, err := LoadWorkbook(path, "Nope")
	assert.Error(t, err)
}
