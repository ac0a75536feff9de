package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writePlanWorkbook(t *testing.T, sheet string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", sheet))

	rows := [][]interface{}{
		{"Invoice", "Customer Name", "Customer Code", "Customer Item",
			"Item Number", "Description", "Qty", "Bins"},
		{"INV-1", "Acme Motors", "ACM", "C100", "I-1", "Bracket", "10", "2"},
		{"INV-2", "Beta Forge", "BTF", "C200", "I-2", "Clip", "5", "1"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "plan.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestImportService_DefaultSheet(t *testing.T) {
	repo := &mockInvoiceRepo{}
	svc := NewImportService(repo, "Dispatch Plan", &recordingLogger{})
	path := writePlanWorkbook(t, "Dispatch Plan")

	// No sheet named: the configured default is read.
	count, err := svc.ImportWorkbook(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, repo.created, 2)
	assert.Equal(t, "INV-1", repo.created[0].ID)

	// A wrong explicit sheet still fails rather than silently falling back.
	_, err = svc.ImportWorkbook(context.Background(), path, "Nope")
	assert.Error(t, err)
}
