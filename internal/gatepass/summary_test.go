package gatepass

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anandvel/dispatch-hub/internal/domain/entity"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func fixedBuilder() *Builder {
	b := NewBuilder()
	b.now = func() time.Time { return fixedNow }
	return b
}

func scanLine(invoiceID, customerItem, itemNumber string, qty float64) ScanLine {
	return ScanLine{
		InvoiceID:    invoiceID,
		CustomerItem: customerItem,
		ItemNumber:   itemNumber,
		Quantity:     qty,
	}
}

func TestBuilder_Build(t *testing.T) {
	b := fixedBuilder()

	summary := b.Build(BuildInput{
		GatepassNumber: "GP-2026-001",
		VehicleNumber:  "KA01AB1234",
		IssuedBy:       "dispatch-desk",
		CustomerCode:   "CUST-7",
		DispatchedAt:   fixedNow,
		Lines: []ScanLine{
			scanLine("INV-2", "C200", "I-2", 3),
			scanLine("INV-1", "C100", "I-1", 5),
			scanLine("INV-1", "C100", "I-1", 5),
			scanLine("INV-1", "C050", "I-0", 2),
		},
	})

	assert.Equal(t, "GP-2026-001", summary.GatepassNumber)
	assert.Equal(t, 4, summary.TotalBins)
	assert.Equal(t, 15.0, summary.TotalQty)

	// Invoices ascend by id, items ascend by key.
	require.Len(t, summary.Invoices, 2)
	assert.Equal(t, "INV-1", summary.Invoices[0].InvoiceID)
	assert.Equal(t, "INV-2", summary.Invoices[1].InvoiceID)

	inv1 := summary.Invoices[0]
	require.Len(t, inv1.Items, 2)
	assert.Equal(t, "C050", inv1.Items[0].CustomerItem)
	assert.Equal(t, "C100", inv1.Items[1].CustomerItem)
	assert.Equal(t, 2, inv1.Items[1].BinsLoaded)
	assert.Equal(t, 10.0, inv1.Items[1].QtyLoaded)
	assert.Equal(t, 3, inv1.BinsLoaded)
	assert.Equal(t, 12.0, inv1.QtyLoaded)
}

func TestBuilder_BuildOrderIndependent(t *testing.T) {
	b := fixedBuilder()
	lines := []ScanLine{
		scanLine("INV-2", "C200", "I-2", 3),
		scanLine("INV-1", "C100", "I-1", 5),
		scanLine("INV-1", "C050", "I-0", 2),
		scanLine("INV-1", "C100", "I-1", 5),
	}

	reversed := make([]ScanLine, len(lines))
	for i, l := range lines {
		reversed[len(lines)-1-i] = l
	}

	input := BuildInput{
		GatepassNumber: "GP-2026-001",
		VehicleNumber:  "KA01AB1234",
		DispatchedAt:   fixedNow,
	}

	input.Lines = lines
	first := b.Build(input)
	input.Lines = reversed
	second := b.Build(input)

	assert.Equal(t, first, second)
}

func TestBuilder_BuildDefaults(t *testing.T) {
	b := fixedBuilder()

	summary := b.Build(BuildInput{
		VehicleNumber: "KA01AB1234",
		Lines:         []ScanLine{scanLine("INV-1", "C100", "I-1", 5)},
	})

	assert.Equal(t, "GP-"+"1772359200000", summary.GatepassNumber)
	assert.Equal(t, fixedNow, summary.DispatchedAt)
}

func TestBuilder_BuildDeliveryAttached(t *testing.T) {
	b := fixedBuilder()
	delivery := &entity.DeliveryInfo{Date: "2026-03-02", Time: "09:00", UnloadingPoint: "Dock 4"}

	summary := b.Build(BuildInput{
		GatepassNumber: "GP-1",
		DispatchedAt:   fixedNow,
		Delivery:       map[string]*entity.DeliveryInfo{"INV-1": delivery},
		Lines: []ScanLine{
			scanLine("INV-1", "C100", "I-1", 5),
			scanLine("INV-2", "C200", "I-2", 3),
		},
	})

	require.Len(t, summary.Invoices, 2)
	assert.Equal(t, delivery, summary.Invoices[0].Delivery)
	assert.Nil(t, summary.Invoices[1].Delivery)
}

func TestNormalizeRecords(t *testing.T) {
	records := []entity.ScanRecord{
		{
			InvoiceID:   "INV-1",
			Item:        entity.ItemKey{CustomerItem: "C100", ItemNumber: "I-1"},
			BinQuantity: 5,
		},
	}

	lines := NormalizeRecords(records)
	require.Len(t, lines, 1)
	assert.Equal(t, scanLine("INV-1", "C100", "I-1", 5), lines[0])
}
