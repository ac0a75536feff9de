package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anandvel/dispatch-hub/internal/application/port"
	"github.com/anandvel/dispatch-hub/internal/domain/entity"
)

// ScanStore is the authoritative persistence for scans and dispatches. It is
// the arbiter of duplicates and over-scans: several capture devices can work
// the same invoices, and the store sees all of them.
type ScanStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewScanStore creates a new scan store
func NewScanStore(db *sql.DB, logger *zap.Logger) *ScanStore {
	return &ScanStore{
		db:     db,
		logger: logger,
	}
}

// RecordScan persists one accepted scan, enforcing the invoice-blocked,
// duplicate and over-scan rules with structured error codes.
func (s *ScanStore) RecordScan(ctx context.Context, invoiceID string, req port.RecordScanRequest) (*port.RecordScanResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var blocked, dispatched bool
	err = tx.QueryRowContext(ctx,
		`SELECT blocked, dispatched FROM invoices WHERE id = ?`, invoiceID,
	).Scan(&blocked, &dispatched)
	if err == sql.ErrNoRows {
		return nil, port.NewStoreError(port.CodeNotFound, "invoice %s not found", invoiceID)
	}
	if err != nil {
		s.logger.Error("Failed to load invoice for scan", zap.String("invoice_id", invoiceID), zap.Error(err))
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	if blocked {
		return nil, port.NewStoreError(port.CodeInvoiceBlocked, "invoice %s is blocked", invoiceID)
	}
	if dispatched {
		return nil, port.NewStoreError(port.CodeInvoiceBlocked, "invoice %s is already dispatched", invoiceID)
	}

	var dup int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM scans
		WHERE invoice_id = ? AND scan_context = ?
		  AND (customer_barcode = ? OR (bin_number != '' AND bin_number = ?))
	`, invoiceID, string(req.ScanContext), req.CustomerBarcode, req.BinNumber).Scan(&dup)
	if err != nil {
		return nil, fmt.Errorf("failed to check duplicates: %w", err)
	}
	if dup > 0 {
		return nil, port.NewStoreError(port.CodeDuplicate, "scan already recorded for invoice %s", invoiceID)
	}

	var expectedBins int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(expected_bins), 0) FROM invoice_line_items
		WHERE invoice_id = ? AND customer_item = ? AND item_number = ?
	`, invoiceID, req.CustomerItem, req.ItemNumber).Scan(&expectedBins)
	if err != nil {
		return nil, fmt.Errorf("failed to load expected bins: %w", err)
	}

	var loadedBins int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM scans
		WHERE invoice_id = ? AND scan_context = ? AND customer_item = ? AND item_number = ?
	`, invoiceID, string(req.ScanContext), req.CustomerItem, req.ItemNumber).Scan(&loadedBins)
	if err != nil {
		return nil, fmt.Errorf("failed to count loaded bins: %w", err)
	}
	if expectedBins > 0 && loadedBins >= expectedBins {
		return nil, port.NewStoreError(port.CodeOverScan,
			"item %s/%s on invoice %s already has %d of %d bins",
			req.CustomerItem, req.ItemNumber, invoiceID, loadedBins, expectedBins)
	}

	scanID := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO scans (
			scan_id, invoice_id, customer_item, item_number, part_description,
			customer_barcode, internal_barcode, bin_number, bin_quantity,
			status, scan_context, captured_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		scanID,
		invoiceID,
		req.CustomerItem,
		req.ItemNumber,
		req.PartDescription,
		req.CustomerBarcode,
		req.InternalBarcode,
		req.BinNumber,
		req.BinQuantity,
		req.Status,
		string(req.ScanContext),
		time.Now().UTC(),
	)
	if err != nil {
		s.logger.Error("Failed to record scan", zap.String("invoice_id", invoiceID), zap.Error(err))
		return nil, fmt.Errorf("failed to record scan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit scan: %w", err)
	}

	loadedBins++
	result := &port.RecordScanResult{ScanID: scanID, LoadedBins: &loadedBins}
	if expectedBins > 0 {
		result.ExpectedBins = &expectedBins
	}
	return result, nil
}

// GetScans returns an invoice's persisted scans for one stage, oldest first.
func (s *ScanStore) GetScans(ctx context.Context, invoiceID string, scanCtx entity.ScanContext) ([]*entity.ScanRecord, error) {
	query := `
		SELECT scan_id, invoice_id, customer_item, item_number, bin_number,
			bin_quantity, customer_barcode, scan_context, captured_at
		FROM scans
		WHERE invoice_id = ? AND scan_context = ?
		ORDER BY captured_at, scan_id
	`

	rows, err := s.db.QueryContext(ctx, query, invoiceID, string(scanCtx))
	if err != nil {
		s.logger.Error("Failed to get scans", zap.String("invoice_id", invoiceID), zap.Error(err))
		return nil, fmt.Errorf("failed to get scans: %w", err)
	}
	defer rows.Close()

	var out []*entity.ScanRecord
	for rows.Next() {
		var rec entity.ScanRecord
		var context string
		err := rows.Scan(
			&rec.ScanID,
			&rec.InvoiceID,
			&rec.Item.CustomerItem,
			&rec.Item.ItemNumber,
			&rec.BinNumber,
			&rec.BinQuantity,
			&rec.RawValue,
			&context,
			&rec.CapturedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Context = entity.ScanContext(context)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// DeleteScan removes one persisted scan.
func (s *ScanStore) DeleteScan(ctx context.Context, invoiceID, scanID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM scans WHERE invoice_id = ? AND scan_id = ?`, invoiceID, scanID)
	if err != nil {
		s.logger.Error("Failed to delete scan", zap.String("scan_id", scanID), zap.Error(err))
		return fmt.Errorf("failed to delete scan: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return port.NewStoreError(port.CodeNotFound, "scan %s not found on invoice %s", scanID, invoiceID)
	}
	return nil
}

// Dispatch closes out the selected invoices onto one vehicle: issues the
// gatepass number, marks the invoices dispatched and returns the
// authoritative loaded-scan list with cross-check totals.
func (s *ScanStore) Dispatch(ctx context.Context, req port.DispatchRequest) (*entity.DispatchResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res := &entity.DispatchResult{
		DispatchDate: time.Now().UTC(),
		SupplyDates:  make(map[string]*entity.DeliveryInfo),
		InvoiceIDs:   append([]string(nil), req.InvoiceIDs...),
	}

	for _, id := range req.InvoiceIDs {
		var customerCode string
		var auditCompleted, dispatched, blocked bool
		var deliveryDate, deliveryTime, unloadingPoint sql.NullString
		err := tx.QueryRowContext(ctx, `
			SELECT customer_code, audit_completed, dispatched, blocked,
				delivery_date, delivery_time, unloading_point
			FROM invoices WHERE id = ?
		`, id).Scan(&customerCode, &auditCompleted, &dispatched, &blocked,
			&deliveryDate, &deliveryTime, &unloadingPoint)
		if err == sql.ErrNoRows {
			return nil, port.NewStoreError(port.CodeNotFound, "invoice %s not found", id)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load invoice: %w", err)
		}
		if blocked {
			return nil, port.NewStoreError(port.CodeInvoiceBlocked, "invoice %s is blocked", id)
		}
		if dispatched {
			return nil, port.NewStoreError(port.CodeDuplicate, "invoice %s is already dispatched", id)
		}
		if !auditCompleted {
			return nil, port.NewStoreError(port.CodeInternal, "invoice %s has not completed audit", id)
		}

		res.CustomerCode = customerCode
		if deliveryDate.Valid || deliveryTime.Valid || unloadingPoint.Valid {
			res.SupplyDates[id] = &entity.DeliveryInfo{
				Date:           deliveryDate.String,
				Time:           deliveryTime.String,
				UnloadingPoint: unloadingPoint.String,
			}
		}
	}

	res.GatepassNumber = fmt.Sprintf("GP-%s-%s",
		res.DispatchDate.Format("20060102"), uuid.NewString()[:8])

	for _, id := range req.InvoiceIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE invoices SET dispatched = 1, audit_completed = 1 WHERE id = ?`, id); err != nil {
			return nil, fmt.Errorf("failed to mark invoice dispatched: %w", err)
		}
	}

	loadedQty := 0.0
	for _, id := range req.InvoiceIDs {
		rows, err := tx.QueryContext(ctx, `
			SELECT scan_id, invoice_id, customer_item, item_number, bin_number,
				bin_quantity, customer_barcode, captured_at
			FROM scans
			WHERE invoice_id = ? AND scan_context = ?
			ORDER BY captured_at, scan_id
		`, id, string(entity.ContextLoading))
		if err != nil {
			return nil, fmt.Errorf("failed to load dispatched scans: %w", err)
		}
		for rows.Next() {
			var rec entity.ScanRecord
			err := rows.Scan(
				&rec.ScanID,
				&rec.InvoiceID,
				&rec.Item.CustomerItem,
				&rec.Item.ItemNumber,
				&rec.BinNumber,
				&rec.BinQuantity,
				&rec.RawValue,
				&rec.CapturedAt,
			)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan record: %w", err)
			}
			rec.Context = entity.ContextLoading
			res.LoadedScans = append(res.LoadedScans, &rec)
			loadedQty += rec.BinQuantity
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to read dispatched scans: %w", err)
		}
		rows.Close()
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit dispatch: %w", err)
	}

	bins := len(res.LoadedScans)
	res.TotalBins = bins
	res.LoadedBinsCount = &bins
	res.LoadedQty = &loadedQty

	s.logger.Info("Dispatch recorded",
		zap.String("gatepass", res.GatepassNumber),
		zap.Strings("invoices", req.InvoiceIDs),
		zap.Int("bins", bins),
	)
	return res, nil
}
