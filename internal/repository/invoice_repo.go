// Package repository provides the SQLite-backed implementations of the
// application ports.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/anandvel/dispatch-hub/internal/application/port"
	"github.com/anandvel/dispatch-hub/internal/domain/entity"
)

// InvoiceRepository handles invoice database operations
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an invoice with its line items in one transaction.
func (r *InvoiceRepository) Create(ctx context.Context, inv *entity.Invoice) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO invoices (id, customer_name, customer_code, audit_completed, dispatched, blocked)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, query,
		inv.ID,
		inv.CustomerName,
		inv.CustomerCode,
		inv.AuditCompleted,
		inv.Dispatched,
		inv.Blocked,
	); err != nil {
		r.logger.Error("Failed to create invoice", zap.String("invoice_id", inv.ID), zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	lineQuery := `
		INSERT INTO invoice_line_items (invoice_id, customer_item, item_number, description, invoiced_qty, expected_bins)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, line := range inv.LineItems {
		if _, err := tx.ExecContext(ctx, lineQuery,
			inv.ID,
			line.CustomerItem,
			line.ItemNumber,
			line.Description,
			line.InvoicedQty,
			line.ExpectedBins,
		); err != nil {
			r.logger.Error("Failed to create invoice line item", zap.String("invoice_id", inv.ID), zap.Error(err))
			return fmt.Errorf("failed to create invoice line item: %w", err)
		}
	}

	return tx.Commit()
}

// GetByID retrieves one invoice with its line items.
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	invoices, err := r.GetByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, port.NewStoreError(port.CodeNotFound, "invoice %s not found", id)
	}
	return invoices[0], nil
}

// GetByIDs retrieves the given invoices with their line items. Unknown ids
// are simply absent from the result.
func (r *InvoiceRepository) GetByIDs(ctx context.Context, ids []string) ([]*entity.Invoice, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, customer_name, customer_code, audit_completed, dispatched, blocked,
			delivery_date, delivery_time, unloading_point
		FROM invoices
		WHERE id IN (%s)
	`, placeholders)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to get invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to get invoices: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*entity.Invoice, len(ids))
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		byID[inv.ID] = inv
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read invoices: %w", err)
	}

	if err := r.loadLineItems(ctx, byID); err != nil {
		return nil, err
	}

	// Preserve the caller's order.
	out := make([]*entity.Invoice, 0, len(byID))
	for _, id := range ids {
		if inv, ok := byID[id]; ok {
			out = append(out, inv)
		}
	}
	return out, nil
}

// List retrieves invoices in id order with their line items.
func (r *InvoiceRepository) List(ctx context.Context, limit, offset int) ([]*entity.Invoice, error) {
	query := `
		SELECT id, customer_name, customer_code, audit_completed, dispatched, blocked,
			delivery_date, delivery_time, unloading_point
		FROM invoices
		ORDER BY id
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*entity.Invoice)
	var order []string
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		byID[inv.ID] = inv
		order = append(order, inv.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read invoices: %w", err)
	}

	if err := r.loadLineItems(ctx, byID); err != nil {
		return nil, err
	}

	out := make([]*entity.Invoice, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, nil
}

// UpdateFlags writes the lifecycle-derived flags for an invoice.
func (r *InvoiceRepository) UpdateFlags(ctx context.Context, id string, auditCompleted, dispatched, blocked bool) error {
	query := `
		UPDATE invoices
		SET audit_completed = ?, dispatched = ?, blocked = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, auditCompleted, dispatched, blocked, id)
	if err != nil {
		r.logger.Error("Failed to update invoice flags", zap.String("invoice_id", id), zap.Error(err))
		return fmt.Errorf("failed to update invoice flags: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return port.NewStoreError(port.CodeNotFound, "invoice %s not found", id)
	}
	return nil
}

// SetDelivery writes the delivery metadata returned by a dispatch.
func (r *InvoiceRepository) SetDelivery(ctx context.Context, id string, delivery *entity.DeliveryInfo) error {
	if delivery == nil {
		return nil
	}

	query := `
		UPDATE invoices
		SET delivery_date = ?, delivery_time = ?, unloading_point = ?
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, delivery.Date, delivery.Time, delivery.UnloadingPoint, id); err != nil {
		r.logger.Error("Failed to set delivery info", zap.String("invoice_id", id), zap.Error(err))
		return fmt.Errorf("failed to set delivery info: %w", err)
	}
	return nil
}

func scanInvoice(rows *sql.Rows) (*entity.Invoice, error) {
	var inv entity.Invoice
	var deliveryDate, deliveryTime, unloadingPoint sql.NullString

	err := rows.Scan(
		&inv.ID,
		&inv.CustomerName,
		&inv.CustomerCode,
		&inv.AuditCompleted,
		&inv.Dispatched,
		&inv.Blocked,
		&deliveryDate,
		&deliveryTime,
		&unloadingPoint,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}

	if deliveryDate.Valid || deliveryTime.Valid || unloadingPoint.Valid {
		inv.Delivery = &entity.DeliveryInfo{
			Date:           deliveryDate.String,
			Time:           deliveryTime.String,
			UnloadingPoint: unloadingPoint.String,
		}
	}
	return &inv, nil
}

func (r *InvoiceRepository) loadLineItems(ctx context.Context, byID map[string]*entity.Invoice) error {
	if len(byID) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(byID))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(byID))
	for id := range byID {
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		SELECT invoice_id, customer_item, item_number, description, invoiced_qty, expected_bins
		FROM invoice_line_items
		WHERE invoice_id IN (%s)
		ORDER BY id
	`, placeholders)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to get invoice line items", zap.Error(err))
		return fmt.Errorf("failed to get invoice line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var invoiceID string
		var line entity.InvoiceLineItem
		err := rows.Scan(
			&invoiceID,
			&line.CustomerItem,
			&line.ItemNumber,
			&line.Description,
			&line.InvoicedQty,
			&line.ExpectedBins,
		)
		if err != nil {
			return fmt.Errorf("failed to scan invoice line item: %w", err)
		}
		if inv, ok := byID[invoiceID]; ok {
			inv.LineItems = append(inv.LineItems, line)
		}
	}
	return rows.Err()
}
