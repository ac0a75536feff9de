package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/anandvel/dispatch-hub/internal/application/port"
	"github.com/anandvel/dispatch-hub/internal/domain/entity"
)

// AlertRepository handles mismatch alert database operations
type AlertRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *sql.DB, logger *zap.Logger) *AlertRepository {
	return &AlertRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a mismatch alert and fills in its assigned id.
func (r *AlertRepository) Create(ctx context.Context, alert *entity.MismatchAlert) error {
	invoiceIDs, err := json.Marshal(alert.InvoiceIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal invoice ids: %w", err)
	}

	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO mismatch_alerts (invoice_ids, customer_barcode, internal_barcode, severity, cleared, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		string(invoiceIDs),
		alert.CustomerBarcode,
		alert.InternalBarcode,
		string(alert.Severity),
		alert.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create alert", zap.Error(err))
		return fmt.Errorf("failed to create alert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	alert.ID = id
	return nil
}

// ListOpen returns all uncleared alerts, newest first.
func (r *AlertRepository) ListOpen(ctx context.Context) ([]*entity.MismatchAlert, error) {
	query := `
		SELECT id, invoice_ids, customer_barcode, internal_barcode, severity, cleared, created_at
		FROM mismatch_alerts
		WHERE cleared = 0
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list alerts", zap.Error(err))
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var out []*entity.MismatchAlert
	for rows.Next() {
		var alert entity.MismatchAlert
		var invoiceIDs, severity string
		err := rows.Scan(
			&alert.ID,
			&invoiceIDs,
			&alert.CustomerBarcode,
			&alert.InternalBarcode,
			&severity,
			&alert.Cleared,
			&alert.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if err := json.Unmarshal([]byte(invoiceIDs), &alert.InvoiceIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal invoice ids: %w", err)
		}
		alert.Severity = entity.AlertSeverity(severity)
		out = append(out, &alert)
	}
	return out, rows.Err()
}

// Clear marks an alert resolved.
func (r *AlertRepository) Clear(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE mismatch_alerts SET cleared = 1 WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to clear alert", zap.Int64("alert_id", id), zap.Error(err))
		return fmt.Errorf("failed to clear alert: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return port.NewStoreError(port.CodeNotFound, "alert %d not found", id)
	}
	return nil
}
