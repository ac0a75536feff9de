package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/anandvel/dispatch-hub/internal/application/port"
	"github.com/anandvel/dispatch-hub/internal/domain/entity"
)

// GatepassRepository handles gatepass database operations. The summary is
// stored as a JSON document keyed by gatepass number; it is written once at
// dispatch and only ever read back whole.
type GatepassRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewGatepassRepository creates a new gatepass repository
func NewGatepassRepository(db *sql.DB, logger *zap.Logger) *GatepassRepository {
	return &GatepassRepository{
		db:     db,
		logger: logger,
	}
}

// Save upserts an issued gatepass summary.
func (r *GatepassRepository) Save(ctx context.Context, summary *entity.GatepassSummary) error {
	doc, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal gatepass: %w", err)
	}

	query := `
		INSERT INTO gatepasses (number, customer_code, vehicle_number, issued_at, summary)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET summary = excluded.summary
	`
	_, err = r.db.ExecContext(ctx, query,
		summary.GatepassNumber,
		summary.CustomerCode,
		summary.VehicleNumber,
		summary.DispatchedAt,
		string(doc),
	)
	if err != nil {
		r.logger.Error("Failed to save gatepass", zap.String("gatepass", summary.GatepassNumber), zap.Error(err))
		return fmt.Errorf("failed to save gatepass: %w", err)
	}
	return nil
}

// GetByNumber retrieves an issued gatepass summary.
func (r *GatepassRepository) GetByNumber(ctx context.Context, number string) (*entity.GatepassSummary, error) {
	var doc string
	err := r.db.QueryRowContext(ctx,
		`SELECT summary FROM gatepasses WHERE number = ?`, number).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, port.NewStoreError(port.CodeNotFound, "gatepass %s not found", number)
	}
	if err != nil {
		r.logger.Error("Failed to get gatepass", zap.String("gatepass", number), zap.Error(err))
		return nil, fmt.Errorf("failed to get gatepass: %w", err)
	}

	var summary entity.GatepassSummary
	if err := json.Unmarshal([]byte(doc), &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gatepass: %w", err)
	}
	return &summary, nil
}
