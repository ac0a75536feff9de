package service

import (
	"context"
	"fmt"

	"github.com/anandvel/dispatch-hub/internal/application/port"
	"github.com/anandvel/dispatch-hub/internal/domain/entity"
	"github.com/anandvel/dispatch-hub/internal/ingest"
)

// ImportService loads invoices from planning workbooks into the store.
type ImportService interface {
	ImportWorkbook(ctx context.Context, path, sheet string) (int, error)
	ListInvoices(ctx context.Context, limit, offset int) ([]*entity.Invoice, error)
}

type importServiceImpl struct {
	invoiceRepo  port.InvoiceRepository
	defaultSheet string
	logger       Logger
}

// NewImportService creates an ImportService. defaultSheet is the workbook
// sheet read when a caller does not name one.
func NewImportService(invoiceRepo port.InvoiceRepository, defaultSheet string, logger Logger) ImportService {
	return &importServiceImpl{invoiceRepo: invoiceRepo, defaultSheet: defaultSheet, logger: logger}
}

// ImportWorkbook loads every invoice from the workbook and stores them,
// returning how many were imported. An invoice that already exists fails the
// whole import.
func (s *importServiceImpl) ImportWorkbook(ctx context.Context, path, sheet string) (int, error) {
	if sheet == "" {
		sheet = s.defaultSheet
	}
	invoices, err := ingest.LoadWorkbook(path, sheet)
	if err != nil {
		return 0, fmt.Errorf("load workbook: %w", err)
	}

	for i, inv := range invoices {
		if err := s.invoiceRepo.Create(ctx, inv); err != nil {
			return i, fmt.Errorf("store invoice %s: %w", inv.ID, err)
		}
	}

	s.logger.Info("Workbook imported", "path", path, "invoices", len(invoices))
	return len(invoices), nil
}

func (s *importServiceImpl) ListInvoices(ctx context.Context, limit, offset int) ([]*entity.Invoice, error) {
	invoices, err := s.invoiceRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}
