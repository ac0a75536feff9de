package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anandvel/dispatch-hub/internal/application/service"
	"github.com/anandvel/dispatch-hub/internal/domain/entity"
	"github.com/anandvel/dispatch-hub/internal/gatepass"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	sessionService  service.SessionService
	gatepassService service.GatepassService
	importService   service.ImportService
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	sessionService service.SessionService,
	gatepassService service.GatepassService,
	importService service.ImportService,
	logger Logger,
) *Handlers {
	return &Handlers{
		sessionService:  sessionService,
		gatepassService: gatepassService,
		importService:   importService,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SelectInvoicesRequest selects the invoices for a scan session stage.
type SelectInvoicesRequest struct {
	InvoiceIDs []string `json:"invoice_ids" binding:"required"`
	Context    string   `json:"context" binding:"required"`
}

// SubmitScanRequest carries one decoded barcode event.
type SubmitScanRequest struct {
	Barcode entity.Barcode `json:"barcode" binding:"required"`
}

// DispatchRequest closes the session out onto a vehicle.
type DispatchRequest struct {
	VehicleNumber string `json:"vehicle_number" binding:"required"`
}

// AdminUnblockRequest clears an alert and unblocks its invoice.
type AdminUnblockRequest struct {
	InvoiceID string `json:"invoice_id" binding:"required"`
	AlertID   int64  `json:"alert_id"`
}

// ImportRequest points at a workbook to load invoices from.
type ImportRequest struct {
	Path  string `json:"path" binding:"required"`
	Sheet string `json:"sheet"`
}

// DecodeQRRequest carries a scanned QR string to interpret.
type DecodeQRRequest struct {
	Data string `json:"data"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// SelectInvoices handles POST /api/session/select
func (h *Handlers) SelectInvoices(c *gin.Context) {
	var req SelectInvoicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	var scanCtx entity.ScanContext
	switch req.Context {
	case string(entity.ContextDocAudit):
		scanCtx = entity.ContextDocAudit
	case string(entity.ContextLoading):
		scanCtx = entity.ContextLoading
	default:
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "unknown scan context"})
		return
	}

	if err := h.sessionService.SelectInvoices(c.Request.Context(), req.InvoiceIDs, scanCtx); err != nil {
		h.logger.Error("Failed to select invoices", "error", err)
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// SubmitScan handles POST /api/session/scan
func (h *Handlers) SubmitScan(c *gin.Context) {
	var req SubmitScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	outcome, err := h.sessionService.SubmitScan(c.Request.Context(), req.Barcode)
	if err != nil {
		h.logger.Error("Scan submission failed", "error", err)
		c.JSON(http.StatusBadGateway, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: outcome})
}

// AbandonPair handles POST /api/session/pair/abandon
func (h *Handlers) AbandonPair(c *gin.Context) {
	h.sessionService.AbandonPair(c.Request.Context())
	c.JSON(http.StatusOK, Response{Success: true})
}

// RemoveScan handles DELETE /api/session/scans
func (h *Handlers) RemoveScan(c *gin.Context) {
	invoiceID := c.Query("invoice_id")
	if invoiceID == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invoice_id is required"})
		return
	}
	scanID := c.Query("scan_id")
	index := -1
	if raw := c.Query("index"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid index"})
			return
		}
		index = parsed
	}
	if scanID == "" && index < 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "scan_id or index is required"})
		return
	}

	if err := h.sessionService.RemoveScan(c.Request.Context(), invoiceID, scanID, index); err != nil {
		h.logger.Error("Failed to remove scan", "invoice_id", invoiceID, "error", err)
		c.JSON(http.StatusBadGateway, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// Progress handles GET /api/session/progress
func (h *Handlers) Progress(c *gin.Context) {
	progress, err := h.sessionService.Progress(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: progress})
}

// Dispatch handles POST /api/session/dispatch
func (h *Handlers) Dispatch(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	summary, err := h.sessionService.Dispatch(c.Request.Context(), req.VehicleNumber)
	if err != nil {
		h.logger.Error("Dispatch failed", "error", err)
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// ListAlerts handles GET /api/alerts
func (h *Handlers) ListAlerts(c *gin.Context) {
	alerts, err := h.sessionService.ListOpenAlerts(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list alerts", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: alerts})
}

// AdminUnblock handles POST /api/admin/unblock
func (h *Handlers) AdminUnblock(c *gin.Context) {
	var req AdminUnblockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	if err := h.sessionService.AdminUnblock(c.Request.Context(), req.InvoiceID, req.AlertID); err != nil {
		h.logger.Error("Failed to unblock invoice", "invoice_id", req.InvoiceID, "error", err)
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// ListInvoices handles GET /api/invoices
func (h *Handlers) ListInvoices(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	invoices, err := h.importService.ListInvoices(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list invoices", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: invoices})
}

// ImportInvoices handles POST /api/invoices/import
func (h *Handlers) ImportInvoices(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	// An empty sheet falls back to the configured default.
	count, err := h.importService.ImportWorkbook(c.Request.Context(), req.Path, req.Sheet)
	if err != nil {
		h.logger.Error("Workbook import failed", "path", req.Path, "error", err)
		c.JSON(http.StatusUnprocessableEntity, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"imported": count}})
}

// GetGatepass handles GET /api/gatepasses/:number
func (h *Handlers) GetGatepass(c *gin.Context) {
	summary, err := h.gatepassService.Get(c.Request.Context(), c.Param("number"))
	if err != nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// EncodeGatepassQR handles GET /api/gatepasses/:number/qr
func (h *Handlers) EncodeGatepassQR(c *gin.Context) {
	encoded, err := h.gatepassService.EncodeQR(c.Request.Context(), c.Param("number"))
	if err != nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"qr": encoded}})
}

// DecodeGatepassQR handles POST /api/gatepasses/decode
func (h *Handlers) DecodeGatepassQR(c *gin.Context) {
	var req DecodeQRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	decoded := h.gatepassService.DecodeQR(c.Request.Context(), req.Data)
	if decoded.Kind == gatepass.DecodeInvalid {
		detail := "unrecognized payload"
		if decoded.Err != nil {
			detail = decoded.Err.Error()
		}
		c.JSON(http.StatusUnprocessableEntity, Response{Success: false, Error: detail})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: decoded})
}
