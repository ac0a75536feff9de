package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anandvel/dispatch-hub/internal/application/port"
	"github.com/anandvel/dispatch-hub/internal/domain/audit"
	"github.com/anandvel/dispatch-hub/internal/domain/entity"
	"github.com/anandvel/dispatch-hub/internal/gatepass"
	"github.com/anandvel/dispatch-hub/internal/reconcile"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Additional rejection reasons surfaced by the session layer on top of the
// matcher's own taxonomy.
const (
	ReasonInvalidScan    reconcile.RejectReason = "invalid_scan"
	ReasonOverScan       reconcile.RejectReason = "over_scan"
	ReasonInvoiceBlocked reconcile.RejectReason = "invoice_blocked"
)

// OutcomeStatus classifies the result of submitting one barcode.
type OutcomeStatus string

const (
	OutcomeAccepted    OutcomeStatus = "accepted"
	OutcomeRejected    OutcomeStatus = "rejected"
	OutcomePairPending OutcomeStatus = "pair_pending"
	OutcomeEscalated   OutcomeStatus = "escalated"
)

// ScanOutcome is what the capture surface shows the operator after one scan
// event. Rejections always carry the typed reason and the conflicting
// identifiers so the operator can act without consulting logs.
type ScanOutcome struct {
	Status    OutcomeStatus          `json:"status"`
	Reason    reconcile.RejectReason `json:"reason,omitempty"`
	Detail    string                 `json:"detail,omitempty"`
	InvoiceID string                 `json:"invoice_id,omitempty"`
	Item      *entity.ItemKey        `json:"item,omitempty"`
	Ambiguous bool                   `json:"ambiguous,omitempty"`
	Progress  *entity.ItemProgress   `json:"progress,omitempty"`
	Alert     *entity.MismatchAlert  `json:"alert,omitempty"`
}

// ItemProgressView is one logical item's state in the session progress view.
type ItemProgressView struct {
	Key        entity.ItemKey      `json:"key"`
	Progress   entity.ItemProgress `json:"progress"`
	Complete   bool                `json:"complete"`
	InProgress bool                `json:"in_progress"`
	Focused    bool                `json:"focused"`
	Scans      []entity.ScanRecord `json:"scans"`
}

// InvoiceProgressView groups item progress per invoice, in the ledger's
// deterministic ordering.
type InvoiceProgressView struct {
	InvoiceID string             `json:"invoice_id"`
	State     audit.State        `json:"state"`
	Items     []ItemProgressView `json:"items"`
}

// SessionProgress is the full progress snapshot of the active session.
type SessionProgress struct {
	Context  entity.ScanContext    `json:"context"`
	Invoices []InvoiceProgressView `json:"invoices"`
}

// SessionService drives one scan session: invoice selection, scan
// reconciliation, audit lifecycle, and dispatch.
type SessionService interface {
	SelectInvoices(ctx context.Context, invoiceIDs []string, scanCtx entity.ScanContext) error
	SubmitScan(ctx context.Context, bc entity.Barcode) (*ScanOutcome, error)
	AbandonPair(ctx context.Context)
	RemoveScan(ctx context.Context, invoiceID, scanID string, index int) error
	Progress(ctx context.Context) (*SessionProgress, error)
	Dispatch(ctx context.Context, vehicleNumber string) (*entity.GatepassSummary, error)
	AdminUnblock(ctx context.Context, invoiceID string, alertID int64) error
	ListOpenAlerts(ctx context.Context) ([]*entity.MismatchAlert, error)
}

type sessionServiceImpl struct {
	// One decoded barcode event is handled to completion before the next
	// is accepted.
	mu sync.Mutex

	store        port.ScanStore
	invoiceRepo  port.InvoiceRepository
	alertRepo    port.AlertRepository
	gatepassRepo port.GatepassRepository
	builder      *gatepass.Builder
	logger       Logger
	user         string

	scanCtx   entity.ScanContext
	selection []string
	invoices  map[string]*entity.Invoice
	matcher   *reconcile.Matcher
	ledger    *reconcile.BinLedger
	pairing   *reconcile.Pairing
	lifecycle *audit.Lifecycle
}

// NewSessionService creates a SessionService for the given operator.
func NewSessionService(
	store port.ScanStore,
	invoiceRepo port.InvoiceRepository,
	alertRepo port.AlertRepository,
	gatepassRepo port.GatepassRepository,
	user string,
	logger Logger,
) SessionService {
	return &sessionServiceImpl{
		store:        store,
		invoiceRepo:  invoiceRepo,
		alertRepo:    alertRepo,
		gatepassRepo: gatepassRepo,
		builder:      gatepass.NewBuilder(),
		logger:       logger,
		user:         user,
		ledger:       reconcile.NewBinLedger(),
		pairing:      reconcile.NewPairing(),
	}
}

// SelectInvoices activates a set of invoices for the given stage and
// replaces local ledger state with the server's authoritative scan list.
// Last full read wins; nothing is mutated if any fetch fails.
func (s *sessionServiceImpl) SelectInvoices(ctx context.Context, invoiceIDs []string, scanCtx entity.ScanContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(invoiceIDs) == 0 {
		return fmt.Errorf("no invoices selected")
	}

	invoices, err := s.invoiceRepo.GetByIDs(ctx, invoiceIDs)
	if err != nil {
		return fmt.Errorf("load invoices: %w", err)
	}
	if len(invoices) != len(invoiceIDs) {
		return fmt.Errorf("selection references unknown invoices: asked %d, found %d", len(invoiceIDs), len(invoices))
	}

	var hydrated []entity.ScanRecord
	for _, id := range invoiceIDs {
		scans, err := s.store.GetScans(ctx, id, scanCtx)
		if err != nil {
			return fmt.Errorf("fetch scans for %s: %w", id, err)
		}
		for _, rec := range scans {
			parsed := port.ParseScanRecord(rec)
			if !parsed.OK {
				s.logger.Error("Dropping malformed persisted scan", "invoice_id", id, "reason", parsed.Invalid)
				continue
			}
			hydrated = append(hydrated, parsed.Value)
		}
	}

	s.scanCtx = scanCtx
	s.selection = append([]string(nil), invoiceIDs...)
	s.invoices = make(map[string]*entity.Invoice, len(invoices))
	for _, inv := range invoices {
		s.invoices[inv.ID] = inv
	}
	s.matcher = reconcile.NewMatcher(reconcile.NewItemIndex(invoices))
	s.ledger.Replace(invoiceIDs, hydrated)
	s.pairing.Clear()
	s.lifecycle = audit.NewLifecycle(invoices, func(invoiceID string) bool {
		inv := s.invoices[invoiceID]
		return inv != nil && s.ledger.InvoiceComplete(inv)
	})

	s.logger.Info("Session invoices selected",
		"context", string(scanCtx),
		"invoices", len(invoiceIDs),
		"hydrated_scans", len(hydrated),
	)
	return nil
}

// SubmitScan handles one decoded barcode event to completion.
func (s *sessionServiceImpl) SubmitScan(ctx context.Context, bc entity.Barcode) (*ScanOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.selection) == 0 {
		return nil, fmt.Errorf("no active invoice selection")
	}

	parsed := port.ParseBarcode(bc)
	if !parsed.OK {
		return &ScanOutcome{Status: OutcomeRejected, Reason: ReasonInvalidScan, Detail: parsed.Invalid}, nil
	}
	bc = parsed.Value

	if s.scanCtx == entity.ContextLoading {
		match, reason := s.matcher.MatchLoading(bc, s.selection, s.ledger)
		if reason != "" {
			return s.rejected(reason, bc), nil
		}
		return s.commit(ctx, match, "")
	}

	// Document audit: pair customer and internal labels before matching.
	if ready := s.pairing.Submit(bc); !ready {
		return &ScanOutcome{Status: OutcomePairPending}, nil
	}
	customer, internal, _ := s.pairing.Pair()

	match, mismatch, reason := s.matcher.MatchAudit(customer, internal, s.selection, s.ledger)
	if reason != "" {
		s.pairing.Clear()
		return s.rejected(reason, customer), nil
	}
	if mismatch != nil {
		s.pairing.Clear()
		return s.escalate(ctx, mismatch)
	}
	return s.commit(ctx, match, internal.RawValue)
}

// AbandonPair is the operator's explicit clear-scan action.
func (s *sessionServiceImpl) AbandonPair(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairing.Clear()
}

func (s *sessionServiceImpl) rejected(reason reconcile.RejectReason, bc entity.Barcode) *ScanOutcome {
	out := &ScanOutcome{Status: OutcomeRejected, Reason: reason}
	switch reason {
	case reconcile.RejectDuplicateBin:
		out.Detail = fmt.Sprintf("bin %s already scanned", bc.BinNumber)
	case reconcile.RejectAlreadyLoaded:
		out.Detail = fmt.Sprintf("barcode %s already loaded", bc.RawValue)
	case reconcile.RejectItemNotFound:
		out.Detail = fmt.Sprintf("item %s not on any selected invoice", bc.PartCode)
	case reconcile.RejectWrongLabelType:
		out.Detail = fmt.Sprintf("label type %s not accepted in this stage", bc.Type)
	}
	return out
}

// escalate handles a cross-source mismatch: record the alert and block every
// selected invoice until an admin clears it.
func (s *sessionServiceImpl) escalate(ctx context.Context, mismatch *reconcile.Mismatch) (*ScanOutcome, error) {
	alert := &entity.MismatchAlert{
		InvoiceIDs:      append([]string(nil), s.selection...),
		CustomerBarcode: mismatch.CustomerRaw,
		InternalBarcode: mismatch.InternalRaw,
		Severity:        entity.SeverityCritical,
		CreatedAt:       time.Now(),
	}
	if err := s.alertRepo.Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("record mismatch alert: %w", err)
	}

	for _, id := range s.selection {
		if err := s.lifecycle.Block(ctx, id); err != nil {
			s.logger.Error("Failed to block invoice", "invoice_id", id, "error", err)
		}
		s.persistFlags(ctx, id)
	}

	s.logger.Error("Cross-source mismatch, invoices blocked",
		"customer_match", mismatch.CustomerMatch.InvoiceID,
		"internal_match", mismatch.InternalMatch.InvoiceID,
		"blocked", len(s.selection),
	)
	return &ScanOutcome{
		Status: OutcomeEscalated,
		Reason: "cross_source_mismatch",
		Detail: fmt.Sprintf("customer label resolved to %s, internal label to %s",
			mismatch.CustomerMatch.InvoiceID, mismatch.InternalMatch.InvoiceID),
		Alert: alert,
	}, nil
}

// commit persists an accepted match and only then applies it to the local
// ledger, so a rejected server write never shows as loaded.
func (s *sessionServiceImpl) commit(ctx context.Context, match *reconcile.Match, internalBarcode string) (*ScanOutcome, error) {
	if !s.lifecycle.AcceptsScans(match.InvoiceID) {
		s.pairing.Clear()
		return &ScanOutcome{
			Status:    OutcomeRejected,
			Reason:    ReasonInvoiceBlocked,
			InvoiceID: match.InvoiceID,
			Detail:    fmt.Sprintf("invoice %s is %s", match.InvoiceID, s.lifecycle.StateOf(match.InvoiceID)),
		}, nil
	}

	rec := match.Record
	req := port.RecordScanRequest{
		CustomerBarcode: rec.RawValue,
		InternalBarcode: internalBarcode,
		CustomerItem:    rec.Item.CustomerItem,
		ItemNumber:      rec.Item.ItemNumber,
		PartDescription: match.Line.Description,
		Quantity:        match.Line.InvoicedQty,
		BinQuantity:     rec.BinQuantity,
		BinNumber:       rec.BinNumber,
		Status:          "SCANNED",
		ScanContext:     rec.Context,
	}

	res, err := s.store.RecordScan(ctx, match.InvoiceID, req)
	if err != nil {
		return s.handleStoreRejection(ctx, match, err)
	}

	s.pairing.Clear()
	rec.ScanID = res.ScanID
	s.ledger.Append(rec)
	if err := s.lifecycle.NoteScan(ctx, match.InvoiceID); err != nil {
		s.logger.Error("Lifecycle transition failed", "invoice_id", match.InvoiceID, "error", err)
	}
	s.persistFlags(ctx, match.InvoiceID)

	progress := s.ledger.ProgressFor(s.invoices[match.InvoiceID], rec.Item)
	item := rec.Item
	return &ScanOutcome{
		Status:    OutcomeAccepted,
		InvoiceID: match.InvoiceID,
		Item:      &item,
		Ambiguous: match.Ambiguous,
		Progress:  &progress,
	}, nil
}

// handleStoreRejection maps structured store failures onto the session. A
// duplicate or over-scan surfaced by the store means another writer got
// there first, which blocks the invoice until an admin reviews it. A
// transport failure leaves local state untouched and is never retried
// automatically.
func (s *sessionServiceImpl) handleStoreRejection(ctx context.Context, match *reconcile.Match, err error) (*ScanOutcome, error) {
	s.pairing.Clear()
	switch port.CodeOf(err) {
	case port.CodeDuplicate:
		s.blockFromStore(ctx, match.InvoiceID, "duplicate")
		return &ScanOutcome{
			Status:    OutcomeRejected,
			Reason:    reconcile.RejectAlreadyLoaded,
			InvoiceID: match.InvoiceID,
			Detail:    fmt.Sprintf("store reports duplicate scan for invoice %s", match.InvoiceID),
		}, nil
	case port.CodeOverScan:
		s.blockFromStore(ctx, match.InvoiceID, "over-scan")
		return &ScanOutcome{
			Status:    OutcomeRejected,
			Reason:    ReasonOverScan,
			InvoiceID: match.InvoiceID,
			Detail:    fmt.Sprintf("store reports over-scan for invoice %s", match.InvoiceID),
		}, nil
	case port.CodeInvoiceBlocked:
		if blockErr := s.lifecycle.Block(ctx, match.InvoiceID); blockErr != nil {
			s.logger.Error("Failed to mirror store block", "invoice_id", match.InvoiceID, "error", blockErr)
		}
		s.persistFlags(ctx, match.InvoiceID)
		return &ScanOutcome{
			Status:    OutcomeRejected,
			Reason:    ReasonInvoiceBlocked,
			InvoiceID: match.InvoiceID,
			Detail:    fmt.Sprintf("invoice %s is blocked", match.InvoiceID),
		}, nil
	default:
		// Transport failure: local state unmodified, operator re-attempts.
		return nil, fmt.Errorf("record scan: %w", err)
	}
}

func (s *sessionServiceImpl) blockFromStore(ctx context.Context, invoiceID, signal string) {
	if err := s.lifecycle.Block(ctx, invoiceID); err != nil {
		s.logger.Error("Failed to block invoice", "invoice_id", invoiceID, "error", err)
		return
	}
	s.persistFlags(ctx, invoiceID)
	s.logger.Warn("Invoice blocked on persistence signal", "invoice_id", invoiceID, "signal", signal)
}

// RemoveScan deletes one accepted scan. When the scan id is unknown locally
// the persisted id is looked up by position; a scan already removed remotely
// degrades to a local-only removal instead of erroring.
func (s *sessionServiceImpl) RemoveScan(ctx context.Context, invoiceID, scanID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if scanID == "" {
		scans, err := s.store.GetScans(ctx, invoiceID, s.scanCtx)
		if err != nil {
			return fmt.Errorf("locate scan for removal: %w", err)
		}
		if index >= 0 && index < len(scans) {
			scanID = scans[index].ScanID
		}
	}

	if scanID != "" {
		if err := s.store.DeleteScan(ctx, invoiceID, scanID); err != nil {
			if port.CodeOf(err) != port.CodeNotFound {
				return fmt.Errorf("delete scan: %w", err)
			}
			s.logger.Warn("Scan already removed remotely, removing locally", "invoice_id", invoiceID, "scan_id", scanID)
		}
		s.ledger.Remove(invoiceID, scanID)
		return nil
	}

	if !s.ledger.RemoveAt(invoiceID, index) {
		s.logger.Warn("No local scan at position", "invoice_id", invoiceID, "index", index)
	}
	return nil
}

// Progress returns the session's grouped progress snapshot.
func (s *sessionServiceImpl) Progress(ctx context.Context) (*SessionProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.selection) == 0 {
		return nil, fmt.Errorf("no active invoice selection")
	}

	focusedInvoice, focusedItem, hasFocus := s.ledger.FocusedItem()

	out := &SessionProgress{Context: s.scanCtx}
	for _, group := range s.ledger.GroupByInvoiceThenItem() {
		inv := s.invoices[group.InvoiceID]
		if inv == nil {
			continue
		}
		view := InvoiceProgressView{
			InvoiceID: group.InvoiceID,
			State:     s.lifecycle.StateOf(group.InvoiceID),
		}
		for _, item := range group.Items {
			p := s.ledger.ProgressFor(inv, item.Key)
			view.Items = append(view.Items, ItemProgressView{
				Key:        item.Key,
				Progress:   p,
				Complete:   p.Complete(),
				InProgress: p.InProgress(),
				Focused:    hasFocus && group.InvoiceID == focusedInvoice && item.Key == focusedItem,
				Scans:      item.Scans,
			})
		}
		out.Invoices = append(out.Invoices, view)
	}
	return out, nil
}

// Dispatch closes out the session onto one vehicle. The server response is
// authoritative: local state is discarded and the summary rebuilt from the
// returned scan list, with local totals cross-checked as a warning only.
func (s *sessionServiceImpl) Dispatch(ctx context.Context, vehicleNumber string) (*entity.GatepassSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.selection) == 0 {
		return nil, fmt.Errorf("no active invoice selection")
	}
	if vehicleNumber == "" {
		return nil, fmt.Errorf("vehicle number is required")
	}
	for _, id := range s.selection {
		if state := s.lifecycle.StateOf(id); state != audit.StateAuditComplete {
			return nil, fmt.Errorf("invoice %s is %s, not %s", id, state, audit.StateAuditComplete)
		}
	}

	localBins := 0
	localQty := 0.0
	var barcodes []string
	for _, id := range s.selection {
		for _, rec := range s.ledger.RecordsFor(id) {
			barcodes = append(barcodes, rec.RawValue)
			localBins++
			localQty += rec.BinQuantity
		}
	}

	res, err := s.store.Dispatch(ctx, port.DispatchRequest{
		InvoiceIDs:     append([]string(nil), s.selection...),
		VehicleNumber:  vehicleNumber,
		LoadedBarcodes: barcodes,
		IssuedBy:       s.user,
	})
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	var records []entity.ScanRecord
	for _, rec := range res.LoadedScans {
		parsed := port.ParseScanRecord(rec)
		if !parsed.OK {
			s.logger.Error("Dropping malformed dispatched scan", "reason", parsed.Invalid)
			continue
		}
		records = append(records, parsed.Value)
	}

	customerCode := res.CustomerCode
	if customerCode == "" {
		// Fall back to the first selected invoice's customer.
		if inv := s.invoices[s.selection[0]]; inv != nil {
			customerCode = inv.CustomerCode
		}
	}

	summary := s.builder.Build(gatepass.BuildInput{
		GatepassNumber: res.GatepassNumber,
		VehicleNumber:  vehicleNumber,
		IssuedBy:       s.user,
		CustomerCode:   customerCode,
		DispatchedAt:   res.DispatchDate,
		Delivery:       res.SupplyDates,
		Lines:          gatepass.NormalizeRecords(records),
	})

	if res.LoadedBinsCount != nil && *res.LoadedBinsCount != localBins {
		s.logger.Warn("Dispatch bin total differs from local ledger",
			"server_bins", *res.LoadedBinsCount, "local_bins", localBins)
	}
	if res.LoadedQty != nil && *res.LoadedQty != localQty {
		s.logger.Warn("Dispatch quantity total differs from local ledger",
			"server_qty", *res.LoadedQty, "local_qty", localQty)
	}

	if err := s.gatepassRepo.Save(ctx, &summary); err != nil {
		s.logger.Error("Failed to persist gatepass", "gatepass", summary.GatepassNumber, "error", err)
	}

	for _, id := range s.selection {
		if err := s.lifecycle.Dispatch(ctx, id); err != nil {
			s.logger.Error("Failed to mark invoice dispatched", "invoice_id", id, "error", err)
			continue
		}
		s.persistFlags(ctx, id)
		if delivery := res.SupplyDates[id]; delivery != nil {
			if err := s.invoiceRepo.SetDelivery(ctx, id, delivery); err != nil {
				s.logger.Error("Failed to persist delivery info", "invoice_id", id, "error", err)
			}
		}
	}

	// Local optimistic state for these invoices is discarded; the server
	// response has been folded into the summary already.
	s.ledger.Replace(s.selection, nil)

	s.logger.Info("Dispatch completed",
		"gatepass", summary.GatepassNumber,
		"vehicle", vehicleNumber,
		"invoices", len(s.selection),
		"bins", summary.TotalBins,
	)
	return &summary, nil
}

// AdminUnblock clears a mismatch alert and moves the invoice to
// corrected-pending-admin. This is the only unblock path; the scan surface
// has none.
func (s *sessionServiceImpl) AdminUnblock(ctx context.Context, invoiceID string, alertID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if alertID > 0 {
		if err := s.alertRepo.Clear(ctx, alertID); err != nil {
			return fmt.Errorf("clear alert: %w", err)
		}
	}
	if err := s.lifecycle.AdminClear(ctx, invoiceID); err != nil {
		return fmt.Errorf("unblock invoice %s: %w", invoiceID, err)
	}
	s.persistFlags(ctx, invoiceID)
	s.logger.Info("Invoice unblocked by admin", "invoice_id", invoiceID, "alert_id", alertID)
	return nil
}

// ListOpenAlerts returns all uncleared mismatch alerts for the admin
// surface.
func (s *sessionServiceImpl) ListOpenAlerts(ctx context.Context) ([]*entity.MismatchAlert, error) {
	alerts, err := s.alertRepo.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

// persistFlags writes the lifecycle-derived flags back to the invoice
// record. Failures are logged, not fatal: the session remains authoritative
// until the next hydration.
func (s *sessionServiceImpl) persistFlags(ctx context.Context, invoiceID string) {
	inv := s.invoices[invoiceID]
	if inv == nil {
		return
	}
	s.lifecycle.ApplyTo(inv)
	if err := s.invoiceRepo.UpdateFlags(ctx, inv.ID, inv.AuditCompleted, inv.Dispatched, inv.Blocked); err != nil {
		s.logger.Error("Failed to persist invoice flags", "invoice_id", inv.ID, "error", err)
	}
}
