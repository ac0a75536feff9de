package reconcile

import (
	"strings"
	"time"

	"github.com/anandvel/dispatch-hub/internal/domain/entity"
)

// RejectReason is the typed reason a scan was not admitted. Callers choose
// user messaging from the reason, never from a free-form error string.
type RejectReason string

const (
	RejectWrongLabelType RejectReason = "wrong_label_type"
	RejectDuplicateBin   RejectReason = "duplicate_bin"
	RejectAlreadyLoaded  RejectReason = "already_loaded"
	RejectItemNotFound   RejectReason = "item_not_found"
)

// Match is an accepted scan: the resolved invoice line item plus a draft
// record ready to be persisted and then committed to the ledger.
type Match struct {
	InvoiceID string
	Line      entity.InvoiceLineItem
	// Ambiguous is set when the customer item code was present in more
	// than one selected invoice. The first candidate in selection order
	// wins; the flag makes the tie-break visible to the operator.
	Ambiguous bool
	Record    entity.ScanRecord
}

// Mismatch describes a cross-source mismatch during the document audit: the
// customer label and the internal label resolved to different line items.
// It is an escalation, not a rejection; both raw payloads are preserved for
// the alert record.
type Mismatch struct {
	CustomerRaw   string
	InternalRaw   string
	CustomerMatch Candidate
	InternalMatch Candidate
}

// Matcher turns one decoded barcode (or one doc-audit pair) into an
// admit/reject decision. It has no side effects; committing an accepted
// record is the caller's job, after persistence succeeds.
type Matcher struct {
	idx *ItemIndex
	now func() time.Time
}

// NewMatcher creates a matcher over the given index.
func NewMatcher(idx *ItemIndex) *Matcher {
	return &Matcher{idx: idx, now: time.Now}
}

// MatchLoading decides one scan in the loading/dispatch stage, which accepts
// only customer-typed labels. Gate order: label type, duplicate bin,
// duplicate raw text, then resolution.
func (m *Matcher) MatchLoading(bc entity.Barcode, selection []string, ledger *BinLedger) (*Match, RejectReason) {
	if bc.Type != entity.LabelCustomer {
		return nil, RejectWrongLabelType
	}
	if reason := m.duplicateGate(bc, ledger); reason != "" {
		return nil, reason
	}

	cands := m.idx.Resolve(bc.PartCode, selection)
	if len(cands) == 0 {
		return nil, RejectItemNotFound
	}

	match := &Match{
		InvoiceID: cands[0].InvoiceID,
		Line:      cands[0].Line,
		Ambiguous: len(cands) > 1,
	}
	match.Record = m.draftRecord(bc, cands[0], entity.ContextLoading)
	return match, ""
}

// MatchAudit decides one customer/internal scan pair in the document-audit
// stage. Both labels must resolve to the same line item; a disagreement is
// returned as a Mismatch escalation, not a rejection. The duplicate gate runs
// on both labels: bin numbers usually ride the customer label, but an
// internal label carrying one is checked the same way.
func (m *Matcher) MatchAudit(customer, internal entity.Barcode, selection []string, ledger *BinLedger) (*Match, *Mismatch, RejectReason) {
	if customer.Type != entity.LabelCustomer || internal.Type != entity.LabelInternal {
		return nil, nil, RejectWrongLabelType
	}
	if reason := m.duplicateGate(customer, ledger); reason != "" {
		return nil, nil, reason
	}
	if reason := m.duplicateGate(internal, ledger); reason != "" {
		return nil, nil, reason
	}

	custCands := m.idx.Resolve(customer.PartCode, selection)
	if len(custCands) == 0 {
		return nil, nil, RejectItemNotFound
	}
	intCands := m.idx.Resolve(internal.PartCode, selection)
	if len(intCands) == 0 {
		return nil, nil, RejectItemNotFound
	}

	cust, internalCand := custCands[0], intCands[0]
	if cust.InvoiceID != internalCand.InvoiceID || cust.Line.Key() != internalCand.Line.Key() {
		return nil, &Mismatch{
			CustomerRaw:   customer.RawValue,
			InternalRaw:   internal.RawValue,
			CustomerMatch: cust,
			InternalMatch: internalCand,
		}, ""
	}

	match := &Match{
		InvoiceID: cust.InvoiceID,
		Line:      cust.Line,
		Ambiguous: len(custCands) > 1,
	}
	match.Record = m.draftRecord(customer, cust, entity.ContextDocAudit)
	return match, nil, ""
}

func (m *Matcher) duplicateGate(bc entity.Barcode, ledger *BinLedger) RejectReason {
	bin := strings.TrimSpace(bc.BinNumber)
	if bin != "" && ledger.HasBin(bin) {
		return RejectDuplicateBin
	}
	if ledger.HasRaw(bc.RawValue) {
		return RejectAlreadyLoaded
	}
	return ""
}

func (m *Matcher) draftRecord(bc entity.Barcode, cand Candidate, scanCtx entity.ScanContext) entity.ScanRecord {
	return entity.ScanRecord{
		InvoiceID:   cand.InvoiceID,
		Item:        cand.Line.Key(),
		BinNumber:   strings.TrimSpace(bc.BinNumber),
		BinQuantity: ParseQuantity(bc.Quantity),
		RawValue:    bc.RawValue,
		Context:     scanCtx,
		CapturedAt:  m.now(),
	}
}
