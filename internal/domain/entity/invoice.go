package entity

// Invoice represents one uploaded outbound invoice with its line items.
// Invoices are created by the ingestion step and live for the whole scan
// session; only the audit lifecycle and the dispatch confirmation mutate them.
type Invoice struct {
	ID             string            `json:"id"`
	CustomerName   string            `json:"customer_name"`
	CustomerCode   string            `json:"customer_code"`
	LineItems      []InvoiceLineItem `json:"line_items"`
	AuditCompleted bool              `json:"audit_completed"`
	Dispatched     bool              `json:"dispatched"`
	Blocked        bool              `json:"blocked"`
	Delivery       *DeliveryInfo     `json:"delivery,omitempty"`
}

// InvoiceLineItem is one line of an invoice. The (CustomerItem, ItemNumber)
// pair is NOT unique within an invoice; upstream data repeats logical keys
// across distinct lines, so quantities must be aggregated when grouping.
type InvoiceLineItem struct {
	CustomerItem string  `json:"customer_item"`
	ItemNumber   string  `json:"item_number"`
	Description  string  `json:"description"`
	InvoicedQty  float64 `json:"invoiced_qty"`
	ExpectedBins int     `json:"expected_bins"`
}

// Key returns the logical item key for this line.
func (l InvoiceLineItem) Key() ItemKey {
	return ItemKey{CustomerItem: l.CustomerItem, ItemNumber: l.ItemNumber}
}

// DeliveryInfo holds the delivery metadata filled in once audit completes.
type DeliveryInfo struct {
	Date           string `json:"date"`
	Time           string `json:"time"`
	UnloadingPoint string `json:"unloading_point"`
}

// ItemKey identifies a logical item: the customer's part-number code paired
// with the internal item number.
type ItemKey struct {
	CustomerItem string `json:"customer_item"`
	ItemNumber   string `json:"item_number"`
}

// String renders the key in "customerItem/itemNumber" form for logs and
// lexicographic tie-breaks.
func (k ItemKey) String() string {
	return k.CustomerItem + "/" + k.ItemNumber
}

// Less orders keys lexicographically by customer item, then item number.
func (k ItemKey) Less(other ItemKey) bool {
	if k.CustomerItem != other.CustomerItem {
		return k.CustomerItem < other.CustomerItem
	}
	return k.ItemNumber < other.ItemNumber
}
