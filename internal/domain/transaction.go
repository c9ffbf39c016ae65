package domain

type StockTransactionType string

const (
	TransactionArrival  StockTransactionType = "ARRIVAL"
	TransactionDispatch StockTransactionType = "DISPATCH"
	TransactionRevert   StockTransactionType = "REVERT"
)

type StockTransactionItem struct {
	TaxStampTypeID TaxStampTypeID
	QuantityChange QuantityChange
}

// StockTransaction is one immutable ledger entry. At most one of
// ArrivalEventID and DispatchEventID is set.
type StockTransaction struct {
	Seq             int64
	Type            StockTransactionType
	ArrivalEventID  *ArrivalEventID
	DispatchEventID *DispatchEventID
	items           []StockTransactionItem
}

func CreateArrival(eventID ArrivalEventID, quantities TaxStampQuantitySet) StockTransaction {
	items := make([]StockTransactionItem, 0, quantities.Len())
	for _, l := range quantities.lines {
		items = append(items, StockTransactionItem{
			TaxStampTypeID: l.TaxStampTypeID,
			QuantityChange: PositiveChange(l.Quantity),
		})
	}
	return StockTransaction{
		Type:           TransactionArrival,
		ArrivalEventID: &eventID,
		items:          items,
	}
}

func CreateDispatch(eventID DispatchEventID, quantities TaxStampQuantitySet) StockTransaction {
	items := make([]StockTransactionItem, 0, quantities.Len())
	for _, l := range quantities.lines {
		items = append(items, StockTransactionItem{
			TaxStampTypeID: l.TaxStampTypeID,
			QuantityChange: NegativeChange(l.Quantity),
		})
	}
	return StockTransaction{
		Type:            TransactionDispatch,
		DispatchEventID: &eventID,
		items:           items,
	}
}

// CreateRevert builds the entry that cancels t. The source entry is not touched.
func CreateRevert(t StockTransaction) StockTransaction {
	items := make([]StockTransactionItem, 0, len(t.items))
	for _, it := range t.items {
		items = append(items, StockTransactionItem{
			TaxStampTypeID: it.TaxStampTypeID,
			QuantityChange: it.QuantityChange.Negate(),
		})
	}
	return StockTransaction{
		Type:            TransactionRevert,
		ArrivalEventID:  cloneID(t.ArrivalEventID),
		DispatchEventID: cloneID(t.DispatchEventID),
		items:           items,
	}
}

func (t StockTransaction) Items() []StockTransactionItem {
	out := make([]StockTransactionItem, len(t.items))
	copy(out, t.items)
	return out
}

// Reverts reports whether t is the revert counter-entry for an event.
func (t StockTransaction) Reverts() bool { return t.Type == TransactionRevert }

// eventKey identifies the external event that caused t.
func (t StockTransaction) eventKey() (eventKey, bool) {
	switch {
	case t.ArrivalEventID != nil:
		return eventKey{kind: TransactionArrival, id: t.ArrivalEventID.UUID}, true
	case t.DispatchEventID != nil:
		return eventKey{kind: TransactionDispatch, id: t.DispatchEventID.UUID}, true
	default:
		return eventKey{}, false
	}
}

func cloneID[T any](id *T) *T {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
