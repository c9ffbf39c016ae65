package domain

type StockReservationStatus string

const (
	ReservationActive    StockReservationStatus = "ACTIVE"
	ReservationCompleted StockReservationStatus = "COMPLETED"

	// ReservationCreated is kept as an alias: a created reservation is active
	// until all of its remaining quantity has been dispatched.
	ReservationCreated = ReservationActive
)

type StockReservationItem struct {
	TaxStampTypeID TaxStampTypeID
	Quantity       Quantity
}

type dispatchRelease struct {
	DispatchEventID DispatchEventID
	Items           []StockReservationItem
}

// StockReservation is the claim a withdrawal request holds against future dispatches.
type StockReservation struct {
	WithdrawalRequestID WithdrawalRequestID
	Status              StockReservationStatus

	original  []StockReservationItem
	remaining []StockReservationItem
	// releases per dispatch event, in first-seen order
	releases []dispatchRelease
}

func NewStockReservation(withdrawalRequestID WithdrawalRequestID, quantities TaxStampQuantitySet) *StockReservation {
	original := make([]StockReservationItem, 0, quantities.Len())
	for _, l := range quantities.lines {
		original = append(original, StockReservationItem{TaxStampTypeID: l.TaxStampTypeID, Quantity: l.Quantity})
	}
	remaining := make([]StockReservationItem, len(original))
	copy(remaining, original)

	return &StockReservation{
		WithdrawalRequestID: withdrawalRequestID,
		Status:              ReservationActive,
		original:            original,
		remaining:           remaining,
	}
}

func (r *StockReservation) IsActive() bool { return r.Status == ReservationActive }

func (r *StockReservation) OriginalItems() []StockReservationItem {
	return append([]StockReservationItem(nil), r.original...)
}

func (r *StockReservation) RemainingItems() []StockReservationItem {
	return append([]StockReservationItem(nil), r.remaining...)
}

func (r *StockReservation) Remaining(typeID TaxStampTypeID) Quantity {
	for _, it := range r.remaining {
		if it.TaxStampTypeID == typeID {
			return it.Quantity
		}
	}
	return ZeroQuantity
}

// Release records what dispatch eventID took out of this reservation. Lines
// for types the reservation does not hold are ignored and every remaining
// line floors at zero. A second release for the same dispatch event replaces
// the first. Release never rejects.
func (r *StockReservation) Release(eventID DispatchEventID, dispatched TaxStampQuantitySet) bool {
	if r.Status == ReservationCompleted {
		return true
	}
	r.releases = r.withRelease(eventID, dispatched)
	r.recompute()
	return true
}

// Unrelease forgets the release made by a dispatch event that has been
// reverted. Completed reservations stay completed.
func (r *StockReservation) Unrelease(eventID DispatchEventID) {
	if r.Status == ReservationCompleted {
		return
	}
	for i, rel := range r.releases {
		if rel.DispatchEventID == eventID {
			r.releases = append(r.releases[:i:i], r.releases[i+1:]...)
			r.recompute()
			return
		}
	}
}

// remainingAfter previews Remaining(typeID) after Release(eventID, dispatched).
func (r *StockReservation) remainingAfter(eventID DispatchEventID, dispatched TaxStampQuantitySet, typeID TaxStampTypeID) Quantity {
	if r.Status == ReservationCompleted {
		return ZeroQuantity
	}
	return remainingFor(r.original, r.withRelease(eventID, dispatched), typeID)
}

func (r *StockReservation) withRelease(eventID DispatchEventID, dispatched TaxStampQuantitySet) []dispatchRelease {
	items := make([]StockReservationItem, 0, dispatched.Len())
	for _, l := range dispatched.lines {
		if r.holds(l.TaxStampTypeID) {
			items = append(items, StockReservationItem{TaxStampTypeID: l.TaxStampTypeID, Quantity: l.Quantity})
		}
	}

	out := make([]dispatchRelease, 0, len(r.releases)+1)
	replaced := false
	for _, rel := range r.releases {
		if rel.DispatchEventID == eventID {
			rel = dispatchRelease{DispatchEventID: eventID, Items: items}
			replaced = true
		}
		out = append(out, rel)
	}
	if !replaced {
		out = append(out, dispatchRelease{DispatchEventID: eventID, Items: items})
	}
	return out
}

func (r *StockReservation) holds(typeID TaxStampTypeID) bool {
	for _, it := range r.original {
		if it.TaxStampTypeID == typeID {
			return true
		}
	}
	return false
}

func (r *StockReservation) recompute() {
	completed := true
	for i, it := range r.original {
		q := remainingFor(r.original, r.releases, it.TaxStampTypeID)
		r.remaining[i] = StockReservationItem{TaxStampTypeID: it.TaxStampTypeID, Quantity: q}
		if !q.IsZero() {
			completed = false
		}
	}
	if completed {
		r.Status = ReservationCompleted
	}
}

func remainingFor(original []StockReservationItem, releases []dispatchRelease, typeID TaxStampTypeID) Quantity {
	var left Quantity
	for _, it := range original {
		if it.TaxStampTypeID == typeID {
			left = it.Quantity
			break
		}
	}
	for _, rel := range releases {
		for _, it := range rel.Items {
			if it.TaxStampTypeID == typeID {
				left = left.Sub(it.Quantity)
			}
		}
	}
	return left
}
