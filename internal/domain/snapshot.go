package domain

import (
	"errors"
	"fmt"
)

var ErrCorruptSnapshot = errors.New("stock snapshot is inconsistent")

// StockSnapshot is the persisted form of a Stock. Indexes are not stored;
// RestoreStock rebuilds them from the ledger and reservations.
type StockSnapshot struct {
	StockID            StockID                `json:"stockId"`
	ScanningLocationID ScanningLocationID     `json:"scanningLocationId"`
	Version            int64                  `json:"version"`
	DispatchMode       DispatchMode           `json:"dispatchMode"`
	Items              []ItemSnapshot         `json:"items"`
	Transactions       []TransactionSnapshot  `json:"transactions"`
	Reservations       []ReservationSnapshot  `json:"reservations"`
	DispatchReleases   []DispatchReleaseEntry `json:"dispatchReleases,omitempty"`
}

type ItemSnapshot struct {
	TaxStampTypeID TaxStampTypeID `json:"taxStampTypeId"`
	Quantity       int            `json:"quantity"`
}

type TransactionSnapshot struct {
	Seq             int64                `json:"seq"`
	Type            StockTransactionType `json:"type"`
	ArrivalEventID  *ArrivalEventID      `json:"arrivalEventId,omitempty"`
	DispatchEventID *DispatchEventID     `json:"dispatchEventId,omitempty"`
	Items           []ChangeLineSnapshot `json:"items"`
}

type ChangeLineSnapshot struct {
	TaxStampTypeID TaxStampTypeID `json:"taxStampTypeId"`
	Change         int            `json:"change"`
}

type QuantityLineSnapshot struct {
	TaxStampTypeID TaxStampTypeID `json:"taxStampTypeId"`
	Quantity       int            `json:"quantity"`
}

type ReservationSnapshot struct {
	WithdrawalRequestID WithdrawalRequestID    `json:"withdrawalRequestId"`
	Status              StockReservationStatus `json:"status"`
	Original            []QuantityLineSnapshot `json:"original"`
	Releases            []ReleaseSnapshot      `json:"releases,omitempty"`
}

type ReleaseSnapshot struct {
	DispatchEventID DispatchEventID        `json:"dispatchEventId"`
	Items           []QuantityLineSnapshot `json:"items"`
}

// DispatchReleaseEntry links a live dispatch event to the reservation it released.
type DispatchReleaseEntry struct {
	DispatchEventID     DispatchEventID     `json:"dispatchEventId"`
	WithdrawalRequestID WithdrawalRequestID `json:"withdrawalRequestId"`
}

func (s *Stock) Snapshot() StockSnapshot {
	snap := StockSnapshot{
		StockID:            s.id,
		ScanningLocationID: s.scanningLocationID,
		Version:            s.version,
		DispatchMode:       s.dispatchMode,
		Items:              make([]ItemSnapshot, 0, len(s.itemOrder)),
		Transactions:       make([]TransactionSnapshot, 0, len(s.transactions)),
		Reservations:       make([]ReservationSnapshot, 0, len(s.reservations)),
	}

	for _, id := range s.itemOrder {
		snap.Items = append(snap.Items, ItemSnapshot{TaxStampTypeID: id, Quantity: s.items[id].Quantity.Value()})
	}

	for _, t := range s.transactions {
		ts := TransactionSnapshot{
			Seq:             t.Seq,
			Type:            t.Type,
			ArrivalEventID:  cloneID(t.ArrivalEventID),
			DispatchEventID: cloneID(t.DispatchEventID),
			Items:           make([]ChangeLineSnapshot, 0, len(t.items)),
		}
		for _, it := range t.items {
			ts.Items = append(ts.Items, ChangeLineSnapshot{TaxStampTypeID: it.TaxStampTypeID, Change: it.QuantityChange.Value()})
		}
		snap.Transactions = append(snap.Transactions, ts)
	}

	for _, r := range s.reservations {
		rs := ReservationSnapshot{
			WithdrawalRequestID: r.WithdrawalRequestID,
			Status:              r.Status,
			Original:            quantityLines(r.original),
		}
		for _, rel := range r.releases {
			rs.Releases = append(rs.Releases, ReleaseSnapshot{DispatchEventID: rel.DispatchEventID, Items: quantityLines(rel.Items)})
		}
		snap.Reservations = append(snap.Reservations, rs)
	}

	// ledger order keeps the output stable
	seen := make(map[DispatchEventID]bool, len(s.releasedBy))
	for _, t := range s.transactions {
		if t.Type != TransactionDispatch || seen[*t.DispatchEventID] {
			continue
		}
		seen[*t.DispatchEventID] = true
		if wr, ok := s.releasedBy[*t.DispatchEventID]; ok {
			snap.DispatchReleases = append(snap.DispatchReleases, DispatchReleaseEntry{
				DispatchEventID:     *t.DispatchEventID,
				WithdrawalRequestID: wr,
			})
		}
	}
	return snap
}

// RestoreStock rebuilds a Stock from a snapshot and checks that every balance
// equals the signed sum of its ledger changes.
func RestoreStock(snap StockSnapshot) (*Stock, error) {
	if snap.StockID.IsZero() || snap.ScanningLocationID.IsZero() {
		return nil, fmt.Errorf("%w: missing identity", ErrCorruptSnapshot)
	}
	mode := snap.DispatchMode
	if mode == "" {
		mode = DispatchLedgerOnly
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: dispatch mode %q", ErrCorruptSnapshot, mode)
	}

	s := newStock(snap.StockID, snap.ScanningLocationID, WithDispatchMode(mode))
	s.version = snap.Version

	for _, it := range snap.Items {
		q, err := NewQuantity(it.Quantity)
		if err != nil {
			return nil, fmt.Errorf("%w: item %s: %w", ErrCorruptSnapshot, it.TaxStampTypeID, err)
		}
		if _, dup := s.items[it.TaxStampTypeID]; dup {
			return nil, fmt.Errorf("%w: item %s listed twice", ErrCorruptSnapshot, it.TaxStampTypeID)
		}
		s.item(it.TaxStampTypeID).Quantity = q
	}

	sums := make(map[TaxStampTypeID]int)
	for _, ts := range snap.Transactions {
		t, err := restoreTransaction(ts)
		if err != nil {
			return nil, err
		}
		if t.Seq <= s.nextSeq {
			return nil, fmt.Errorf("%w: ledger sequence %d out of order", ErrCorruptSnapshot, t.Seq)
		}
		for _, it := range t.items {
			sums[it.TaxStampTypeID] += it.QuantityChange.Value()
		}

		s.transactions = append(s.transactions, t)
		s.nextSeq = t.Seq
		key, _ := t.eventKey()
		if t.Reverts() {
			delete(s.live, key)
		} else {
			s.live[key] = len(s.transactions) - 1
		}
	}

	if len(sums) != len(s.items) {
		return nil, fmt.Errorf("%w: %d items but ledger touches %d types", ErrCorruptSnapshot, len(s.items), len(sums))
	}
	for typeID, sum := range sums {
		it, ok := s.items[typeID]
		if !ok || it.Quantity.Value() != sum {
			return nil, fmt.Errorf("%w: balance of %s does not match ledger sum %d", ErrCorruptSnapshot, typeID, sum)
		}
	}

	for _, rs := range snap.Reservations {
		r, err := restoreReservation(rs)
		if err != nil {
			return nil, err
		}
		if _, dup := s.reservationIndex[r.WithdrawalRequestID]; dup {
			return nil, fmt.Errorf("%w: reservation %s listed twice", ErrCorruptSnapshot, r.WithdrawalRequestID)
		}
		s.reservations = append(s.reservations, r)
		s.reservationIndex[r.WithdrawalRequestID] = r
	}

	for _, e := range snap.DispatchReleases {
		if _, ok := s.reservationIndex[e.WithdrawalRequestID]; !ok {
			return nil, fmt.Errorf("%w: dispatch %s released unknown reservation %s",
				ErrCorruptSnapshot, e.DispatchEventID, e.WithdrawalRequestID)
		}
		s.releasedBy[e.DispatchEventID] = e.WithdrawalRequestID
	}
	return s, nil
}

func restoreTransaction(ts TransactionSnapshot) (StockTransaction, error) {
	if (ts.ArrivalEventID == nil) == (ts.DispatchEventID == nil) {
		return StockTransaction{}, fmt.Errorf("%w: ledger entry %d needs exactly one event id", ErrCorruptSnapshot, ts.Seq)
	}
	switch ts.Type {
	case TransactionArrival, TransactionDispatch, TransactionRevert:
	default:
		return StockTransaction{}, fmt.Errorf("%w: ledger entry %d has type %q", ErrCorruptSnapshot, ts.Seq, ts.Type)
	}
	if len(ts.Items) == 0 {
		return StockTransaction{}, fmt.Errorf("%w: ledger entry %d has no lines", ErrCorruptSnapshot, ts.Seq)
	}

	t := StockTransaction{
		Seq:             ts.Seq,
		Type:            ts.Type,
		ArrivalEventID:  cloneID(ts.ArrivalEventID),
		DispatchEventID: cloneID(ts.DispatchEventID),
		items:           make([]StockTransactionItem, 0, len(ts.Items)),
	}
	for _, l := range ts.Items {
		c, err := NewQuantityChange(l.Change)
		if err != nil {
			return StockTransaction{}, fmt.Errorf("%w: ledger entry %d: %w", ErrCorruptSnapshot, ts.Seq, err)
		}
		t.items = append(t.items, StockTransactionItem{TaxStampTypeID: l.TaxStampTypeID, QuantityChange: c})
	}
	return t, nil
}

func restoreReservation(rs ReservationSnapshot) (*StockReservation, error) {
	original, err := reservationItems(rs.Original)
	if err != nil || len(original) == 0 {
		return nil, fmt.Errorf("%w: reservation %s original lines", ErrCorruptSnapshot, rs.WithdrawalRequestID)
	}

	r := &StockReservation{
		WithdrawalRequestID: rs.WithdrawalRequestID,
		Status:              ReservationActive,
		original:            original,
		remaining:           append([]StockReservationItem(nil), original...),
	}
	for _, rel := range rs.Releases {
		items, err := reservationItems(rel.Items)
		if err != nil {
			return nil, fmt.Errorf("%w: reservation %s release %s", ErrCorruptSnapshot, rs.WithdrawalRequestID, rel.DispatchEventID)
		}
		r.releases = append(r.releases, dispatchRelease{DispatchEventID: rel.DispatchEventID, Items: items})
	}
	r.recompute()

	switch rs.Status {
	case ReservationActive:
		if r.Status != ReservationActive {
			return nil, fmt.Errorf("%w: reservation %s is active with nothing remaining", ErrCorruptSnapshot, rs.WithdrawalRequestID)
		}
	case ReservationCompleted:
		// a completed reservation may keep releases that were later reverted
		r.Status = ReservationCompleted
		for i := range r.remaining {
			r.remaining[i].Quantity = ZeroQuantity
		}
	default:
		return nil, fmt.Errorf("%w: reservation %s has status %q", ErrCorruptSnapshot, rs.WithdrawalRequestID, rs.Status)
	}
	return r, nil
}

func quantityLines(items []StockReservationItem) []QuantityLineSnapshot {
	out := make([]QuantityLineSnapshot, 0, len(items))
	for _, it := range items {
		out = append(out, QuantityLineSnapshot{TaxStampTypeID: it.TaxStampTypeID, Quantity: it.Quantity.Value()})
	}
	return out
}

func reservationItems(lines []QuantityLineSnapshot) ([]StockReservationItem, error) {
	out := make([]StockReservationItem, 0, len(lines))
	for _, l := range lines {
		q, err := NewQuantity(l.Quantity)
		if err != nil {
			return nil, err
		}
		out = append(out, StockReservationItem{TaxStampTypeID: l.TaxStampTypeID, Quantity: q})
	}
	return out, nil
}
