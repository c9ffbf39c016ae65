package domain

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
)

var (
	ErrMissingIdentity        = errors.New("identity is required")
	ErrUnknownTaxStampType    = errors.New("tax stamp type is not stocked at this location")
	ErrInsufficientQuantity   = errors.New("insufficient quantity")
	ErrInsufficientReservable = errors.New("insufficient quantity to reserve")
	ErrReservationNotFound    = errors.New("no reservation for withdrawal request")
	ErrReservationExists      = errors.New("reservation already exists for withdrawal request")
	ErrRedeliveryRejected     = errors.New("previous delivery reverted but corrected payload was rejected")
)

// DispatchMode decides whether a dispatch needs a prior reservation.
type DispatchMode string

const (
	DispatchLedgerOnly          DispatchMode = "ledger-only"
	DispatchRequiresReservation DispatchMode = "reservation-required"
)

func (m DispatchMode) Valid() bool {
	return m == DispatchLedgerOnly || m == DispatchRequiresReservation
}

type Option func(*Stock)

func WithDispatchMode(mode DispatchMode) Option {
	return func(s *Stock) { s.dispatchMode = mode }
}

type eventKey struct {
	kind StockTransactionType
	id   uuid.UUID
}

// Stock is the aggregate for all tax stamps held at one scanning location.
// It is not safe for concurrent use; callers serialise access per location.
type Stock struct {
	id                 StockID
	scanningLocationID ScanningLocationID
	version            int64
	dispatchMode       DispatchMode

	items     map[TaxStampTypeID]*StockItem
	itemOrder []TaxStampTypeID

	transactions []StockTransaction
	// ledger index of the entry currently in effect for each event
	live    map[eventKey]int
	nextSeq int64

	reservations     []*StockReservation
	reservationIndex map[WithdrawalRequestID]*StockReservation
	// withdrawal request whose reservation a dispatch event released
	releasedBy map[DispatchEventID]WithdrawalRequestID
}

func CreateStock(locationID ScanningLocationID, opts ...Option) *Stock {
	return newStock(NewStockID(), locationID, opts...)
}

func newStock(id StockID, locationID ScanningLocationID, opts ...Option) *Stock {
	s := &Stock{
		id:                 id,
		scanningLocationID: locationID,
		dispatchMode:       DispatchLedgerOnly,
		items:              make(map[TaxStampTypeID]*StockItem),
		live:               make(map[eventKey]int),
		reservationIndex:   make(map[WithdrawalRequestID]*StockReservation),
		releasedBy:         make(map[DispatchEventID]WithdrawalRequestID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Stock) ID() StockID                            { return s.id }
func (s *Stock) ScanningLocationID() ScanningLocationID { return s.scanningLocationID }
func (s *Stock) DispatchMode() DispatchMode             { return s.dispatchMode }

// Version is the optimistic concurrency token of the last persisted state.
func (s *Stock) Version() int64 { return s.version }

func (s *Stock) MarkPersisted(version int64) { s.version = version }

// HandleArrival books an arrival event. Re-delivery of a known event id first
// reverts the entry booked for the previous delivery.
func (s *Stock) HandleArrival(eventID ArrivalEventID, quantities TaxStampQuantitySet) error {
	if eventID.IsZero() {
		return fmt.Errorf("arrival event: %w", ErrMissingIdentity)
	}
	if quantities.Len() == 0 {
		return ErrEmptyQuantitySet
	}
	return s.ingest(CreateArrival(eventID, quantities), nil)
}

// HandleDispatch books a dispatch event and releases the matching reservation.
func (s *Stock) HandleDispatch(eventID DispatchEventID, withdrawalRequestID WithdrawalRequestID, quantities TaxStampQuantitySet) error {
	if eventID.IsZero() {
		return fmt.Errorf("dispatch event: %w", ErrMissingIdentity)
	}
	if quantities.Len() == 0 {
		return ErrEmptyQuantitySet
	}

	res := s.reservationIndex[withdrawalRequestID]
	if res == nil && s.dispatchMode == DispatchRequiresReservation {
		return fmt.Errorf("%w: %s", ErrReservationNotFound, withdrawalRequestID)
	}

	release := &pendingRelease{eventID: eventID, quantities: quantities, reservation: res}
	return s.ingest(CreateDispatch(eventID, quantities), release)
}

// Reserve records a claim for a withdrawal request. Nothing is moved out of
// the balance; later reservations and dispatches account for the claim.
func (s *Stock) Reserve(withdrawalRequestID WithdrawalRequestID, quantities TaxStampQuantitySet) error {
	if withdrawalRequestID.IsZero() {
		return fmt.Errorf("withdrawal request: %w", ErrMissingIdentity)
	}
	if quantities.Len() == 0 {
		return ErrEmptyQuantitySet
	}
	if _, exists := s.reservationIndex[withdrawalRequestID]; exists {
		return fmt.Errorf("%w: %s", ErrReservationExists, withdrawalRequestID)
	}

	for _, l := range quantities.lines {
		item, ok := s.items[l.TaxStampTypeID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownTaxStampType, l.TaxStampTypeID)
		}
		reserved := s.reserved(l.TaxStampTypeID, nil)
		if !item.CanReserve(l.Quantity, reserved) {
			return fmt.Errorf("%w: %s requested %s, reserved %d, balance %s",
				ErrInsufficientReservable, l.TaxStampTypeID, l.Quantity, reserved, item.Quantity)
		}
	}

	res := NewStockReservation(withdrawalRequestID, quantities)
	s.reservations = append(s.reservations, res)
	s.reservationIndex[withdrawalRequestID] = res
	return nil
}

// pendingRelease is the reservation side of a dispatch being ingested.
type pendingRelease struct {
	eventID     DispatchEventID
	quantities  TaxStampQuantitySet
	reservation *StockReservation
}

func (s *Stock) ingest(fresh StockTransaction, release *pendingRelease) error {
	key, _ := fresh.eventKey()

	reverted := false
	if i, seen := s.live[key]; seen {
		revert := CreateRevert(s.transactions[i])
		err := s.validate(revert, nil)
		switch {
		case err == nil:
			s.commit(revert)
			reverted = true
		case fresh.Type == TransactionArrival:
			// The revert alone would drop below what was dispatched or reserved
			// since; book the pair only if the corrected arrival covers it.
			if pairErr := s.validatePair(revert, fresh); pairErr != nil {
				return pairErr
			}
			s.commitPair(revert, fresh)
			return nil
		default:
			return err
		}
	}

	if err := s.validate(fresh, release); err != nil {
		if reverted {
			return fmt.Errorf("%w: %w", ErrRedeliveryRejected, err)
		}
		return err
	}
	s.commit(fresh)

	if release != nil && release.reservation != nil {
		release.reservation.Release(release.eventID, release.quantities)
		s.releasedBy[release.eventID] = release.reservation.WithdrawalRequestID
	}
	return nil
}

// validate checks every line of t against current balances and outstanding
// reservations without mutating anything.
func (s *Stock) validate(t StockTransaction, release *pendingRelease) error {
	for _, it := range t.items {
		item, ok := s.items[it.TaxStampTypeID]
		if !ok {
			if t.Type == TransactionArrival {
				// created on commit with a zero balance
				continue
			}
			return fmt.Errorf("%w: %s", ErrUnknownTaxStampType, it.TaxStampTypeID)
		}
		if !item.CanApply(it.QuantityChange) {
			return fmt.Errorf("%w: %s balance %s, change %s",
				ErrInsufficientQuantity, it.TaxStampTypeID, item.Quantity, it.QuantityChange)
		}
		if it.QuantityChange.IsPositive() {
			continue
		}
		after := item.Quantity.Add(it.QuantityChange)
		if reserved := s.reservedAfter(it.TaxStampTypeID, release); after.Value() < reserved {
			return fmt.Errorf("%w: %s balance would be %s with %d still reserved",
				ErrInsufficientQuantity, it.TaxStampTypeID, after, reserved)
		}
	}
	return nil
}

// validatePair checks the net effect of booking revert and fresh together.
func (s *Stock) validatePair(revert, fresh StockTransaction) error {
	for typeID, net := range netChanges(revert, fresh) {
		item, ok := s.items[typeID]
		if !ok {
			continue
		}
		change, err := NewQuantityChange(net)
		if err != nil {
			continue
		}
		if !item.CanApply(change) {
			return fmt.Errorf("%w: %s balance %s, net change %s",
				ErrInsufficientQuantity, typeID, item.Quantity, change)
		}
		if reserved := s.reserved(typeID, nil); item.Quantity.Add(change).Value() < reserved {
			return fmt.Errorf("%w: %s correction would leave less than the %d reserved",
				ErrInsufficientQuantity, typeID, reserved)
		}
	}
	return nil
}

func (s *Stock) commit(t StockTransaction) {
	for _, it := range t.items {
		s.item(it.TaxStampTypeID).Apply(it.QuantityChange)
	}
	s.append(t)

	if t.Type == TransactionRevert && t.DispatchEventID != nil {
		s.unrelease(*t.DispatchEventID)
	}
}

// commitPair appends both entries but applies only their net change, so no
// balance passes through a negative value.
func (s *Stock) commitPair(revert, fresh StockTransaction) {
	for _, it := range fresh.items {
		s.item(it.TaxStampTypeID)
	}
	for typeID, net := range netChanges(revert, fresh) {
		if change, err := NewQuantityChange(net); err == nil {
			s.items[typeID].Apply(change)
		}
	}
	s.append(revert)
	s.append(fresh)
}

func (s *Stock) append(t StockTransaction) {
	s.nextSeq++
	t.Seq = s.nextSeq
	s.transactions = append(s.transactions, t)

	key, ok := t.eventKey()
	if !ok {
		return
	}
	if t.Reverts() {
		delete(s.live, key)
	} else {
		s.live[key] = len(s.transactions) - 1
	}
}

func (s *Stock) unrelease(eventID DispatchEventID) {
	wr, ok := s.releasedBy[eventID]
	if !ok {
		return
	}
	if res := s.reservationIndex[wr]; res != nil {
		res.Unrelease(eventID)
	}
	delete(s.releasedBy, eventID)
}

// item returns the stock item for typeID, creating it with a zero balance.
func (s *Stock) item(typeID TaxStampTypeID) *StockItem {
	if it, ok := s.items[typeID]; ok {
		return it
	}
	it := NewStockItem(typeID)
	s.items[typeID] = it
	s.itemOrder = append(s.itemOrder, typeID)
	return it
}

// reserved sums the remaining quantity of active reservations for typeID,
// skipping except.
func (s *Stock) reserved(typeID TaxStampTypeID, except *StockReservation) int {
	total := 0
	for _, r := range s.reservations {
		if r == except || !r.IsActive() {
			continue
		}
		total = saturatingAdd(total, r.Remaining(typeID).Value())
	}
	return total
}

// saturatingAdd adds two non-negative ints, capping at math.MaxInt.
func saturatingAdd(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

func (s *Stock) reservedAfter(typeID TaxStampTypeID, release *pendingRelease) int {
	if release == nil || release.reservation == nil {
		return s.reserved(typeID, nil)
	}
	res := release.reservation
	return saturatingAdd(s.reserved(typeID, res), res.remainingAfter(release.eventID, release.quantities, typeID).Value())
}

func netChanges(ts ...StockTransaction) map[TaxStampTypeID]int {
	net := make(map[TaxStampTypeID]int)
	for _, t := range ts {
		for _, it := range t.items {
			net[it.TaxStampTypeID] += it.QuantityChange.Value()
		}
	}
	return net
}

// Items returns copies of the stock items in the order they were first stocked.
func (s *Stock) Items() []StockItem {
	out := make([]StockItem, 0, len(s.itemOrder))
	for _, id := range s.itemOrder {
		out = append(out, *s.items[id])
	}
	return out
}

func (s *Stock) Item(typeID TaxStampTypeID) (StockItem, bool) {
	it, ok := s.items[typeID]
	if !ok {
		return StockItem{}, false
	}
	return *it, true
}

func (s *Stock) Balances() map[TaxStampTypeID]Quantity {
	out := make(map[TaxStampTypeID]Quantity, len(s.items))
	for id, it := range s.items {
		out[id] = it.Quantity
	}
	return out
}

// Transactions returns the ledger oldest first.
func (s *Stock) Transactions() []StockTransaction {
	return append([]StockTransaction(nil), s.transactions...)
}

func (s *Stock) TransactionsNewestFirst() []StockTransaction {
	out := make([]StockTransaction, len(s.transactions))
	for i, t := range s.transactions {
		out[len(s.transactions)-1-i] = t
	}
	return out
}

// Reservations returns copies of every reservation, completed ones included.
func (s *Stock) Reservations() []*StockReservation {
	out := make([]*StockReservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		out = append(out, r.clone())
	}
	return out
}

func (s *Stock) Reservation(id WithdrawalRequestID) (*StockReservation, bool) {
	r, ok := s.reservationIndex[id]
	if !ok {
		return nil, false
	}
	return r.clone(), true
}

func (s *Stock) ReservedQuantity(typeID TaxStampTypeID) Quantity {
	return MustQuantity(s.reserved(typeID, nil))
}

// AvailableQuantity is the balance not claimed by active reservations.
func (s *Stock) AvailableQuantity(typeID TaxStampTypeID) Quantity {
	it, ok := s.items[typeID]
	if !ok {
		return ZeroQuantity
	}
	return it.Quantity.Sub(s.ReservedQuantity(typeID))
}

func (r *StockReservation) clone() *StockReservation {
	c := &StockReservation{
		WithdrawalRequestID: r.WithdrawalRequestID,
		Status:              r.Status,
		original:            append([]StockReservationItem(nil), r.original...),
		remaining:           append([]StockReservationItem(nil), r.remaining...),
	}
	for _, rel := range r.releases {
		c.releases = append(c.releases, dispatchRelease{
			DispatchEventID: rel.DispatchEventID,
			Items:           append([]StockReservationItem(nil), rel.Items...),
		})
	}
	return c
}
