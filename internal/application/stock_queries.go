package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

type StockItemView struct {
	TaxStampTypeID    uuid.UUID `json:"taxStampTypeId"`
	Quantity          int       `json:"quantity"`
	ReservedQuantity  int       `json:"reservedQuantity"`
	AvailableQuantity int       `json:"availableQuantity"`
}

type StockView struct {
	StockID            uuid.UUID       `json:"stockId"`
	ScanningLocationID uuid.UUID       `json:"scanningLocationId"`
	Version            int64           `json:"version"`
	DispatchMode       string          `json:"dispatchMode"`
	Items              []StockItemView `json:"items"`
}

type TransactionLineView struct {
	TaxStampTypeID uuid.UUID `json:"taxStampTypeId"`
	Change         int       `json:"change"`
}

type TransactionView struct {
	Seq             int64                 `json:"seq"`
	Type            string                `json:"type"`
	ArrivalEventID  *uuid.UUID            `json:"arrivalEventId,omitempty"`
	DispatchEventID *uuid.UUID            `json:"dispatchEventId,omitempty"`
	Items           []TransactionLineView `json:"items"`
}

type ReservationLineView struct {
	TaxStampTypeID uuid.UUID `json:"taxStampTypeId"`
	Original       int       `json:"original"`
	Remaining      int       `json:"remaining"`
}

type ReservationView struct {
	WithdrawalRequestID uuid.UUID             `json:"withdrawalRequestId"`
	Status              string                `json:"status"`
	Items               []ReservationLineView `json:"items"`
}

// StockQueries serves read-only projections of the stock held at a location.
type StockQueries struct {
	stocks domain.StockRepository
}

func NewStockQueries(stocks domain.StockRepository) *StockQueries {
	return &StockQueries{stocks: stocks}
}

func (q *StockQueries) Locations(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := q.stocks.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.UUID)
	}
	return out, nil
}

func (q *StockQueries) Stock(ctx context.Context, locationID domain.ScanningLocationID) (StockView, error) {
	st, err := q.stocks.GetByLocation(ctx, locationID)
	if err != nil {
		return StockView{}, err
	}

	view := StockView{
		StockID:            st.ID().UUID,
		ScanningLocationID: st.ScanningLocationID().UUID,
		Version:            st.Version(),
		DispatchMode:       string(st.DispatchMode()),
		Items:              []StockItemView{},
	}
	for _, it := range st.Items() {
		view.Items = append(view.Items, StockItemView{
			TaxStampTypeID:    it.TaxStampTypeID.UUID,
			Quantity:          it.Quantity.Value(),
			ReservedQuantity:  st.ReservedQuantity(it.TaxStampTypeID).Value(),
			AvailableQuantity: st.AvailableQuantity(it.TaxStampTypeID).Value(),
		})
	}
	return view, nil
}

func (q *StockQueries) Transactions(ctx context.Context, locationID domain.ScanningLocationID, newestFirst bool) ([]TransactionView, error) {
	st, err := q.stocks.GetByLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}

	txs := st.Transactions()
	if newestFirst {
		txs = st.TransactionsNewestFirst()
	}

	out := make([]TransactionView, 0, len(txs))
	for _, t := range txs {
		v := TransactionView{Seq: t.Seq, Type: string(t.Type)}
		if t.ArrivalEventID != nil {
			id := t.ArrivalEventID.UUID
			v.ArrivalEventID = &id
		}
		if t.DispatchEventID != nil {
			id := t.DispatchEventID.UUID
			v.DispatchEventID = &id
		}
		for _, it := range t.Items() {
			v.Items = append(v.Items, TransactionLineView{TaxStampTypeID: it.TaxStampTypeID.UUID, Change: it.QuantityChange.Value()})
		}
		out = append(out, v)
	}
	return out, nil
}

func (q *StockQueries) Reservations(ctx context.Context, locationID domain.ScanningLocationID) ([]ReservationView, error) {
	st, err := q.stocks.GetByLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}

	out := make([]ReservationView, 0)
	for _, r := range st.Reservations() {
		v := ReservationView{WithdrawalRequestID: r.WithdrawalRequestID.UUID, Status: string(r.Status)}
		for _, it := range r.OriginalItems() {
			v.Items = append(v.Items, ReservationLineView{
				TaxStampTypeID: it.TaxStampTypeID.UUID,
				Original:       it.Quantity.Value(),
				Remaining:      r.Remaining(it.TaxStampTypeID).Value(),
			})
		}
		out = append(out, v)
	}
	return out, nil
}
