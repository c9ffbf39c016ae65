package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/application"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

type fakeReader struct {
	stocks      map[domain.ScanningLocationID]application.StockView
	newestFirst *bool
	err         error
}

func (f *fakeReader) Locations(ctx context.Context) ([]uuid.UUID, error) {
	if f.err != nil {
		return nil, f.err
	}
	var ids []uuid.UUID
	for id := range f.stocks {
		ids = append(ids, id.UUID)
	}
	return ids, nil
}

func (f *fakeReader) Stock(ctx context.Context, id domain.ScanningLocationID) (application.StockView, error) {
	if f.err != nil {
		return application.StockView{}, f.err
	}
	v, ok := f.stocks[id]
	if !ok {
		return application.StockView{}, domain.ErrStockNotFound
	}
	return v, nil
}

func (f *fakeReader) Transactions(ctx context.Context, id domain.ScanningLocationID, newestFirst bool) ([]application.TransactionView, error) {
	f.newestFirst = &newestFirst
	if _, ok := f.stocks[id]; !ok {
		return nil, domain.ErrStockNotFound
	}
	return []application.TransactionView{{Seq: 1, Type: "ARRIVAL"}}, nil
}

func (f *fakeReader) Reservations(ctx context.Context, id domain.ScanningLocationID) ([]application.ReservationView, error) {
	if _, ok := f.stocks[id]; !ok {
		return nil, domain.ErrStockNotFound
	}
	return []application.ReservationView{}, nil
}

func newTestMux(t *testing.T, reader StockReader) *http.ServeMux {
	mux := http.NewServeMux()
	NewServer(reader, zaptest.NewLogger(t)).RegisterRoutes(mux)
	return mux
}

func get(mux http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGetStock(t *testing.T) {
	loc := domain.NewScanningLocationID()
	view := application.StockView{
		ScanningLocationID: loc.UUID,
		Version:            4,
		DispatchMode:       "ledger-only",
		Items: []application.StockItemView{
			{TaxStampTypeID: uuid.New(), Quantity: 10, ReservedQuantity: 4, AvailableQuantity: 6},
		},
	}
	mux := newTestMux(t, &fakeReader{stocks: map[domain.ScanningLocationID]application.StockView{loc: view}})

	rec := get(mux, "/api/stocks/"+loc.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got application.StockView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, view, got)

	assert.Equal(t, http.StatusNotFound, get(mux, "/api/stocks/"+uuid.NewString()).Code)
	assert.Equal(t, http.StatusBadRequest, get(mux, "/api/stocks/not-a-uuid").Code)
	assert.Equal(t, http.StatusBadRequest, get(mux, "/api/stocks/"+uuid.Nil.String()).Code)
}

func TestGetTransactionsOrder(t *testing.T) {
	loc := domain.NewScanningLocationID()
	reader := &fakeReader{stocks: map[domain.ScanningLocationID]application.StockView{loc: {}}}
	mux := newTestMux(t, reader)

	rec := get(mux, "/api/stocks/"+loc.String()+"/transactions?order=newest")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, reader.newestFirst)
	assert.True(t, *reader.newestFirst)

	rec = get(mux, "/api/stocks/"+loc.String()+"/transactions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, *reader.newestFirst)

	rec = get(mux, "/api/stocks/"+loc.String()+"/transactions?order=sideways")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInfrastructureErrorsAreInternal(t *testing.T) {
	mux := newTestMux(t, &fakeReader{err: errors.New("db down")})

	rec := get(mux, "/api/stocks")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestHealthAndSwagger(t *testing.T) {
	mux := newTestMux(t, &fakeReader{})

	rec := get(mux, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = get(mux, "/swagger.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, json.Valid(rec.Body.Bytes()))

	rec = get(mux, "/api/stocks")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"scanningLocationIds":[]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
