package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/application"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

// StockReader is the read side served over HTTP.
type StockReader interface {
	Locations(ctx context.Context) ([]uuid.UUID, error)
	Stock(ctx context.Context, locationID domain.ScanningLocationID) (application.StockView, error)
	Transactions(ctx context.Context, locationID domain.ScanningLocationID, newestFirst bool) ([]application.TransactionView, error)
	Reservations(ctx context.Context, locationID domain.ScanningLocationID) ([]application.ReservationView, error)
}

type Server struct {
	queries StockReader
	logger  *zap.Logger
}

func NewServer(queries StockReader, logger *zap.Logger) *Server {
	return &Server{queries: queries, logger: logger.Named("http")}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/stocks", s.handleListLocations)
	mux.HandleFunc("GET /api/stocks/{locationId}", s.handleGetStock)
	mux.HandleFunc("GET /api/stocks/{locationId}/transactions", s.handleGetTransactions)
	mux.HandleFunc("GET /api/stocks/{locationId}/reservations", s.handleGetReservations)
	mux.HandleFunc("GET /swagger.json", s.handleSwaggerJson)
}

type healthResponse struct {
	Status string `json:"status"`
}

type locationsResponse struct {
	ScanningLocationIDs []uuid.UUID `json:"scanningLocationIds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	ids, err := s.queries.Locations(r.Context())
	if err != nil {
		s.fail(w, "list locations", err)
		return
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	s.writeJSON(w, http.StatusOK, locationsResponse{ScanningLocationIDs: ids})
}

// GET /api/stocks/{locationId}
func (s *Server) handleGetStock(w http.ResponseWriter, r *http.Request) {
	locationID, ok := s.locationID(w, r)
	if !ok {
		return
	}
	view, err := s.queries.Stock(r.Context(), locationID)
	if err != nil {
		s.fail(w, "get stock", err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// GET /api/stocks/{locationId}/transactions?order=newest
func (s *Server) handleGetTransactions(w http.ResponseWriter, r *http.Request) {
	locationID, ok := s.locationID(w, r)
	if !ok {
		return
	}

	var newestFirst bool
	switch r.URL.Query().Get("order") {
	case "", "oldest":
	case "newest":
		newestFirst = true
	default:
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "order must be oldest or newest"})
		return
	}

	txs, err := s.queries.Transactions(r.Context(), locationID, newestFirst)
	if err != nil {
		s.fail(w, "get transactions", err)
		return
	}
	s.writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleGetReservations(w http.ResponseWriter, r *http.Request) {
	locationID, ok := s.locationID(w, r)
	if !ok {
		return
	}
	reservations, err := s.queries.Reservations(r.Context(), locationID)
	if err != nil {
		s.fail(w, "get reservations", err)
		return
	}
	s.writeJSON(w, http.StatusOK, reservations)
}

func (s *Server) handleSwaggerJson(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(openAPISpec))
}

func (s *Server) locationID(w http.ResponseWriter, r *http.Request) (domain.ScanningLocationID, bool) {
	id, err := domain.ParseScanningLocationID(r.PathValue("locationId"))
	if err != nil || id.IsZero() {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "locationId is invalid"})
		return domain.ScanningLocationID{}, false
	}
	return id, true
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, domain.ErrStockNotFound) {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "stock not found"})
		return
	}
	s.logger.Error(op+" failed", zap.Error(err))
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writeJSON error", zap.Error(err))
	}
}
