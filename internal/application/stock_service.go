package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

const (
	sourceArrival  = "TaxStampsArrived"
	sourceDispatch = "TaxStampsDispatched"
)

type StockServiceOptions struct {
	DispatchMode domain.DispatchMode
	LockTTL      time.Duration
	SaveMaxRetry int
}

// StockService runs the stock ledger for incoming events: one location at a
// time, persisted with an optimistic version check, results written to the outbox.
type StockService struct {
	stocks domain.StockRepository
	lock   domain.LocationLock
	outbox OutboxWriter
	opts   StockServiceOptions
	logger *zap.Logger
	tracer trace.Tracer
}

func NewStockService(
	stocks domain.StockRepository,
	lock domain.LocationLock,
	outbox OutboxWriter,
	opts StockServiceOptions,
	logger *zap.Logger,
) *StockService {
	if opts.DispatchMode == "" {
		opts.DispatchMode = domain.DispatchLedgerOnly
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Second
	}
	if opts.SaveMaxRetry <= 0 {
		opts.SaveMaxRetry = 3
	}
	return &StockService{
		stocks: stocks,
		lock:   lock,
		outbox: outbox,
		opts:   opts,
		logger: logger.Named("stock_service"),
		tracer: otel.Tracer("stock-service/application"),
	}
}

func (s *StockService) HandleArrival(ctx context.Context, payload domain.TaxStampsArrivedPayload) error {
	ctx, span := s.tracer.Start(ctx, "stock.handle_arrival")
	defer span.End()
	span.SetAttributes(
		attribute.String("stock.location_id", payload.ScanningLocationID.String()),
		attribute.String("stock.event_id", payload.EventID.String()),
	)

	locationID := domain.ScanningLocationID{UUID: payload.ScanningLocationID}
	eventID := domain.ArrivalEventID{UUID: payload.EventID}

	quantities, err := payload.Lines.QuantitySet()
	if err != nil {
		return s.reject(ctx, span, locationID, sourceArrival, payload.EventID, err)
	}

	mutate := func(st *domain.Stock) error {
		return st.HandleArrival(eventID, quantities)
	}
	emit := func(res runResult) []primitives.Event {
		events := res.adjustments()
		if res.rejection != nil {
			events = append(events, s.rejection(locationID, sourceArrival, payload.EventID, res.rejection))
		}
		return events
	}
	return s.execute(ctx, span, locationID, mutate, emit)
}

func (s *StockService) HandleDispatch(ctx context.Context, payload domain.TaxStampsDispatchedPayload) error {
	ctx, span := s.tracer.Start(ctx, "stock.handle_dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("stock.location_id", payload.ScanningLocationID.String()),
		attribute.String("stock.event_id", payload.EventID.String()),
		attribute.String("stock.withdrawal_request_id", payload.WithdrawalRequestID.String()),
	)

	locationID := domain.ScanningLocationID{UUID: payload.ScanningLocationID}
	eventID := domain.DispatchEventID{UUID: payload.EventID}
	withdrawalID := domain.WithdrawalRequestID{UUID: payload.WithdrawalRequestID}

	quantities, err := payload.Lines.QuantitySet()
	if err != nil {
		return s.reject(ctx, span, locationID, sourceDispatch, payload.EventID, err)
	}

	mutate := func(st *domain.Stock) error {
		return st.HandleDispatch(eventID, withdrawalID, quantities)
	}
	emit := func(res runResult) []primitives.Event {
		events := res.adjustments()
		events = append(events, res.completions()...)
		if res.rejection != nil {
			events = append(events, s.rejection(locationID, sourceDispatch, payload.EventID, res.rejection))
		}
		return events
	}
	return s.execute(ctx, span, locationID, mutate, emit)
}

func (s *StockService) Reserve(ctx context.Context, payload domain.WithdrawalRequestedPayload) error {
	ctx, span := s.tracer.Start(ctx, "stock.reserve")
	defer span.End()
	span.SetAttributes(
		attribute.String("stock.location_id", payload.ScanningLocationID.String()),
		attribute.String("stock.withdrawal_request_id", payload.WithdrawalRequestID.String()),
	)

	locationID := domain.ScanningLocationID{UUID: payload.ScanningLocationID}
	withdrawalID := domain.WithdrawalRequestID{UUID: payload.WithdrawalRequestID}

	quantities, err := payload.Lines.QuantitySet()
	if err != nil {
		s.logger.Warn("withdrawal request rejected",
			zap.String("withdrawal_request_id", payload.WithdrawalRequestID.String()),
			zap.Error(err))
		ev := domain.NewStockReservationFailedEvent(payload.ScanningLocationID, payload.WithdrawalRequestID, err.Error())
		return s.outbox.Enqueue(ctx, ev)
	}

	mutate := func(st *domain.Stock) error {
		return st.Reserve(withdrawalID, quantities)
	}
	emit := func(res runResult) []primitives.Event {
		switch {
		case errors.Is(res.rejection, domain.ErrReservationExists):
			// already handled this withdrawal request
			s.logger.Info("reservation already exists",
				zap.String("withdrawal_request_id", withdrawalID.String()))
			return nil
		case res.rejection != nil:
			s.logger.Warn("reservation rejected",
				zap.String("withdrawal_request_id", withdrawalID.String()),
				zap.Error(res.rejection))
			return []primitives.Event{domain.NewStockReservationFailedEvent(
				payload.ScanningLocationID, payload.WithdrawalRequestID, res.rejection.Error())}
		default:
			return []primitives.Event{domain.NewStockReservedEvent(res.stock, withdrawalID, payload.Lines)}
		}
	}
	return s.execute(ctx, span, locationID, mutate, emit)
}

// runResult is the outcome of one locked load-mutate-save cycle.
type runResult struct {
	stock     *domain.Stock
	before    ledgerMark
	rejection error
}

type ledgerMark struct {
	transactions int
	reservations int
	completed    map[domain.WithdrawalRequestID]bool
}

func markOf(st *domain.Stock) ledgerMark {
	m := ledgerMark{
		transactions: len(st.Transactions()),
		completed:    make(map[domain.WithdrawalRequestID]bool),
	}
	for _, r := range st.Reservations() {
		m.reservations++
		if !r.IsActive() {
			m.completed[r.WithdrawalRequestID] = true
		}
	}
	return m
}

func (m ledgerMark) changed(st *domain.Stock) bool {
	return len(st.Transactions()) != m.transactions || len(st.Reservations()) != m.reservations
}

func (s *StockService) execute(
	ctx context.Context,
	span trace.Span,
	locationID domain.ScanningLocationID,
	mutate func(*domain.Stock) error,
	emit func(runResult) []primitives.Event,
) error {
	res, err := s.run(ctx, locationID, mutate, emit)
	if err != nil {
		return s.fail(span, err)
	}

	span.SetAttributes(
		attribute.String("stock.id", res.stock.ID().String()),
		attribute.Int("stock.ledger_entries", len(res.stock.Transactions())-res.before.transactions),
	)
	if res.rejection != nil {
		span.SetStatus(codes.Error, res.rejection.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return nil
}

// run holds the location lock while it loads the stock, applies mutate,
// saves and enqueues the events emit derives from the result. A version
// conflict reloads and applies mutate again.
func (s *StockService) run(
	ctx context.Context,
	locationID domain.ScanningLocationID,
	mutate func(*domain.Stock) error,
	emit func(runResult) []primitives.Event,
) (runResult, error) {
	if locationID.IsZero() {
		return runResult{}, fmt.Errorf("scanning location: %w", domain.ErrMissingIdentity)
	}

	release, err := s.lock.Acquire(ctx, locationID, s.opts.LockTTL)
	if err != nil {
		return runResult{}, fmt.Errorf("lock location %s: %w", locationID, err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release location lock",
				zap.String("location_id", locationID.String()), zap.Error(err))
		}
	}()

	for attempt := 1; ; attempt++ {
		st, isNew, err := s.load(ctx, locationID)
		if err != nil {
			return runResult{}, err
		}

		res := runResult{stock: st, before: markOf(st)}
		res.rejection = mutate(st)
		if !res.before.changed(st) {
			return res, s.enqueue(ctx, emit(res))
		}

		if isNew {
			err = s.stocks.Insert(ctx, st)
		} else {
			err = s.stocks.Update(ctx, st)
		}
		if errors.Is(err, domain.ErrConcurrencyConflict) && attempt < s.opts.SaveMaxRetry {
			s.logger.Warn("stock changed concurrently, retrying",
				zap.String("location_id", locationID.String()),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return runResult{}, fmt.Errorf("save stock for location %s: %w", locationID, err)
		}
		return res, s.enqueue(ctx, emit(res))
	}
}

func (s *StockService) enqueue(ctx context.Context, events []primitives.Event) error {
	for _, ev := range events {
		if err := s.outbox.Enqueue(ctx, ev); err != nil {
			return fmt.Errorf("enqueue %s: %w", ev.GetRoutingKey(), err)
		}
	}
	return nil
}

func (s *StockService) load(ctx context.Context, locationID domain.ScanningLocationID) (*domain.Stock, bool, error) {
	st, err := s.stocks.GetByLocation(ctx, locationID)
	if errors.Is(err, domain.ErrStockNotFound) {
		return domain.CreateStock(locationID, domain.WithDispatchMode(s.opts.DispatchMode)), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load stock for location %s: %w", locationID, err)
	}
	return st, false, nil
}

// adjustments emits one StockAdjusted per line of every ledger entry the run appended.
func (r runResult) adjustments() []primitives.Event {
	var out []primitives.Event
	for _, t := range r.stock.Transactions()[r.before.transactions:] {
		for _, line := range t.Items() {
			out = append(out, domain.NewStockAdjustedEvent(r.stock, t, line))
		}
	}
	return out
}

func (r runResult) completions() []primitives.Event {
	var out []primitives.Event
	for _, res := range r.stock.Reservations() {
		if !res.IsActive() && !r.before.completed[res.WithdrawalRequestID] {
			out = append(out, domain.NewStockReservationCompletedEvent(r.stock, res.WithdrawalRequestID))
		}
	}
	return out
}

func (s *StockService) rejection(locationID domain.ScanningLocationID, source string, eventID uuid.UUID, cause error) primitives.Event {
	reconcile := errors.Is(cause, domain.ErrRedeliveryRejected)
	fields := []zap.Field{
		zap.String("location_id", locationID.String()),
		zap.String("source", source),
		zap.String("event_id", eventID.String()),
		zap.Error(cause),
	}
	if reconcile {
		s.logger.Error("corrected re-delivery rejected after revert, needs reconciliation", fields...)
	} else {
		s.logger.Warn("event rejected by stock ledger", fields...)
	}
	return domain.NewStockEventRejectedEvent(locationID.UUID, source, eventID, cause.Error(), reconcile)
}

// reject handles payloads that never reach the ledger.
func (s *StockService) reject(ctx context.Context, span trace.Span, locationID domain.ScanningLocationID, source string, eventID uuid.UUID, cause error) error {
	span.SetStatus(codes.Error, cause.Error())
	return s.outbox.Enqueue(ctx, s.rejection(locationID, source, eventID, cause))
}

func (s *StockService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.Error("stock operation failed", zap.Error(err))
	return err
}
