package domain

import "github.com/google/uuid"

type StockID struct{ uuid.UUID }

type ScanningLocationID struct{ uuid.UUID }

type TaxStampTypeID struct{ uuid.UUID }

type ArrivalEventID struct{ uuid.UUID }

type DispatchEventID struct{ uuid.UUID }

type WithdrawalRequestID struct{ uuid.UUID }

func NewStockID() StockID                         { return StockID{uuid.New()} }
func NewScanningLocationID() ScanningLocationID   { return ScanningLocationID{uuid.New()} }
func NewTaxStampTypeID() TaxStampTypeID           { return TaxStampTypeID{uuid.New()} }
func NewArrivalEventID() ArrivalEventID           { return ArrivalEventID{uuid.New()} }
func NewDispatchEventID() DispatchEventID         { return DispatchEventID{uuid.New()} }
func NewWithdrawalRequestID() WithdrawalRequestID { return WithdrawalRequestID{uuid.New()} }

func (id StockID) IsZero() bool             { return id.UUID == uuid.Nil }
func (id ScanningLocationID) IsZero() bool  { return id.UUID == uuid.Nil }
func (id TaxStampTypeID) IsZero() bool      { return id.UUID == uuid.Nil }
func (id ArrivalEventID) IsZero() bool      { return id.UUID == uuid.Nil }
func (id DispatchEventID) IsZero() bool     { return id.UUID == uuid.Nil }
func (id WithdrawalRequestID) IsZero() bool { return id.UUID == uuid.Nil }

func ParseScanningLocationID(s string) (ScanningLocationID, error) {
	u, err := uuid.Parse(s)
	return ScanningLocationID{u}, err
}
