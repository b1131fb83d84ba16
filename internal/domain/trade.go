package domain

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rejection reasons surfaced by the ledger. Every failure rejects the
// whole operation; there is no partial state change to report.
var (
	ErrUnauthorized    = errors.New("only the ledger owner can record trades")
	ErrDuplicateTrade  = errors.New("trade already recorded")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrEmptyTradeID    = errors.New("trade id must not be empty")
	ErrNotFound        = errors.New("trade not found")
)

// TradeID is the caller-supplied 16-byte primary key of a trade record.
type TradeID [16]byte

// PartyID is an opaque 16-byte identifier for an off-chain party
// (buyer, seller or the ledger owner). It is not an account address.
type PartyID [16]byte

func ParseTradeID(s string) (TradeID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return TradeID{}, err
	}
	return TradeID(u), nil
}

func ParsePartyID(s string) (PartyID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return PartyID{}, err
	}
	return PartyID(u), nil
}

// NewTradeID returns a fresh random id. The ledger never generates ids
// on behalf of callers; this exists for the CLI and for tests.
func NewTradeID() TradeID {
	return TradeID(uuid.New())
}

func NewPartyID() PartyID {
	return PartyID(uuid.New())
}

func (id TradeID) String() string { return uuid.UUID(id).String() }

func (id TradeID) IsZero() bool { return id == TradeID{} }

func (id PartyID) String() string { return uuid.UUID(id).String() }

func (id PartyID) IsZero() bool { return id == PartyID{} }

// Ids marshal as canonical UUID strings in JSON and text contexts.

func (id TradeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *TradeID) UnmarshalText(b []byte) error {
	parsed, err := ParseTradeID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id PartyID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *PartyID) UnmarshalText(b []byte) error {
	parsed, err := ParsePartyID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// TradeInput carries the caller-supplied fields of a recordTrade call.
// Price and TotalValue are integers in the smallest currency unit.
type TradeInput struct {
	TradeID     TradeID
	StockSymbol string
	Price       int64
	Quantity    int64
	TotalValue  int64
	BuyerID     PartyID
	SellerID    PartyID
}

// Validate checks the field-level constraints. Uniqueness of the id and
// the caller's authority are the ledger's job, not the input's.
func (in TradeInput) Validate() error {
	if in.TradeID.IsZero() {
		return ErrEmptyTradeID
	}
	if in.Price <= 0 {
		return ErrInvalidPrice
	}
	if in.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// TradeRecord is one settled trade. Records are immutable once inserted:
// Timestamp is assigned by the ledger at insertion time (unix seconds)
// and Sequence is the 1-based insertion position.
type TradeRecord struct {
	TradeID     TradeID
	StockSymbol string
	Price       int64
	Quantity    int64
	TotalValue  int64
	BuyerID     PartyID
	SellerID    PartyID
	Timestamp   int64
	Sequence    int64
}

// Notional is price*quantity computed from the stored fields. The ledger
// deliberately does not require TotalValue to equal it; exposing both
// lets consumers detect mismatched submissions.
func (r TradeRecord) Notional() int64 {
	return r.Price * r.Quantity
}

// TradeRecorded is the event emitted once per successful insert.
type TradeRecorded struct {
	TradeID     string `json:"trade_id"`
	StockSymbol string `json:"stock_symbol"`
	Price       int64  `json:"price"`
	Quantity    int64  `json:"quantity"`
	Timestamp   int64  `json:"timestamp"`
}

// EventFrom builds the emitted event for a freshly inserted record.
func EventFrom(r TradeRecord) TradeRecorded {
	return TradeRecorded{
		TradeID:     r.TradeID.String(),
		StockSymbol: r.StockSymbol,
		Price:       r.Price,
		Quantity:    r.Quantity,
		Timestamp:   r.Timestamp,
	}
}

// MinorUnits renders an integer amount in the smallest currency unit as
// a two-decimal value, e.g. 50000 -> 500.00.
func MinorUnits(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}
