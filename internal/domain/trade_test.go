package domain

import (
	"errors"
	"testing"
)

func TestTradeInputValidate(t *testing.T) {
	valid := TradeInput{
		TradeID:     NewTradeID(),
		StockSymbol: "FOLD1",
		Price:       50000,
		Quantity:    10,
		TotalValue:  500000,
		BuyerID:     NewPartyID(),
		SellerID:    NewPartyID(),
	}

	tests := []struct {
		name    string
		mutate  func(*TradeInput)
		wantErr error
	}{
		{"valid", func(in *TradeInput) {}, nil},
		{"empty trade id", func(in *TradeInput) { in.TradeID = TradeID{} }, ErrEmptyTradeID},
		{"zero price", func(in *TradeInput) { in.Price = 0 }, ErrInvalidPrice},
		{"negative price", func(in *TradeInput) { in.Price = -1 }, ErrInvalidPrice},
		{"zero quantity", func(in *TradeInput) { in.Quantity = 0 }, ErrInvalidQuantity},
		{"negative quantity", func(in *TradeInput) { in.Quantity = -5 }, ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			err := in.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTradeInputValidateDoesNotCheckTotalValue(t *testing.T) {
	// The ledger stores the caller-supplied total verbatim, mismatched
	// or not. This mirrors the original contract's permissiveness.
	in := TradeInput{
		TradeID:     NewTradeID(),
		StockSymbol: "SAPA1",
		Price:       75000,
		Quantity:    20,
		TotalValue:  1, // nowhere near price*quantity
		BuyerID:     NewPartyID(),
		SellerID:    NewPartyID(),
	}

	if err := in.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestTradeIDRoundTrip(t *testing.T) {
	id := NewTradeID()

	parsed, err := ParseTradeID(id.String())
	if err != nil {
		t.Fatalf("ParseTradeID(%q): %v", id.String(), err)
	}
	if parsed != id {
		t.Fatalf("round-trip changed id: %s != %s", parsed, id)
	}

	if _, err := ParseTradeID("not-a-uuid"); err == nil {
		t.Fatal("ParseTradeID accepted garbage")
	}
}

func TestNotional(t *testing.T) {
	rec := TradeRecord{Price: 50000, Quantity: 10, TotalValue: 1}
	if got := rec.Notional(); got != 500000 {
		t.Fatalf("Notional() = %d, want 500000", got)
	}
}

func TestMinorUnits(t *testing.T) {
	if got := MinorUnits(50000).StringFixed(2); got != "500.00" {
		t.Fatalf("MinorUnits(50000) = %s, want 500.00", got)
	}
	if got := MinorUnits(1).StringFixed(2); got != "0.01" {
		t.Fatalf("MinorUnits(1) = %s, want 0.01", got)
	}
}
