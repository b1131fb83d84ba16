package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jeovahfialho/trade-ledger/internal/domain"
	"github.com/jeovahfialho/trade-ledger/internal/ledger"
)

// The service tests run against the bare ledger: journal, cache and
// publisher are nil, the same shape the CLI uses.
func newBareService() (*LedgerService, domain.PartyID) {
	owner := domain.NewPartyID()
	led := ledger.New(owner)
	return NewLedgerService(led, nil, nil, nil, ""), owner
}

func validInput() domain.TradeInput {
	return domain.TradeInput{
		TradeID:     domain.NewTradeID(),
		StockSymbol: "FOLD1",
		Price:       50000,
		Quantity:    10,
		TotalValue:  500000,
		BuyerID:     domain.NewPartyID(),
		SellerID:    domain.NewPartyID(),
	}
}

func TestRecordAndGet(t *testing.T) {
	svc, owner := newBareService()
	ctx := context.Background()

	in := validInput()
	rec, err := svc.RecordTrade(ctx, owner, in)
	if err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}

	got, err := svc.GetTrade(ctx, in.TradeID)
	if err != nil {
		t.Fatalf("GetTrade: %v", err)
	}
	if got != rec {
		t.Fatalf("GetTrade = %+v, want %+v", got, rec)
	}

	if svc.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", svc.Count())
	}
	if svc.Owner() != owner {
		t.Fatal("Owner() mismatch")
	}
}

func TestRecordErrorsPassThrough(t *testing.T) {
	svc, owner := newBareService()
	ctx := context.Background()

	in := validInput()
	if _, err := svc.RecordTrade(ctx, owner, in); err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}

	_, err := svc.RecordTrade(ctx, owner, in)
	if !errors.Is(err, domain.ErrDuplicateTrade) {
		t.Fatalf("duplicate = %v, want ErrDuplicateTrade", err)
	}

	_, err = svc.RecordTrade(ctx, domain.NewPartyID(), validInput())
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("non-owner = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyTrade(t *testing.T) {
	svc, owner := newBareService()
	ctx := context.Background()

	exists, ts := svc.VerifyTrade(domain.NewTradeID())
	if exists || ts != 0 {
		t.Fatalf("VerifyTrade(unknown) = (%v, %d)", exists, ts)
	}

	in := validInput()
	rec, err := svc.RecordTrade(ctx, owner, in)
	if err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}

	exists, ts = svc.VerifyTrade(in.TradeID)
	if !exists || ts != rec.Timestamp {
		t.Fatalf("VerifyTrade(known) = (%v, %d), want (true, %d)", exists, ts, rec.Timestamp)
	}
}

func TestAllTradeIDsLimit(t *testing.T) {
	svc, owner := newBareService()
	ctx := context.Background()

	var want []domain.TradeID
	for i := 0; i < 4; i++ {
		in := validInput()
		if _, err := svc.RecordTrade(ctx, owner, in); err != nil {
			t.Fatalf("RecordTrade: %v", err)
		}
		want = append(want, in.TradeID)
	}

	// No limit: everything, in insertion order.
	all := svc.AllTradeIDs(0)
	if len(all) != 4 {
		t.Fatalf("AllTradeIDs(0) = %d ids, want 4", len(all))
	}
	for i := range want {
		if all[i] != want[i] {
			t.Fatalf("ids[%d] = %s, want %s", i, all[i], want[i])
		}
	}

	limited := svc.AllTradeIDs(2)
	if len(limited) != 2 || limited[0] != want[0] || limited[1] != want[1] {
		t.Fatalf("AllTradeIDs(2) = %v, want first two of %v", limited, want)
	}

	// A limit beyond the ledger size is a no-op.
	if got := svc.AllTradeIDs(100); len(got) != 4 {
		t.Fatalf("AllTradeIDs(100) = %d ids, want 4", len(got))
	}
}

func TestStatusWithoutCollaborators(t *testing.T) {
	svc, owner := newBareService()
	ctx := context.Background()

	if _, err := svc.RecordTrade(ctx, owner, validInput()); err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}

	st := svc.Status(ctx)
	if st.Owner != owner.String() {
		t.Fatalf("Status.Owner = %s, want %s", st.Owner, owner)
	}
	if st.TradeCount != 1 {
		t.Fatalf("Status.TradeCount = %d, want 1", st.TradeCount)
	}
	if st.Degraded {
		t.Fatal("bare service should not be degraded")
	}
	if st.Journal.Status != "disabled" || st.Cache.Status != "disabled" || st.Broker.Status != "disabled" {
		t.Fatalf("collaborator status = %+v, want all disabled", st)
	}
}

func TestStatusForMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrUnauthorized, "unauthorized"},
		{domain.ErrDuplicateTrade, "duplicate"},
		{domain.ErrInvalidPrice, "invalid"},
		{domain.ErrInvalidQuantity, "invalid"},
		{domain.ErrEmptyTradeID, "invalid"},
		{errors.New("boom"), "error"},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Fatalf("statusFor(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
