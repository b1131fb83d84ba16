package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/jeovahfialho/trade-ledger/internal/domain"
)

func newTestLedger() (*Ledger, domain.PartyID) {
	owner := domain.NewPartyID()
	return New(owner), owner
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

func TestRecordStoresFieldsUnchanged(t *testing.T) {
	l, owner := newTestLedger()
	in := validInput()

	rec, err := l.Record(owner, in)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if l.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", l.Count())
	}

	got, err := l.Get(in.TradeID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got.TradeID != in.TradeID ||
		got.StockSymbol != in.StockSymbol ||
		got.Price != in.Price ||
		got.Quantity != in.Quantity ||
		got.TotalValue != in.TotalValue ||
		got.BuyerID != in.BuyerID ||
		got.SellerID != in.SellerID {
		t.Fatalf("stored record differs from input: %+v vs %+v", got, in)
	}

	if got.Timestamp == 0 {
		t.Fatal("timestamp not assigned")
	}
	if got != rec {
		t.Fatalf("Record return differs from Get: %+v vs %+v", rec, got)
	}
}

func TestRecordDuplicateLeavesStateUnchanged(t *testing.T) {
	l, owner := newTestLedger()
	in := validInput()

	first, err := l.Record(owner, in)
	if err != nil {
		t.Fatalf("first Record: %v", err)
	}

	// Change everything except the id; the second call must still be
	// rejected and must not touch the stored record.
	in.StockSymbol = "SAPA1"
	in.Price = 1
	_, err = l.Record(owner, in)
	if !errors.Is(err, domain.ErrDuplicateTrade) {
		t.Fatalf("second Record = %v, want ErrDuplicateTrade", err)
	}

	if l.Count() != 1 {
		t.Fatalf("Count() = %d after failed insert, want 1", l.Count())
	}

	got, _ := l.Get(in.TradeID)
	if got != first {
		t.Fatalf("record mutated by failed insert: %+v vs %+v", got, first)
	}
}

func TestRecordValidation(t *testing.T) {
	l, owner := newTestLedger()

	tests := []struct {
		name    string
		mutate  func(*domain.TradeInput)
		wantErr error
	}{
		{"zero price", func(in *domain.TradeInput) { in.Price = 0 }, domain.ErrInvalidPrice},
		{"zero quantity", func(in *domain.TradeInput) { in.Quantity = 0 }, domain.ErrInvalidQuantity},
		{"empty id", func(in *domain.TradeInput) { in.TradeID = domain.TradeID{} }, domain.ErrEmptyTradeID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			_, err := l.Record(owner, in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Record = %v, want %v", err, tt.wantErr)
			}
			if l.Count() != 0 {
				t.Fatalf("Count() = %d after rejected insert, want 0", l.Count())
			}
		})
	}
}

func TestRecordRejectsNonOwner(t *testing.T) {
	l, _ := newTestLedger()
	in := validInput()

	_, err := l.Record(domain.NewPartyID(), in)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Record by non-owner = %v, want ErrUnauthorized", err)
	}
	if l.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", l.Count())
	}

	// The owner check runs before validation: a non-owner learns
	// nothing about field-level problems.
	bad := validInput()
	bad.Price = 0
	_, err = l.Record(domain.NewPartyID(), bad)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Record by non-owner = %v, want ErrUnauthorized", err)
	}
}

func TestVerify(t *testing.T) {
	l, owner := newTestLedger()

	exists, ts := l.Verify(domain.NewTradeID())
	if exists || ts != 0 {
		t.Fatalf("Verify(unknown) = (%v, %d), want (false, 0)", exists, ts)
	}

	in := validInput()
	rec, err := l.Record(owner, in)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	exists, ts = l.Verify(in.TradeID)
	if !exists || ts != rec.Timestamp || ts <= 0 {
		t.Fatalf("Verify(known) = (%v, %d), want (true, %d)", exists, ts, rec.Timestamp)
	}
}

func TestGetUnknown(t *testing.T) {
	l, _ := newTestLedger()

	_, err := l.Get(domain.NewTradeID())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get(unknown) = %v, want ErrNotFound", err)
	}
}

func TestAllIDsInsertionOrder(t *testing.T) {
	l, owner := newTestLedger()

	var want []domain.TradeID
	for i := 0; i < 5; i++ {
		in := validInput()
		in.Price = int64((i + 1) * 10000)
		in.Quantity = int64((i + 1) * 5)
		if _, err := l.Record(owner, in); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
		want = append(want, in.TradeID)
	}

	ids := l.AllIDs()
	if len(ids) != l.Count() {
		t.Fatalf("len(AllIDs()) = %d, Count() = %d", len(ids), l.Count())
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids[%d] = %s, want %s", i, ids[i], want[i])
		}
	}

	// The returned slice is a copy: mutating it must not affect the
	// ledger's ordering.
	ids[0] = domain.NewTradeID()
	again := l.AllIDs()
	if again[0] != want[0] {
		t.Fatal("AllIDs() returned a live reference to internal state")
	}
}

func TestSequenceAssignment(t *testing.T) {
	l, owner := newTestLedger()

	for i := 1; i <= 3; i++ {
		rec, err := l.Record(owner, validInput())
		if err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
		if rec.Sequence != int64(i) {
			t.Fatalf("Sequence = %d, want %d", rec.Sequence, i)
		}
	}
}

func TestEndToEndScenario(t *testing.T) {
	l, owner := newTestLedger()

	tx1, _ := domain.ParseTradeID("00000000-0000-0000-0000-000000000001")
	tx2, _ := domain.ParseTradeID("00000000-0000-0000-0000-000000000002")
	buyer := domain.NewPartyID()
	seller := domain.NewPartyID()

	_, err := l.Record(owner, domain.TradeInput{
		TradeID: tx1, StockSymbol: "FOLD1",
		Price: 50000, Quantity: 10, TotalValue: 500000,
		BuyerID: buyer, SellerID: seller,
	})
	if err != nil {
		t.Fatalf("Record TX1: %v", err)
	}

	if l.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", l.Count())
	}

	rec, err := l.Get(tx1)
	if err != nil || rec.StockSymbol != "FOLD1" {
		t.Fatalf("Get(TX1) = (%+v, %v), want FOLD1", rec, err)
	}

	exists, ts := l.Verify(tx1)
	if !exists || ts <= 0 {
		t.Fatalf("Verify(TX1) = (%v, %d), want (true, >0)", exists, ts)
	}

	_, err = l.Record(owner, domain.TradeInput{
		TradeID: tx2, StockSymbol: "SAPA1",
		Price: 30000, Quantity: 5, TotalValue: 150000,
		BuyerID: buyer, SellerID: seller,
	})
	if err != nil {
		t.Fatalf("Record TX2: %v", err)
	}

	if l.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", l.Count())
	}

	ids := l.AllIDs()
	if len(ids) != 2 || ids[0] != tx1 || ids[1] != tx2 {
		t.Fatalf("AllIDs() = %v, want [TX1 TX2]", ids)
	}
}

func TestSubscribeDeliversEvent(t *testing.T) {
	l, owner := newTestLedger()

	ch := make(chan domain.TradeRecorded, 1)
	l.Subscribe(ch)

	in := validInput()
	rec, err := l.Record(owner, in)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	select {
	case ev := <-ch:
		if ev.TradeID != in.TradeID.String() ||
			ev.StockSymbol != in.StockSymbol ||
			ev.Price != in.Price ||
			ev.Quantity != in.Quantity ||
			ev.Timestamp != rec.Timestamp {
			t.Fatalf("event %+v does not match record %+v", ev, rec)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestNoEventOnFailedInsert(t *testing.T) {
	l, owner := newTestLedger()

	ch := make(chan domain.TradeRecorded, 2)
	l.Subscribe(ch)

	in := validInput()
	if _, err := l.Record(owner, in); err != nil {
		t.Fatalf("Record: %v", err)
	}
	<-ch

	if _, err := l.Record(owner, in); !errors.Is(err, domain.ErrDuplicateTrade) {
		t.Fatalf("duplicate Record = %v", err)
	}

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event after failed insert: %+v", ev)
	default:
	}
}

func TestRestore(t *testing.T) {
	l, owner := newTestLedger()

	var journaled []domain.TradeRecord
	for i := 0; i < 3; i++ {
		rec, err := l.Record(owner, validInput())
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		journaled = append(journaled, rec)
	}

	fresh := New(owner)
	if err := fresh.Restore(journaled); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if fresh.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", fresh.Count())
	}

	for _, want := range journaled {
		got, err := fresh.Get(want.TradeID)
		if err != nil {
			t.Fatalf("Get(%s): %v", want.TradeID, err)
		}
		if got != want {
			t.Fatalf("restored record differs: %+v vs %+v", got, want)
		}
	}

	wantIDs := l.AllIDs()
	gotIDs := fresh.AllIDs()
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Fatalf("restored order differs at %d", i)
		}
	}
}

func TestRestoreKeepsSequencesAcrossGaps(t *testing.T) {
	owner := domain.NewPartyID()

	// A journal with a hole at sequence 3: that append failed while the
	// service ran degraded, so the slot was consumed but never written.
	var journaled []domain.TradeRecord
	for _, seq := range []int64{1, 2, 4} {
		in := validInput()
		journaled = append(journaled, domain.TradeRecord{
			TradeID:     in.TradeID,
			StockSymbol: in.StockSymbol,
			Price:       in.Price,
			Quantity:    in.Quantity,
			TotalValue:  in.TotalValue,
			BuyerID:     in.BuyerID,
			SellerID:    in.SellerID,
			Timestamp:   time.Now().Unix(),
			Sequence:    seq,
		})
	}

	l := New(owner)
	if err := l.Restore(journaled); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	// Replay must not renumber: each record keeps its journaled slot.
	for _, want := range journaled {
		got, err := l.Get(want.TradeID)
		if err != nil {
			t.Fatalf("Get(%s): %v", want.TradeID, err)
		}
		if got.Sequence != want.Sequence {
			t.Fatalf("Sequence = %d after restore, want %d", got.Sequence, want.Sequence)
		}
	}

	// The next insert continues past the highest journaled sequence;
	// reusing 4 would collide with the existing journal key.
	rec, err := l.Record(owner, validInput())
	if err != nil {
		t.Fatalf("Record after restore: %v", err)
	}
	if rec.Sequence != 5 {
		t.Fatalf("Sequence = %d after gapped restore, want 5", rec.Sequence)
	}
}

func TestRestoreRejectsInvalidSequence(t *testing.T) {
	owner := domain.NewPartyID()
	in := validInput()

	rec := domain.TradeRecord{
		TradeID:     in.TradeID,
		StockSymbol: in.StockSymbol,
		Price:       in.Price,
		Quantity:    in.Quantity,
		TotalValue:  in.TotalValue,
		BuyerID:     in.BuyerID,
		SellerID:    in.SellerID,
		Timestamp:   time.Now().Unix(),
	}

	l := New(owner)
	if err := l.Restore([]domain.TradeRecord{rec}); err == nil {
		t.Fatal("Restore accepted a record without a sequence")
	}
}

func TestRestoreRejectsNonEmptyLedger(t *testing.T) {
	l, owner := newTestLedger()
	rec, err := l.Record(owner, validInput())
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if err := l.Restore([]domain.TradeRecord{rec}); err == nil {
		t.Fatal("Restore into non-empty ledger succeeded")
	}
}

func TestRestoreRejectsDuplicates(t *testing.T) {
	_, owner := newTestLedger()

	rec := domain.TradeRecord{
		TradeID:     domain.NewTradeID(),
		StockSymbol: "FOLD1",
		Price:       50000,
		Quantity:    10,
		TotalValue:  500000,
		BuyerID:     domain.NewPartyID(),
		SellerID:    domain.NewPartyID(),
		Timestamp:   time.Now().Unix(),
		Sequence:    1,
	}

	fresh := New(owner)
	err := fresh.Restore([]domain.TradeRecord{rec, rec})
	if !errors.Is(err, domain.ErrDuplicateTrade) {
		t.Fatalf("Restore with duplicate = %v, want ErrDuplicateTrade", err)
	}
}

func TestTimestampUsesLedgerClock(t *testing.T) {
	l, owner := newTestLedger()

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	rec, err := l.Record(owner, validInput())
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.Timestamp != fixed.Unix() {
		t.Fatalf("Timestamp = %d, want %d", rec.Timestamp, fixed.Unix())
	}
}
