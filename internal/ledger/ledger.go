package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/jeovahfialho/trade-ledger/internal/domain"
)

// Ledger is the append-only registry of settled trades. A single mutex
// serializes every state-changing call, so a write either commits in its
// entirety or leaves no trace; reads observe the last committed state.
//
// Per-record state has exactly one transition: absent -> recorded. There
// is no update and no delete.
type Ledger struct {
	mu      sync.Mutex
	owner   domain.PartyID
	records map[domain.TradeID]domain.TradeRecord
	order   []domain.TradeID
	subs    []chan<- domain.TradeRecorded
	nextSeq int64
	now     func() time.Time
}

// New creates a ledger owned by the given party. Ownership is fixed for
// the ledger's lifetime; there is no transfer operation.
func New(owner domain.PartyID) *Ledger {
	return &Ledger{
		owner:   owner,
		records: make(map[domain.TradeID]domain.TradeRecord),
		order:   make([]domain.TradeID, 0, 1024),
		nextSeq: 1,
		now:     time.Now,
	}
}

// Record inserts a new immutable trade record. Only the owner may call
// it. On success the record's timestamp is set to the ledger clock, its
// id is appended to the insertion-order list and a TradeRecorded event
// is delivered to subscribers.
//
// Failures: domain.ErrUnauthorized, domain.ErrDuplicateTrade,
// domain.ErrInvalidPrice, domain.ErrInvalidQuantity,
// domain.ErrEmptyTradeID. A failed call changes nothing.
func (l *Ledger) Record(caller domain.PartyID, in domain.TradeInput) (domain.TradeRecord, error) {
	if caller != l.owner {
		return domain.TradeRecord{}, domain.ErrUnauthorized
	}
	if err := in.Validate(); err != nil {
		return domain.TradeRecord{}, err
	}

	l.mu.Lock()
	if _, dup := l.records[in.TradeID]; dup {
		l.mu.Unlock()
		return domain.TradeRecord{}, domain.ErrDuplicateTrade
	}

	rec := domain.TradeRecord{
		TradeID:     in.TradeID,
		StockSymbol: in.StockSymbol,
		Price:       in.Price,
		Quantity:    in.Quantity,
		TotalValue:  in.TotalValue,
		BuyerID:     in.BuyerID,
		SellerID:    in.SellerID,
		Timestamp:   l.now().Unix(),
		Sequence:    l.nextSeq,
	}
	l.nextSeq++
	l.records[in.TradeID] = rec
	l.order = append(l.order, in.TradeID)
	subs := make([]chan<- domain.TradeRecorded, len(l.subs))
	copy(subs, l.subs)
	l.mu.Unlock()

	ev := domain.EventFrom(rec)
	for _, ch := range subs {
		// Non-blocking: a subscriber that falls behind misses events;
		// the journal remains the durable record.
		select {
		case ch <- ev:
		default:
		}
	}

	return rec, nil
}

// Get returns the stored record for an existing id, or
// domain.ErrNotFound. Any caller may invoke it.
func (l *Ledger) Get(id domain.TradeID) (domain.TradeRecord, error) {
	l.mu.Lock()
	rec, ok := l.records[id]
	l.mu.Unlock()

	if !ok {
		return domain.TradeRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

// Verify is the non-failing probe variant of Get: (false, 0) for an
// unknown id, (true, insertion timestamp) otherwise.
func (l *Ledger) Verify(id domain.TradeID) (bool, int64) {
	l.mu.Lock()
	rec, ok := l.records[id]
	l.mu.Unlock()

	if !ok {
		return false, 0
	}
	return true, rec.Timestamp
}

// AllIDs returns every recorded id in insertion order. The result is a
// copy; the ledger grows without bound and the caller is expected to
// bound growth externally.
func (l *Ledger) AllIDs() []domain.TradeID {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]domain.TradeID, len(l.order))
	copy(ids, l.order)
	return ids
}

// Count returns the number of recorded trades. Monotonically
// non-decreasing over the ledger's life.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// Owner returns the identity authorized to record trades.
func (l *Ledger) Owner() domain.PartyID {
	return l.owner
}

// Subscribe registers a channel for TradeRecorded events. Delivery is
// best-effort and post-commit; use a buffered channel.
func (l *Ledger) Subscribe(ch chan<- domain.TradeRecorded) {
	l.mu.Lock()
	l.subs = append(l.subs, ch)
	l.mu.Unlock()
}

// Restore replays journaled records into an empty ledger, preserving
// their original timestamps, sequences and order. It bypasses the owner
// check (the records were authorized when first inserted) but still
// enforces validity and uniqueness. Call before serving traffic.
//
// Journaled sequences may have gaps: an append that failed while the
// service ran degraded leaves its slot unused. The next assigned
// sequence continues past the highest journaled one so a fresh insert
// never collides with an existing journal key.
func (l *Ledger) Restore(records []domain.TradeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.order) != 0 {
		return fmt.Errorf("restore into non-empty ledger (%d records)", len(l.order))
	}

	for _, rec := range records {
		in := domain.TradeInput{
			TradeID:     rec.TradeID,
			StockSymbol: rec.StockSymbol,
			Price:       rec.Price,
			Quantity:    rec.Quantity,
			TotalValue:  rec.TotalValue,
			BuyerID:     rec.BuyerID,
			SellerID:    rec.SellerID,
		}
		if err := in.Validate(); err != nil {
			return fmt.Errorf("journaled trade %s: %w", rec.TradeID, err)
		}
		if _, dup := l.records[rec.TradeID]; dup {
			return fmt.Errorf("journaled trade %s: %w", rec.TradeID, domain.ErrDuplicateTrade)
		}
		if rec.Sequence <= 0 {
			return fmt.Errorf("journaled trade %s: invalid sequence %d", rec.TradeID, rec.Sequence)
		}
		l.records[rec.TradeID] = rec
		l.order = append(l.order, rec.TradeID)
		if rec.Sequence >= l.nextSeq {
			l.nextSeq = rec.Sequence + 1
		}
	}

	return nil
}
